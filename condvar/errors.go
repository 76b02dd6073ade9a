package condvar

import "github.com/cockroachdb/errors"

// ErrMixedUserMutex is returned when wait morphing is enabled and a
// second caller attempts to Wait on a Cond using a different user mutex
// than the one already remembered from an earlier, still-pending wait.
// This is a fatal usage bug rather than a recoverable condition:
// callers should treat it as they would any other programming error,
// not loop on it.
var ErrMixedUserMutex = errors.New("condvar: wait-morphing condvar used with more than one user mutex")

// ErrRecordReused names the error for a Record submitted to a Cond's
// waiter FIFO twice. Wait always allocates a fresh Record per call, and
// Cond offers no way to enqueue a caller-built Record, so no function in
// this package returns it.
var ErrRecordReused = errors.New("condvar: wait record reused across waits")
