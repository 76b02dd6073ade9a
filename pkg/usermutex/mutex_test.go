package usermutex_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanwei/osv/pkg/usermutex"
	"github.com/shanwei/osv/pkg/waitrecord"
)

func TestLockUnlockUncontended(t *testing.T) {
	m := usermutex.New()
	assert.True(t, m.TryLock())
	assert.False(t, m.TryLock())
	m.Unlock()
	assert.True(t, m.TryLock())
}

func TestLockBlocksUntilUnlock(t *testing.T) {
	m := usermutex.New()
	m.Lock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock returned before Unlock")
	case <-time.After(20 * time.Millisecond):
	}

	m.Unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired after Unlock")
	}
}

func TestSendLockLandsImmediatelyWhenFree(t *testing.T) {
	m := usermutex.New()
	r := waitrecord.New(nil)
	m.SendLock(r)
	require.True(t, r.Woken())

	// The mutex is now held on r's behalf; a fresh Lock must block.
	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()
	select {
	case <-acquired:
		t.Fatal("Lock acquired a mutex that SendLock just claimed")
	case <-time.After(20 * time.Millisecond):
	}
	m.Unlock()
	<-acquired
}

func TestSendLockQueuesWhenHeld(t *testing.T) {
	m := usermutex.New()
	m.Lock()

	r := waitrecord.New(nil)
	m.SendLock(r)
	assert.False(t, r.Woken(), "handoff must not land while the mutex is held")

	m.Unlock()
	select {
	case <-time.After(time.Second):
		t.Fatal("handoff never landed after Unlock")
	default:
	}
	assert.True(t, r.Woken())
}

func TestHandoffChainOrdersAheadOfContenders(t *testing.T) {
	m := usermutex.New()
	m.Lock()

	r1 := waitrecord.New(nil)
	r2 := waitrecord.New(nil)
	m.SendLock(r1)
	m.SendLock(r2)

	contenderAcquired := make(chan struct{})
	go func() {
		m.Lock()
		close(contenderAcquired)
	}()
	time.Sleep(10 * time.Millisecond)

	m.Unlock() // releases r1's slot: r1 should land, not the contender.
	require.Eventually(t, r1.Woken, time.Second, time.Millisecond)
	assert.False(t, r2.Woken())
	select {
	case <-contenderAcquired:
		t.Fatal("ordinary contender jumped the handoff queue")
	default:
	}

	m.ReceiveLock()
	m.Unlock() // releases on r1's behalf: r2 should land next, still ahead of the contender.
	require.Eventually(t, r2.Woken, time.Second, time.Millisecond)
	select {
	case <-contenderAcquired:
		t.Fatal("ordinary contender jumped the handoff queue")
	default:
	}

	m.Unlock() // only now does the ordinary contender get a turn.
	select {
	case <-contenderAcquired:
	case <-time.After(time.Second):
		t.Fatal("ordinary contender never acquired after the handoff chain drained")
	}
}
