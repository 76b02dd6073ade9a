package waitrecord_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shanwei/osv/pkg/sched"
	"github.com/shanwei/osv/pkg/waitrecord"
)

func TestRecordWakeBeforeWait(t *testing.T) {
	r := waitrecord.New(sched.NewThread(0))
	r.Wake()
	assert.True(t, r.Woken())

	done := make(chan struct{})
	go func() {
		r.Wait(nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return for an already-woken record")
	}
}

func TestRecordWakeIsIdempotent(t *testing.T) {
	r := waitrecord.New(nil)
	r.Wake()
	r.Wake()
	assert.True(t, r.Woken())
}

func TestRecordWaitUnblocksOnWake(t *testing.T) {
	r := waitrecord.New(nil)
	woke := make(chan struct{})
	go func() {
		r.Wait(nil)
		close(woke)
	}()

	select {
	case <-woke:
		t.Fatal("Wait returned before Wake was called")
	case <-time.After(20 * time.Millisecond):
	}

	r.Wake()
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Wake")
	}
}

func TestRecordWaitTimesOutWithoutWake(t *testing.T) {
	r := waitrecord.New(nil)
	timer := sched.NewTimer(time.Now().Add(10 * time.Millisecond))
	r.Wait(timer)
	assert.False(t, r.Woken())
}

func TestRecordNoTimerBlocksUntilWoken(t *testing.T) {
	r := waitrecord.New(nil)
	returned := make(chan struct{})
	go func() {
		r.Wait(nil) // nil timer: no timeout
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("Wait with nil timer returned without a wake")
	case <-time.After(50 * time.Millisecond):
	}
	r.Wake()
	<-returned
}

func TestRecordFIFOLink(t *testing.T) {
	a := waitrecord.New(nil)
	b := waitrecord.New(nil)
	a.SetNext(b)
	assert.Same(t, b, a.Next())
	a.SetNext(nil)
	assert.Nil(t, a.Next())
}
