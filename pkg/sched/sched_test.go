package sched_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shanwei/osv/pkg/sched"
)

func TestNewThreadCarriesCPUAndUniqueID(t *testing.T) {
	a := sched.NewThread(3)
	b := sched.NewThread(3)
	assert.Equal(t, 3, a.CurrentCPU())
	assert.Equal(t, 3, b.CurrentCPU())
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestCurrentThreadRoundRobinsAcrossCalls(t *testing.T) {
	first := sched.CurrentThread()
	seenDistinctCPU := false
	for i := 0; i < 8; i++ {
		th := sched.CurrentThread()
		assert.NotEqual(t, first.ID(), th.ID())
		if th.CurrentCPU() != first.CurrentCPU() {
			seenDistinctCPU = true
		}
	}
	if runtime.GOMAXPROCS(0) > 1 {
		assert.True(t, seenDistinctCPU, "round-robin scheduler never varied CPU across calls")
	}
}

func TestPreemptDisableEnableNests(t *testing.T) {
	assert.EqualValues(t, 0, sched.PreemptDepth())
	sched.PreemptDisable()
	sched.PreemptDisable()
	assert.EqualValues(t, 2, sched.PreemptDepth())
	sched.PreemptEnable()
	assert.EqualValues(t, 1, sched.PreemptDepth())
	sched.PreemptEnable()
	assert.EqualValues(t, 0, sched.PreemptDepth())
}

func TestTimerNilForZeroTime(t *testing.T) {
	timer := sched.NewTimer(time.Time{})
	assert.Nil(t, timer)
	assert.Nil(t, timer.C())
	timer.Stop() // must not panic on a nil receiver
}

func TestTimerFiresAfterExpiration(t *testing.T) {
	timer := sched.NewTimer(time.Now().Add(10 * time.Millisecond))
	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	timer.Stop()
}
