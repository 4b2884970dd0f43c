package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitForFloorSleepsRemainder(t *testing.T) {
	now := time.Unix(0, 0)
	var slept time.Duration

	c := &TransactionClock{
		now:   func() time.Time { return now },
		sleep: func(d time.Duration) { slept = d },
	}

	c.Start()
	now = now.Add(2 * time.Second)
	c.WaitForFloor()

	require.Equal(t, 3*time.Second, slept)
}

func TestWaitForFloorSkipsSleepOnceElapsed(t *testing.T) {
	now := time.Unix(0, 0)
	slept := -1 * time.Second

	c := &TransactionClock{
		now:   func() time.Time { return now },
		sleep: func(d time.Duration) { slept = d },
	}

	c.Start()
	now = now.Add(6 * time.Second)
	c.WaitForFloor()

	require.Equal(t, -1*time.Second, slept, "sleep must not be called once the floor has already passed")
}
