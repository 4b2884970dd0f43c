package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHaltStopsGoroutine(t *testing.T) {
	var w Worker
	stopped := make(chan struct{})

	w.Go(func() {
		<-w.HaltCh()
		close(stopped)
	})

	w.Halt()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not observe Halt")
	}
}

func TestHaltIsIdempotent(t *testing.T) {
	var w Worker
	require.NotPanics(t, func() {
		w.Halt()
		w.Halt()
	})
}

func TestHaltWaitsForAllGoroutines(t *testing.T) {
	var w Worker
	var doneCount int
	done := make(chan struct{}, 3)

	for i := 0; i < 3; i++ {
		w.Go(func() {
			<-w.HaltCh()
			done <- struct{}{}
		})
	}

	w.Halt()
	close(done)
	for range done {
		doneCount++
	}
	require.Equal(t, 3, doneCount)
}
