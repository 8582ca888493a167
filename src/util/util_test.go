package util

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestSignalLatches(t *testing.T) {
	s := NewSignal()
	require.False(t, s.Clear())

	s.Raise()
	s.Raise()
	select {
	case <-s.C():
	default:
		t.Fatal("raised signal not ready")
	}
	select {
	case <-s.C():
		t.Fatal("signal fired twice for one latch")
	default:
	}

	s.Raise()
	require.True(t, s.Clear())
	require.False(t, s.Clear())
}

func TestCancellation(t *testing.T) {
	c := NewCancellation()
	require.NoError(t, c.Error())

	first := errors.New("first")
	require.NoError(t, c.Cancel(first))
	require.ErrorIs(t, c.Cancel(errors.New("second")), first)
	require.ErrorIs(t, c.Error(), first)
	select {
	case <-c.Finished():
	default:
		t.Fatal("cancellation not finished")
	}

	c = NewCancellation()
	require.NoError(t, c.Cancel(nil))
	require.ErrorIs(t, c.Error(), ErrCancelled)
}

func TestTimerStopDrains(t *testing.T) {
	mock := clock.NewMock()
	timer := mock.Timer(time.Second)
	mock.Add(2 * time.Second)
	require.True(t, TimerStop(timer))
	select {
	case <-timer.C:
		t.Fatal("timer channel not drained")
	default:
	}
}
