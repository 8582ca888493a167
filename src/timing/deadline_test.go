package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeadlineOrdering(t *testing.T) {
	now := time.Now()
	a, b := At(now), At(now.Add(time.Second))

	require.Equal(t, -1, a.Cmp(b))
	require.Equal(t, 1, b.Cmp(a))
	require.Equal(t, 0, a.Cmp(At(now)))
	require.True(t, b.Before(Infinite))
	require.False(t, Infinite.Before(b))
	require.Equal(t, 0, Infinite.Cmp(Infinite))
}

func TestDeadlineSaturates(t *testing.T) {
	now := At(time.Now())

	require.True(t, Infinite.Add(time.Hour).IsInfinite())

	_, ok := Infinite.Until(now)
	require.False(t, ok)

	left, ok := now.Add(-time.Minute).Until(now)
	require.True(t, ok)
	require.Zero(t, left)

	left, ok = now.Add(time.Second).Until(now)
	require.True(t, ok)
	require.Equal(t, time.Second, left)
}

func TestDeadlineReachedAndMin(t *testing.T) {
	now := At(time.Now())
	require.True(t, now.Reached(now))
	require.False(t, now.Add(time.Millisecond).Reached(now))
	require.False(t, Infinite.Reached(now))
	require.True(t, now.Reached(Infinite))

	require.True(t, Min().IsInfinite())
	require.Equal(t, 0, Min(Infinite, now.Add(time.Second), now).Cmp(now))
}
