package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffDoubles(t *testing.T) {
	base := time.Second
	max := 60 * time.Second
	require.Equal(t, 1*time.Second, Backoff(1, base, max))
	require.Equal(t, 2*time.Second, Backoff(2, base, max))
	require.Equal(t, 4*time.Second, Backoff(3, base, max))
	require.Equal(t, 32*time.Second, Backoff(6, base, max))
}

func TestBackoffCapped(t *testing.T) {
	base := time.Second
	max := 10 * time.Second
	require.Equal(t, 10*time.Second, Backoff(5, base, max))
	require.Equal(t, 10*time.Second, Backoff(50, base, max))
}

func TestBackoffZeroBaseDefaults(t *testing.T) {
	require.Equal(t, time.Second, Backoff(1, 0, 0))
}

func TestPruneWindow(t *testing.T) {
	now := time.Now()
	crashes := []time.Time{
		now.Add(-3 * time.Minute),
		now.Add(-90 * time.Second),
		now.Add(-30 * time.Second),
		now,
	}
	got := pruneWindow(crashes, now, time.Minute)
	require.Len(t, got, 2)
	require.Equal(t, crashes[2], got[0])
}

func TestPruneWindowDisabled(t *testing.T) {
	now := time.Now()
	crashes := []time.Time{now.Add(-time.Hour)}
	require.Len(t, pruneWindow(crashes, now, 0), 1)
}
