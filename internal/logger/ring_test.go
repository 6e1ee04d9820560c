package logger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRingLastOldestFirst(t *testing.T) {
	r := NewRing(10)
	for i := 0; i < 5; i++ {
		r.Append(fmt.Sprintf("line %d", i))
	}
	got := r.Last(3)
	require.Equal(t, []string{"line 2", "line 3", "line 4"}, got)
}

func TestRingOverflowKeepsNewest(t *testing.T) {
	r := NewRing(3)
	for i := 0; i < 10; i++ {
		r.Append(fmt.Sprintf("line %d", i))
	}
	require.Equal(t, 3, r.Len())
	require.Equal(t, []string{"line 7", "line 8", "line 9"}, r.Last(10))
}

func TestRingLastMoreThanWritten(t *testing.T) {
	r := NewRing(100)
	r.Append("only")
	require.Equal(t, []string{"only"}, r.Last(50))
	require.Nil(t, r.Last(0))
}

func TestRingFollowDeliversNewLines(t *testing.T) {
	r := NewRing(10)
	r.Append("before")
	ch, cancel := r.Follow()
	defer cancel()
	r.Append("after")
	select {
	case line := <-ch:
		require.Equal(t, "after", line)
	case <-time.After(time.Second):
		t.Fatal("follower did not receive the line")
	}
	// History is not replayed to followers.
	select {
	case line := <-ch:
		t.Fatalf("unexpected extra line %q", line)
	default:
	}
}

func TestRingFollowCancelClosesChannel(t *testing.T) {
	r := NewRing(10)
	ch, cancel := r.Follow()
	cancel()
	_, open := <-ch
	require.False(t, open)
	// Cancel twice is fine, and appends after cancel must not panic.
	cancel()
	r.Append("later")
}

func TestRingSlowFollowerDropsNotBlocks(t *testing.T) {
	r := NewRing(10)
	ch, cancel := r.Follow()
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < followerBuffer*2; i++ {
			r.Append("x")
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("append blocked on a slow follower")
	}
	require.LessOrEqual(t, len(ch), followerBuffer)
}
