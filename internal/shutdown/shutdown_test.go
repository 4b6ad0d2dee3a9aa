package shutdown_test

import (
	"syscall"
	"testing"
	"time"

	"codeberg.org/mutker/wwatcher/internal/shutdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollIntervalIsSmall(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, shutdown.PollInterval)
}

func TestFlagSetIsIdempotent(t *testing.T) {
	f := shutdown.NewFlag()
	assert.False(t, f.IsSet())

	f.Set()
	f.Set()

	assert.True(t, f.IsSet())
	select {
	case <-f.Done():
	default:
		t.Fatal("Done not closed after Set")
	}
}

func TestSleepCompletes(t *testing.T) {
	f := shutdown.NewFlag()
	assert.True(t, f.Sleep(20*time.Millisecond))
}

func TestSleepInterruptedWithinPollInterval(t *testing.T) {
	f := shutdown.NewFlag()
	go func() {
		time.Sleep(50 * time.Millisecond)
		f.Set()
	}()

	start := time.Now()
	assert.False(t, f.Sleep(time.Hour))
	assert.Less(t, time.Since(start), 50*time.Millisecond+2*shutdown.PollInterval)
}

func TestSleepReturnsImmediatelyWhenSet(t *testing.T) {
	f := shutdown.NewFlag()
	f.Set()

	start := time.Now()
	assert.False(t, f.Sleep(time.Hour))
	assert.Less(t, time.Since(start), shutdown.PollInterval)
}

func TestWatchSetsFlagOnSignal(t *testing.T) {
	f := shutdown.NewFlag()
	c := shutdown.Watch(f)
	defer c.Stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("flag not set after SIGTERM")
	}
	assert.True(t, f.IsSet())
}
