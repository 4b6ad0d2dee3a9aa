package store_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/wwatcher/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(i int) store.Sample {
	return store.Sample{
		Timestamp:   fmt.Sprintf("2024/01/01 00:00:%02d", i%60),
		Humidity:    float64(i),
		Temperature: float64(i) / 2,
	}
}

func TestNewSampleTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 7, 9, 5, 2, 999_000_000, time.UTC)
	s := store.NewSample(ts, 45.67, 21.5)

	assert.Equal(t, "2024/03/07 09:05:02", s.Timestamp)
	assert.InDelta(t, 45.67, s.Humidity, 1e-9)
	assert.InDelta(t, 21.5, s.Temperature, 1e-9)
}

func TestAppendEvictsOldest(t *testing.T) {
	s := store.New(3)
	a, b, c, d := sample(1), sample(2), sample(3), sample(4)

	for _, x := range []store.Sample{a, b, c, d} {
		s.Append(x)
	}

	assert.Equal(t, []store.Sample{b, c, d}, s.Snapshot())
}

func TestLengthNeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	s := store.New(capacity)

	for i := 0; i < 3*capacity; i++ {
		s.Append(sample(i))
		assert.LessOrEqual(t, s.Len(), capacity)
	}
}

func TestFIFOKeepsLastCapacityInOrder(t *testing.T) {
	const capacity, extra = 7, 11
	s := store.New(capacity)

	var all []store.Sample
	for i := 0; i < capacity+extra; i++ {
		all = append(all, sample(i))
		s.Append(sample(i))
	}

	assert.Equal(t, all[extra:], s.Snapshot())
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	s := store.New(2)
	s.Append(sample(1))

	snap := s.Snapshot()
	snap[0].Humidity = 99
	s.Append(sample(2))
	s.Append(sample(3))

	assert.InDelta(t, 99.0, snap[0].Humidity, 1e-9)
	assert.Len(t, snap, 1)
	assert.Equal(t, []store.Sample{sample(2), sample(3)}, s.Snapshot())
}

func TestLoadFromReplacesContents(t *testing.T) {
	s := store.New(3)
	s.Append(sample(9))

	s.LoadFrom([]store.Sample{sample(1), sample(2)})
	assert.Equal(t, []store.Sample{sample(1), sample(2)}, s.Snapshot())

	s.LoadFrom([]store.Sample{sample(1), sample(2), sample(3), sample(4), sample(5)})
	assert.Equal(t, []store.Sample{sample(3), sample(4), sample(5)}, s.Snapshot())

	s.LoadFrom(nil)
	assert.Empty(t, s.Snapshot())
}

func TestLoadFromDoesNotAliasInput(t *testing.T) {
	s := store.New(3)
	in := []store.Sample{sample(1), sample(2)}

	s.LoadFrom(in)
	in[0] = sample(8)

	assert.Equal(t, sample(1), s.Snapshot()[0])
}

// Readers racing the writer always see a contiguous window of the appended
// sequence, never a torn one.
func TestConcurrentSnapshotsAreConsistent(t *testing.T) {
	const capacity, appends, readers = 16, 2000, 4
	s := store.New(capacity)

	var wg sync.WaitGroup
	done := make(chan struct{})

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}

				snap := s.Snapshot()
				if !assert.LessOrEqual(t, len(snap), capacity) {
					return
				}
				for i := 1; i < len(snap); i++ {
					if !assert.InDelta(t, snap[i-1].Humidity+1, snap[i].Humidity, 1e-9) {
						return
					}
				}
			}
		}()
	}

	for i := 0; i < appends; i++ {
		s.Append(sample(i))
	}
	close(done)
	wg.Wait()

	require.Equal(t, capacity, s.Len())
	assert.InDelta(t, float64(appends-1), s.Snapshot()[capacity-1].Humidity, 1e-9)
}
