// Package sampler runs the single writer of the sample history: it reads the
// sensors, appends to the store, checkpoints once per calendar day and on
// shutdown.
package sampler

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/wwatcher/internal/checkpoint"
	"codeberg.org/mutker/wwatcher/internal/errors"
	"codeberg.org/mutker/wwatcher/internal/logger"
	"codeberg.org/mutker/wwatcher/internal/sensor"
	"codeberg.org/mutker/wwatcher/internal/shutdown"
	"codeberg.org/mutker/wwatcher/internal/store"
)

type Loop struct {
	reader   sensor.Reader
	store    *store.Store
	saver    checkpoint.Saver
	flag     *shutdown.Flag
	interval time.Duration
	now      func() time.Time
	beat     func()

	state          atomic.Int32
	lastCheckpoint time.Time
}

type Option func(*Loop)

// WithClock replaces time.Now for timestamps and the daily checkpoint.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// WithHeartbeat registers a liveness callback. It runs after every
// completed cycle and after every poll window of the sleep, never while a
// sensor read is blocked.
func WithHeartbeat(beat func()) Option {
	return func(l *Loop) {
		l.beat = beat
	}
}

func New(
	reader sensor.Reader, st *store.Store, saver checkpoint.Saver,
	flag *shutdown.Flag, interval time.Duration, opts ...Option,
) *Loop {
	l := &Loop{
		reader:   reader,
		store:    st,
		saver:    saver,
		flag:     flag,
		interval: interval,
		now:      time.Now,
		beat:     func() {},
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

func (l *Loop) setState(s State) {
	l.state.Store(int32(s))
}

// Run samples until the shutdown flag is set, then writes a final
// checkpoint and returns its error.
func (l *Loop) Run(ctx context.Context) error {
	l.lastCheckpoint = day(l.now())

	logger.Info().
		Dur("interval", l.interval).
		Int("capacity", l.store.Capacity()).
		Int("restored", l.store.Len()).
		Msg("Sampling started")

	for !l.flag.IsSet() {
		l.setState(Sampling)
		l.cycle(ctx)
		l.beat()

		if l.flag.IsSet() {
			break
		}

		l.setState(Sleeping)
		l.sleep()
	}

	err := l.saver.Save(ctx, l.store.Snapshot())
	l.setState(Stopped)

	if err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}

	logger.Info().Int("samples", l.store.Len()).Msg("Final checkpoint written")

	return nil
}

func (l *Loop) cycle(ctx context.Context) {
	now := l.now()

	reading, err := l.reader.Read()
	if err != nil {
		// the next cycle is the retry
		logError(errors.ErrReadFailure, err).Msg("Sensor read failed, skipping sample")
	} else {
		sample := store.NewSample(now, reading.Humidity, reading.Temperature)
		l.store.Append(sample)

		logger.Debug().
			Str("ts", sample.Timestamp).
			Float64("rH", sample.Humidity).
			Float64("temp", sample.Temperature).
			Int("samples", l.store.Len()).
			Msg("Sample recorded")
	}

	l.maybeCheckpoint(ctx, now)
}

// maybeCheckpoint saves once the calendar date has moved past the last
// successful checkpoint. A failed save is retried on the next cycle.
func (l *Loop) maybeCheckpoint(ctx context.Context, now time.Time) {
	today := day(now)
	if !today.After(l.lastCheckpoint) {
		return
	}

	if err := l.saver.Save(ctx, l.store.Snapshot()); err != nil {
		logError(errors.ErrPersistFailure, err).Msg("Daily checkpoint failed")
		return
	}

	l.lastCheckpoint = today
	logger.Info().Str("date", today.Format("2006-01-02")).Msg("Daily checkpoint written")
}

// sleep waits out the interval one poll window at a time, beating after
// each window, until the interval elapses or the flag is set.
func (l *Loop) sleep() {
	deadline := time.Now().Add(l.interval)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if !l.flag.Sleep(min(remaining, shutdown.PollInterval)) {
			return
		}
		l.beat()
	}
}

// logError logs err with its code, wrapping it in fallback when it carries
// none.
func logError(fallback errors.ErrorCode, err error) *logger.LogEvent {
	var coded errors.Error
	if !errors.As(err, &coded) {
		coded = errors.New().Wrap(fallback, err)
	}

	return logger.ErrorWithCode(coded)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
