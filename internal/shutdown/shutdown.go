// Package shutdown turns termination signals into a process-wide flag that
// the long-running loops poll at their boundaries.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"codeberg.org/mutker/wwatcher/internal/logger"
)

// PollInterval bounds how long a loop may block before it rechecks the flag.
const PollInterval = 500 * time.Millisecond

// Flag is set at most once and never reset.
type Flag struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
}

func NewFlag() *Flag {
	return &Flag{done: make(chan struct{})}
}

// Set raises the flag. Repeated calls are no-ops.
func (f *Flag) Set() {
	f.once.Do(func() {
		f.set.Store(true)
		close(f.done)
	})
}

// IsSet reports whether shutdown was requested.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// Done is closed when the flag is set.
func (f *Flag) Done() <-chan struct{} {
	return f.done
}

// Sleep waits for d or until the flag is set, checking it every
// PollInterval. It reports whether the full duration elapsed.
func (f *Flag) Sleep(d time.Duration) bool {
	return f.sleep(d, PollInterval)
}

func (f *Flag) sleep(d, poll time.Duration) bool {
	deadline := time.Now().Add(d)
	for !f.IsSet() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		time.Sleep(min(remaining, poll))
	}

	return false
}

// Controller owns the signal subscription feeding a Flag.
type Controller struct {
	flag    *Flag
	signals chan os.Signal
	stop    chan struct{}
	wg      sync.WaitGroup
}

// Watch sets flag on SIGINT or SIGTERM until Stop is called.
func Watch(flag *Flag) *Controller {
	c := &Controller{
		flag:    flag,
		signals: make(chan os.Signal, 1),
		stop:    make(chan struct{}),
	}
	signal.Notify(c.signals, syscall.SIGINT, syscall.SIGTERM)

	c.wg.Add(1)
	go c.run()

	return c
}

func (c *Controller) run() {
	defer c.wg.Done()

	for {
		select {
		case sig := <-c.signals:
			logger.Info().Str("signal", sig.String()).Msg("Received termination signal.")
			c.flag.Set()
		case <-c.stop:
			return
		}
	}
}

// Stop releases the signal subscription.
func (c *Controller) Stop() {
	signal.Stop(c.signals)
	close(c.stop)
	c.wg.Wait()
}
