// Package notify reports lifecycle transitions to systemd when the daemon
// runs as a Type=notify unit. Outside systemd every call is a no-op.
package notify

import (
	"time"

	"codeberg.org/mutker/wwatcher/internal/logger"
	"github.com/coreos/go-systemd/v22/daemon"
)

func send(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logger.Debug().Err(err).Str("state", state).Msg("sd_notify failed")
		return
	}
	if sent {
		logger.Debug().Str("state", state).Msg("sd_notify sent")
	}
}

// Ready signals that startup finished.
func Ready() {
	send(daemon.SdNotifyReady)
}

// Stopping signals that shutdown began.
func Stopping() {
	send(daemon.SdNotifyStopping)
}

// Watchdog forwards liveness pings from the sampling loop to the systemd
// watchdog, at most once per half watchdog interval.
type Watchdog struct {
	interval time.Duration
	last     time.Time
}

// NewWatchdog reads the unit's watchdog interval. Without one Ping is a
// no-op.
func NewWatchdog() *Watchdog {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Debug().Err(err).Msg("watchdog settings ignored")
		interval = 0
	}

	return &Watchdog{interval: interval}
}

// Enabled reports whether the unit has a watchdog.
func (w *Watchdog) Enabled() bool {
	return w.interval > 0
}

// Ping sends WATCHDOG=1 unless a ping went out within the last half
// interval. It must be called from a single goroutine.
func (w *Watchdog) Ping() {
	if !w.Enabled() {
		return
	}

	now := time.Now()
	if !w.last.IsZero() && now.Sub(w.last) < w.interval/2 {
		return
	}
	w.last = now

	send(daemon.SdNotifyWatchdog)
}
