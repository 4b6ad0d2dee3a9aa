package checkpoint

import (
	"context"

	"codeberg.org/mutker/wwatcher/internal/store"
)

// Saver writes the full ordered history to durable storage.
type Saver interface {
	Save(ctx context.Context, samples []store.Sample) error
}

// Loader restores the history written by a previous Save. It never fails:
// a missing or unreadable checkpoint yields an empty history.
type Loader interface {
	Load(ctx context.Context) []store.Sample
}

// Manager is the persistence contract used by the daemon.
type Manager interface {
	Saver
	Loader
}
