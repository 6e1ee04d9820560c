package store

import (
	"context"
	"errors"

	"github.com/gpm-project/gpm/internal/process"
)

// ErrCorrupt reports a saved spec that no longer decodes. Loading aborts on
// the first corrupt entry rather than resurrecting a partial set.
var ErrCorrupt = errors.New("store: corrupt saved spec")

// Store persists the managed spec set for save/resurrect. Only desired
// configuration is stored; runtime state (PIDs, restart counters) never is.
// SaveSpecs replaces the saved set wholesale so the store always mirrors one
// consistent snapshot.
type Store interface {
	EnsureSchema(ctx context.Context) error
	SaveSpecs(ctx context.Context, specs []process.Spec) error
	LoadSpecs(ctx context.Context) ([]process.Spec, error)
	Close() error
}
