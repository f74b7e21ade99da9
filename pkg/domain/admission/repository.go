package admission

import "context"

type RateStore interface {
	// Load returns the stored state for key. ok is false when the key has
	// never been saved.
	Load(ctx context.Context, key ClientKey) (state RateWindowState, ok bool, err error)
	Save(ctx context.Context, key ClientKey, state RateWindowState) error
	Close() error
}
