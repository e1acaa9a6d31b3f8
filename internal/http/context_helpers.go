package httpx

import (
	"context"

	"github.com/repairlink/ui-gateway/internal/session"
)

// storeKey is an unexported context key type to avoid collisions across
// packages. All handlers and middleware go through the helpers below.
type storeKey struct{}

// SetStoreInContext returns a child context carrying the session store.
// If store is nil, the original ctx is returned unchanged.
func SetStoreInContext(ctx context.Context, store *session.Store) context.Context {
	if store == nil {
		return ctx
	}
	return context.WithValue(ctx, storeKey{}, store)
}

// StoreFromContext returns the session store from context and whether one is
// present.
func StoreFromContext(ctx context.Context) (*session.Store, bool) {
	if store, ok := ctx.Value(storeKey{}).(*session.Store); ok && store != nil {
		return store, true
	}
	return nil, false
}
