package webui

import (
	"context"
	"time"

	"github.com/verasca/lociq/internal/conversation"
)

const defaultRetryDelay = 400 * time.Millisecond

// Navigator resolves turn ids to page fragments. Resolution is best-effort:
// a turn that is still being appended gets exactly one retry after a short
// delay, and an id that never materializes resolves to nothing rather than
// an error.
type Navigator struct {
	store      *conversation.Store
	retryDelay time.Duration
}

func NewNavigator(store *conversation.Store) *Navigator {
	return &Navigator{store: store, retryDelay: defaultRetryDelay}
}

// AnchorFor returns the fragment identifier for a turn and whether the turn
// exists. Calling it repeatedly for the same id yields the same result with
// no side effects.
func (n *Navigator) AnchorFor(ctx context.Context, turnID string) (string, bool) {
	if _, err := n.store.FindByID(turnID); err == nil {
		return AnchorID(turnID), true
	}

	select {
	case <-ctx.Done():
		return "", false
	case <-time.After(n.retryDelay):
	}

	if _, err := n.store.FindByID(turnID); err == nil {
		return AnchorID(turnID), true
	}
	return "", false
}
