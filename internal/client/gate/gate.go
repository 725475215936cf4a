// Package gate lets any UI control attempt an authenticated mutation
// without checking the session inline. Unauthenticated attempts are
// suspended, the auth surface opens, and the most recent suspended
// action replays exactly once after a successful sign-in.
package gate

import (
	"context"
	"sync"

	"github.com/msavina/craftmarket/internal/client/authflow"
	"github.com/msavina/craftmarket/internal/client/models"
	"github.com/msavina/craftmarket/internal/client/session"
	"github.com/msavina/craftmarket/internal/logging"
)

// Action is a mutation deferred until the user is authenticated.
type Action func(ctx context.Context) error

// Outcome reports how Guarded resolved the call.
type Outcome int

const (
	// Executed: the session was live, the action ran inline.
	Executed Outcome = iota
	// Deferred: the action is suspended behind the auth surface.
	Deferred
)

// Gate holds at most one pending action. A second Guarded call while one
// is pending replaces it: the UI shows a single modal auth surface, so
// only the latest intent is meaningful (the replacement is logged, see
// DESIGN.md).
type Gate struct {
	session *session.Session
	auth    *authflow.Machine
	log     logging.Logger

	mu          sync.Mutex
	pending     Action
	pendingKind string
}

// New wires a gate to the session and the auth machine. The gate
// registers itself for the machine's success and dismiss transitions.
func New(sess *session.Session, auth *authflow.Machine, log logging.Logger) *Gate {
	g := &Gate{session: sess, auth: auth, log: log.With("component", "gate")}
	auth.OnSuccess(g.onAuthSuccess)
	auth.OnDismiss(g.onAuthDismiss)
	return g
}

// Guarded runs action immediately when a user is signed in, returning
// its error. Otherwise it captures the action, opens the auth surface in
// login mode, and reports Deferred; the action runs later (once) if the
// sign-in succeeds, or never if the surface is dismissed.
func (g *Gate) Guarded(ctx context.Context, kind string, action Action) (Outcome, error) {
	if g.session.IsAuthenticated() {
		return Executed, action(ctx)
	}

	g.mu.Lock()
	if g.pending != nil {
		g.log.Warn(ctx, "replacing pending action", "dropped", g.pendingKind, "kind", kind)
	}
	g.pending = action
	g.pendingKind = kind
	g.mu.Unlock()

	g.auth.Open(ctx, authflow.ModeLogin, authflow.OpenOptions{})
	return Deferred, nil
}

// Pending reports whether an action is currently suspended.
func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

func (g *Gate) onAuthSuccess(ctx context.Context, _ *models.UserIdentity) {
	g.mu.Lock()
	action, kind := g.pending, g.pendingKind
	g.pending, g.pendingKind = nil, ""
	g.mu.Unlock()

	if action == nil {
		return
	}
	if err := action(ctx); err != nil {
		g.log.Error(ctx, "deferred action failed", "kind", kind, "error", err)
	}
}

func (g *Gate) onAuthDismiss() {
	// the user abandoned the flow; drop the intent silently
	g.mu.Lock()
	g.pending, g.pendingKind = nil, ""
	g.mu.Unlock()
}
