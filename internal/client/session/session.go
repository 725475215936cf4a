// Package session holds the single authenticated-user context shared by
// every other component. It is an explicit injected dependency, not a
// global: main constructs one Session and hands it to the gateways,
// stores, auth machine, and gate.
//
// Only the auth machine (on login/signup/verify) and an explicit logout
// mutate it; everything else reads.
package session

import (
	"sync"

	"github.com/msavina/craftmarket/internal/client/models"
)

type subscriber func(*models.UserIdentity)

// Session is the process-wide identity state. Safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	token   string
	user    *models.UserIdentity
	subs    map[int]subscriber
	nextSub int
}

func New() *Session {
	return &Session{subs: make(map[int]subscriber)}
}

// SetAuthenticated installs the bearer token and user for the new
// session. If the backend omitted the user object, the identity is
// decoded from the token claims (best effort).
func (s *Session) SetAuthenticated(token string, user *models.UserIdentity) {
	if user == nil {
		user, _ = IdentityFromToken(token)
	}

	s.mu.Lock()
	s.token = token
	s.user = user
	subs, current := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, current)
}

// Clear destroys the session (logout). Subscribers are notified with a
// nil user so stores can discard their in-memory collections.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	subs, current := s.snapshotLocked()
	s.mu.Unlock()

	notify(subs, current)
}

// User returns a copy of the current user, or nil when unauthenticated.
func (s *Session) User() *models.UserIdentity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the current bearer credential. Satisfies api.TokenSource.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != nil
}

// Subscribe registers fn to run after every session change. The returned
// function removes the subscription. Callbacks run outside the session
// lock, in subscription order.
func (s *Session) Subscribe(fn func(*models.UserIdentity)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) snapshotLocked() ([]subscriber, *models.UserIdentity) {
	subs := make([]subscriber, 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	var current *models.UserIdentity
	if s.user != nil {
		u := *s.user
		current = &u
	}
	return subs, current
}

func notify(subs []subscriber, u *models.UserIdentity) {
	for _, fn := range subs {
		fn(u)
	}
}
