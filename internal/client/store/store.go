// Package store implements the synced collection store: one in-memory
// collection (cart or wishlist) reconciled against the remote gateway
// with the local fallback cache as the degradation path.
//
// The in-memory collection is the single source of truth for rendering.
// The cache is read only on a failed load and rewritten to match memory
// after every mutation, successful or not. Mutations apply to memory
// first and attempt the remote write second, so in-flight responses can
// never push the collection backwards (call-order wins over response
// order).
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msavina/craftmarket/internal/client/api"
	"github.com/msavina/craftmarket/internal/client/cache"
	"github.com/msavina/craftmarket/internal/client/models"
	"github.com/msavina/craftmarket/internal/client/session"
	"github.com/msavina/craftmarket/internal/common"
	"github.com/msavina/craftmarket/internal/logging"
)

// AddStatus reports how an Add resolved.
type AddStatus int

const (
	// AddSynced: item accepted by the gateway and present in memory.
	AddSynced AddStatus = iota
	// AddSavedLocally: gateway failed, item kept in memory and in the
	// fallback cache only. The UI should say "saved locally".
	AddSavedLocally
	// AddSkipped: nothing changed (duplicate subject, or the session
	// changed while the call was in flight).
	AddSkipped
)

// Store owns one user-scoped collection. Safe for concurrent use; the
// lock is never held across a network call.
type Store struct {
	name    string
	gw      api.CollectionGateway
	cache   *cache.Collections
	session *session.Session
	log     logging.Logger

	mu      sync.Mutex
	items   []models.CollectionItem
	index   map[string]int // subject id -> position in items
	loading bool
}

// New builds a store over the given gateway. It subscribes to session
// changes: when the user changes or logs out the in-memory collection is
// discarded (the fallback cache stays untouched, its keys belong to the
// previous user).
func New(gw api.CollectionGateway, cc *cache.Collections, sess *session.Session, log logging.Logger) *Store {
	s := &Store{
		name:    gw.Name(),
		gw:      gw,
		cache:   cc,
		session: sess,
		log:     log.With("collection", gw.Name()),
		index:   make(map[string]int),
	}
	sess.Subscribe(func(*models.UserIdentity) {
		s.mu.Lock()
		s.replaceLocked(nil)
		s.mu.Unlock()
	})
	return s
}

// NewCart returns the cart store.
func NewCart(c *api.Client, cc *cache.Collections, sess *session.Session, log logging.Logger) *Store {
	return New(api.NewCollectionGateway(c, api.CollectionCart), cc, sess, log)
}

// NewWishlist returns the wishlist store.
func NewWishlist(c *api.Client, cc *cache.Collections, sess *session.Session, log logging.Logger) *Store {
	return New(api.NewCollectionGateway(c, api.CollectionWishlist), cc, sess, log)
}

// Name returns the collection name this store owns.
func (s *Store) Name() string { return s.name }

// Load replaces the in-memory collection with the server copy. On
// gateway failure it falls back to the cached copy for the current user;
// absence of both degrades to an empty collection. Load never returns an
// error to the caller.
func (s *Store) Load(ctx context.Context) {
	u := s.session.User()
	if u == nil {
		return
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	items, err := s.gw.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if !s.sameUserLocked(u.ID) {
		// the user logged out or switched while the request was in
		// flight; the response belongs to the old session
		return
	}

	if err != nil {
		s.log.Warn(ctx, "collection load failed, using fallback cache", "error", err)
		cached, ok := s.cache.Load(ctx, s.name, u.ID)
		if !ok {
			s.replaceLocked(nil)
			return
		}
		s.replaceLocked(cached)
		return
	}
	s.replaceLocked(items)
}

// Add inserts a snapshot of p into the collection. Requires an
// authenticated session. A subject already present is a no-op: no
// gateway call is made and AddSkipped is returned.
//
// The item lands in memory immediately (with a locally generated entry
// id); the gateway write follows. On success the server-assigned id
// replaces the local one, on failure the item stays local-only. Either
// way the fallback cache is rewritten to match memory.
func (s *Store) Add(ctx context.Context, p models.Project) (AddStatus, error) {
	u := s.session.User()
	if u == nil {
		return AddSkipped, common.ErrNotAuthenticated
	}

	item := models.CollectionItem{
		ID:        uuid.NewString(),
		OwnerID:   u.ID,
		SubjectID: p.ID,
		Quantity:  1,
		AddedAt:   time.Now().UTC(),
		Subject:   p,
	}
	localID := item.ID

	s.mu.Lock()
	if _, ok := s.index[p.ID]; ok {
		s.mu.Unlock()
		return AddSkipped, nil
	}
	s.appendLocked(item)
	s.mu.Unlock()

	serverID, err := s.gw.Add(ctx, &item)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sameUserLocked(u.ID) {
		return AddSkipped, nil
	}

	if err != nil {
		s.log.Warn(ctx, "gateway add failed, keeping item locally", "project", p.ID, "error", err)
		s.persistLocked(ctx, u.ID)
		return AddSavedLocally, nil
	}

	// a later Remove may have raced the response; only relabel the
	// entry this call created
	if i, ok := s.index[p.ID]; ok && s.items[i].ID == localID && serverID != "" {
		s.items[i].ID = serverID
	}
	s.persistLocked(ctx, u.ID)
	return AddSynced, nil
}

// Remove drops the subject from the collection. The local removal is
// unconditional: a stale item left visible is worse than an unsynced
// delete, so gateway failure only gets logged. Removing an absent
// subject is a no-op.
func (s *Store) Remove(ctx context.Context, subjectID string) error {
	u := s.session.User()
	if u == nil {
		return common.ErrNotAuthenticated
	}

	s.mu.Lock()
	i, ok := s.index[subjectID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.removeAtLocked(i)
	s.mu.Unlock()

	err := s.gw.Remove(ctx, subjectID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sameUserLocked(u.ID) {
		return nil
	}
	if err != nil {
		s.log.Warn(ctx, "gateway remove failed, removed locally only", "project", subjectID, "error", err)
	}
	s.persistLocked(ctx, u.ID)
	return nil
}

// Clear empties the collection. Memory and cache are emptied regardless
// of whether the gateway bulk delete succeeded.
func (s *Store) Clear(ctx context.Context) error {
	u := s.session.User()
	if u == nil {
		return common.ErrNotAuthenticated
	}

	s.mu.Lock()
	s.replaceLocked(nil)
	s.mu.Unlock()

	if err := s.gw.Clear(ctx); err != nil {
		s.log.Warn(ctx, "gateway clear failed, cleared locally only", "error", err)
	}

	if err := s.cache.Drop(ctx, s.name, u.ID); err != nil {
		s.log.Warn(ctx, "fallback drop failed", "error", err)
	}
	return nil
}

// Contains reports membership of a subject in the in-memory collection.
func (s *Store) Contains(subjectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[subjectID]
	return ok
}

// Items returns a copy of the in-memory collection.
func (s *Store) Items() []models.CollectionItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CollectionItem, len(s.items))
	copy(out, s.items)
	return out
}

// Count returns the number of items.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Total sums the snapshot prices (price times quantity).
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, it := range s.items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		total += it.Subject.Price * float64(qty)
	}
	return total
}

// Loading reports whether a Load is in flight (for busy indicators).
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *Store) sameUserLocked(userID string) bool {
	cur := s.session.User()
	return cur != nil && cur.ID == userID
}

func (s *Store) appendLocked(item models.CollectionItem) {
	s.index[item.SubjectID] = len(s.items)
	s.items = append(s.items, item)
}

func (s *Store) removeAtLocked(i int) {
	delete(s.index, s.items[i].SubjectID)
	s.items = append(s.items[:i], s.items[i+1:]...)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].SubjectID] = j
	}
}

func (s *Store) replaceLocked(items []models.CollectionItem) {
	s.items = s.items[:0]
	s.index = make(map[string]int, len(items))
	for _, it := range items {
		if _, ok := s.index[it.SubjectID]; ok {
			continue // server/cache duplicates collapse to the first entry
		}
		s.appendLocked(it)
	}
}

func (s *Store) persistLocked(ctx context.Context, userID string) {
	items := make([]models.CollectionItem, len(s.items))
	copy(items, s.items)
	if err := s.cache.Save(ctx, s.name, userID, items); err != nil {
		s.log.Warn(ctx, "fallback write failed", "error", err)
	}
}
