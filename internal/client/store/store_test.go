package store

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msavina/craftmarket/internal/client/api"
	"github.com/msavina/craftmarket/internal/client/cache"
	"github.com/msavina/craftmarket/internal/client/models"
	"github.com/msavina/craftmarket/internal/client/session"
	"github.com/msavina/craftmarket/internal/common"
	"github.com/msavina/craftmarket/internal/logging"

	_ "modernc.org/sqlite"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// ---- helpers ----

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE fallback (
  key        TEXT PRIMARY KEY,
  value      BLOB NOT NULL,
  updated_at TIMESTAMP NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func signIn(sess *session.Session, id string) {
	sess.SetAuthenticated("tok-"+id, &models.UserIdentity{
		ID: id, DisplayName: "User " + id, Email: id + "@example.com", Role: models.RoleMember,
	})
}

func project(id string, price float64) models.Project {
	return models.Project{ID: id, Title: "Project " + id, Price: price, SellerName: "seller"}
}

// ---- fake gateway ----

type fakeGateway struct {
	mu sync.Mutex

	ListRet []models.CollectionItem
	ListErr error

	AddRet   string
	AddErr   error
	AddGate  chan struct{} // when non-nil, Add blocks until the channel closes
	addCalls int

	RemoveErr   error
	removeCalls int

	ClearErr   error
	clearCalls int
}

func (f *fakeGateway) Name() string { return "wishlist" }

func (f *fakeGateway) List(ctx context.Context) ([]models.CollectionItem, error) {
	return f.ListRet, f.ListErr
}

func (f *fakeGateway) Add(ctx context.Context, item *models.CollectionItem) (string, error) {
	f.mu.Lock()
	f.addCalls++
	gate := f.AddGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if f.AddErr != nil {
		return "", f.AddErr
	}
	if f.AddRet != "" {
		return f.AddRet, nil
	}
	return "srv-" + item.SubjectID, nil
}

func (f *fakeGateway) Remove(ctx context.Context, projectID string) error {
	f.mu.Lock()
	f.removeCalls++
	f.mu.Unlock()
	return f.RemoveErr
}

func (f *fakeGateway) Clear(ctx context.Context) error {
	f.mu.Lock()
	f.clearCalls++
	f.mu.Unlock()
	return f.ClearErr
}

func (f *fakeGateway) calls() (add, remove, clear int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addCalls, f.removeCalls, f.clearCalls
}

var _ api.CollectionGateway = (*fakeGateway)(nil)

func setupStore(t *testing.T, gw api.CollectionGateway) (*Store, *session.Session, *cache.Collections) {
	t.Helper()
	db := setupDB(t)
	sess := session.New()
	cc := cache.NewCollections(db, testLogger())
	return New(gw, cc, sess, testLogger()), sess, cc
}

// ---- tests ----

func TestAdd_RequiresAuthentication(t *testing.T) {
	gw := &fakeGateway{}
	s, _, _ := setupStore(t, gw)

	status, err := s.Add(context.Background(), project("p1", 10))
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
	require.Equal(t, AddSkipped, status)

	add, _, _ := gw.calls()
	require.Zero(t, add)
}

func TestAdd_DuplicateIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	s, sess, _ := setupStore(t, gw)
	signIn(sess, "u1")

	ctx := context.Background()
	status, err := s.Add(ctx, project("p1", 10))
	require.NoError(t, err)
	require.Equal(t, AddSynced, status)

	status, err = s.Add(ctx, project("p1", 10))
	require.NoError(t, err)
	require.Equal(t, AddSkipped, status)

	require.Equal(t, 1, s.Count())
	add, _, _ := gw.calls()
	require.Equal(t, 1, add)
}

func TestAdd_SuccessAdoptsServerID(t *testing.T) {
	gw := &fakeGateway{AddRet: "entry-42"}
	s, sess, _ := setupStore(t, gw)
	signIn(sess, "u1")

	status, err := s.Add(context.Background(), project("p1", 10))
	require.NoError(t, err)
	require.Equal(t, AddSynced, status)

	items := s.Items()
	require.Len(t, items, 1)
	require.Equal(t, "entry-42", items[0].ID)
	require.Equal(t, "u1", items[0].OwnerID)
}

func TestAdd_GatewayFailureDegradesToCache(t *testing.T) {
	gw := &fakeGateway{AddErr: api.ErrUnavailable}
	s, sess, cc := setupStore(t, gw)
	signIn(sess, "u1")

	ctx := context.Background()
	status, err := s.Add(ctx, project("p1", 10))
	require.NoError(t, err)
	require.Equal(t, AddSavedLocally, status)
	require.True(t, s.Contains("p1"))

	// a fresh store on the same device reproduces the item when the
	// gateway is still down
	fresh := New(&fakeGateway{ListErr: api.ErrUnavailable}, cc, sess, testLogger())
	fresh.Load(ctx)
	require.True(t, fresh.Contains("p1"))
	require.Equal(t, 1, fresh.Count())
}

func TestRemove_AppliesLocallyEvenWhenGatewayFails(t *testing.T) {
	gw := &fakeGateway{RemoveErr: errors.New("boom")}
	s, sess, cc := setupStore(t, gw)
	signIn(sess, "u1")

	ctx := context.Background()
	_, err := s.Add(ctx, project("p1", 10))
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, "p1"))
	require.False(t, s.Contains("p1"))

	cached, ok := cc.Load(ctx, "wishlist", "u1")
	require.True(t, ok)
	require.Empty(t, cached)
}

func TestRemove_AbsentSubjectIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	s, sess, _ := setupStore(t, gw)
	signIn(sess, "u1")

	require.NoError(t, s.Remove(context.Background(), "nope"))
	_, remove, _ := gw.calls()
	require.Zero(t, remove)
}

func TestLoad_ReplacesMemoryWithServerCopy(t *testing.T) {
	gw := &fakeGateway{ListRet: []models.CollectionItem{
		{ID: "e1", OwnerID: "u1", SubjectID: "p1", Subject: project("p1", 10)},
		{ID: "e2", OwnerID: "u1", SubjectID: "p2", Subject: project("p2", 20)},
	}}
	s, sess, _ := setupStore(t, gw)
	signIn(sess, "u1")

	s.Load(context.Background())
	require.Equal(t, 2, s.Count())
	require.True(t, s.Contains("p1"))
	require.True(t, s.Contains("p2"))
	require.False(t, s.Loading())
}

func TestLoad_FallsBackToCacheThenEmpty(t *testing.T) {
	gw := &fakeGateway{ListErr: api.ErrUnavailable}
	s, sess, cc := setupStore(t, gw)
	signIn(sess, "u1")

	ctx := context.Background()

	// nothing cached: degrade to empty, no error escapes
	s.Load(ctx)
	require.Zero(t, s.Count())

	require.NoError(t, cc.Save(ctx, "wishlist", "u1", []models.CollectionItem{
		{ID: "local-1", OwnerID: "u1", SubjectID: "p9", Subject: project("p9", 99)},
	}))
	s.Load(ctx)
	require.Equal(t, 1, s.Count())
	require.True(t, s.Contains("p9"))
}

func TestClear_EmptiesMemoryAndCacheRegardlessOfGateway(t *testing.T) {
	gw := &fakeGateway{ClearErr: errors.New("boom")}
	s, sess, cc := setupStore(t, gw)
	signIn(sess, "u1")

	ctx := context.Background()
	_, err := s.Add(ctx, project("p1", 10))
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	require.Zero(t, s.Count())

	_, ok := cc.Load(ctx, "wishlist", "u1")
	require.False(t, ok)
}

func TestLogout_DiscardsMemoryButNotOtherUsersCache(t *testing.T) {
	gw := &fakeGateway{}
	s, sess, cc := setupStore(t, gw)
	signIn(sess, "u1")

	ctx := context.Background()
	_, err := s.Add(ctx, project("p1", 10))
	require.NoError(t, err)

	sess.Clear()
	require.Zero(t, s.Count())
	require.False(t, s.Contains("p1"))

	// u1's device cache is still intact under u1's key
	cached, ok := cc.Load(ctx, "wishlist", "u1")
	require.True(t, ok)
	require.Len(t, cached, 1)
}

func TestUserSwitch_NeverLeaksPreviousUsersItems(t *testing.T) {
	gw := &fakeGateway{AddErr: api.ErrUnavailable, ListErr: api.ErrUnavailable}
	s, sess, _ := setupStore(t, gw)
	signIn(sess, "u1")

	ctx := context.Background()
	_, err := s.Add(ctx, project("p1", 10))
	require.NoError(t, err)

	sess.Clear()
	signIn(sess, "u2")

	// u2 has no cache entry; the failed load degrades to empty,
	// not to u1's cached items
	s.Load(ctx)
	require.Zero(t, s.Count())
}

func TestAdd_StaleResponseAfterLogoutIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{AddGate: release}
	s, sess, cc := setupStore(t, gw)
	signIn(sess, "u1")

	ctx := context.Background()
	done := make(chan AddStatus, 1)
	go func() {
		status, _ := s.Add(ctx, project("p1", 10))
		done <- status
	}()

	// wait until the gateway call is in flight, then log out
	require.Eventually(t, func() bool {
		add, _, _ := gw.calls()
		return add == 1
	}, waitFor, tick)
	sess.Clear()
	close(release)

	require.Equal(t, AddSkipped, <-done)
	require.Zero(t, s.Count())

	// the late response must not have been persisted for u1 either
	_, ok := cc.Load(ctx, "wishlist", "u1")
	require.False(t, ok)
}

func TestTotalAndCount(t *testing.T) {
	gw := &fakeGateway{}
	s, sess, _ := setupStore(t, gw)
	signIn(sess, "u1")

	ctx := context.Background()
	_, err := s.Add(ctx, project("p1", 10.5))
	require.NoError(t, err)
	_, err = s.Add(ctx, project("p2", 4.5))
	require.NoError(t, err)

	require.Equal(t, 2, s.Count())
	require.InDelta(t, 15.0, s.Total(), 1e-9)
}
