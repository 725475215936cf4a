// Package cli is the interactive storefront client: a small REPL over
// the catalog, the cart/wishlist stores, and the authentication surface.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"

	_ "modernc.org/sqlite"

	"github.com/msavina/craftmarket/internal/client/api"
	"github.com/msavina/craftmarket/internal/client/authflow"
	"github.com/msavina/craftmarket/internal/client/cache"
	"github.com/msavina/craftmarket/internal/client/config"
	"github.com/msavina/craftmarket/internal/client/gate"
	"github.com/msavina/craftmarket/internal/client/models"
	"github.com/msavina/craftmarket/internal/client/session"
	"github.com/msavina/craftmarket/internal/client/store"
	"github.com/msavina/craftmarket/internal/logging"
)

// App wires the whole client together and carries the REPL state.
type App struct {
	config  *config.Config
	log     logging.Logger
	db      *sql.DB
	session *session.Session
	auth    *authflow.Machine
	gate    *gate.Gate

	cart     *store.Store
	wishlist *store.Store
	catalog  api.CatalogGateway

	reader *bufio.Reader
	out    io.Writer
}

func NewApp(cfg *config.Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	db, err := cache.InitDatabase(ctx, cfg.CacheDSN)
	if err != nil {
		log.Error(ctx, "error initializing fallback database", "error", err)
		return nil, err
	}

	sess := session.New()
	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, sess)
	collections := cache.NewCollections(db, log)

	a := &App{
		config:   cfg,
		log:      log,
		db:       db,
		session:  sess,
		auth:     authflow.New(api.NewIdentityGateway(client), sess, log),
		cart:     store.NewCart(client, collections, sess, log),
		wishlist: store.NewWishlist(client, collections, sess, log),
		catalog:  api.NewCatalogGateway(client),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}

	// load collections and route before the gate replays a deferred
	// action, so the replay sees a populated store
	a.auth.OnSuccess(a.onSignedIn)
	a.gate = gate.New(sess, a.auth, log)

	return a, nil
}

// onSignedIn runs on every successful login/signup: it pulls the user's
// collections and routes by role.
func (a *App) onSignedIn(ctx context.Context, user *models.UserIdentity) {
	a.cart.Load(ctx)
	a.wishlist.Load(ctx)

	switch user.Role {
	case models.RoleAdmin:
		printlnFn("Welcome back,", user.DisplayName+". Opening the admin dashboard.")
	default:
		printlnFn("Welcome back,", user.DisplayName+"!")
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.IsAuthenticated()
}

// Logout clears the session; the stores drop their collections via the
// session subscription. The per-user fallback cache stays on disk under
// the old user's keys.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Not signed in.")
		return nil
	}
	a.session.Clear()
	printlnFn("Signed out.")
	return nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()

	printlnFn("Welcome to the craftmarket storefront (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

func (a *App) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) status() string {
	if u := a.session.User(); u != nil {
		return "(" + u.Email + ")"
	}
	return "(guest)"
}
