package api

import (
	"context"
	"net/http"
	"time"

	"github.com/msavina/craftmarket/internal/client/models"
)

// Collection names understood by the backend.
const (
	CollectionCart     = "cart"
	CollectionWishlist = "wishlist"
)

// CollectionGateway issues authenticated create/read/delete calls for one
// named user-owned collection. Expected HTTP error statuses come back as
// regular errors (*StatusError), never as panics; the store above decides
// how to degrade.
type CollectionGateway interface {
	// Name returns the collection this gateway serves ("cart" or "wishlist").
	Name() string

	// List fetches the authoritative server copy of the collection.
	List(ctx context.Context) ([]models.CollectionItem, error)

	// Add creates an entry and returns the server-assigned entry id.
	Add(ctx context.Context, item *models.CollectionItem) (string, error)

	// Remove deletes one entry. Entries are addressed by project id on
	// the wire, scoped to the authenticated user.
	Remove(ctx context.Context, projectID string) error

	// Clear deletes the whole collection for the authenticated user.
	Clear(ctx context.Context) error
}

type httpCollectionGateway struct {
	c    *Client
	name string
}

// NewCollectionGateway returns a gateway for the named collection backed
// by the shared HTTP client.
func NewCollectionGateway(c *Client, name string) CollectionGateway {
	return &httpCollectionGateway{c: c, name: name}
}

func (g *httpCollectionGateway) Name() string { return g.name }

// collectionEntry is the wire shape of one collection row.
type collectionEntry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	ProjectID string         `json:"project_id"`
	Quantity  int            `json:"quantity,omitempty"`
	AddedAt   time.Time      `json:"added_at"`
	Project   models.Project `json:"project"`
}

func (e collectionEntry) toModel() models.CollectionItem {
	return models.CollectionItem{
		ID:        e.ID,
		OwnerID:   e.UserID,
		SubjectID: e.ProjectID,
		Quantity:  e.Quantity,
		AddedAt:   e.AddedAt,
		Subject:   e.Project,
	}
}

func (g *httpCollectionGateway) List(ctx context.Context) ([]models.CollectionItem, error) {
	var entries []collectionEntry
	if err := g.c.do(ctx, http.MethodGet, "/"+g.name, nil, &entries); err != nil {
		return nil, err
	}
	items := make([]models.CollectionItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.toModel())
	}
	return items, nil
}

// cartAddRequest and wishlistAddRequest mirror the differing backend
// contracts: the cart endpoint takes a project reference with quantity,
// the wishlist endpoint takes the full denormalized entry.
type cartAddRequest struct {
	ProjectID string `json:"project_id"`
	Quantity  int    `json:"quantity"`
}

type wishlistAddRequest struct {
	ProjectID string         `json:"project_id"`
	UserID    string         `json:"user_id"`
	AddedAt   time.Time      `json:"added_at"`
	Project   models.Project `json:"project"`
}

type addResponse struct {
	ID string `json:"id"`
}

func (g *httpCollectionGateway) Add(ctx context.Context, item *models.CollectionItem) (string, error) {
	var body any
	switch g.name {
	case CollectionCart:
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		body = cartAddRequest{ProjectID: item.SubjectID, Quantity: qty}
	default:
		body = wishlistAddRequest{
			ProjectID: item.SubjectID,
			UserID:    item.OwnerID,
			AddedAt:   item.AddedAt,
			Project:   item.Subject,
		}
	}

	var resp addResponse
	if err := g.c.do(ctx, http.MethodPost, "/"+g.name, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (g *httpCollectionGateway) Remove(ctx context.Context, projectID string) error {
	return g.c.do(ctx, http.MethodDelete, "/"+g.name+"/"+projectID, nil, nil)
}

func (g *httpCollectionGateway) Clear(ctx context.Context) error {
	return g.c.do(ctx, http.MethodDelete, "/"+g.name, nil, nil)
}
