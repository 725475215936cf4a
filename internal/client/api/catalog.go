package api

import (
	"context"
	"net/http"

	"github.com/msavina/craftmarket/internal/client/models"
)

// CatalogGateway reads marketplace projects. Only the pieces the CLI
// needs to browse and to build a subject snapshot before adding an item
// to a collection.
type CatalogGateway interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id string) (*models.Project, error)
}

type httpCatalogGateway struct {
	c *Client
}

func NewCatalogGateway(c *Client) CatalogGateway {
	return &httpCatalogGateway{c: c}
}

func (g *httpCatalogGateway) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := g.c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (g *httpCatalogGateway) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	if err := g.c.do(ctx, http.MethodGet, "/projects/"+id, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
