package cli

import (
	"context"
	"fmt"
)

// Browse lists the marketplace catalog.
func (a *App) Browse(ctx context.Context) error {
	projects, err := a.catalog.ListProjects(ctx)
	if err != nil {
		printlnFn("Could not load the catalog right now. Please try again.")
		a.log.Warn(ctx, "catalog list failed", "error", err)
		return err
	}
	if len(projects) == 0 {
		printlnFn("The catalog is empty.")
		return nil
	}
	for _, p := range projects {
		printlnFn(fmt.Sprintf("%-12s %-40s %8.2f  by %s", p.ID, p.Title, p.Price, p.SellerName))
	}
	return nil
}

// Show prints one project and whether it is already saved.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: show <id>")
		return nil
	}
	p, err := a.catalog.GetProject(ctx, args[0])
	if err != nil {
		printlnFn("Project not found or the catalog is unreachable.")
		a.log.Warn(ctx, "catalog get failed", "project", args[0], "error", err)
		return err
	}

	printlnFn(p.Title)
	printlnFn(fmt.Sprintf("  id: %s  price: %.2f  seller: %s", p.ID, p.Price, p.SellerName))
	if a.cart.Contains(p.ID) {
		printlnFn("  (in your cart)")
	}
	if a.wishlist.Contains(p.ID) {
		printlnFn("  (on your wishlist)")
	}
	return nil
}
