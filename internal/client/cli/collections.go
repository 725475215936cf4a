package cli

import (
	"context"
	"fmt"

	"github.com/msavina/craftmarket/internal/client/gate"
	"github.com/msavina/craftmarket/internal/client/store"
)

// Cart dispatches the cart subcommands (list, add, rm, clear).
func (a *App) Cart(ctx context.Context, args []string) error {
	return a.collectionCmd(ctx, a.cart, args)
}

// Wishlist dispatches the wishlist subcommands.
func (a *App) Wishlist(ctx context.Context, args []string) error {
	return a.collectionCmd(ctx, a.wishlist, args)
}

// collectionCmd routes one collection command. Every mutation goes
// through the gate: a signed-out user is sent to the auth surface and
// the mutation replays after a successful sign-in.
func (a *App) collectionCmd(ctx context.Context, s *store.Store, args []string) error {
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "list":
		a.printCollection(s)
		return nil

	case "add":
		if len(args) < 2 {
			printlnFn("Usage:", s.Name(), "add <project-id>")
			return nil
		}
		p, err := a.catalog.GetProject(ctx, args[1])
		if err != nil {
			printlnFn("Project not found or the catalog is unreachable.")
			a.log.Warn(ctx, "catalog get failed", "project", args[1], "error", err)
			return err
		}
		return a.guarded(ctx, s.Name()+".add", func(ctx context.Context) error {
			status, err := s.Add(ctx, *p)
			if err != nil {
				return err
			}
			switch status {
			case store.AddSynced:
				printlnFn("Added", p.Title, "to your", s.Name()+".")
			case store.AddSavedLocally:
				printlnFn("Added", p.Title, "to your", s.Name(), "(saved locally, will sync later).")
			case store.AddSkipped:
				printlnFn(p.Title, "is already in your", s.Name()+".")
			}
			return nil
		})

	case "rm", "remove":
		if len(args) < 2 {
			printlnFn("Usage:", s.Name(), "rm <project-id>")
			return nil
		}
		id := args[1]
		return a.guarded(ctx, s.Name()+".remove", func(ctx context.Context) error {
			if err := s.Remove(ctx, id); err != nil {
				return err
			}
			printlnFn("Removed from your", s.Name()+".")
			return nil
		})

	case "clear":
		return a.guarded(ctx, s.Name()+".clear", func(ctx context.Context) error {
			if err := s.Clear(ctx); err != nil {
				return err
			}
			printlnFn("Your", s.Name(), "is empty now.")
			return nil
		})

	default:
		printlnFn("Usage:", s.Name(), "[list|add <id>|rm <id>|clear]")
		return nil
	}
}

// guarded funnels a mutation through the gate and, when it gets
// deferred, drives the auth surface so the REPL user can finish signing
// in (which replays the mutation).
func (a *App) guarded(ctx context.Context, kind string, action gate.Action) error {
	outcome, err := a.gate.Guarded(ctx, kind, action)
	if outcome == gate.Deferred {
		printlnFn("Please sign in to continue.")
		return a.runAuthSurface(ctx)
	}
	return err
}

func (a *App) printCollection(s *store.Store) {
	items := s.Items()
	if len(items) == 0 {
		printlnFn("Your", s.Name(), "is empty.")
		return
	}
	for _, it := range items {
		printlnFn(fmt.Sprintf("%-12s %-40s %8.2f", it.SubjectID, it.Subject.Title, it.Subject.Price))
	}
	printlnFn(fmt.Sprintf("%d item(s), total %.2f", s.Count(), s.Total()))
}
