package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/fieldsync/internal/client/conflict"
	"github.com/iudanet/fieldsync/internal/client/store"
	"github.com/iudanet/fieldsync/internal/models"
)

func (c *Cli) runConflicts(ctx context.Context) error {
	c.io.Println("=== Conflicts ===")
	c.io.Println()

	conflicts := c.app.Engine.Conflicts()
	if len(conflicts) == 0 {
		c.io.Println("No open conflicts.")
		return nil
	}

	c.io.Printf("Found %d conflict(s), fields marked with * differ:\n", len(conflicts))
	for _, cf := range conflicts {
		c.io.Println()
		if err := conflict.WriteText(c.io, cf); err != nil {
			return err
		}
	}
	c.io.Println()
	c.io.Println("Use 'fieldsync resolve <type> <id> --strategy local|remote|merge' to resolve.")
	return nil
}

// ResolveOptions описывает решение конфликта из флагов
type ResolveOptions struct {
	Strategy string
	Pick     []string // name=local|remote
	Set      []string // name=value
}

func (c *Cli) runResolve(ctx context.Context, typeArg, id string, opts ResolveOptions) error {
	entityType, err := models.ParseEntityType(typeArg)
	if err != nil {
		return err
	}

	res, err := toResolution(opts)
	if err != nil {
		return err
	}

	doc, err := c.app.Engine.Resolve(entityType, id, res)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("document not found: %s/%s", entityType, id)
	case errors.Is(err, store.ErrNoConflict):
		return fmt.Errorf("%s/%s has no open conflict", entityType, id)
	case err != nil:
		return err
	}

	c.io.Printf("✓ Resolved %s (%s)\n", doc.Key(), docState(doc))
	c.io.Println("The resolved version is sent to the server on the next sync.")
	return nil
}

func toResolution(opts ResolveOptions) (conflict.Resolution, error) {
	strategy, err := conflict.ParseStrategy(opts.Strategy)
	if err != nil {
		return conflict.Resolution{}, err
	}

	res := conflict.Resolution{Strategy: strategy}
	if len(opts.Pick) > 0 {
		res.Pick = make(map[string]conflict.Side, len(opts.Pick))
		for _, p := range opts.Pick {
			name, side, ok := cutAssignment(p)
			if !ok {
				return res, fmt.Errorf("expected name=local|remote, got %q", p)
			}
			switch s := conflict.Side(side); s {
			case conflict.SideLocal, conflict.SideRemote:
				res.Pick[name] = s
			default:
				return res, fmt.Errorf("unknown side %q for field %s", side, name)
			}
		}
	}
	if len(opts.Set) > 0 {
		res.Override, err = parseAssignments(opts.Set)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
