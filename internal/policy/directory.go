// Package policy provides read-only lookup of policy reference data.
package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/piyushigoyal/claimtriage/internal/dataset"
	"github.com/piyushigoyal/claimtriage/internal/models"
)

// ErrNotFound is returned by Lookup when no policy has the requested ID.
var ErrNotFound = errors.New("policy not found")

// Directory is an in-memory index of policies keyed by policy ID. It is safe
// for concurrent reads once built.
type Directory struct {
	byID map[string]models.Policy
}

// NewDirectory indexes policies. Later duplicates replace earlier ones.
func NewDirectory(policies []models.Policy) *Directory {
	d := &Directory{byID: make(map[string]models.Policy, len(policies))}
	for _, p := range policies {
		if _, dup := d.byID[p.ID]; dup {
			slog.Warn("duplicate policy id, keeping last", "policy_id", p.ID)
		}
		d.byID[p.ID] = p
	}
	return d
}

// Load reads a policies CSV. Invalid rows are logged and skipped.
func Load(path string) (*Directory, error) {
	policies, invalid, err := dataset.LoadPolicies(path)
	if err != nil {
		return nil, err
	}
	for _, verr := range invalid {
		slog.Warn("skipping invalid policy row", "path", path, "error", verr)
	}
	return NewDirectory(policies), nil
}

// Lookup returns a copy of the policy with the given ID.
func (d *Directory) Lookup(ctx context.Context, id string) (*models.Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %s (no policy data loaded)", ErrNotFound, id)
	}
	p, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &p, nil
}

// Len returns the number of indexed policies.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byID)
}
