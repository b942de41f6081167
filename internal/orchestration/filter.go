package orchestration

import (
	"fmt"
	"path/filepath"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// FilterClaims returns the subset of claims whose ID or claim type matches
// at least one of the given glob patterns. An empty patterns slice returns
// all claims unchanged.
func FilterClaims(claims []models.Claim, patterns []string) ([]models.Claim, error) {
	if len(patterns) == 0 {
		return claims, nil
	}

	var matched []models.Claim
	for _, c := range claims {
		ok, err := matchesAny(c, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

// matchesAny reports whether a claim's ID or type matches any pattern.
func matchesAny(c models.Claim, patterns []string) (bool, error) {
	for _, p := range patterns {
		idMatch, err := filepath.Match(p, c.ID)
		if err != nil {
			return false, fmt.Errorf("invalid claim filter pattern %q: %w", p, err)
		}
		if idMatch {
			return true, nil
		}
		typeMatch, err := filepath.Match(p, string(c.Type))
		if err != nil {
			return false, fmt.Errorf("invalid claim filter pattern %q: %w", p, err)
		}
		if typeMatch {
			return true, nil
		}
	}
	return false, nil
}
