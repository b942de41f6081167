// Package cache stores model-backed decisions on disk so repeated
// evaluations of the same claims do not pay for inference twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// Cache provides caching for decisions
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Key generates a unique cache key for one strategy invocation.
// The key is based on:
// - strategy name
// - engine/model id
// - claim content
// - policy content (nil and missing policies hash the same)
func Key(strategyName, modelID string, claim models.Claim, policy *models.Policy) (string, error) {
	h := sha256.New()

	if err := writeString(h, strategyName); err != nil {
		return "", err
	}
	if err := writeString(h, modelID); err != nil {
		return "", err
	}

	claimJSON, err := json.Marshal(claim)
	if err != nil {
		return "", fmt.Errorf("marshaling claim: %w", err)
	}
	if _, err := h.Write(claimJSON); err != nil {
		return "", err
	}
	if err := writeString(h, ""); err != nil {
		return "", err
	}

	if policy != nil {
		policyJSON, err := json.Marshal(policy)
		if err != nil {
			return "", fmt.Errorf("marshaling policy: %w", err)
		}
		if _, err := h.Write(policyJSON); err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get retrieves a cached decision if it exists
func (c *Cache) Get(key string) (*models.Decision, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		// Cache miss
		return nil, false
	}

	var d models.Decision
	if err := json.Unmarshal(data, &d); err != nil {
		// Invalid cache entry, treat as miss
		return nil, false
	}

	return &d, true
}

// Put stores a decision in the cache
func (c *Cache) Put(key string, d *models.Decision) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Ensure cache directory exists
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling decision: %w", err)
	}

	if err := os.WriteFile(c.cachePath(key), data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return nil
}

// Clear removes all cached decisions
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Safety check: only remove a directory that holds nothing but cache files
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	if len(entries) > 0 {
		hasValidCache := false
		for _, entry := range entries {
			if entry.IsDir() {
				return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
			}
			if filepath.Ext(entry.Name()) == ".json" {
				hasValidCache = true
			} else {
				return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
			}
		}
		if !hasValidCache {
			return fmt.Errorf("no valid cache files found in directory - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func writeString(w io.Writer, s string) error {
	// Write string with null byte delimiter to prevent hash collisions
	_, err := w.Write([]byte(s + "\x00"))
	return err
}
