package policy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	d := NewDirectory([]models.Policy{
		{ID: "POL-1", CoverageLimit: 100000, Active: true},
		{ID: "POL-2", CoverageLimit: 50000},
	})

	p, err := d.Lookup(context.Background(), "POL-1")
	require.NoError(t, err)
	assert.InDelta(t, 100000, p.CoverageLimit, 1e-9)

	p.CoverageLimit = 1
	again, err := d.Lookup(context.Background(), "POL-1")
	require.NoError(t, err)
	assert.InDelta(t, 100000, again.CoverageLimit, 1e-9, "callers get copies")

	_, err = d.Lookup(context.Background(), "POL-404")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "POL-404")
}

func TestLookup_NilDirectory(t *testing.T) {
	var d *Directory
	_, err := d.Lookup(context.Background(), "POL-1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, d.Len())
}

func TestLookup_CanceledContext(t *testing.T) {
	d := NewDirectory(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Lookup(ctx, "POL-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDirectory_DuplicatesKeepLast(t *testing.T) {
	d := NewDirectory([]models.Policy{
		{ID: "POL-1", CoverageLimit: 1},
		{ID: "POL-1", CoverageLimit: 2},
	})
	assert.Equal(t, 1, d.Len())
	p, err := d.Lookup(context.Background(), "POL-1")
	require.NoError(t, err)
	assert.InDelta(t, 2, p.CoverageLimit, 1e-9)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.csv")
	content := "policy_id,policy_type,coverage_limit,deductible,customer_name,policy_start_date,claims_history_count,is_active\n" +
		"POL-2,Basic,50000,500,Customer POL-2,2024-01-01,0,True\n" +
		"POL-1,Premium,1000000,5000,Customer POL-1,2021-01-01,4,True\n" +
		"POL-3,Basic,-1,500,,,0,True\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	for _, id := range []string{"POL-1", "POL-2"} {
		_, err := d.Lookup(context.Background(), id)
		assert.NoError(t, err, id)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.csv"))
	require.Error(t, err)
}
