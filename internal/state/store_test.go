package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	require.Equal(t, schemaVersion, s.SchemaVersion)
	require.Empty(t, s.Listings)
	require.Empty(t, s.Domains)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	s := NewSnapshot()
	s.UpdatedAt = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.Listings["shop.example.com::https://shop.example.com/cart.php?a=add&pid=1"] = stock.Listing{
		ID:     "shop.example.com::https://shop.example.com/cart.php?a=add&pid=1",
		Domain: "shop.example.com",
		Title:  "VPS Starter",
		Status: stock.StatusInStock,
	}
	s.Domains["shop.example.com"] = stock.DomainHealth{Domain: "shop.example.com", LastStatus: stock.HealthOK}

	require.NoError(t, Save(path, s))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, s.Listings, got.Listings)
	require.Equal(t, s.Domains, got.Domains)
}

func TestLoadCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte("{ truncated"), 0o644))

	_, err := Load(path)
	require.ErrorContains(t, err, "corrupt snapshot")
}

func TestLoadNewerSchemaFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": 99}`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	first := NewSnapshot()
	require.NoError(t, Save(path, first))

	second := NewSnapshot()
	second.Listings["x"] = stock.Listing{ID: "x", Domain: "d"}
	require.NoError(t, Save(path, second))

	got, err := Load(path)
	require.NoError(t, err)
	require.Len(t, got.Listings, 1)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
