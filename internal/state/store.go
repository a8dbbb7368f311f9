// Package state persists the listing snapshot and computes run-over-run
// transitions.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

const schemaVersion = 1

// Snapshot is the persisted ledger of every known listing and the health of
// every crawled domain.
type Snapshot struct {
	SchemaVersion int                           `json:"schema_version"`
	UpdatedAt     time.Time                     `json:"updated_at"`
	Listings      map[string]stock.Listing      `json:"listings"`
	Domains       map[string]stock.DomainHealth `json:"domains"`
	LastRun       *RunInfo                      `json:"last_run,omitempty"`
}

// RunInfo summarizes the run that produced the snapshot, for external
// reporting tools that read the file directly.
type RunInfo struct {
	At            time.Time `json:"at"`
	Mode          string    `json:"mode"`
	DomainsOK     int       `json:"domains_ok"`
	DomainsFailed int       `json:"domains_failed"`
	Listings      int       `json:"listings"`
	NewProducts   int       `json:"new_products"`
	Restocks      int       `json:"restocks"`
	NewLocations  int       `json:"new_locations"`
	Pruned        int       `json:"pruned"`
}

// NewSnapshot returns an empty snapshot at the current schema version.
func NewSnapshot() Snapshot {
	return Snapshot{
		SchemaVersion: schemaVersion,
		Listings:      make(map[string]stock.Listing),
		Domains:       make(map[string]stock.DomainHealth),
	}
}

// Load reads a snapshot from disk. A missing file yields an empty snapshot;
// a file that exists but cannot be decoded is an error the caller must treat
// as fatal, because diffing against a silently reset ledger would replay
// every listing as new.
func Load(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("corrupt snapshot %s: %w", path, err)
	}
	if s.SchemaVersion > schemaVersion {
		return Snapshot{}, fmt.Errorf("snapshot %s has schema %d, this build understands %d", path, s.SchemaVersion, schemaVersion)
	}
	if s.Listings == nil {
		s.Listings = make(map[string]stock.Listing)
	}
	if s.Domains == nil {
		s.Domains = make(map[string]stock.DomainHealth)
	}
	return s, nil
}

// Save writes the snapshot atomically: full write to a temp file in the same
// directory, then rename over the target.
func Save(path string, s Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
