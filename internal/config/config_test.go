package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ModeFull, cfg.Mode)
	require.False(t, cfg.DryRun)
	require.Equal(t, 25, cfg.Fetch.TimeoutSeconds)
	require.Equal(t, 40, cfg.Discovery.MaxPages)
	require.Equal(t, 30, cfg.Hidden.StopAfterNoInfo)
	require.Equal(t, 2000, cfg.Hidden.HardMaxID)
	require.Equal(t, 4, cfg.Run.Workers)
	require.Equal(t, "state.json", cfg.StatePath)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.yaml")
	body := `
mode: lite
dry_run: true
targets:
  - https://example.com/store
fetch:
  solver_url: http://localhost:8191
hidden:
  stop_after_duplicates: 3
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ModeLite, cfg.Mode)
	require.True(t, cfg.DryRun)
	require.Equal(t, []string{"https://example.com/store"}, cfg.Targets)
	require.Equal(t, "http://localhost:8191", cfg.Fetch.SolverURL)
	require.Equal(t, 3, cfg.Hidden.StopAfterDuplicates)
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Mode = "turbo"
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresChatIDWithToken(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Notify.BotToken = "token"
	cfg.Notify.ChatID = ""
	require.Error(t, cfg.Validate())
}
