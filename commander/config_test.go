package commander

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSessionConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadSessionConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSessionConfig(), cfg)
}

func TestLoadSessionConfigParsesHCLAndBackfillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commander.hcl")
	contents := `
session {
  pack_path = "blueprint.json"
  seed      = 42
}

table {
  fishbait_seat = 1
  button        = 1
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadSessionConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "blueprint.json", cfg.Session.PackPath)
	assert.Equal(t, int64(42), cfg.Session.Seed)
	assert.Equal(t, "localhost:8181", cfg.Session.ListenAddr, "unset fields fall back to defaults")
	assert.Equal(t, "info", cfg.Session.LogLevel)

	assert.Equal(t, 1, cfg.Table.FishbaitSeat)
	assert.Equal(t, 1, cfg.Table.Button)
	assert.Equal(t, 2, cfg.Table.Players, "unset table fields fall back to defaults")
	assert.Equal(t, 1000, cfg.Table.StartStack)
	assert.Equal(t, 5, cfg.Table.SmallBlind)
	assert.Equal(t, 10, cfg.Table.BigBlind)
}

func TestLoadSessionConfigRejectsInvalidHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "commander.hcl")
	require.NoError(t, os.WriteFile(path, []byte("session { pack_path = "), 0o644))

	_, err := LoadSessionConfig(path)
	assert.Error(t, err)
}

func TestSessionConfigValidateRequiresPackPath(t *testing.T) {
	cfg := DefaultSessionConfig()
	assert.Error(t, cfg.Validate())

	cfg.Session.PackPath = "blueprint.json"
	assert.NoError(t, cfg.Validate())
}

func TestSessionConfigValidateRejectsBadFishbaitSeat(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.Session.PackPath = "blueprint.json"
	cfg.Table.FishbaitSeat = 5

	assert.Error(t, cfg.Validate())
}

func TestSessionConfigValidateRejectsTooFewPlayers(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.Session.PackPath = "blueprint.json"
	cfg.Table.Players = 1

	assert.Error(t, cfg.Validate())
}

func TestSessionConfigValidateRejectsZeroBigBlind(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.Session.PackPath = "blueprint.json"
	cfg.Table.BigBlind = 0

	assert.Error(t, cfg.Validate())
}

func TestSessionConfigStacksFillsEverySeat(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.Table.Players = 3
	cfg.Table.StartStack = 500

	assert.Equal(t, []int{500, 500, 500}, cfg.Stacks())
}
