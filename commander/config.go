package commander

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// SessionConfig describes everything needed to stand up a live-play
// Commander session: the trained pack to load and the table conditions
// fishbait sits down at.
type SessionConfig struct {
	Session SessionSettings `hcl:"session,block"`
	Table   TableSettings   `hcl:"table,block"`
}

// SessionSettings points at the persisted pack and the abstraction
// artifacts a Commander needs to resolve the live policy.
type SessionSettings struct {
	PackPath    string `hcl:"pack_path"`
	ClusterPath string `hcl:"cluster_path,optional"`
	Seed        int64  `hcl:"seed,optional"`
	ListenAddr  string `hcl:"listen_addr,optional"`
	LogLevel    string `hcl:"log_level,optional"`
}

// TableSettings fixes the stakes and seating fishbait plays under.
type TableSettings struct {
	Players      int `hcl:"players,optional"`
	StartStack   int `hcl:"start_stack,optional"`
	SmallBlind   int `hcl:"small_blind,optional"`
	BigBlind     int `hcl:"big_blind,optional"`
	FishbaitSeat int `hcl:"fishbait_seat,optional"`
	Button       int `hcl:"button,optional"`
}

// DefaultSessionConfig returns the session defaults used when a field is
// left unset in the HCL file.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		Session: SessionSettings{
			ListenAddr: "localhost:8181",
			LogLevel:   "info",
		},
		Table: TableSettings{
			Players:      2,
			StartStack:   1000,
			SmallBlind:   5,
			BigBlind:     10,
			FishbaitSeat: 0,
			Button:       0,
		},
	}
}

// LoadSessionConfig reads a SessionConfig from an HCL file, falling back to
// defaults for any field left at its zero value. A missing file returns the
// defaults outright.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	defaults := DefaultSessionConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return defaults, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("commander: parse session config: %s", diags.Error())
	}

	cfg := *defaults
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("commander: decode session config: %s", diags.Error())
	}

	if cfg.Session.ListenAddr == "" {
		cfg.Session.ListenAddr = defaults.Session.ListenAddr
	}
	if cfg.Session.LogLevel == "" {
		cfg.Session.LogLevel = defaults.Session.LogLevel
	}
	if cfg.Table.Players == 0 {
		cfg.Table.Players = defaults.Table.Players
	}
	if cfg.Table.StartStack == 0 {
		cfg.Table.StartStack = defaults.Table.StartStack
	}
	if cfg.Table.SmallBlind == 0 {
		cfg.Table.SmallBlind = defaults.Table.SmallBlind
	}
	if cfg.Table.BigBlind == 0 {
		cfg.Table.BigBlind = defaults.Table.BigBlind
	}
	return &cfg, nil
}

// Validate checks the config is complete enough to start a session.
func (c *SessionConfig) Validate() error {
	if c.Session.PackPath == "" {
		return fmt.Errorf("commander: session.pack_path is required")
	}
	if c.Table.Players < 2 {
		return fmt.Errorf("commander: table.players must be >= 2")
	}
	if c.Table.FishbaitSeat < 0 || c.Table.FishbaitSeat >= c.Table.Players {
		return fmt.Errorf("commander: table.fishbait_seat %d out of range", c.Table.FishbaitSeat)
	}
	if c.Table.SmallBlind < 0 || c.Table.BigBlind <= 0 {
		return fmt.Errorf("commander: invalid blinds")
	}
	return nil
}

// Stacks returns the starting stack for every seat at the table.
func (c *SessionConfig) Stacks() []int {
	stacks := make([]int, c.Table.Players)
	for i := range stacks {
		stacks[i] = c.Table.StartStack
	}
	return stacks
}
