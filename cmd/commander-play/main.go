// Command commander-play is an interactive bubbletea TUI for playing a
// heads-up hand against a trained fishbait Commander.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/holdem-mccfr/commander"
	"github.com/lox/holdem-mccfr/internal/scribe"
)

func main() {
	var configPath string
	var logPath string
	flag.StringVar(&configPath, "config", "commander.hcl", "path to session config")
	flag.StringVar(&logPath, "log", "commander-play.log", "path to write interactive logs")
	flag.Parse()

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "commander-play: open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	logger := log.NewWithOptions(logFile, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "commander-play",
	})

	cfg, err := commander.LoadSessionConfig(configPath)
	if err != nil {
		logger.Fatal("load session config", "error", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid session config", "error", err)
	}
	if cfg.Table.Players != 2 {
		logger.Fatal("commander-play only plays heads-up right now", "players", cfg.Table.Players)
	}

	pack, err := scribe.Load(cfg.Session.PackPath)
	if err != nil {
		logger.Fatal("load policy pack", "error", err)
	}

	seed := cfg.Session.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	table, err := pack.BuildTable(rng)
	if err != nil {
		logger.Fatal("rebuild sequence table", "error", err)
	}

	cmd := commander.New(pack, table, pack.ClusterLookup(), rng)
	drv := newDriver(cmd, &sessionTableConfig{
		Stacks:       cfg.Stacks(),
		Button:       cfg.Table.Button,
		SmallBlind:   cfg.Table.SmallBlind,
		BigBlind:     cfg.Table.BigBlind,
		FishbaitSeat: cfg.Table.FishbaitSeat,
	}, logger)

	m := newModel(drv)
	program := tea.NewProgram(m, tea.WithAltScreen())
	drv.attach(program)

	go drv.run()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "commander-play: %v\n", err)
		os.Exit(1)
	}
}
