package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/holdem-mccfr/commander"
	"github.com/lox/holdem-mccfr/internal/node"
)

// driver owns the live Commander and drives hands to completion, reading
// typed commands off a channel the model feeds and pushing rendered state
// back to the tea.Program. All fields below mu are shared with the
// rendering goroutine and must go through the accessor methods.
type driver struct {
	cmd       *commander.Commander
	cfg       *sessionTableConfig
	humanSeat int
	logger    *log.Logger

	commands chan string
	program  *tea.Program

	mu        sync.Mutex
	snap      commander.NodeSnapshot
	available []commander.AvailableAction
	lastErr   string
	lines     []string
}

// sessionTableConfig is the subset of commander.TableSettings the driver
// needs to start and restart hands.
type sessionTableConfig struct {
	Stacks       []int
	Button       int
	SmallBlind   int
	BigBlind     int
	FishbaitSeat int
}

func newDriver(cmd *commander.Commander, cfg *sessionTableConfig, logger *log.Logger) *driver {
	return &driver{
		cmd:       cmd,
		cfg:       cfg,
		humanSeat: 1 - cfg.FishbaitSeat,
		logger:    logger,
		commands:  make(chan string, 1),
	}
}

func (d *driver) attach(program *tea.Program) {
	d.program = program
}

func (d *driver) submit(text string) {
	select {
	case d.commands <- text:
	default:
	}
}

func (d *driver) snapshot() (commander.NodeSnapshot, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap, d.humanSeat
}

func (d *driver) availableActions() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.available))
	for _, a := range d.available {
		if a.Policy <= 0 {
			continue
		}
		if a.Action == node.Bet {
			out = append(out, fmt.Sprintf("raise %d", a.Size))
			continue
		}
		out = append(out, a.Action.String())
	}
	return out
}

func (d *driver) lastError() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *driver) logLines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

func (d *driver) setErr(err error) {
	d.mu.Lock()
	if err != nil {
		d.lastErr = err.Error()
	} else {
		d.lastErr = ""
	}
	d.mu.Unlock()
}

func (d *driver) addLine(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	d.mu.Lock()
	d.lines = append(d.lines, line)
	d.mu.Unlock()
	d.logger.Info(line)
}

func (d *driver) refresh() {
	d.mu.Lock()
	d.snap = d.cmd.State()
	d.mu.Unlock()
	if d.program != nil {
		d.program.Send(refreshMsg{})
	}
}

func (d *driver) setAvailable(available []commander.AvailableAction) {
	d.mu.Lock()
	d.available = available
	d.mu.Unlock()
}

// run drives hands until the human quits or an unrecoverable error occurs.
func (d *driver) run() {
	for {
		if err := d.cmd.Reset(d.cfg.Stacks, d.cfg.Button, d.cfg.SmallBlind, d.cfg.BigBlind, d.cfg.FishbaitSeat); err != nil {
			d.fatal(fmt.Errorf("reset hand: %w", err))
			return
		}
		d.refresh()
		d.addLine("*** NEW HAND ***")

		quit, err := d.playHand()
		if err != nil {
			d.fatal(err)
			return
		}
		if quit {
			d.quit()
			return
		}

		if err := d.cmd.AwardPot(); err != nil {
			d.fatal(fmt.Errorf("award pot: %w", err))
			return
		}
		d.refresh()
		d.addLine("*** HAND COMPLETE ***  stacks: %v", d.cmd.State().Stack)

		if err := d.cmd.NewHand(); err != nil {
			d.fatal(fmt.Errorf("new hand: %w", err))
			return
		}
	}
}

func (d *driver) playHand() (quit bool, err error) {
	for {
		snap := d.cmd.State()
		if !snap.InProgress {
			return false, nil
		}

		if snap.ActingPlayer == node.ChancePlayer {
			if err := d.cmd.ProceedPlay(); err != nil {
				return false, fmt.Errorf("proceed play: %w", err)
			}
			d.refresh()
			continue
		}

		if snap.ActingPlayer == d.humanSeat {
			available, err := d.cmd.GetAvailableActions()
			if err != nil {
				return false, fmt.Errorf("available actions: %w", err)
			}
			d.setAvailable(available)
			d.refresh()

			text, ok := d.awaitCommand()
			if !ok {
				return true, nil
			}
			action, size, perr := parseCommand(text)
			if perr != nil {
				d.setErr(perr)
				d.refresh()
				continue
			}
			if err := d.cmd.Apply(action, size); err != nil {
				d.setErr(fmt.Errorf("apply: %w", err))
				d.refresh()
				continue
			}
			d.setErr(nil)
			d.addLine("You: %s", describeAction(action, size))
		} else {
			act, err := d.cmd.Query()
			if err != nil {
				return false, fmt.Errorf("fishbait query: %w", err)
			}
			d.addLine("Fishbait: %s", describeAction(act.Action, act.Size))
		}

		d.refresh()
	}
}

func (d *driver) awaitCommand() (string, bool) {
	text := <-d.commands
	if strings.EqualFold(text, "quit") || strings.EqualFold(text, "q") || strings.EqualFold(text, "exit") {
		return "", false
	}
	return text, true
}

func (d *driver) fatal(err error) {
	d.logger.Error("fatal error", "error", err)
	d.setErr(err)
	if d.program != nil {
		d.program.Quit()
	}
}

func (d *driver) quit() {
	if d.program != nil {
		d.program.Quit()
	}
}

func parseCommand(text string) (node.Action, int, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("enter an action")
	}

	switch fields[0] {
	case "fold", "f":
		return node.Fold, 0, nil
	case "check", "call", "c", "ch":
		return node.CheckCall, 0, nil
	case "allin", "all", "a":
		return node.AllIn, 0, nil
	case "raise", "r", "bet", "b":
		if len(fields) < 2 {
			return 0, 0, fmt.Errorf("usage: raise <total>")
		}
		amount, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid raise amount %q", fields[1])
		}
		return node.Bet, amount, nil
	default:
		return 0, 0, fmt.Errorf("unknown command %q", fields[0])
	}
}

func describeAction(action node.Action, size int) string {
	switch action {
	case node.Fold:
		return "folds"
	case node.CheckCall:
		return "checks/calls"
	case node.AllIn:
		return "goes all-in"
	case node.Bet:
		return fmt.Sprintf("raises to %d", size)
	default:
		return action.String()
	}
}
