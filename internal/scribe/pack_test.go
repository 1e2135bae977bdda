package scribe

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/lox/holdem-mccfr/internal/node"
	"github.com/lox/holdem-mccfr/internal/sequence"
)

func buildTestTable(t *testing.T) (*sequence.Table, []sequence.AbstractAction) {
	t.Helper()
	n, err := node.NewNode(node.Config{
		Stacks:     []int{100, 100},
		Button:     0,
		SmallBlind: 1,
		BigBlind:   2,
		Rng:        rand.New(rand.NewSource(1)),
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	actions := []sequence.AbstractAction{
		{Action: node.Fold, MaxRound: node.River},
		{Action: node.CheckCall, MaxRound: node.River},
		{Action: node.AllIn, MaxRound: node.River},
	}
	table, err := sequence.Build(n, actions)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return table, actions
}

func TestBuildAndFillPolicyRoundTrip(t *testing.T) {
	table, actions := buildTestTable(t)
	start := StartState{Stacks: []int{100, 100}, Button: 0, SmallBlind: 1, BigBlind: 2}

	pack, err := Build(2, start, actions, table, [node.NumRounds]map[uint64]int{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	pack.FillPolicy(node.Preflop, 1, func(_ node.Round, cluster, seq int) []float64 {
		return []float64{0.2, 0.5, 0.3}
	})

	dir := t.TempDir()
	path := filepath.Join(dir, "pack.json")
	if err := pack.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.KActions != 3 {
		t.Fatalf("KActions = %d, want 3", loaded.KActions)
	}
	got := loaded.Policy[node.Preflop].At(0, 0)
	want := []float64{0.2, 0.5, 0.3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("policy[0][0] = %v, want %v", got, want)
		}
	}
}

func TestLoadRejectsMismatchedActionCount(t *testing.T) {
	table, actions := buildTestTable(t)
	start := StartState{Stacks: []int{100, 100}, Button: 0, SmallBlind: 1, BigBlind: 2}

	pack, err := Build(2, start, actions, table, [node.NumRounds]map[uint64]int{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	pack.KActions = 99

	dir := t.TempDir()
	path := filepath.Join(dir, "pack.json")
	if err := pack.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected Load to reject a mismatched k_actions attribute")
	}
}
