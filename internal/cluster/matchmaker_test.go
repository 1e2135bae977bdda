package cluster

import (
	"math/rand"
	"testing"

	"github.com/lox/holdem-mccfr/internal/node"
	"github.com/lox/holdem-mccfr/poker"
)

func newTestNode(t *testing.T) *node.Node {
	t.Helper()
	n, err := node.NewNode(node.Config{
		Stacks:     []int{200, 200},
		Button:     0,
		SmallBlind: 1,
		BigBlind:   2,
		Rng:        rand.New(rand.NewSource(7)),
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	return n
}

func TestHandSetCombinesHoleAndBoard(t *testing.T) {
	n := newTestNode(t)
	if err := n.SetHands([][2]poker.Card{
		{poker.NewCard(poker.Ace, poker.Spades), poker.NewCard(poker.King, poker.Spades)},
		{poker.NewCard(poker.Two, poker.Clubs), poker.NewCard(poker.Three, poker.Clubs)},
	}); err != nil {
		t.Fatalf("SetHands: %v", err)
	}

	got := HandSet(n, 0)
	want := uint64(n.HoleCards(0))
	if got != want {
		t.Fatalf("HandSet with no board = %d, want %d", got, want)
	}
}

func TestClusterArrayOmitsFoldedSeats(t *testing.T) {
	n := newTestNode(t)
	if err := n.Apply(node.Fold, 0); err != nil {
		t.Fatalf("Apply fold: %v", err)
	}

	identity := LookupFunc(func(_ node.Round, idx uint64) int { return int(idx % 7) })
	clusters := ClusterArray(n, identity)
	if _, ok := clusters[0]; ok {
		t.Fatalf("expected the folded seat to be omitted from ClusterArray")
	}
}

func TestBuildTableRoundTripsAssignments(t *testing.T) {
	assignments := map[uint64]int{
		11: 0,
		22: 1,
		33: 2,
		44: 1,
	}
	table, err := BuildTable(assignments)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	for idx, want := range assignments {
		got, ok := table.Lookup(idx)
		if !ok {
			t.Fatalf("Lookup(%d): not found", idx)
		}
		if got != want {
			t.Fatalf("Lookup(%d) = %d, want %d", idx, got, want)
		}
	}
}

func TestTableMarshalRoundTrips(t *testing.T) {
	assignments := map[uint64]int{5: 3, 9: 1, 100: 4}
	table, err := BuildTable(assignments)
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}

	data, err := table.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	reloaded, err := UnmarshalTable(data)
	if err != nil {
		t.Fatalf("UnmarshalTable: %v", err)
	}

	for idx, want := range assignments {
		got, ok := reloaded.Lookup(idx)
		if !ok || got != want {
			t.Fatalf("reloaded Lookup(%d) = (%d,%v), want %d", idx, got, ok, want)
		}
	}
}
