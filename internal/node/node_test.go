package node

import (
	"errors"
	"math/rand"
	"testing"
)

func newTestNode(t *testing.T, stacks []int, button, sb, bb int) *Node {
	t.Helper()
	n, err := NewNode(Config{
		Stacks:     stacks,
		Button:     button,
		SmallBlind: sb,
		BigBlind:   bb,
		Rng:        rand.New(rand.NewSource(7)),
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	return n
}

func TestNewNodePostsHeadsUpBlinds(t *testing.T) {
	t.Parallel()
	n := newTestNode(t, []int{1000, 1000}, 0, 5, 10)

	if n.BetOf(0) != 5 || n.BetOf(1) != 10 {
		t.Fatalf("expected SB=5 BB=10, got %d/%d", n.BetOf(0), n.BetOf(1))
	}
	if n.Pot() != 15 {
		t.Fatalf("expected pot=15, got %d", n.Pot())
	}
	// Heads-up: button posts SB and acts first preflop.
	if n.ActingPlayer() != 0 {
		t.Fatalf("expected button to act first preflop heads-up, got %d", n.ActingPlayer())
	}
}

func TestNewNodePosts3HandedBlinds(t *testing.T) {
	t.Parallel()
	n := newTestNode(t, []int{1000, 1000, 1000}, 0, 5, 10)

	if n.BetOf(1) != 5 || n.BetOf(2) != 10 {
		t.Fatalf("expected SB at seat 1 and BB at seat 2, got %d/%d", n.BetOf(1), n.BetOf(2))
	}
	if n.ActingPlayer() != 0 {
		t.Fatalf("expected UTG (button) to act first 3-handed, got %d", n.ActingPlayer())
	}
}

func TestChipConservationAcrossApply(t *testing.T) {
	t.Parallel()
	n := newTestNode(t, []int{1000, 1000, 1000}, 0, 5, 10)
	// pot = Σ bets[i] always, so the conserved quantity is stack+bet alone;
	// adding Pot() on top would double-count every chip already wagered.
	total := func() int {
		sum := 0
		for i := 0; i < n.NumPlayers(); i++ {
			sum += n.StackOf(i) + n.BetOf(i)
		}
		return sum
	}
	before := total()

	if err := n.Apply(CheckCall, 0); err != nil {
		t.Fatalf("Apply(CheckCall): %v", err)
	}
	if err := n.Apply(CheckCall, 0); err != nil {
		t.Fatalf("Apply(CheckCall): %v", err)
	}
	if err := n.Apply(CheckCall, 0); err != nil {
		t.Fatalf("Apply(CheckCall): %v", err)
	}

	if after := total(); after != before {
		t.Fatalf("chips not conserved: before=%d after=%d", before, after)
	}
}

func TestApplyAtChanceNodeFails(t *testing.T) {
	t.Parallel()
	n := newTestNode(t, []int{1000, 1000, 1000}, 0, 5, 10)
	n.actingPlayer = ChancePlayer

	err := n.Apply(CheckCall, 0)
	if !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
}

func TestFoldToHeadsUpEndsHand(t *testing.T) {
	t.Parallel()
	n := newTestNode(t, []int{1000, 1000, 1000}, 0, 5, 10)

	if err := n.Apply(Fold, 0); err != nil { // UTG folds
		t.Fatalf("Apply(Fold): %v", err)
	}
	if n.InProgress() != true {
		t.Fatalf("hand should still be in progress with 2 players left")
	}
	if err := n.Apply(Fold, 0); err != nil { // SB folds
		t.Fatalf("Apply(Fold): %v", err)
	}
	if n.InProgress() {
		t.Fatalf("hand should have ended when players_left=1")
	}
	if n.Winner() != 2 {
		t.Fatalf("expected BB (seat 2) to win uncontested, got %d", n.Winner())
	}
}

func TestAwardPotSingleRunConservesChipsAtShowdown(t *testing.T) {
	t.Parallel()
	n := newTestNode(t, []int{1000, 1000}, 0, 5, 10)

	// Force both players all-in preflop so the hand reaches showdown.
	if err := n.Apply(AllIn, 0); err != nil {
		t.Fatalf("Apply(AllIn): %v", err)
	}
	if err := n.Apply(AllIn, 0); err != nil {
		t.Fatalf("Apply(AllIn): %v", err)
	}
	for n.InProgress() {
		if n.ActingPlayer() == ChancePlayer {
			if err := n.ProceedPlay(); err != nil {
				t.Fatalf("ProceedPlay: %v", err)
			}
			continue
		}
		break
	}
	if n.InProgress() {
		t.Fatalf("expected hand to reach showdown with both players all-in")
	}

	if err := n.AwardPotSingleRun(); err != nil {
		t.Fatalf("AwardPotSingleRun: %v", err)
	}
	total := n.StackOf(0) + n.StackOf(1)
	if total != 2000 {
		t.Fatalf("expected chips conserved across award (minus rake=0), got %d", total)
	}
	if n.Pot() != 0 || n.BetOf(0) != 0 || n.BetOf(1) != 0 {
		t.Fatalf("expected pot and bets cleared after award")
	}
}

func TestHamiltonApportionSumsToPotExactly(t *testing.T) {
	t.Parallel()
	dist, err := hamiltonApportion(100, []float64{33.33, 33.33, 33.34})
	if err != nil {
		t.Fatalf("hamiltonApportion: %v", err)
	}
	sum := 0
	for _, v := range dist {
		sum += v
	}
	if sum != 100 {
		t.Fatalf("expected distribution to sum to 100, got %d", sum)
	}
}

func TestHamiltonApportionRejectsOverPot(t *testing.T) {
	t.Parallel()
	_, err := hamiltonApportion(10, []float64{6, 6})
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
}

func TestBigBlindAnteRemainderCreditedToBB(t *testing.T) {
	t.Parallel()
	n, err := NewNode(Config{
		Stacks:       []int{1000, 1000, 7}, // BB has only 7 chips for the ante leg
		Button:       0,
		SmallBlind:   5,
		BigBlind:     10,
		Ante:         3,
		BigBlindAnte: true,
		Rng:          rand.New(rand.NewSource(7)),
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	// effective_ante = min(bb_stack/numPlayers, ante) = min(7/3, 3) = 2 per player,
	// with the undivisible remainder credited to BB's own bet.
	if n.BetOf(0) < 2 || n.BetOf(1) < 2 {
		t.Fatalf("expected every player credited at least the effective ante")
	}
	if n.BetOf(2) != 3 {
		t.Fatalf("expected BB's bet to be the effective ante plus the remainder (2+1=3), got %d", n.BetOf(2))
	}
}

func TestCanBetRejectsBelowMinRaise(t *testing.T) {
	t.Parallel()
	n := newTestNode(t, []int{1000, 1000, 1000}, 0, 5, 10)
	if n.CanBet(15) {
		t.Fatalf("expected a raise below min_raise (10) to total 20 to be illegal")
	}
	if !n.CanBet(20) {
		t.Fatalf("expected a minimum-size raise to 20 to be legal")
	}
}
