package solver

import (
	"math/rand"
	"testing"

	"github.com/lox/holdem-mccfr/internal/node"
)

func newDecisionNode(t *testing.T, stacks []int, button, sb, bb int, seed int64) *node.Node {
	t.Helper()
	n, err := node.NewNode(node.Config{
		Stacks:     stacks,
		Button:     button,
		SmallBlind: sb,
		BigBlind:   bb,
		Rng:        rand.New(rand.NewSource(seed)),
	})
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	return n
}

func TestUtilityForPlayerSidePot(t *testing.T) {
	n := newDecisionNode(t, []int{1000, 1000, 40}, 0, 5, 10, 7)

	// Force a three-way side pot: button and SB go all-in for 1000, the
	// short-stacked BB can only cover 40 total.
	if err := n.Apply(node.AllIn, 0); err != nil { // button
		t.Fatalf("Apply(AllIn) button: %v", err)
	}
	if err := n.Apply(node.AllIn, 0); err != nil { // SB
		t.Fatalf("Apply(AllIn) sb: %v", err)
	}
	if err := n.Apply(node.AllIn, 0); err != nil { // BB, short stack
		t.Fatalf("Apply(AllIn) bb: %v", err)
	}

	for n.InProgress() && n.ActingPlayer() == node.ChancePlayer {
		if err := n.ProceedPlay(); err != nil {
			t.Fatalf("ProceedPlay: %v", err)
		}
	}
	if n.InProgress() {
		t.Fatalf("expected showdown with everyone all-in")
	}

	u0, err := utilityForPlayer(n, 0, 1000)
	if err != nil {
		t.Fatalf("utilityForPlayer(0): %v", err)
	}
	// n is now mutated by the award inside utilityForPlayer(0,...); reuse the
	// same post-award stacks for the remaining players instead of re-awarding.
	u1 := n.StackOf(1) - 1000
	u2 := n.StackOf(2) - 40

	if u0+u1+u2 != 0 {
		t.Fatalf("expected zero-sum utilities (no rake), got %d+%d+%d", u0, u1, u2)
	}
	if got := n.StackOf(0) + n.StackOf(1) + n.StackOf(2); got != 2040 {
		t.Fatalf("expected total chips conserved at 2040, got %d", got)
	}
}

func TestRaiseAmountsRespectsConstraints(t *testing.T) {
	abs := DefaultAbstraction()
	cfg := DefaultTrainingConfig()
	cfg.Players = 2
	cfg.SmallBlind = 1
	cfg.BigBlind = 2
	cfg.StartingStack = 10
	cfg.Iterations = 1

	trainer, err := NewTrainer(abs, cfg)
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}

	n := newDecisionNode(t, []int{10, 10}, 0, 1, 2, 3)

	raises := trainer.raiseAmounts(n)
	if len(raises) == 0 {
		t.Fatalf("expected at least one raise amount, got none")
	}
	for _, r := range raises {
		if r <= n.MaxBet() {
			t.Fatalf("raise total %d must exceed max bet %d", r, n.MaxBet())
		}
		if r >= n.BetOf(n.ActingPlayer())+n.StackOf(n.ActingPlayer()) {
			t.Fatalf("raise total %d should not reach all-in (covered separately)", r)
		}
	}

	// The acting player's all-in total (bets+stack) equals max_bet exactly
	// here, so there is no room for a non-all-in raise.
	tight := newDecisionNode(t, []int{2, 10}, 0, 1, 2, 3)
	if res := trainer.raiseAmounts(tight); len(res) != 0 {
		t.Fatalf("expected no raises once acting player has no chips behind, got %v", res)
	}
}

func TestFilterRaisesPrunesToLimit(t *testing.T) {
	abs := DefaultAbstraction()
	abs.MaxRaisesPerBucket = 2
	cfg := DefaultTrainingConfig()
	cfg.Players = 2
	cfg.SmallBlind = 1
	cfg.BigBlind = 2
	cfg.StartingStack = 400
	cfg.Iterations = 1

	trainer, err := NewTrainer(abs, cfg)
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}

	n := newDecisionNode(t, []int{400, 400}, 0, 1, 2, 17)

	amounts := trainer.raiseAmounts(n)
	if len(amounts) < 3 {
		t.Fatalf("expected multiple raise amounts, got %v", amounts)
	}

	filtered := trainer.filterRaises(n, amounts, false)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 raises after pruning, got %v", filtered)
	}
	if filtered[0] != amounts[0] {
		t.Fatalf("expected min raise %d to survive, got %d", amounts[0], filtered[0])
	}
	if filtered[1] != amounts[len(amounts)-1] {
		t.Fatalf("expected max raise %d to survive, got %d", amounts[len(amounts)-1], filtered[1])
	}

	abs.MaxRaisesPerBucket = 0
	trainerNoLimit, err := NewTrainer(abs, cfg)
	if err != nil {
		t.Fatalf("new trainer no limit: %v", err)
	}
	n2 := newDecisionNode(t, []int{400, 400}, 0, 1, 2, 17)
	amounts2 := trainerNoLimit.raiseAmounts(n2)
	filtered2 := trainerNoLimit.filterRaises(n2, amounts2, false)
	if len(filtered2) != len(amounts2) {
		t.Fatalf("expected no pruning when limit disabled, got %v vs %v", filtered2, amounts2)
	}
}

func TestLegalActionsOffersAllInWhenCallExceedsStack(t *testing.T) {
	abs := DefaultAbstraction()
	cfg := DefaultTrainingConfig()
	cfg.Players = 2
	cfg.SmallBlind = 1
	cfg.BigBlind = 2
	cfg.StartingStack = 400
	cfg.Iterations = 1

	trainer, err := NewTrainer(abs, cfg)
	if err != nil {
		t.Fatalf("new trainer: %v", err)
	}

	n := newDecisionNode(t, []int{400, 50}, 0, 1, 2, 5)
	if err := n.Apply(node.Bet, 100); err != nil { // button bets, well short of its own all-in
		t.Fatalf("Apply(Bet): %v", err)
	}
	// BB's remaining stack (48) is less than the 98 needed to call, so
	// CanCheckCall is false: the only options are fold or all-in.
	actions := trainer.legalActions(n, false)
	sawFold, sawAllIn, sawCheckCall := false, false, false
	for _, a := range actions {
		switch a.action {
		case node.Fold:
			sawFold = true
		case node.AllIn:
			sawAllIn = true
		case node.CheckCall:
			sawCheckCall = true
		}
	}
	if !sawFold || !sawAllIn {
		t.Fatalf("expected fold and all-in to be legal, got %+v", actions)
	}
	if sawCheckCall {
		t.Fatalf("check/call should not be legal when the call would exceed the stack, got %+v", actions)
	}
}
