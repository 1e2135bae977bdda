package commander

import (
	"math/rand"
	"testing"

	"github.com/lox/holdem-mccfr/internal/node"
	"github.com/lox/holdem-mccfr/internal/scribe"
	"github.com/lox/holdem-mccfr/internal/sequence"
	"github.com/lox/holdem-mccfr/poker"
)

func buildHeadsUpCommander(t *testing.T) *Commander {
	t.Helper()

	start, err := node.NewNode(node.Config{
		Stacks:     []int{200, 200},
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
		{Action: node.Bet, Size: 1.0, MaxRound: node.River},
		{Action: node.AllIn, MaxRound: node.River},
	}
	table, err := sequence.Build(start, actions)
	if err != nil {
		t.Fatalf("sequence.Build: %v", err)
	}

	scribeStart := scribe.StartState{Stacks: []int{200, 200}, Button: 0, SmallBlind: 1, BigBlind: 2}
	pack, err := scribe.Build(2, scribeStart, actions, table, [node.NumRounds]map[uint64]int{})
	if err != nil {
		t.Fatalf("scribe.Build: %v", err)
	}
	for r := node.Round(0); int(r) < node.NumRounds; r++ {
		pack.FillPolicy(r, 1, func(round node.Round, cluster, seq int) []float64 {
			weights := make([]float64, len(actions))
			for i, a := range actions {
				if a.Action == node.CheckCall {
					weights[i] = 1
				}
			}
			return weights
		})
	}

	clusterFn := func(round node.Round, index uint64) int { return 0 }

	return New(pack, table, clusterFn, rand.New(rand.NewSource(2)))
}

func TestResetSeatsFishbaitAndPostsBlinds(t *testing.T) {
	t.Parallel()
	c := buildHeadsUpCommander(t)

	if err := c.Reset([]int{200, 200}, 0, 1, 2, 1); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if c.FishbaitSeat() != 1 {
		t.Fatalf("FishbaitSeat() = %d, want 1", c.FishbaitSeat())
	}
	st := c.State()
	if st.Pot != 3 {
		t.Fatalf("Pot after blinds = %d, want 3", st.Pot)
	}
}

func TestResetRejectsOutOfRangeFishbaitSeat(t *testing.T) {
	t.Parallel()
	c := buildHeadsUpCommander(t)
	if err := c.Reset([]int{200, 200}, 0, 1, 2, 5); err == nil {
		t.Fatal("Reset with out-of-range fishbait seat should fail")
	}
}

func TestApplyMirrorsFoldIntoAbstract(t *testing.T) {
	t.Parallel()
	c := buildHeadsUpCommander(t)
	if err := c.Reset([]int{200, 200}, 0, 1, 2, 1); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if err := c.Apply(node.Fold, 0); err != nil {
		t.Fatalf("Apply(Fold): %v", err)
	}
	if c.actual.InProgress() {
		t.Fatal("actual state should have ended after fold")
	}
}

func TestApplyMirrorsCheckCallIntoAbstract(t *testing.T) {
	t.Parallel()
	c := buildHeadsUpCommander(t)
	if err := c.Reset([]int{200, 200}, 0, 1, 2, 1); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	beforeRound := c.abstract.Round()
	if err := c.Apply(node.CheckCall, 0); err != nil {
		t.Fatalf("Apply(CheckCall): %v", err)
	}
	if err := c.Apply(node.CheckCall, 0); err != nil {
		t.Fatalf("Apply(CheckCall): %v", err)
	}
	if c.abstract.Round() == beforeRound && c.abstract.InProgress() {
		t.Fatal("expected round to advance after both players check/call")
	}
}

func TestGetAvailableActionsNormalizesToLegalMoves(t *testing.T) {
	t.Parallel()
	c := buildHeadsUpCommander(t)
	if err := c.Reset([]int{200, 200}, 0, 1, 2, 0); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	available, err := c.GetAvailableActions()
	if err != nil {
		t.Fatalf("GetAvailableActions: %v", err)
	}

	total := 0.0
	for _, a := range available {
		total += a.Policy
	}
	if total < 0.999 || total > 1.001 {
		t.Fatalf("policy over legal actions sums to %v, want ~1", total)
	}

	for _, a := range available {
		if a.Action == node.Fold && a.Policy != 0 {
			t.Fatalf("fold should carry zero weight under the all-check/call policy, got %v", a.Policy)
		}
	}
}

func TestQuerySamplesALegalActionAndAppliesItToBothStates(t *testing.T) {
	t.Parallel()
	c := buildHeadsUpCommander(t)
	if err := c.Reset([]int{200, 200}, 0, 1, 2, 0); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	before := c.actual.ActingPlayer()
	action, err := c.Query()
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if action.Action != node.CheckCall {
		t.Fatalf("Query() under all-check/call policy = %v, want CheckCall", action.Action)
	}
	if c.actual.ActingPlayer() == before && c.actual.InProgress() {
		t.Fatal("expected acting player to advance after Query applied the action")
	}
}

func TestSetHandAndSetBoardMirrorOnlyFishbaitCards(t *testing.T) {
	t.Parallel()
	c := buildHeadsUpCommander(t)
	if err := c.Reset([]int{200, 200}, 0, 1, 2, 1); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	fishbaitCards := [2]poker.Card{poker.NewCard(poker.Ace, poker.Spades), poker.NewCard(poker.King, poker.Spades)}
	if err := c.SetHand(1, fishbaitCards[0], fishbaitCards[1]); err != nil {
		t.Fatalf("SetHand(fishbait): %v", err)
	}
	if c.abstract.HoleCards(1) != c.actual.HoleCards(1) {
		t.Fatal("fishbait's abstract hole cards should mirror the actual state")
	}

	opponentCards := [2]poker.Card{poker.NewCard(poker.Two, poker.Clubs), poker.NewCard(poker.Three, poker.Clubs)}
	if err := c.SetHand(0, opponentCards[0], opponentCards[1]); err != nil {
		t.Fatalf("SetHand(opponent): %v", err)
	}
	if c.abstract.HoleCards(0) == c.actual.HoleCards(0) {
		t.Fatal("opponent hole cards should not be mirrored into the abstract state")
	}
}

func TestAwardPotSettlesOnlyTheActualState(t *testing.T) {
	t.Parallel()
	c := buildHeadsUpCommander(t)
	if err := c.Reset([]int{200, 200}, 0, 1, 2, 1); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := c.Apply(node.Fold, 0); err != nil {
		t.Fatalf("Apply(Fold): %v", err)
	}
	if err := c.AwardPot(); err != nil {
		t.Fatalf("AwardPot: %v", err)
	}
	if c.actual.Pot() != 0 {
		t.Fatalf("actual pot after award = %d, want 0", c.actual.Pot())
	}
}
