package commander

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/lox/holdem-mccfr/internal/cluster"
	"github.com/lox/holdem-mccfr/internal/node"
	"github.com/lox/holdem-mccfr/internal/scribe"
	"github.com/lox/holdem-mccfr/internal/sequence"
	"github.com/lox/holdem-mccfr/poker"
)

// Action is the result of a Query call: fishbait's chosen move.
type Action struct {
	Action    node.Action
	Size      int
	ActionIdx int
}

// AvailableAction describes one action fishbait could take, for UI
// consumers and the GetAvailableActions surface.
type AvailableAction struct {
	Action    node.Action
	Size      int
	Policy    float64
	ActionIdx int
}

// Commander mirrors a live hand (actual) against an abstract hand used to
// index a trained policy, translating opponents' real bet sizes into the
// abstraction via pseudo-harmonic mapping, and sampling fishbait's own
// moves from the loaded policy.
type Commander struct {
	pack      *scribe.Pack
	table     *sequence.Table
	clusterFn cluster.LookupFunc
	rng       *rand.Rand

	actual   *node.Node
	abstract *node.Node
	fishbait int

	betSizes []float64
}

// New constructs a Commander from a loaded policy pack, the sequence table
// it was built from, and a cluster lookup function.
func New(pack *scribe.Pack, table *sequence.Table, clusterFn cluster.LookupFunc, rng *rand.Rand) *Commander {
	sizes := make(map[float64]struct{})
	for i := 0; i < table.NumActions(); i++ {
		a := table.Action(i)
		if a.Action == node.Bet {
			sizes[a.Size] = struct{}{}
		}
	}
	betSizes := make([]float64, 0, len(sizes))
	for s := range sizes {
		betSizes = append(betSizes, s)
	}
	sort.Float64s(betSizes)

	return &Commander{
		pack:      pack,
		table:     table,
		clusterFn: clusterFn,
		rng:       rng,
		betSizes:  betSizes,
	}
}

// Reset starts a fresh hand with the given stacks/blinds, seating fishbait
// at fishbaitSeat. Both the actual and abstract Nodes are reset in lockstep.
func (c *Commander) Reset(stacks []int, button, smallBlind, bigBlind, fishbaitSeat int) error {
	if fishbaitSeat < 0 || fishbaitSeat >= len(stacks) {
		return fmt.Errorf("commander: fishbait seat %d out of range", fishbaitSeat)
	}

	actual, err := node.NewNode(node.Config{
		Stacks:     append([]int(nil), stacks...),
		Button:     button,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
		Rng:        c.rng,
	})
	if err != nil {
		return fmt.Errorf("commander: reset actual state: %w", err)
	}
	abstract, err := node.NewNode(node.Config{
		Stacks:     append([]int(nil), stacks...),
		Button:     button,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
		Rng:        c.rng,
	})
	if err != nil {
		return fmt.Errorf("commander: reset abstract state: %w", err)
	}

	c.actual = actual
	c.abstract = abstract
	c.fishbait = fishbaitSeat
	return nil
}

// SetHand assigns a player's hole cards in the actual state. It is mirrored
// into the abstract state only for fishbait, whose cards drive cluster
// lookups; opponents' abstract cards are never consulted.
func (c *Commander) SetHand(player int, c1, c2 poker.Card) error {
	if err := c.actual.SetHand(player, c1, c2); err != nil {
		return err
	}
	if player == c.fishbait {
		return c.abstract.SetHand(player, c1, c2)
	}
	return nil
}

// SetBoard assigns the board cards in the actual state, mirrored into the
// abstract state so fishbait's cluster lookups see the same board.
func (c *Commander) SetBoard(cards ...poker.Card) error {
	if err := c.actual.SetBoard(cards...); err != nil {
		return err
	}
	return c.abstract.SetBoard(cards...)
}

// ShouldUpdateAbstract reports whether the abstract state still needs to
// track this hand: fishbait has chips behind and at least two players
// (including fishbait) haven't gone all-in.
func (c *Commander) ShouldUpdateAbstract() bool {
	if !c.abstract.InProgress() {
		return false
	}
	if c.abstract.Folded(c.fishbait) || c.abstract.StackOf(c.fishbait) == 0 {
		return false
	}
	return c.abstract.PlayersLeft()-c.abstract.PlayersAllIn() >= 2
}

// ProceedPlay deals the next street in the actual state, mirroring into the
// abstract state while ShouldUpdateAbstract holds.
func (c *Commander) ProceedPlay() error {
	if err := c.actual.ProceedPlay(); err != nil {
		return err
	}
	if c.ShouldUpdateAbstract() {
		if err := c.abstract.ProceedPlay(); err != nil {
			return err
		}
	}
	return nil
}

// NewHand starts the next hand in both states (rotating the button,
// re-posting blinds) via Node.NewHand.
func (c *Commander) NewHand() error {
	if err := c.actual.NewHand(); err != nil {
		return err
	}
	return c.abstract.NewHand()
}

// AwardPot settles the actual hand's pot. The abstract state never holds
// chips beyond the abstraction and is not awarded separately.
func (c *Commander) AwardPot() error {
	return c.actual.AwardPot()
}

// State returns a flat snapshot of the actual (real) game state.
func (c *Commander) State() NodeSnapshot {
	return Snapshot(c.actual)
}

// FishbaitSeat returns fishbait's seat index.
func (c *Commander) FishbaitSeat() int {
	return c.fishbait
}

// chipsToProportion converts a chip delta above n's current max bet into
// a pot-proportion of n's pot, the same convention
// internal/sequence uses in reverse (BetTotal).
func chipsToProportion(n *node.Node, raiseChips int) float64 {
	pot := n.Pot()
	if pot <= 0 {
		return 0
	}
	return float64(raiseChips) / float64(pot)
}

// Apply translates an opponent's real action into the abstraction, then
// applies it to the actual state and fast-forwards the abstract state past
// any seats that are out or all-in in reality but not yet in the
// abstraction.
func (c *Commander) Apply(action node.Action, size int) error {
	if c.ShouldUpdateAbstract() {
		if err := c.mirrorOpponentMove(action, size); err != nil {
			return err
		}
	}

	if err := c.actual.Apply(action, size); err != nil {
		return err
	}

	if c.ShouldUpdateAbstract() {
		c.autoFoldCheckCall()
	}
	return nil
}

func (c *Commander) mirrorOpponentMove(action node.Action, size int) error {
	p := c.actual.ActingPlayer()
	callAmount := c.actual.NeededToCall()

	switch action {
	case node.Fold:
		if c.abstract.CanFold() {
			return c.abstract.Apply(node.Fold, 0)
		}
		return c.abstract.Apply(node.CheckCall, 0)

	case node.CheckCall:
		if c.abstract.CanCheckCall() {
			return c.abstract.Apply(node.CheckCall, 0)
		}
		return c.abstract.Apply(node.AllIn, 0)

	case node.AllIn:
		additionalBet := c.actual.StackOf(p)
		if additionalBet <= callAmount {
			if !c.abstract.CanFold() {
				return c.abstract.Apply(node.CheckCall, 0)
			}
			callProportion := chipsToProportion(c.actual, callAmount)
			allInProportion := chipsToProportion(c.actual, additionalBet)
			chosen := PseudoHarmonicMap(0, callProportion, allInProportion, c.rng)
			if chosen == 0 {
				return c.abstract.Apply(node.Fold, 0)
			}
			if c.abstract.CanCheckCall() {
				return c.abstract.Apply(node.CheckCall, 0)
			}
			return c.abstract.Apply(node.AllIn, 0)
		}

		// All-in as a raise.
		if len(c.betSizes) == 0 {
			return c.abstract.Apply(node.AllIn, 0)
		}
		betProp := chipsToProportion(c.actual, additionalBet-callAmount)
		mapped, ok := MapProportion(c.betSizes, betProp, c.rng)
		if !ok {
			return c.abstract.Apply(node.AllIn, 0)
		}
		total := sequence.BetTotal(c.abstract, mapped)
		if c.abstract.CanBet(total) {
			return c.abstract.Apply(node.Bet, total)
		}
		return c.abstract.Apply(node.AllIn, 0)

	case node.Bet:
		raiseChips := size - c.actual.MaxBet()
		betProp := chipsToProportion(c.actual, raiseChips)
		mapped, ok := MapProportion(c.betSizes, betProp, c.rng)
		if !ok {
			return c.abstract.Apply(node.AllIn, 0)
		}
		total := sequence.BetTotal(c.abstract, mapped)
		if c.abstract.CanBet(total) {
			return c.abstract.Apply(node.Bet, total)
		}
		return c.abstract.Apply(node.AllIn, 0)
	}

	return fmt.Errorf("commander: unknown action %d", action)
}

// autoFoldCheckCall fast-forwards the abstract state past players who are
// already folded or all-in for the hand in reality but haven't yet acted
// in the abstraction, bounded to avoid looping on a stuck abstraction.
func (c *Commander) autoFoldCheckCall() {
	for i := 0; i < 2*c.abstract.NumPlayers() && c.ShouldUpdateAbstract(); i++ {
		seat := c.abstract.ActingPlayer()
		if seat == node.ChancePlayer || seat == c.fishbait {
			return
		}
		if c.actual.Folded(seat) {
			if c.abstract.CanFold() {
				_ = c.abstract.Apply(node.Fold, 0)
				continue
			}
		}
		if c.actual.StackOf(seat) == 0 {
			if c.abstract.CanCheckCall() {
				_ = c.abstract.Apply(node.CheckCall, 0)
				continue
			}
			if c.abstract.StackOf(seat) > 0 {
				_ = c.abstract.Apply(node.AllIn, 0)
				continue
			}
		}
		return
	}
}

// GetNormalizedLegalPolicy returns the per-action probability distribution
// fishbait samples from: the scribe policy at the abstract state's current
// (round, cluster, sequence), zeroed for actions illegal in the actual
// game, then renormalized.
func (c *Commander) GetNormalizedLegalPolicy() ([]AvailableAction, error) {
	round := c.abstract.Round()
	seqID, err := c.currentSequenceID()
	if err != nil {
		return nil, err
	}

	clusterID := cluster.Cluster(c.abstract, c.fishbait, c.clusterFn)
	weights := c.pack.Policy[round].At(clusterID, int(seqID))
	if weights == nil {
		weights = make([]float64, c.table.NumActions())
	}

	out := make([]AvailableAction, 0, len(weights))
	total := 0.0
	for i := 0; i < c.table.NumActions(); i++ {
		a := c.table.Action(i)
		legal, size := c.actualLegality(a)
		w := 0.0
		if legal && i < len(weights) {
			w = weights[i]
			if w < 0 {
				w = 0
			}
		}
		total += w
		out = append(out, AvailableAction{Action: a.Action, Size: size, Policy: w, ActionIdx: i})
	}
	if total > 0 {
		for i := range out {
			out[i].Policy /= total
		}
	}
	return out, nil
}

// currentSequenceID locates the abstract state's row in the round's
// sequence table.
func (c *Commander) currentSequenceID() (sequence.ID, error) {
	id, ok := c.table.Lookup(c.abstract)
	if !ok {
		return 0, fmt.Errorf("commander: abstract state not found in sequence table for round %s", c.abstract.Round())
	}
	return id, nil
}

// actualLegality reports whether abstract action a corresponds to a legal
// move in the real game right now, and the concrete chip size it maps to.
func (c *Commander) actualLegality(a sequence.AbstractAction) (bool, int) {
	switch a.Action {
	case node.Fold:
		return c.actual.CanFold(), 0
	case node.CheckCall:
		return c.actual.CanCheckCall(), c.actual.NeededToCall()
	case node.AllIn:
		return c.actual.StackOf(c.actual.ActingPlayer()) > 0, c.actual.StackOf(c.actual.ActingPlayer())
	case node.Bet:
		total := sequence.BetTotal(c.actual, a.Size)
		return c.actual.CanBet(total), total
	}
	return false, 0
}

// GetAvailableActions is GetNormalizedLegalPolicy under the name used by
// UI consumers: the distribution fishbait samples from, and what the
// client-facing action list offers the user.
func (c *Commander) GetAvailableActions() ([]AvailableAction, error) {
	return c.GetNormalizedLegalPolicy()
}

// Query computes fishbait's legal policy, samples one action, applies it
// to both states, and returns the chosen move.
func (c *Commander) Query() (Action, error) {
	available, err := c.GetNormalizedLegalPolicy()
	if err != nil {
		return Action{}, err
	}

	idx := sampleAvailable(available, c.rng)
	chosen := available[idx]

	if err := c.abstract.Apply(chosen.Action, abstractSizeFor(c.abstract, c.table.Action(idx))); err != nil {
		return Action{}, fmt.Errorf("commander: apply to abstract: %w", err)
	}
	if err := c.actual.Apply(chosen.Action, chosen.Size); err != nil {
		return Action{}, fmt.Errorf("commander: apply to actual: %w", err)
	}

	return Action{Action: chosen.Action, Size: chosen.Size, ActionIdx: idx}, nil
}

func abstractSizeFor(n *node.Node, a sequence.AbstractAction) int {
	if a.Action != node.Bet {
		return 0
	}
	return sequence.BetTotal(n, a.Size)
}

func sampleAvailable(available []AvailableAction, rng *rand.Rand) int {
	total := 0.0
	for _, a := range available {
		total += a.Policy
	}
	if total <= 0 {
		return 0
	}
	target := rng.Float64() * total
	cum := 0.0
	for i, a := range available {
		cum += a.Policy
		if target < cum {
			return i
		}
	}
	return len(available) - 1
}
