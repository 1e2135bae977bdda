package node

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/holdem-mccfr/poker"
)

// AwardMode selects one of the three pot-allocation variants.
type AwardMode int

const (
	// SameStackNoRake assumes every player started the hand with an
	// equal stack and rake=0: no side pots are possible, so the pot is
	// simply split among the best hand(s) among non-folded players.
	SameStackNoRake AwardMode = iota
	// SingleRun is the general case: side pots via the smallest-unprocessed-bet
	// algorithm, with rake subtracted proportionally before distribution.
	SingleRun
	// MultiRun runs the SingleRun side-pot algorithm once per supplied
	// board and divides each board's award by the number of boards,
	// accumulating the shares as float64 before one final apportionment.
	MultiRun
)

// CalculateRakeChips implements CalculateRakeChips(pot) =
// min(rake_cap or infinity, round(pot*rake)), applied only when rake>0
// and the hand did not fold out preflop under no_flop_no_drop.
func (n *Node) CalculateRakeChips(pot int, endRound Round) int {
	if n.rake <= 0 {
		return 0
	}
	if n.noFlopNoDrop && endRound == Preflop {
		return 0
	}
	chips := int(math.Round(float64(pot) * n.rake))
	if n.rakeCap > 0 && chips > n.rakeCap {
		chips = n.rakeCap
	}
	return chips
}

// hamiltonApportion distributes potAmount chips according to exact
// fractional shares: floor each share, then hand the residual chips out
// one at a time to the players with the largest fractional remainders.
// The indices into exact correspond 1:1 with the returned slice.
func hamiltonApportion(potAmount int, exact []float64) ([]int, error) {
	floors := make([]int, len(exact))
	type frac struct {
		idx int
		f   float64
	}
	fracs := make([]frac, len(exact))
	total := 0
	for i, v := range exact {
		fl := math.Floor(v)
		floors[i] = int(fl)
		total += floors[i]
		fracs[i] = frac{i, v - fl}
	}
	residue := potAmount - total
	if residue < 0 {
		return nil, fmt.Errorf("node: hamilton apportionment over pot by %d: %w", -residue, ErrInternal)
	}
	sort.SliceStable(fracs, func(i, j int) bool { return fracs[i].f > fracs[j].f })
	for k := 0; k < residue && k < len(fracs); k++ {
		floors[fracs[k].idx]++
	}
	return floors, nil
}

// bestHandSeats returns the non-folded seats holding the best 7-card hand
// given the supplied board, among the candidate seats.
func (n *Node) bestHandSeats(board poker.Hand, candidates []int) []int {
	best := poker.HandRank(0)
	var winners []int
	for _, seat := range candidates {
		full := n.holeCards(seat) | board
		rank := poker.Evaluate7Cards(full)
		switch poker.CompareHands(rank, best) {
		case 1:
			best = rank
			winners = []int{seat}
		case 0:
			winners = append(winners, seat)
		}
	}
	return winners
}

func (n *Node) nonFoldedSeats() []int {
	seats := make([]int, 0, n.numPlayers)
	for i := 0; i < n.numPlayers; i++ {
		if !n.folded[i] {
			seats = append(seats, i)
		}
	}
	return seats
}

// sidePotLayers runs the smallest-unprocessed-bet algorithm against a
// private copy of bets, returning each layer's chip amount and the
// non-folded seats eligible to win it.
func (n *Node) sidePotLayers() []potLayer {
	remaining := append([]int(nil), n.bets...)
	var layers []potLayer
	for {
		m := -1
		for _, v := range remaining {
			if v > 0 && (m == -1 || v < m) {
				m = v
			}
		}
		if m == -1 {
			break
		}
		layer := potLayer{}
		for i, v := range remaining {
			if v > 0 {
				layer.amount += m
				if !n.folded[i] {
					layer.eligible = append(layer.eligible, i)
				}
			}
		}
		if layer.amount > 0 && len(layer.eligible) > 0 {
			layers = append(layers, layer)
		}
		for i, v := range remaining {
			if v > 0 {
				remaining[i] = v - m
			}
		}
	}
	return layers
}

type potLayer struct {
	amount   int
	eligible []int
}

// AwardPot(same_stack_no_rake): divides the pot evenly among the
// rank-maximizing set of non-folded players via Hamilton apportionment.
func (n *Node) AwardPot() error {
	return n.awardSameStackNoRake()
}

func (n *Node) awardSameStackNoRake() error {
	if err := n.beginAward(); err != nil {
		return err
	}
	candidates := n.nonFoldedSeats()
	winners := n.bestHandSeats(n.board(), candidates)
	exact := make([]float64, n.numPlayers)
	if len(winners) > 0 {
		share := float64(n.pot) / float64(len(winners))
		for _, w := range winners {
			exact[w] = share
		}
	}
	dist, err := hamiltonApportion(n.pot, exact)
	if err != nil {
		return err
	}
	n.settleAward(dist, 0)
	return nil
}

// AwardPotSingleRun implements the general side-pot case: trivial
// victory short-circuit, then the smallest-unprocessed-bet layering
// algorithm, each layer apportioned by Hamilton. Rake is subtracted from
// the total pot before distribution and scaled proportionally across
// every layer.
func (n *Node) AwardPotSingleRun() error {
	if err := n.beginAward(); err != nil {
		return err
	}
	if n.playersLeft == 1 {
		winner := n.nonFoldedSeats()[0]
		rake := n.CalculateRakeChips(n.pot, n.round)
		exact := make([]float64, n.numPlayers)
		exact[winner] = float64(n.pot - rake)
		dist, err := hamiltonApportion(n.pot-rake, exact)
		if err != nil {
			return err
		}
		n.settleAward(dist, rake)
		return nil
	}

	rake := n.CalculateRakeChips(n.pot, n.round)
	scale := 1.0
	if n.pot > 0 {
		scale = float64(n.pot-rake) / float64(n.pot)
	}

	exact := make([]float64, n.numPlayers)
	board := n.board()
	for _, layer := range n.sidePotLayers() {
		winners := n.bestHandSeats(board, layer.eligible)
		if len(winners) == 0 {
			continue
		}
		share := float64(layer.amount) * scale / float64(len(winners))
		for _, w := range winners {
			exact[w] += share
		}
	}
	dist, err := hamiltonApportion(n.pot-rake, exact)
	if err != nil {
		return err
	}
	n.settleAward(dist, rake)
	return nil
}

// AwardPotMultiRun runs the side-pot algorithm once per supplied board;
// each board's award is divided by the number of boards, and every
// player's exact fractional award is accumulated across boards before a
// single final Hamilton apportionment.
func (n *Node) AwardPotMultiRun(boards []poker.Hand) error {
	if err := n.beginAward(); err != nil {
		return err
	}
	if len(boards) == 0 {
		return fmt.Errorf("node: AwardPotMultiRun requires at least one board: %w", ErrInvalidMove)
	}

	rake := n.CalculateRakeChips(n.pot, n.round)
	scale := 1.0
	if n.pot > 0 {
		scale = float64(n.pot-rake) / float64(n.pot)
	}

	exact := make([]float64, n.numPlayers)
	layers := n.sidePotLayers()
	k := float64(len(boards))
	for _, board := range boards {
		for _, layer := range layers {
			winners := n.bestHandSeats(board, layer.eligible)
			if len(winners) == 0 {
				continue
			}
			share := float64(layer.amount) * scale / k / float64(len(winners))
			for _, w := range winners {
				exact[w] += share
			}
		}
	}
	dist, err := hamiltonApportion(n.pot-rake, exact)
	if err != nil {
		return err
	}
	n.settleAward(dist, rake)
	return nil
}

func (n *Node) beginAward() error {
	if n.inProgress {
		return fmt.Errorf("node: AwardPot while in progress: %w", ErrInvalidPhase)
	}
	return nil
}

// settleAward credits each player's distribution to their stack and
// resets the pot and every bet to zero.
func (n *Node) settleAward(dist []int, rake int) {
	for i, amt := range dist {
		n.stack[i] += amt
	}
	n.pot = 0
	for i := range n.bets {
		n.bets[i] = 0
	}
	n.lastRake = rake
}

// LastRake returns the rake taken by the most recent AwardPot call.
func (n *Node) LastRake() int { return n.lastRake }

// NewHand resets the Node for the next hand: stacks carry over, the
// button advances, and blinds/antes/straddles are posted fresh. Legal
// only once pot=0 (i.e. after AwardPot).
func (n *Node) NewHand() error {
	if n.pot != 0 {
		return fmt.Errorf("node: NewHand with non-zero pot: %w", ErrInvalidPhase)
	}
	n.button = (n.button + 1) % n.numPlayers
	n.inProgress = true
	n.round = Preflop
	n.cycled = 0
	n.playersAllIn = 0
	for i := range n.folded {
		n.folded[i] = false
	}
	n.playersLeft = n.numPlayers
	n.winner = -1

	n.deck = poker.NewDeck(n.rng)
	n.deckState = Auto

	n.postBlindsAndAntes()
	n.actingPlayer = ChancePlayer
	n.potGood = n.numPlayers
	n.minRaise = n.bigBlind

	if n.straddles > 0 {
		if err := n.PostStraddles(n.straddles); err != nil {
			return err
		}
	}
	return n.ProceedPlay()
}

// Clone returns an independent deep copy of the Node, used by traversal
// code that needs to branch without mutating the parent state.
func (n *Node) Clone() *Node {
	c := *n
	c.folded = append([]bool(nil), n.folded...)
	c.bets = append([]int(nil), n.bets...)
	c.stack = append([]int(nil), n.stack...)
	c.deck = n.deck.Clone()
	return &c
}
