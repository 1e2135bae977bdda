// Package node implements the authoritative no-limit hold'em state
// machine: legal-move checking, blind/ante/straddle posting, side-pot and
// rake accounting, and multi-run board awards. Everything above this
// package treats a Node as the single source of truth for the rules of a
// hand; card identity and hand strength are delegated to the poker
// package.
package node

import (
	"fmt"
	"math/rand"

	"github.com/lox/holdem-mccfr/poker"
)

// Round is one of the four betting streets.
type Round int

const (
	Preflop Round = iota
	Flop
	Turn
	River
)

// NumRounds is the number of betting streets.
const NumRounds = 4

func (r Round) String() string {
	switch r {
	case Preflop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	default:
		return "showdown"
	}
}

// Action is a player decision. Bet's size is carried separately as the
// player's new total bet for the street, not the chip delta.
type Action int

const (
	Fold Action = iota
	CheckCall
	Bet
	AllIn
)

func (a Action) String() string {
	switch a {
	case Fold:
		return "fold"
	case CheckCall:
		return "check/call"
	case Bet:
		return "bet"
	case AllIn:
		return "all-in"
	default:
		return "unknown"
	}
}

// DeckState tracks whether the Node's cards are being supplied by the
// caller (Manual), are due to be auto-dealt (Auto), or have already been
// auto-dealt for the current round (AutoDealt).
type DeckState int

const (
	Manual DeckState = iota
	Auto
	AutoDealt
)

// ChancePlayer is the acting_player sentinel for a chance node (between
// hands, between streets, or mid-deal).
const ChancePlayer = -1

// Config are the parameters of a single hand, as posted by the
// constructor. Stacks, Button, SmallBlind and BigBlind are required;
// everything else defaults to "off".
type Config struct {
	Stacks          []int
	Button          int
	SmallBlind      int
	BigBlind        int
	Ante            int
	BigBlindAnte    bool
	BlindBeforeAnte bool
	Straddles       int
	Rake            float64 // fraction of the pot, e.g. 0.05
	RakeCap         int     // 0 = uncapped
	NoFlopNoDrop    bool
	Rng             *rand.Rand
	Deck            *poker.Deck // optional, for deterministic tests
}

// Node is the authoritative hold'em state machine for one hand.
type Node struct {
	numPlayers      int
	smallBlind      int
	bigBlind        int
	ante            int
	bigBlindAnte    bool
	blindBeforeAnte bool
	straddles       int
	rake            float64
	rakeCap         int
	noFlopNoDrop    bool

	button       int
	inProgress   bool
	round        Round
	cycled       int
	actingPlayer int
	potGood      int
	noRaise      int
	folded       []bool
	playersLeft  int
	playersAllIn int

	pot      int
	bets     []int
	stack    []int
	minRaise int
	maxBet   int

	deck      *poker.Deck
	deckState DeckState
	rng       *rand.Rand

	winner            int // set when playersLeft drops to 1 mid-hand
	lastRake          int
	lastEffectiveAnte int
}

// NewNode constructs a Node and posts blinds, antes and any configured
// straddles for the first hand, then resolves the preflop chance node
// itself, so the returned Node's acting player is the first player to act.
func NewNode(cfg Config) (*Node, error) {
	if len(cfg.Stacks) < 2 {
		return nil, fmt.Errorf("node: need at least 2 players: %w", ErrInvalidMove)
	}
	if cfg.Button < 0 || cfg.Button >= len(cfg.Stacks) {
		return nil, fmt.Errorf("node: button %d out of range: %w", cfg.Button, ErrInvalidMove)
	}
	if cfg.SmallBlind < 0 || cfg.BigBlind <= 0 {
		return nil, fmt.Errorf("node: invalid blinds: %w", ErrInvalidMove)
	}

	n := &Node{
		numPlayers:      len(cfg.Stacks),
		smallBlind:      cfg.SmallBlind,
		bigBlind:        cfg.BigBlind,
		ante:            cfg.Ante,
		bigBlindAnte:    cfg.BigBlindAnte,
		blindBeforeAnte: cfg.BlindBeforeAnte,
		straddles:       cfg.Straddles,
		rake:            cfg.Rake,
		rakeCap:         cfg.RakeCap,
		noFlopNoDrop:    cfg.NoFlopNoDrop,

		button:      cfg.Button,
		inProgress:  true,
		round:       Preflop,
		folded:      make([]bool, len(cfg.Stacks)),
		playersLeft: len(cfg.Stacks),

		bets:  make([]int, len(cfg.Stacks)),
		stack: append([]int(nil), cfg.Stacks...),

		rng:    cfg.Rng,
		winner: -1,
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewSource(1))
	}
	if cfg.Deck != nil {
		n.deck = cfg.Deck
		n.deckState = Manual
	} else {
		n.deck = poker.NewDeck(n.rng)
		n.deckState = Auto
	}

	n.postBlindsAndAntes()
	n.actingPlayer = ChancePlayer
	n.potGood = n.numPlayers
	n.minRaise = n.bigBlind

	if n.straddles > 0 {
		if err := n.PostStraddles(n.straddles); err != nil {
			return nil, err
		}
	}
	if err := n.ProceedPlay(); err != nil {
		return nil, err
	}
	return n, nil
}

// sbPos and bbPos return the small/big blind seats for the current button,
// handling the heads-up special case where the button posts the SB.
func (n *Node) sbPos() int {
	if n.numPlayers == 2 {
		return n.button
	}
	return (n.button + 1) % n.numPlayers
}

func (n *Node) bbPos() int {
	if n.numPlayers == 2 {
		return (n.button + 1) % n.numPlayers
	}
	return (n.button + 2) % n.numPlayers
}

// postBlindsAndAntes implements the §4.1 blind/ante posting algorithm,
// including the big-blind-ante undivisible-remainder rule.
func (n *Node) postBlindsAndAntes() {
	anteFirst := n.ante > 0 && !n.blindBeforeAnte
	if anteFirst {
		n.postAntes()
		n.postBlind(n.sbPos(), n.smallBlind)
		n.postBlind(n.bbPos(), n.bigBlind)
	} else {
		n.postBlind(n.sbPos(), n.smallBlind)
		n.postBlind(n.bbPos(), n.bigBlind)
		if n.ante > 0 {
			n.postAntes()
		}
	}

	n.maxBet = n.bigBlind + n.lastEffectiveAnte
}

// postBlind posts min(size, stack[p]); an all-in blind never touches
// max_bet or min_raise, those are finalized after all posting completes.
func (n *Node) postBlind(p, size int) {
	amt := min(size, n.stack[p])
	n.stack[p] -= amt
	n.bets[p] += amt
	n.pot += amt
}

// postAntes handles both the flat per-player ante and the big-blind-ante
// variant where the BB alone funds ante*numPlayers chips (subject to
// their own stack) and every player, including the BB, is credited an
// equal effective_ante; any undivisible remainder of the BB's payment is
// credited to the BB's own bet rather than forfeited.
func (n *Node) postAntes() {
	if n.bigBlindAnte {
		bb := n.bbPos()
		due := n.ante * n.numPlayers
		available := min(due, n.stack[bb])
		effectiveAnte := available / n.numPlayers
		remainder := available - effectiveAnte*n.numPlayers

		n.stack[bb] -= available
		for i := 0; i < n.numPlayers; i++ {
			n.bets[i] += effectiveAnte
		}
		n.bets[bb] += remainder
		n.pot += available
		n.lastEffectiveAnte = effectiveAnte
		return
	}
	for i := 0; i < n.numPlayers; i++ {
		amt := min(n.ante, n.stack[i])
		n.stack[i] -= amt
		n.bets[i] += amt
		n.pot += amt
	}
	n.lastEffectiveAnte = n.ante
}

// PostStraddles attempts to straddle n players in order starting UTG; the
// first straddle is 2x the big blind, and each subsequent straddle is 2x
// the previous one. A player who cannot afford the next straddle stops
// the chain. Legal only at the preflop chance node.
func (n *Node) PostStraddles(count int) error {
	if n.round != Preflop || n.actingPlayer != ChancePlayer {
		return fmt.Errorf("node: PostStraddles outside preflop chance node: %w", ErrInvalidPhase)
	}
	size := n.bigBlind * 2
	start := (n.bbPos() + 1) % n.numPlayers
	posted := 0
	for i := 0; i < count; i++ {
		seat := (start + i) % n.numPlayers
		if n.stack[seat] < size {
			break
		}
		n.postBlind(seat, size)
		n.maxBet = size
		n.minRaise = size
		posted++
		size *= 2
	}
	n.cycled = posted
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
