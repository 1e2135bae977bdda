package node

import (
	"fmt"

	"github.com/lox/holdem-mccfr/poker"
)

// boardCardsForRound is the cumulative count of board cards exposed by
// the start of each round.
func boardCardsForRound(r Round) int {
	switch r {
	case Preflop:
		return 0
	case Flop:
		return 3
	case Turn:
		return 4
	default:
		return 5
	}
}

// cardsNeeded returns the deck position that must be covered by the
// randomized prefix for the current round: hole cards for every player,
// plus the board cards revealed through this round.
func (n *Node) cardsNeeded() int {
	return n.numPlayers*2 + boardCardsForRound(n.round)
}

// Deal performs the partial Fisher-Yates shuffle and card assignment for
// the current chance node, in Auto deck mode. It is a no-op, returning
// an error, outside a chance node or outside Auto mode.
func (n *Node) Deal() error {
	if n.actingPlayer != ChancePlayer {
		return fmt.Errorf("node: Deal outside chance node: %w", ErrInvalidPhase)
	}
	if n.deckState != Auto {
		return fmt.Errorf("node: Deal requires Auto deck state: %w", ErrInvalidPhase)
	}

	n.deck.PartialShuffle(n.cardsNeeded())

	// Cards are read positionally (hole cards at [0, 2*numPlayers), board
	// cards following) rather than via the sequential cursor, so manual
	// SetHand/SetBoard calls made earlier in the hand are never clobbered
	// by a later partial shuffle.
	n.deck.SetCursor(n.cardsNeeded())
	n.deckState = AutoDealt
	return nil
}

// holeCards returns player p's two hole cards from their fixed deck
// positions.
func (n *Node) holeCards(p int) poker.Hand {
	return poker.NewHand(n.deck.CardAt(p*2), n.deck.CardAt(p*2+1))
}

// board returns the board cards revealed through the current round.
func (n *Node) board() poker.Hand {
	var h poker.Hand
	count := boardCardsForRound(n.round)
	base := n.numPlayers * 2
	for i := 0; i < count; i++ {
		h.AddCard(n.deck.CardAt(base + i))
	}
	return h
}

// PlayerCards returns player p's hole cards followed by the board cards
// revealed through the current round.
func (n *Node) PlayerCards(p int) poker.Hand {
	h := n.holeCards(p)
	h |= n.board()
	return h
}

// HoleCards returns player p's two hole cards alone.
func (n *Node) HoleCards(p int) poker.Hand {
	return n.holeCards(p)
}

// Board returns the board cards revealed through the current round.
func (n *Node) Board() poker.Hand {
	return n.board()
}

// SetHand forces Manual deck state and assigns player p's two hole
// cards directly.
func (n *Node) SetHand(p int, c1, c2 poker.Card) error {
	if p < 0 || p >= n.numPlayers {
		return fmt.Errorf("node: seat %d out of range: %w", p, ErrInvalidMove)
	}
	n.deck.SetCard(p*2, c1)
	n.deck.SetCard(p*2+1, c2)
	n.deckState = Manual
	return nil
}

// SetHands assigns every player's hole cards in seat order.
func (n *Node) SetHands(hands [][2]poker.Card) error {
	if len(hands) != n.numPlayers {
		return fmt.Errorf("node: expected %d hands, got %d: %w", n.numPlayers, len(hands), ErrInvalidMove)
	}
	for p, h := range hands {
		if err := n.SetHand(p, h[0], h[1]); err != nil {
			return err
		}
	}
	return nil
}

// SetBoard forces Manual deck state and assigns the board cards (3, 4 or
// 5 of them, matching the current or a later round).
func (n *Node) SetBoard(cards ...poker.Card) error {
	if len(cards) < 3 || len(cards) > 5 {
		return fmt.Errorf("node: board must have 3-5 cards, got %d: %w", len(cards), ErrInvalidMove)
	}
	base := n.numPlayers * 2
	for i, c := range cards {
		n.deck.SetCard(base+i, c)
	}
	n.deckState = Manual
	return nil
}

// ResetDeck restores an unshuffled deck. Legal only at a preflop chance
// node or between hands (pot=0).
func (n *Node) ResetDeck() error {
	if !(n.round == Preflop && n.actingPlayer == ChancePlayer) && n.pot != 0 {
		return fmt.Errorf("node: ResetDeck outside preflop chance node or between hands: %w", ErrInvalidPhase)
	}
	n.deck = poker.NewDeck(n.rng)
	n.deck.SetCursor(0)
	n.deckState = Auto
	return nil
}

// ProceedPlay resolves the current chance node: it deals cards if the
// deck is in Auto mode (a Manual deck is left to the caller's SetHand and
// SetBoard calls), resets the per-round betting counters, and hands action
// to the first player to act.
func (n *Node) ProceedPlay() error {
	if n.actingPlayer != ChancePlayer {
		return fmt.Errorf("node: ProceedPlay outside chance node: %w", ErrInvalidPhase)
	}
	if !n.inProgress {
		return fmt.Errorf("node: ProceedPlay after hand end: %w", ErrInvalidPhase)
	}

	if n.deckState == Auto {
		if err := n.Deal(); err != nil {
			return err
		}
	}

	n.potGood = n.livePlayers()
	n.noRaise = 0
	n.minRaise = n.bigBlind

	if n.round == Preflop {
		start := (n.bbPos() + 1 + n.cycled) % n.numPlayers
		n.actingPlayer = n.firstEligibleFrom(start)
	} else {
		start := n.sbPos()
		n.actingPlayer = n.firstEligibleFrom(start)
	}

	if n.actingPlayer == ChancePlayer {
		// No one has a decision to make (everyone live is all-in):
		// immediately resolve to showdown by stepping the round machine
		// forward without consuming the potGood/noRaise countdown.
		if n.round == River {
			n.inProgress = false
			return nil
		}
		n.round++
		if n.deckState == AutoDealt {
			n.deckState = Auto
		}
		return n.ProceedPlay()
	}
	return nil
}

func (n *Node) livePlayers() int {
	count := 0
	for i := 0; i < n.numPlayers; i++ {
		if !n.folded[i] {
			count++
		}
	}
	return count
}

func (n *Node) firstEligibleFrom(start int) int {
	for i := 0; i < n.numPlayers; i++ {
		cand := (start + i) % n.numPlayers
		if n.eligibleToAct(cand) {
			return cand
		}
	}
	return ChancePlayer
}
