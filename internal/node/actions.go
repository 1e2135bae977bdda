package node

import "fmt"

// ActingPlayer returns the seat to act, or ChancePlayer between streets.
func (n *Node) ActingPlayer() int { return n.actingPlayer }

// InProgress reports whether the hand is still live.
func (n *Node) InProgress() bool { return n.inProgress }

// Round returns the current betting street.
func (n *Node) Round() Round { return n.round }

// NeededToCall returns how many chips the acting player must add to match
// the current max bet.
func (n *Node) NeededToCall() int {
	if n.actingPlayer == ChancePlayer {
		return 0
	}
	return n.maxBet - n.bets[n.actingPlayer]
}

// CanFold reports whether the acting player may fold.
func (n *Node) CanFold() bool {
	return n.inProgress && n.actingPlayer != ChancePlayer && n.NeededToCall() > 0
}

// CanCheckCall reports whether the acting player may check or call. A
// call that would use the player's entire remaining stack is not legal
// here; it must be expressed as Apply(AllIn, _).
func (n *Node) CanCheckCall() bool {
	if !n.inProgress || n.actingPlayer == ChancePlayer {
		return false
	}
	return n.NeededToCall() < n.stack[n.actingPlayer]
}

// CanBet reports whether size (the acting player's new total bet) is a
// legal non-all-in bet or raise.
func (n *Node) CanBet(size int) bool {
	if !n.inProgress || n.actingPlayer == ChancePlayer || n.potGood <= 0 {
		return false
	}
	p := n.actingPlayer
	if size <= n.maxBet {
		return false
	}
	if size-n.maxBet < n.minRaise {
		return false
	}
	delta := size - n.bets[p]
	return delta < n.stack[p]
}

// MaxBet, MinRaise, Pot and StackOf expose the chip state read by
// downstream abstraction code.
func (n *Node) MaxBet() int      { return n.maxBet }
func (n *Node) MinRaise() int    { return n.minRaise }
func (n *Node) Pot() int         { return n.pot }
func (n *Node) StackOf(p int) int { return n.stack[p] }
func (n *Node) BetOf(p int) int   { return n.bets[p] }
func (n *Node) Folded(p int) bool { return n.folded[p] }
func (n *Node) PlayersLeft() int  { return n.playersLeft }
func (n *Node) PlayersAllIn() int { return n.playersAllIn }
func (n *Node) NumPlayers() int   { return n.numPlayers }
func (n *Node) Button() int       { return n.button }
func (n *Node) PotGood() int      { return n.potGood }
func (n *Node) NoRaise() int      { return n.noRaise }
func (n *Node) SmallBlind() int   { return n.smallBlind }
func (n *Node) BigBlind() int     { return n.bigBlind }
func (n *Node) Ante() int         { return n.ante }
func (n *Node) BigBlindAnte() bool    { return n.bigBlindAnte }
func (n *Node) BlindBeforeAnte() bool { return n.blindBeforeAnte }
func (n *Node) NoFlopNoDrop() bool    { return n.noFlopNoDrop }
func (n *Node) Rake() float64     { return n.rake }
func (n *Node) RakeCap() int      { return n.rakeCap }

// Winner returns the sole remaining seat when the hand ended by everyone
// else folding, or -1 if the hand went past that short-circuit.
func (n *Node) Winner() int { return n.winner }

// Apply executes a player's decision. size is only meaningful for Bet
// (the player's new total bet for the street); it is ignored otherwise.
func (n *Node) Apply(action Action, size int) error {
	if !n.inProgress || n.actingPlayer == ChancePlayer {
		return fmt.Errorf("node: Apply at chance node: %w", ErrInvalidPhase)
	}
	p := n.actingPlayer

	switch action {
	case Fold:
		if !n.CanFold() {
			return fmt.Errorf("node: seat %d cannot fold: %w", p, ErrInvalidMove)
		}
		n.folded[p] = true
		n.playersLeft--

	case CheckCall:
		if !n.CanCheckCall() {
			return fmt.Errorf("node: seat %d cannot check/call: %w", p, ErrInvalidMove)
		}
		toCall := n.maxBet - n.bets[p]
		if toCall < 0 {
			toCall = 0
		}
		n.bets[p] += toCall
		n.stack[p] -= toCall
		n.pot += toCall

	case Bet:
		if !n.CanBet(size) {
			return fmt.Errorf("node: seat %d cannot bet %d: %w", p, size, ErrInvalidMove)
		}
		delta := size - n.bets[p]
		raiseSize := size - n.maxBet
		n.stack[p] -= delta
		n.bets[p] = size
		n.pot += delta
		n.maxBet = size
		n.minRaise = raiseSize
		n.potGood = n.numPlayers
		n.noRaise = 0

	case AllIn:
		total := n.bets[p] + n.stack[p]
		delta := n.stack[p]
		n.pot += delta
		n.bets[p] = total
		n.stack[p] = 0
		n.playersAllIn++

		switch {
		case total <= n.maxBet:
			// pure call, no max_bet/min_raise change.
		case total < n.maxBet+n.minRaise:
			n.maxBet = total
			n.noRaise = n.numPlayers - n.potGood
		default:
			n.minRaise = total - n.maxBet
			n.maxBet = total
			n.potGood = n.numPlayers
			n.noRaise = 0
		}

	default:
		return fmt.Errorf("node: unknown action %d: %w", action, ErrInvalidMove)
	}

	n.afterApply()
	return nil
}

// afterApply implements the post-Apply cycling rules: players_left=1 ends
// the hand immediately; otherwise pot_good (or no_raise) is decremented,
// the acting player advances, and pot_good+no_raise=0 advances the round.
func (n *Node) afterApply() {
	if n.playersLeft <= 1 {
		n.inProgress = false
		n.actingPlayer = ChancePlayer
		for i := 0; i < n.numPlayers; i++ {
			if !n.folded[i] {
				n.winner = i
				break
			}
		}
		return
	}

	if n.potGood > 0 {
		n.potGood--
	} else if n.noRaise > 0 {
		n.noRaise--
	}

	n.advanceActingPlayer()

	if n.potGood+n.noRaise <= 0 {
		n.advanceRound()
	}
}

// eligibleToAct reports whether seat i still has a decision to make this
// round: not folded, not all-in, and not the lone live player who has
// already matched max_bet while everyone else is all-in.
func (n *Node) eligibleToAct(i int) bool {
	if n.folded[i] || n.stack[i] == 0 {
		return false
	}
	liveNotAllIn := n.playersLeft - n.playersAllIn
	if liveNotAllIn <= 1 && n.bets[i] == n.maxBet {
		return false
	}
	return true
}

func (n *Node) advanceActingPlayer() {
	for i := 1; i <= n.numPlayers; i++ {
		cand := (n.actingPlayer + i) % n.numPlayers
		if n.eligibleToAct(cand) {
			n.actingPlayer = cand
			return
		}
	}
	n.actingPlayer = ChancePlayer
}

// advanceRound moves to the next street, or ends the hand past the
// river. Betting-state resets (pot_good, no_raise, min_raise, the first
// acting player) happen in ProceedPlay once the chance node resolves.
func (n *Node) advanceRound() {
	if n.round == River {
		n.inProgress = false
		n.actingPlayer = ChancePlayer
		return
	}
	n.round++
	n.actingPlayer = ChancePlayer
	if n.deckState == AutoDealt {
		n.deckState = Auto
	}
}
