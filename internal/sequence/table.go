// Package sequence builds the abstract betting tree over an action
// abstraction, starting from a fixed Node. Strategy and Average tables are
// indexed by (round, cluster, LegalOffset(r,s)+legal_i), where (r,s) comes
// from this package.
package sequence

import (
	"errors"
	"fmt"
	"math"

	"github.com/lox/holdem-mccfr/internal/node"
)

// ID identifies either a concrete sequence within a round, or one of the
// two sentinels below.
type ID int

const (
	// IllegalID marks an action that is not legal in a given abstract state.
	IllegalID ID = -1
	// LeafID marks an action that ends the round (or the hand).
	LeafID ID = -2
)

// AbstractAction is one entry in the action abstraction: an Action tag plus
// the filters that restrict when it appears in the tree. Size is a
// pot-fraction and is only consulted for node.Bet.
type AbstractAction struct {
	Action node.Action
	Size   float64

	// MaxRaiseNum caps how many raises (Bet or a raising AllIn) may have
	// already occurred this round for a Bet action to remain legal; Fold,
	// CheckCall and AllIn are not filtered by it. Zero means unlimited.
	MaxRaiseNum int
	// MinRound/MaxRound bound the rounds this action is offered in.
	MinRound node.Round
	MaxRound node.Round
	// MaxPlayers caps players still live for the action to be legal. Zero
	// means unlimited.
	MaxPlayers int
	// MinPot is the minimum chip pot required for the action to be legal.
	MinPot int
}

// Validate checks the action's own filter bounds (not legality against any
// particular Node).
func (a AbstractAction) Validate() error {
	if a.MaxRound < a.MinRound {
		return fmt.Errorf("action %s: max_round %d below min_round %d", a.Action, a.MaxRound, a.MinRound)
	}
	if a.Action == node.Bet && a.Size <= 0 {
		return errors.New("bet action requires a positive pot-fraction size")
	}
	return nil
}

// Table is the immutable, built abstract betting tree: one 2-D array of
// sequence transitions per round.
type Table struct {
	actions []AbstractAction
	rounds  [node.NumRounds]roundTable
	keys    [node.NumRounds]map[string]ID
}

type roundTable struct {
	rows         [][]ID
	legalCounts  []int
	legalOffsets []int
}

// NumActions returns the width of every row (the size of the action
// abstraction).
func (t *Table) NumActions() int { return len(t.actions) }

// Action returns the abstract action at index i.
func (t *Table) Action(i int) AbstractAction { return t.actions[i] }

// NumStates returns the number of distinct abstract states discovered for
// round r.
func (t *Table) NumStates(r node.Round) int { return len(t.rounds[r].rows) }

// Next returns the transition for action index i from state s in round r:
// IllegalID, LeafID, or the SequenceId of the next state (still in round r).
func (t *Table) Next(r node.Round, s int, actionIdx int) ID {
	return t.rounds[r].rows[s][actionIdx]
}

// NumLegalActions returns the count of non-illegal entries in row (r,s).
func (t *Table) NumLegalActions(r node.Round, s int) int {
	return t.rounds[r].legalCounts[s]
}

// LegalOffset returns the sum of legal-action counts over every row before
// s in round r — the base index strategy/average tables add a legal action
// position to.
func (t *Table) LegalOffset(r node.Round, s int) int {
	return t.rounds[r].legalOffsets[s]
}

// TotalLegalActions returns Σ_s NumLegalActions(r,s), the width strategy and
// average tables allocate per cluster for round r.
func (t *Table) TotalLegalActions(r node.Round) int {
	rt := &t.rounds[r]
	if len(rt.legalOffsets) == 0 {
		return 0
	}
	last := len(rt.legalOffsets) - 1
	return rt.legalOffsets[last] + rt.legalCounts[last]
}

// Lookup finds the SequenceId for n's current round and betting state,
// using the same canonicalization Build used to merge equivalent states.
// It is how a live Commander locates its abstract Node's row in the table
// without re-running the DFS.
func (t *Table) Lookup(n *node.Node) (ID, bool) {
	id, ok := t.keys[n.Round()][stateKey(n)]
	return id, ok
}

// Build constructs a Table by DFS from start over the given action
// abstraction. start is cloned; the caller's Node is left untouched.
func Build(start *node.Node, actions []AbstractAction) (*Table, error) {
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}

	t := &Table{actions: actions}
	for r := range t.keys {
		t.keys[r] = make(map[string]ID)
	}
	visited := make(map[string]ID)

	var walk func(n *node.Node, raisesThisRound int) (ID, error)
	walk = func(n *node.Node, raisesThisRound int) (ID, error) {
		for n.InProgress() && n.ActingPlayer() == node.ChancePlayer {
			if err := n.ProceedPlay(); err != nil {
				return LeafID, err
			}
			raisesThisRound = 0
		}
		if !n.InProgress() {
			return LeafID, nil
		}

		round := n.Round()
		key := round.String() + "|" + stateKey(n)
		if id, ok := visited[key]; ok {
			return id, nil
		}

		rt := &t.rounds[round]
		id := ID(len(rt.rows))
		row := make([]ID, len(actions))
		visited[key] = id
		t.keys[round][stateKey(n)] = id
		rt.rows = append(rt.rows, row)
		rt.legalCounts = append(rt.legalCounts, 0)

		legal := 0
		for i, a := range actions {
			child, raises, ok := applyAbstract(n, a, raisesThisRound)
			if !ok {
				row[i] = IllegalID
				continue
			}
			legal++
			if !child.InProgress() {
				row[i] = LeafID
				continue
			}
			if child.Round() != round {
				// Crossing a round boundary is always a leaf for this
				// round's table; the next round gets its own table, built
				// here for its side effect on t.rounds[child.Round()].
				// Card identity never affects legality or stateKey, so a
				// single canonical deal is enough to cover every draw.
				row[i] = LeafID
				if _, err := walk(child, 0); err != nil {
					return LeafID, err
				}
				continue
			}
			childID, err := walk(child, raises)
			if err != nil {
				return LeafID, err
			}
			row[i] = childID
		}
		rt.legalCounts[id] = legal
		return id, nil
	}

	if _, err := walk(start.Clone(), 0); err != nil {
		return nil, err
	}
	t.finalizeOffsets()
	return t, nil
}

func (t *Table) finalizeOffsets() {
	for r := node.Round(0); int(r) < node.NumRounds; r++ {
		rt := &t.rounds[r]
		rt.legalOffsets = make([]int, len(rt.rows))
		offset := 0
		for s, count := range rt.legalCounts {
			rt.legalOffsets[s] = offset
			offset += count
		}
	}
}

// applyAbstract checks a's filters against n and, if legal, applies it to a
// clone. The second return is the raise count to carry into the child
// (incremented when a is a raise).
func applyAbstract(n *node.Node, a AbstractAction, raisesThisRound int) (*node.Node, int, bool) {
	round := n.Round()
	if round < a.MinRound || round > a.MaxRound {
		return nil, 0, false
	}
	if a.MaxPlayers > 0 && n.PlayersLeft() > a.MaxPlayers {
		return nil, 0, false
	}
	if n.Pot() < a.MinPot {
		return nil, 0, false
	}
	if a.MaxRaiseNum > 0 && raisesThisRound >= a.MaxRaiseNum {
		if a.Action == node.Bet {
			return nil, 0, false
		}
	}

	p := n.ActingPlayer()
	child := n.Clone()

	switch a.Action {
	case node.Fold:
		if !n.CanFold() {
			return nil, 0, false
		}
		if err := child.Apply(node.Fold, 0); err != nil {
			return nil, 0, false
		}
		return child, raisesThisRound, true

	case node.CheckCall:
		if !n.CanCheckCall() {
			return nil, 0, false
		}
		if err := child.Apply(node.CheckCall, 0); err != nil {
			return nil, 0, false
		}
		return child, raisesThisRound, true

	case node.AllIn:
		if n.StackOf(p) <= 0 {
			return nil, 0, false
		}
		if err := child.Apply(node.AllIn, 0); err != nil {
			return nil, 0, false
		}
		if child.MaxBet() > n.MaxBet() {
			return child, raisesThisRound + 1, true
		}
		return child, raisesThisRound, true

	case node.Bet:
		total := BetTotal(n, a.Size)
		if !n.CanBet(total) {
			return nil, 0, false
		}
		if err := child.Apply(node.Bet, total); err != nil {
			return nil, 0, false
		}
		return child, raisesThisRound + 1, true
	}

	return nil, 0, false
}

// BetTotal converts an abstract pot-fraction size into a concrete total bet,
// the same pot-relative-to-call sizing the solver package's raise ladder
// uses: raise = round(pot * fraction), floored at min_raise.
func BetTotal(n *node.Node, fraction float64) int {
	minRaise := n.MinRaise()
	raise := int(math.Round(float64(n.Pot()) * fraction))
	if raise < minRaise {
		raise = minRaise
	}
	return n.MaxBet() + raise
}

// stateKey canonicalizes the portion of Node state that determines legal
// abstract transitions within a round: bets, pot_good/no_raise, min_raise,
// max_bet, which seats are still eligible, and whose turn it is. Two Nodes
// with the same key behave identically for every AbstractAction, so the DFS
// can merge them into one SequenceId.
func stateKey(n *node.Node) string {
	bets := make([]int, n.NumPlayers())
	eligible := make([]bool, n.NumPlayers())
	for i := range bets {
		bets[i] = n.BetOf(i)
		eligible[i] = !n.Folded(i) && n.StackOf(i) > 0
	}
	return fmt.Sprintf("%d|%d|%d|%d|%d|%v|%v",
		n.ActingPlayer(), n.MaxBet(), n.MinRaise(), n.PotGood(), n.NoRaise(), bets, eligible)
}
