package commander

import "github.com/lox/holdem-mccfr/internal/node"

// NodeSnapshot is a flat, UI-friendly record of a Node's state.
type NodeSnapshot struct {
	NPlayers        int     `json:"n_players"`
	BigBlind        int     `json:"bb"`
	SmallBlind      int     `json:"sb"`
	Ante            int     `json:"ante"`
	BigBlindAnte    bool    `json:"bb_ante"`
	BlindBeforeAnte bool    `json:"blind_before_ante"`
	Rake            float64 `json:"rake"`
	RakeCap         int     `json:"rake_cap"`
	NoFlopNoDrop    bool    `json:"no_flop_no_drop"`
	Button          int     `json:"button"`
	InProgress      bool    `json:"in_progress"`
	RoundID         int     `json:"round_id"`
	ActingPlayer    int     `json:"acting_player"`
	Folded          []bool  `json:"folded"`
	PlayersLeft     int     `json:"players_left"`
	PlayersAllIn    int     `json:"players_all_in"`
	Pot             int     `json:"pot"`
	Bets            []int   `json:"bets"`
	Stack           []int   `json:"stack"`
	MinRaise        int     `json:"min_raise"`
	NeededToCall    int     `json:"needed_to_call"`
	Hands           []uint64 `json:"hands"`
	Board           uint64  `json:"board"`
}

// Snapshot captures n's full state as a flat record.
func Snapshot(n *node.Node) NodeSnapshot {
	players := n.NumPlayers()
	folded := make([]bool, players)
	bets := make([]int, players)
	stack := make([]int, players)
	hands := make([]uint64, players)
	for p := 0; p < players; p++ {
		folded[p] = n.Folded(p)
		bets[p] = n.BetOf(p)
		stack[p] = n.StackOf(p)
		hands[p] = uint64(n.HoleCards(p))
	}

	return NodeSnapshot{
		NPlayers:        players,
		BigBlind:        n.BigBlind(),
		SmallBlind:      n.SmallBlind(),
		Ante:            n.Ante(),
		BigBlindAnte:    n.BigBlindAnte(),
		BlindBeforeAnte: n.BlindBeforeAnte(),
		Rake:            n.Rake(),
		RakeCap:         n.RakeCap(),
		NoFlopNoDrop:    n.NoFlopNoDrop(),
		Button:          n.Button(),
		InProgress:      n.InProgress(),
		RoundID:         int(n.Round()),
		ActingPlayer:    n.ActingPlayer(),
		Folded:          folded,
		PlayersLeft:     n.PlayersLeft(),
		PlayersAllIn:    n.PlayersAllIn(),
		Pot:             n.Pot(),
		Bets:            bets,
		Stack:           stack,
		MinRaise:        n.MinRaise(),
		NeededToCall:    n.NeededToCall(),
		Hands:           hands,
		Board:           uint64(n.Board()),
	}
}
