// Package cluster implements the Matchmaker: given a Node and a
// cluster-lookup function, it returns per-player card-cluster IDs for the
// current round. The canonical hand-index it feeds that function is the
// player's hole cards combined with the board as they currently stand; a
// true suit-isomorphism indexer is an external collaborator this package
// does not build.
package cluster

import (
	"github.com/lox/holdem-mccfr/internal/node"
)

// LookupFunc maps a round and a canonical hand index to a cluster ID. During
// training it typically reads a cluster table built in-process; at play time
// it reads a table loaded from disk.
type LookupFunc func(round node.Round, index uint64) int

// HandSet returns the canonical index for a player's current visible cards
// at n's round: their hole cards unioned with the board dealt so far.
func HandSet(n *node.Node, player int) uint64 {
	hole := n.HoleCards(player)
	board := n.Board()
	return uint64(hole | board)
}

// Cluster computes the hand-index for player's visible cards at n's current
// round and resolves it through fn.
func Cluster(n *node.Node, player int, fn LookupFunc) int {
	return fn(n.Round(), HandSet(n, player))
}

// ClusterArray returns clusters for every player still live and not all-in
// at n's current round, keyed by seat. Folded seats and seats with no chips
// behind (all-in or busted) are omitted.
func ClusterArray(n *node.Node, fn LookupFunc) map[int]int {
	out := make(map[int]int, n.NumPlayers())
	for p := 0; p < n.NumPlayers(); p++ {
		if n.Folded(p) {
			continue
		}
		if n.StackOf(p) == 0 {
			continue
		}
		out[p] = Cluster(n, p, fn)
	}
	return out
}
