package node

import "errors"

// Error taxonomy, matched by errors.Is. Every mutator that violates a
// lifecycle or betting rule wraps one of these.
var (
	// ErrInvalidPhase is returned when a method is called in the wrong
	// lifecycle state: Apply at a chance node, AwardPot while in
	// progress, NewHand with a non-zero pot, PostStraddles outside the
	// preflop chance node.
	ErrInvalidPhase = errors.New("node: invalid phase")

	// ErrInvalidMove is returned for a rule violation within an
	// otherwise-valid phase: Fold when not allowed, a Bet with an
	// illegal size, CheckCall when not allowed.
	ErrInvalidMove = errors.New("node: invalid move")

	// ErrInternal marks a condition that should be unreachable if the
	// rest of the package is correct, such as Hamilton apportionment
	// awarding more chips than the pot.
	ErrInternal = errors.New("node: internal error")
)
