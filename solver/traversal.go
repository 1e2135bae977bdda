package solver

import (
	"math"
	rand "math/rand/v2"
	"sort"

	"github.com/lox/holdem-mccfr/internal/node"
	"github.com/lox/holdem-mccfr/internal/randutil"
)

// solverAction is one action in the abstracted action set: amount carries
// the acting player's new total bet for node.Bet and is ignored otherwise.
type solverAction struct {
	action node.Action
	amount int
}

type iterationContext struct {
	trainer     *Trainer
	root        *node.Node
	playerNames []string
	stats       *TraversalStats
	sampler     *rand.Rand
	updateOpts  RegretUpdateOptions
	startStack  int
}

// traverse implements external-sampling MCCFR over an internal/node.Node
// tree: n is always privately owned by the caller, so branching over an
// own-player decision clones n once per candidate action rather than
// replaying the hand from scratch.
func (t *Trainer) traverse(ctx *iterationContext, n *node.Node, target int, depth int, reachPlayer, reachOthers float64) (float64, error) {
	if ctx.stats != nil {
		ctx.stats.NodesVisited++
		if depth > ctx.stats.MaxDepth {
			ctx.stats.MaxDepth = depth
		}
	}

	for n.InProgress() && n.ActingPlayer() == node.ChancePlayer {
		if err := n.ProceedPlay(); err != nil {
			return 0, err
		}
	}

	if !n.InProgress() {
		if ctx.stats != nil {
			ctx.stats.TerminalNodes++
		}
		util, err := utilityForPlayer(n, target, ctx.startStack)
		if err != nil {
			return 0, err
		}
		return float64(util), nil
	}

	current := n.ActingPlayer()
	key := t.infoSetKey(n, current)
	expandRaises := t.shouldExpandRaises(key)
	actions := t.legalActions(n, expandRaises)
	if len(actions) == 0 {
		if ctx.stats != nil {
			ctx.stats.TerminalNodes++
		}
		util, err := utilityForPlayer(n, target, ctx.startStack)
		if err != nil {
			return 0, err
		}
		return float64(util), nil
	}

	entry := t.regrets.Get(key, len(actions))
	strategy := entry.Strategy()

	if current == target {
		util := make([]float64, len(actions))
		nodeUtil := 0.0
		for i, act := range actions {
			child := n.Clone()
			if err := child.Apply(act.action, act.amount); err != nil {
				return 0, err
			}
			u, err := t.traverse(ctx, child, target, depth+1, reachPlayer, reachOthers*strategy[i])
			if err != nil {
				return 0, err
			}
			util[i] = u
			nodeUtil += strategy[i] * u
		}

		regrets := make([]float64, len(actions))
		for i := range actions {
			regrets[i] = (util[i] - nodeUtil) * reachOthers
		}
		entry.Update(regrets, strategy, reachPlayer, ctx.updateOpts)
		t.recordVisit(key)
		return nodeUtil, nil
	}

	if t.trainCfg.Sampling == SamplingModeFullTraversal {
		nodeUtil := 0.0
		total := 0.0
		for i, act := range actions {
			prob := strategy[i]
			if prob <= 0 {
				continue
			}
			child := n.Clone()
			if err := child.Apply(act.action, act.amount); err != nil {
				return 0, err
			}
			u, err := t.traverse(ctx, child, target, depth+1, reachPlayer, reachOthers*prob)
			if err != nil {
				return 0, err
			}
			nodeUtil += prob * u
			total += prob
		}
		if total <= 0 && len(actions) > 0 {
			fallback := 1.0 / float64(len(actions))
			for _, act := range actions {
				child := n.Clone()
				if err := child.Apply(act.action, act.amount); err != nil {
					return 0, err
				}
				u, err := t.traverse(ctx, child, target, depth+1, reachPlayer, reachOthers*fallback)
				if err != nil {
					return 0, err
				}
				nodeUtil += fallback * u
			}
		}
		return nodeUtil, nil
	}

	sampled := strategy[:len(actions)]
	idx, prob := sampleStrategyIndex(sampled, ctx.sampler)
	if prob <= 0 {
		prob = 1.0 / float64(len(actions))
	}
	child := n.Clone()
	if err := child.Apply(actions[idx].action, actions[idx].amount); err != nil {
		return 0, err
	}
	u, err := t.traverse(ctx, child, target, depth+1, reachPlayer*prob, reachOthers)
	if err != nil {
		return 0, err
	}
	return u, nil
}

// legalActions builds the abstracted action set for the node's current
// acting player: fold and check/call mirror the node's own legality
// checks, raise totals come from raiseAmounts, and all-in is offered
// whenever it isn't already identical to an available check/call (the
// mandatory all-in-for-less case) or when raises are enabled.
func (t *Trainer) legalActions(n *node.Node, expandRaises bool) []solverAction {
	p := n.ActingPlayer()
	allowRaises := t.raisesEnabled()
	actions := make([]solverAction, 0, t.absCfg.MaxActionsPerNode)

	if n.CanFold() {
		actions = append(actions, solverAction{action: node.Fold})
	}

	canCheckCall := n.CanCheckCall()
	if canCheckCall {
		actions = append(actions, solverAction{action: node.CheckCall})
	}

	if allowRaises {
		amounts := t.raiseAmounts(n)
		amounts = t.filterRaises(n, amounts, expandRaises)
		for _, total := range amounts {
			actions = append(actions, solverAction{action: node.Bet, amount: total})
		}
	}

	if (!canCheckCall || allowRaises) && n.StackOf(p) > 0 {
		actions = append(actions, solverAction{action: node.AllIn})
	}

	if len(actions) > t.absCfg.MaxActionsPerNode {
		actions = actions[:t.absCfg.MaxActionsPerNode]
	}
	return actions
}

func (t *Trainer) filterRaises(n *node.Node, totals []int, expand bool) []int {
	if expand {
		return totals
	}
	maxRaises := t.absCfg.MaxRaisesPerBucket
	if maxRaises <= 0 || len(totals) <= maxRaises {
		return totals
	}
	selected := make(map[int]struct{}, maxRaises)
	selectIndex := func(idx int) {
		if idx < 0 || idx >= len(totals) {
			return
		}
		if len(selected) >= maxRaises {
			return
		}
		if _, ok := selected[idx]; ok {
			return
		}
		selected[idx] = struct{}{}
	}
	selectIndex(0)
	if len(selected) < maxRaises {
		selectIndex(len(totals) - 1)
	}
	if len(selected) < maxRaises {
		selectIndex(t.closestRaiseIndex(n, totals))
	}
	for i := 0; len(selected) < maxRaises && i < len(totals); i++ {
		selectIndex(i)
	}
	result := make([]int, 0, maxRaises)
	for i := 0; i < len(totals) && len(result) < maxRaises; i++ {
		if _, ok := selected[i]; ok {
			result = append(result, totals[i])
		}
	}
	return result
}

func (t *Trainer) closestRaiseIndex(n *node.Node, totals []int) int {
	if len(totals) == 0 {
		return -1
	}
	toCall := n.NeededToCall()
	potTarget := n.MaxBet() + toCall + t.potSize(n) + toCall
	bestIdx := 0
	bestDiff := absInt(totals[0] - potTarget)
	for i := 1; i < len(totals); i++ {
		diff := absInt(totals[i] - potTarget)
		if diff < bestDiff {
			bestIdx = i
			bestDiff = diff
		}
	}
	return bestIdx
}

// raiseAmounts maps the configured pot-fraction ladder onto concrete bet
// totals legal at n, skipping any total that would equal or exceed an
// all-in (that case is covered by the AllIn action instead).
func (t *Trainer) raiseAmounts(n *node.Node) []int {
	if !t.raisesEnabled() {
		return nil
	}
	p := n.ActingPlayer()
	maxBet := n.MaxBet()
	minRaise := n.MinRaise()
	if minRaise <= 0 {
		minRaise = t.trainCfg.BigBlind
		if minRaise <= 0 {
			minRaise = 1
		}
	}
	allInTotal := n.BetOf(p) + n.StackOf(p)
	pot := t.potSize(n)

	amounts := make([]int, 0, len(t.absCfg.BetSizing))
	seen := make(map[int]struct{}, len(t.absCfg.BetSizing))

	for _, fraction := range t.absCfg.BetSizing {
		if fraction <= 0 {
			continue
		}
		raise := int(math.Round(float64(pot) * fraction))
		if raise < minRaise {
			raise = minRaise
		}
		total := maxBet + raise
		if total <= maxBet {
			continue
		}
		if total >= allInTotal {
			continue
		}
		if _, ok := seen[total]; ok {
			continue
		}
		seen[total] = struct{}{}
		amounts = append(amounts, total)
	}

	sort.Ints(amounts)
	return amounts
}

func (t *Trainer) infoSetKey(n *node.Node, seat int) InfoSetKey {
	holeBucket := t.bucket.HoleBucket(n.HoleCards(seat))
	boardBucket := 0
	board := n.Board()
	if board.CountCards() >= 3 {
		boardBucket = t.bucket.BoardBucket(board)
	}

	pot := t.potSize(n)
	toCall := n.NeededToCall()

	return InfoSetKey{
		Street:       mapStreet(n.Round()),
		Player:       seat,
		HoleBucket:   holeBucket,
		BoardBucket:  boardBucket,
		PotBucket:    t.potBucket(pot),
		ToCallBucket: t.toCallBucket(toCall),
	}
}

// potSize returns the total chips committed this hand. Pot() already equals
// the sum of every player's bets (the node.go invariant pot = Σ bets[i]), so
// it is not added to them again here.
func (t *Trainer) potSize(n *node.Node) int {
	return n.Pot()
}

func (t *Trainer) potBucket(pot int) int {
	bb := max(t.trainCfg.BigBlind, 1)
	thresholds := []int{bb, bb * 3, bb * 6, bb * 12}
	for i, boundary := range thresholds {
		if pot <= boundary {
			return i
		}
	}
	return len(thresholds)
}

func (t *Trainer) toCallBucket(toCall int) int {
	bb := max(t.trainCfg.BigBlind, 1)
	thresholds := []int{0, bb, bb * 2, bb * 4}
	for i, boundary := range thresholds {
		if toCall <= boundary {
			return i
		}
	}
	return len(thresholds)
}

func mapStreet(r node.Round) Street {
	switch r {
	case node.Preflop:
		return StreetPreflop
	case node.Flop:
		return StreetFlop
	case node.Turn:
		return StreetTurn
	default:
		return StreetRiver
	}
}

// utilityForPlayer awards the pot (if not already settled) and returns
// seat's net chip change relative to the stack it started the hand with.
func utilityForPlayer(n *node.Node, seat int, startStack int) (int, error) {
	if n.Pot() > 0 {
		if err := n.AwardPotSingleRun(); err != nil {
			return 0, err
		}
	}
	return n.StackOf(seat) - startStack, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sampleStrategyIndex(strategy []float64, rng *rand.Rand) (int, float64) {
	if len(strategy) == 0 {
		return 0, 0
	}
	if rng == nil {
		rng = randutil.New(42)
	}
	total := 0.0
	for _, v := range strategy {
		if v > 0 {
			total += v
		}
	}
	if total <= 0 {
		idx := rng.IntN(len(strategy))
		return idx, 1.0 / float64(len(strategy))
	}
	r := rng.Float64() * total
	acc := 0.0
	for i, v := range strategy {
		if v <= 0 {
			continue
		}
		acc += v
		if r <= acc {
			return i, v / total
		}
	}
	return len(strategy) - 1, strategy[len(strategy)-1] / total
}
