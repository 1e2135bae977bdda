package solver

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/lox/holdem-mccfr/internal/node"
)

// BattleConfig parameterizes a heads-up comparison between a trained policy
// and an opponent policy, matching BattleStats(op, means, trials): means
// independent rounds, each of trials hands, with seats swapped every other
// hand so neither policy is favored by position.
type BattleConfig struct {
	Means         int
	Trials        int
	SmallBlind    int
	BigBlind      int
	StartingStack int
	Seed          int64
}

// welford accumulates an online mean/variance without storing samples,
// the running-statistics pattern used throughout the solver's evaluation
// code for summarizing per-hand results into a single report.
type welford struct {
	n    int
	mean float64
	m2   float64
}

func (w *welford) add(x float64) {
	w.n++
	delta := x - w.mean
	w.mean += delta / float64(w.n)
	delta2 := x - w.mean
	w.m2 += delta * delta2
}

func (w *welford) variance() float64 {
	if w.n < 2 {
		return 0
	}
	return w.m2 / float64(w.n-1)
}

func (w *welford) stdErr() float64 {
	if w.n == 0 {
		return 0
	}
	return math.Sqrt(w.variance() / float64(w.n))
}

// BattleResult reports the self-play comparison of two policies: one
// chip-delta mean per round (in big blinds per hand), plus the aggregate
// mean and a 95% confidence interval over those round means.
type BattleResult struct {
	RoundMeans  []float64
	Mean        float64
	StdErr      float64
	CILow       float64
	CIHigh      float64
	RejectsZero bool
}

// z95 is the two-sided 95% critical value for a normal approximation,
// appropriate here because each round mean already averages many hands.
const z95 = 1.959964

// BattleStats runs cfg.Means rounds of cfg.Trials self-play hands each,
// alternating which seat "self" occupies every hand so card luck and
// positional edge wash out across a round, and returns self's mean chip
// delta per round plus a 95% CI for a reject-of-zero test (spec.md §4.4,
// §8 "BattleStats(op, means, trials)... statistical test").
func BattleStats(ctx context.Context, abs AbstractionConfig, cfg BattleConfig, self, op ActionSampler) (BattleResult, error) {
	if cfg.Means <= 0 {
		return BattleResult{}, fmt.Errorf("means must be positive (got %d)", cfg.Means)
	}
	if cfg.Trials <= 0 {
		return BattleResult{}, fmt.Errorf("trials must be positive (got %d)", cfg.Trials)
	}

	trainCfg := DefaultTrainingConfig()
	trainCfg.Players = 2
	trainCfg.SmallBlind = cfg.SmallBlind
	trainCfg.BigBlind = cfg.BigBlind
	trainCfg.StartingStack = cfg.StartingStack
	trainCfg.Iterations = 1
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	trainCfg.Seed = seed

	t, err := NewTrainer(abs, trainCfg)
	if err != nil {
		return BattleResult{}, fmt.Errorf("build battle abstraction: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	bb := float64(cfg.BigBlind)
	if bb <= 0 {
		bb = 1
	}

	roundMeans := make([]float64, cfg.Means)
	var overall welford

	for m := 0; m < cfg.Means; m++ {
		var netSelf int
		for h := 0; h < cfg.Trials; h++ {
			select {
			case <-ctx.Done():
				return BattleResult{}, ctx.Err()
			default:
			}

			// selfSeat alternates every hand so both policies see both
			// positions an equal number of times across a round.
			selfSeat := h % 2
			policies := [2]ActionSampler{}
			policies[selfSeat] = self
			policies[1-selfSeat] = op

			delta, err := playBattleHand(t, policies, cfg, h, rng)
			if err != nil {
				return BattleResult{}, err
			}
			netSelf += delta[selfSeat]
		}
		meanBB := float64(netSelf) / bb / float64(cfg.Trials)
		roundMeans[m] = meanBB
		overall.add(meanBB)
	}

	mean := overall.mean
	stdErr := overall.stdErr()
	result := BattleResult{
		RoundMeans: roundMeans,
		Mean:       mean,
		StdErr:     stdErr,
		CILow:      mean - z95*stdErr,
		CIHigh:     mean + z95*stdErr,
	}
	result.RejectsZero = result.CILow > 0 || result.CIHigh < 0
	return result, nil
}

// playBattleHand plays one two-seat hand with the button moving one seat
// every second hand, so that together with BattleStats' per-hand seat swap
// each policy holds the button in half of the hands. Each seat samples from
// its own ActionSampler, and the chip delta for every seat relative to
// cfg.StartingStack is returned.
func playBattleHand(t *Trainer, policies [2]ActionSampler, cfg BattleConfig, handIndex int, rng *rand.Rand) ([2]int, error) {
	var net [2]int
	stacks := []int{cfg.StartingStack, cfg.StartingStack}
	n, err := node.NewNode(node.Config{
		Stacks:     stacks,
		Button:     (handIndex / 2) % 2,
		SmallBlind: cfg.SmallBlind,
		BigBlind:   cfg.BigBlind,
		Rng:        rand.New(rand.NewSource(rng.Int63())),
	})
	if err != nil {
		return net, err
	}

	for n.InProgress() {
		if n.ActingPlayer() == node.ChancePlayer {
			if err := n.ProceedPlay(); err != nil {
				return net, err
			}
			continue
		}
		seat := n.ActingPlayer()
		actions := t.legalActions(n, true)
		if len(actions) == 0 {
			return net, fmt.Errorf("no legal actions at acting seat %d", seat)
		}
		key := t.infoSetKey(n, seat)
		weights, err := policies[seat].ActionWeights(key, len(actions))
		if err != nil {
			return net, fmt.Errorf("action weights: %w", err)
		}
		idx := sampleWeighted(weights, rng)
		chosen := actions[idx]
		if err := n.Apply(chosen.action, chosen.amount); err != nil {
			return net, fmt.Errorf("apply sampled action: %w", err)
		}
	}

	for p := 0; p < 2; p++ {
		net[p] = n.StackOf(p) - cfg.StartingStack
	}
	return net, nil
}
