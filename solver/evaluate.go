package solver

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/lox/holdem-mccfr/internal/node"
)

// ActionSampler resolves the probability distribution over an info set's
// legal actions. *runtime.Policy satisfies this, letting Evaluate replay a
// blueprint without the solver package importing its runtime consumer.
type ActionSampler interface {
	ActionWeights(key InfoSetKey, actionCount int) ([]float64, error)
}

// EvaluationConfig parameterizes a self-play run against a fixed policy.
type EvaluationConfig struct {
	Hands         int
	Seed          int64
	Players       int
	SmallBlind    int
	BigBlind      int
	StartingStack int
	// Mirror plays each deck twice with the button rotated one seat forward,
	// canceling out some of the variance contributed by card luck.
	Mirror bool
}

// PlayerResult captures one seat's outcome across an evaluation run.
type PlayerResult struct {
	Name      string
	Hands     int
	NetChips  int
	BBPerHand float64
	BBPer100  float64
}

// EvaluationResult summarizes a completed evaluation run.
type EvaluationResult struct {
	HandsCompleted uint64
	Duration       time.Duration
	Players        []PlayerResult
}

// Evaluate plays cfg.Hands hands against policy, rotating the button each
// hand, and reports each seat's net result. It reuses the trainer's action
// abstraction (legalActions/infoSetKey) so replayed actions index into the
// blueprint exactly as they did during training.
func Evaluate(ctx context.Context, abs AbstractionConfig, cfg EvaluationConfig, policy ActionSampler) (EvaluationResult, error) {
	if cfg.Hands <= 0 {
		return EvaluationResult{}, fmt.Errorf("hands must be positive (got %d)", cfg.Hands)
	}

	trainCfg := DefaultTrainingConfig()
	trainCfg.Players = cfg.Players
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
		return EvaluationResult{}, fmt.Errorf("build evaluation abstraction: %w", err)
	}

	rng := rand.New(rand.NewSource(seed))
	net := make([]int, cfg.Players)
	handsPlayed := 0
	start := time.Now()

	playHand := func(button int, deckSeed int64) error {
		stacks := make([]int, cfg.Players)
		for p := range stacks {
			stacks[p] = cfg.StartingStack
		}
		n, err := node.NewNode(node.Config{
			Stacks:     stacks,
			Button:     button,
			SmallBlind: cfg.SmallBlind,
			BigBlind:   cfg.BigBlind,
			Rng:        rand.New(rand.NewSource(deckSeed)),
		})
		if err != nil {
			return err
		}

		for n.InProgress() {
			if n.ActingPlayer() == node.ChancePlayer {
				if err := n.ProceedPlay(); err != nil {
					return err
				}
				continue
			}
			seat := n.ActingPlayer()
			actions := t.legalActions(n, true)
			if len(actions) == 0 {
				return fmt.Errorf("no legal actions at acting seat %d", seat)
			}
			key := t.infoSetKey(n, seat)
			weights, err := policy.ActionWeights(key, len(actions))
			if err != nil {
				return fmt.Errorf("action weights: %w", err)
			}
			idx := sampleWeighted(weights, rng)
			chosen := actions[idx]
			if err := n.Apply(chosen.action, chosen.amount); err != nil {
				return fmt.Errorf("apply sampled action: %w", err)
			}
		}

		for p := 0; p < cfg.Players; p++ {
			net[p] += n.StackOf(p) - cfg.StartingStack
		}
		return nil
	}

	for h := 0; h < cfg.Hands; h++ {
		select {
		case <-ctx.Done():
			return EvaluationResult{}, ctx.Err()
		default:
		}

		button := h % cfg.Players
		deckSeed := rng.Int63()
		if err := playHand(button, deckSeed); err != nil {
			return EvaluationResult{}, err
		}
		handsPlayed++

		if cfg.Mirror {
			mirrorButton := (button + 1) % cfg.Players
			if err := playHand(mirrorButton, deckSeed); err != nil {
				return EvaluationResult{}, err
			}
			handsPlayed++
		}
	}

	players := make([]PlayerResult, cfg.Players)
	for p := 0; p < cfg.Players; p++ {
		bb := float64(cfg.BigBlind)
		if bb <= 0 {
			bb = 1
		}
		bbPerHand := float64(net[p]) / bb / float64(handsPlayed)
		players[p] = PlayerResult{
			Name:      t.playerNames[p],
			Hands:     handsPlayed,
			NetChips:  net[p],
			BBPerHand: bbPerHand,
			BBPer100:  bbPerHand * 100,
		}
	}

	return EvaluationResult{
		HandsCompleted: uint64(handsPlayed),
		Duration:       time.Since(start),
		Players:        players,
	}, nil
}

// sampleWeighted picks an index from weights proportionally, falling back to
// the last index if rounding leaves a remainder (mirrors sampleStrategyIndex's
// tolerance for distributions that don't sum to exactly 1).
func sampleWeighted(weights []float64, rng *rand.Rand) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rng.Intn(len(weights))
	}
	target := rng.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if target < cum {
			return i
		}
	}
	return len(weights) - 1
}
