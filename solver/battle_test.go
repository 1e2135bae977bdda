package solver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-mccfr/solver"
)

// uniformSampler always returns a uniform distribution, the simplest stand-in
// for a trained policy when exercising BattleStats' plumbing.
type uniformSampler struct{}

func (uniformSampler) ActionWeights(_ solver.InfoSetKey, actionCount int) ([]float64, error) {
	out := make([]float64, actionCount)
	v := 1.0 / float64(actionCount)
	for i := range out {
		out[i] = v
	}
	return out, nil
}

func TestBattleStatsUniformVsUniform(t *testing.T) {
	abs := solver.DefaultAbstraction()
	abs.MaxActionsPerNode = 3

	cfg := solver.BattleConfig{
		Means:         4,
		Trials:        25,
		SmallBlind:    5,
		BigBlind:      10,
		StartingStack: 1000,
		Seed:          7,
	}

	res, err := solver.BattleStats(context.Background(), abs, cfg, uniformSampler{}, uniformSampler{})
	require.NoError(t, err)
	require.Len(t, res.RoundMeans, cfg.Means)
	require.GreaterOrEqual(t, res.StdErr, 0.0)
	require.LessOrEqual(t, res.CILow, res.Mean)
	require.GreaterOrEqual(t, res.CIHigh, res.Mean)
}

func TestBattleStatsRejectsIncompatibleInputs(t *testing.T) {
	abs := solver.DefaultAbstraction()
	abs.MaxActionsPerNode = 3

	cfg := solver.BattleConfig{Means: 0, Trials: 10, SmallBlind: 5, BigBlind: 10, StartingStack: 1000}
	_, err := solver.BattleStats(context.Background(), abs, cfg, uniformSampler{}, uniformSampler{})
	require.Error(t, err)
}

func TestAbstractionConfigEqual(t *testing.T) {
	a := solver.DefaultAbstraction()
	b := solver.DefaultAbstraction()
	require.True(t, a.Equal(b))

	b.MaxRaisesPerBucket++
	require.False(t, a.Equal(b))
}
