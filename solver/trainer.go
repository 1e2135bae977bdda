package solver

import (
	"context"
	"fmt"
	"math/rand"
	rand2 "math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdem-mccfr/internal/node"
	"github.com/lox/holdem-mccfr/internal/randutil"
)

// randomRand2 adapts an int64 seed from the trainer's math/rand stream into
// the math/rand/v2 generator used for action sampling during traversal.
func randomRand2(seed int64) *rand2.Rand {
	return randutil.New(seed)
}

// TraversalStats captures instrumentation metrics for a single MCCFR iteration.
type TraversalStats struct {
	NodesVisited  int64
	TerminalNodes int64
	MaxDepth      int
	IterationTime time.Duration
}

// Progress contains metadata emitted during long-running solver operations.
type Progress struct {
	Iteration       int
	RegretTableSize int
	Stats           TraversalStats
}

// Trainer orchestrates Monte Carlo CFR iterations over internal/node hands.
type Trainer struct {
	absCfg          AbstractionConfig
	trainCfg        TrainingConfig
	bucket          *BucketMapper
	regrets         *RegretTable
	iteration       atomic.Int64
	rng             *rand.Rand
	playerNames     []string
	statsMu         sync.Mutex
	stats           TraversalStats
	rngSeed         int64
	rngInt63        int64
	rngIntn         int64
	checkpointPath  string
	checkpointEvery int
	adaptiveMu      sync.Mutex
	adaptiveState   map[string]*adaptiveInfo
	clock           quartz.Clock
}

// SetClock overrides the trainer's clock, letting tests control iteration
// timing deterministically. Training uses the real clock by default.
func (t *Trainer) SetClock(clock quartz.Clock) {
	t.clock = clock
}

type adaptiveInfo struct {
	visits   int64
	expanded bool
}

// NewTrainer constructs a solver trainer given abstraction and training configs.
func NewTrainer(absCfg AbstractionConfig, trainCfg TrainingConfig) (*Trainer, error) {
	if err := absCfg.Validate(); err != nil {
		return nil, err
	}
	if err := trainCfg.Validate(); err != nil {
		return nil, err
	}

	mapper, err := NewBucketMapper(absCfg)
	if err != nil {
		return nil, err
	}

	seed := trainCfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	names := make([]string, trainCfg.Players)
	for i := range names {
		names[i] = fmt.Sprintf("P%d", i)
	}

	trainer := &Trainer{
		absCfg:      absCfg,
		trainCfg:    trainCfg,
		bucket:      mapper,
		regrets:     NewRegretTable(),
		rng:         rand.New(rand.NewSource(seed)),
		playerNames: names,
		rngSeed:     seed,
		clock:       quartz.NewReal(),
	}
	if trainCfg.AdaptiveRaiseVisits > 0 {
		trainer.adaptiveState = make(map[string]*adaptiveInfo)
	}
	return trainer, nil
}

// Run executes the requested number of CFR iterations, continuing from the
// trainer's current iteration count. Each iteration runs an MCCFR traversal
// for every player on every parallel table, then applies DCFR discounting,
// checkpointing and progress reporting at their configured intervals.
func (t *Trainer) Run(ctx context.Context, progress func(Progress)) error {
	pLog := t.trainCfg.Iterations / 100
	if pLog == 0 {
		pLog = 1
	}
	batch := pLog
	if cfg := t.trainCfg.ProgressEvery; cfg > 0 {
		batch = cfg
	}

	for i := int(t.iteration.Load()); i < t.trainCfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		startIter := t.clock.Now()
		stats, err := t.singleIteration(i + 1)
		if err != nil {
			return err
		}
		stats.IterationTime = t.clock.Since(startIter)
		t.setStats(stats)
		iter := int(t.iteration.Add(1))

		if t.trainCfg.UseDCFR && t.trainCfg.DiscountEvery > 0 && iter%t.trainCfg.DiscountEvery == 0 {
			t.regrets.Discount(discountFactor(iter, t.trainCfg.DiscountEvery))
		}

		if t.checkpointPath != "" && t.checkpointEvery > 0 && iter%t.checkpointEvery == 0 {
			if err := t.SaveCheckpoint(t.checkpointPath); err != nil {
				return err
			}
		}

		if progress != nil && iter%batch == 0 {
			progress(Progress{Iteration: iter, RegretTableSize: t.regrets.Size(), Stats: stats})
		}
	}

	if progress != nil {
		iter := int(t.iteration.Load())
		progress(Progress{Iteration: iter, RegretTableSize: t.regrets.Size(), Stats: t.Stats()})
	}

	if t.checkpointPath != "" && t.checkpointEvery > 0 {
		if err := t.SaveCheckpoint(t.checkpointPath); err != nil {
			return err
		}
	}
	return nil
}

// Blueprint materialises the averaged strategy accumulated so far, one entry
// per info set in the regret table.
func (t *Trainer) Blueprint() *Blueprint {
	entries := t.regrets.Entries()
	strategies := make(map[string][]float64, len(entries))
	for key, entry := range entries {
		strategies[key] = entry.AverageStrategy()
	}
	return &Blueprint{
		Version:     blueprintFileVersion,
		GeneratedAt: time.Now().UTC(),
		Iterations:  int(t.iteration.Load()),
		Abstraction: t.absCfg,
		Strategies:  strategies,
	}
}

func (t *Trainer) singleIteration(iter int) (TraversalStats, error) {
	parallel := t.trainCfg.ParallelTables
	if parallel <= 0 {
		parallel = 1
	}

	statsSlice := make([]TraversalStats, parallel)

	type tableSeeds struct {
		deck   int64
		sample int64
		button int
	}

	seeds := make([]tableSeeds, parallel)
	for i := 0; i < parallel; i++ {
		seeds[i].deck = t.rng.Int63()
		t.rngInt63++
		seeds[i].sample = t.rng.Int63()
		t.rngInt63++
		seeds[i].button = t.rng.Intn(t.trainCfg.Players)
		t.rngIntn++
	}

	g, gctx := errgroup.WithContext(context.Background())

	for i := 0; i < parallel; i++ {
		idx := i
		g.Go(func() error {
			stacks := make([]int, t.trainCfg.Players)
			for p := range stacks {
				stacks[p] = t.trainCfg.StartingStack
			}
			root, err := node.NewNode(node.Config{
				Stacks:     stacks,
				Button:     seeds[idx].button,
				SmallBlind: t.trainCfg.SmallBlind,
				BigBlind:   t.trainCfg.BigBlind,
				Rng:        NewFastRandV2(seeds[idx].deck),
			})
			if err != nil {
				return err
			}

			tableCtx := &iterationContext{
				trainer:     t,
				root:        root,
				playerNames: t.playerNames,
				stats:       &statsSlice[idx],
				sampler:     randomRand2(seeds[idx].sample),
				startStack:  t.trainCfg.StartingStack,
				updateOpts: RegretUpdateOptions{
					ClampNegativeRegrets: t.trainCfg.UseCFRPlus,
					LinearAveraging:      t.trainCfg.UseDCFR,
					Iteration:            iter,
				},
			}

			for player := 0; player < t.trainCfg.Players; player++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				if _, err := t.traverse(tableCtx, tableCtx.root, player, 0, 1.0, 1.0); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return TraversalStats{}, err
	}

	aggregated := TraversalStats{}
	for i := 0; i < parallel; i++ {
		aggregated.NodesVisited += statsSlice[i].NodesVisited
		aggregated.TerminalNodes += statsSlice[i].TerminalNodes
		if statsSlice[i].MaxDepth > aggregated.MaxDepth {
			aggregated.MaxDepth = statsSlice[i].MaxDepth
		}
	}

	return aggregated, nil
}

func (t *Trainer) setStats(stats TraversalStats) {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	t.stats = stats
}

// Stats returns the most recent traversal statistics recorded by the trainer.
func (t *Trainer) Stats() TraversalStats {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return t.stats
}

func (t *Trainer) AdaptiveStats() (int, int) {
	if t.adaptiveState == nil {
		return 0, 0
	}
	t.adaptiveMu.Lock()
	defer t.adaptiveMu.Unlock()
	expanded := 0
	tracked := 0
	for _, info := range t.adaptiveState {
		tracked++
		if info.expanded {
			expanded++
		}
	}
	return expanded, tracked
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (t *Trainer) TrainingConfig() TrainingConfig {
	return t.trainCfg
}

func (t *Trainer) Iteration() int64 {
	return t.iteration.Load()
}

func (t *Trainer) SetTotalIterations(n int) error {
	current := int(t.iteration.Load())
	if n < current {
		return fmt.Errorf("total iterations %d less than completed %d", n, current)
	}
	t.trainCfg.Iterations = n
	return nil
}

func (t *Trainer) raisesEnabled() bool {
	if !t.trainCfg.EnableRaises || !t.absCfg.EnableRaises {
		return false
	}
	return len(t.absCfg.BetSizing) > 0
}

func (t *Trainer) SetRaisesEnabled(enabled bool) {
	t.trainCfg.EnableRaises = enabled
}

func (t *Trainer) SetProgressEvery(n int) {
	if n < 0 {
		n = 0
	}
	t.trainCfg.ProgressEvery = n
}

func (t *Trainer) shouldExpandRaises(key InfoSetKey) bool {
	if t.trainCfg.AdaptiveRaiseVisits <= 0 {
		return false
	}
	if t.adaptiveState == nil {
		return false
	}
	ks := key.String()
	t.adaptiveMu.Lock()
	info, ok := t.adaptiveState[ks]
	t.adaptiveMu.Unlock()
	return ok && info.expanded
}

func (t *Trainer) recordVisit(key InfoSetKey) {
	if t.trainCfg.AdaptiveRaiseVisits <= 0 {
		return
	}
	ks := key.String()
	t.adaptiveMu.Lock()
	defer t.adaptiveMu.Unlock()
	if t.adaptiveState == nil {
		t.adaptiveState = make(map[string]*adaptiveInfo)
	}
	info := t.adaptiveState[ks]
	if info == nil {
		info = &adaptiveInfo{}
		t.adaptiveState[ks] = info
	}
	info.visits++
	if !info.expanded && info.visits >= int64(t.trainCfg.AdaptiveRaiseVisits) {
		info.expanded = true
	}
}
