// Package scribe persists the reference artifacts a Commander needs to
// play from a trained abstraction, without rerunning CFR: the starting
// state, the action abstraction, the per-round sequence tables, the
// per-round cluster maps, and the averaged policy. The on-disk layout
// mirrors the grouped-dataset shape described for the reference
// implementation (start_state/actions/sequences/clusters/policy), encoded
// as JSON rather than chasing the original's binary format bit-for-bit.
package scribe

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/lox/holdem-mccfr/internal/fileutil"
	"github.com/lox/holdem-mccfr/internal/node"
	"github.com/lox/holdem-mccfr/internal/sequence"
)

const packVersion = 1

// StartState is the serializable subset of node.Config a Commander needs
// to reconstruct the hand this pack was built from.
type StartState struct {
	Stacks     []int `json:"stacks"`
	Button     int   `json:"button"`
	SmallBlind int   `json:"small_blind"`
	BigBlind   int   `json:"big_blind"`
	Ante       int   `json:"ante"`
}

// ActionRecord is the serializable form of a sequence.AbstractAction.
type ActionRecord struct {
	Action      string  `json:"action"`
	Size        float64 `json:"size,omitempty"`
	MaxRaiseNum int     `json:"max_raise_num,omitempty"`
	MinRound    int     `json:"min_round"`
	MaxRound    int     `json:"max_round"`
	MaxPlayers  int     `json:"max_players,omitempty"`
	MinPot      int     `json:"min_pot,omitempty"`
}

// RoundSequences is the 2-D transition table for one round: Rows[s][i] is
// the sequence.ID (possibly IllegalID or LeafID) action i leads to from
// state s.
type RoundSequences struct {
	Rows [][]int `json:"rows"`
}

// RoundPolicy is the flattened clusters x sequences x actions policy table
// for one round. Values is row-major over (cluster, sequence, action).
type RoundPolicy struct {
	Clusters  int       `json:"clusters"`
	Sequences int       `json:"sequences"`
	Actions   int       `json:"actions"`
	Values    []float64 `json:"values"`
}

func (p RoundPolicy) index(cluster, seq, action int) int {
	return (cluster*p.Sequences+seq)*p.Actions + action
}

// At returns the per-action policy slice for (cluster, seq), or nil if out
// of range.
func (p RoundPolicy) At(cluster, seq int) []float64 {
	if cluster < 0 || cluster >= p.Clusters || seq < 0 || seq >= p.Sequences {
		return nil
	}
	start := p.index(cluster, seq, 0)
	return p.Values[start : start+p.Actions]
}

// Pack bundles every dataset group a Commander needs to play a blueprint
// without rerunning CFR.
type Pack struct {
	Version   int                       `json:"version"`
	KPlayers  int                       `json:"k_players"`
	KActions  int                       `json:"k_actions"`
	Start     StartState                `json:"start_state"`
	Actions   []ActionRecord            `json:"actions"`
	Sequences [node.NumRounds]RoundSequences `json:"sequences"`
	Clusters  [node.NumRounds]map[uint64]int `json:"clusters"`
	Policy    [node.NumRounds]RoundPolicy    `json:"policy"`
}

// PolicyFunc resolves the per-action policy for a (round, cluster,
// sequence) triple; callers typically back this with a trained average
// strategy table.
type PolicyFunc func(round node.Round, cluster, seq int) []float64

// Build assembles a Pack from a built sequence table, one cluster map per
// round (canonical hand index -> cluster id). The per-round policy tables
// are left empty; FillPolicy fills one round at a time from a policy
// function and a caller-supplied cluster count.
func Build(kPlayers int, start StartState, actions []sequence.AbstractAction, table *sequence.Table, clusters [node.NumRounds]map[uint64]int) (*Pack, error) {
	if table == nil {
		return nil, fmt.Errorf("scribe: nil sequence table")
	}

	p := &Pack{
		Version:  packVersion,
		KPlayers: kPlayers,
		KActions: len(actions),
		Start:    start,
		Actions:  make([]ActionRecord, len(actions)),
		Clusters: clusters,
	}

	for i, a := range actions {
		p.Actions[i] = ActionRecord{
			Action:      a.Action.String(),
			Size:        a.Size,
			MaxRaiseNum: a.MaxRaiseNum,
			MinRound:    int(a.MinRound),
			MaxRound:    int(a.MaxRound),
			MaxPlayers:  a.MaxPlayers,
			MinPot:      a.MinPot,
		}
	}

	for r := node.Round(0); int(r) < node.NumRounds; r++ {
		numStates := table.NumStates(r)
		rows := make([][]int, numStates)
		for s := 0; s < numStates; s++ {
			row := make([]int, len(actions))
			for i := range actions {
				row[i] = int(table.Next(r, s, i))
			}
			rows[s] = row
		}
		p.Sequences[r] = RoundSequences{Rows: rows}
	}

	return p, nil
}

// FillPolicy populates round r's policy table by calling fn for every
// (cluster, sequence) pair up to numClusters.
func (p *Pack) FillPolicy(r node.Round, numClusters int, fn PolicyFunc) {
	numSeq := len(p.Sequences[r].Rows)
	values := make([]float64, numClusters*numSeq*p.KActions)
	rp := RoundPolicy{Clusters: numClusters, Sequences: numSeq, Actions: p.KActions, Values: values}

	for c := 0; c < numClusters; c++ {
		for s := 0; s < numSeq; s++ {
			weights := fn(r, c, s)
			dst := rp.At(c, s)
			copy(dst, weights)
		}
	}
	p.Policy[r] = rp
}

// AbstractActions recovers the action abstraction a pack was built with, for
// rebuilding the sequence.Table a live Commander traverses.
func (p *Pack) AbstractActions() ([]sequence.AbstractAction, error) {
	actions := make([]sequence.AbstractAction, len(p.Actions))
	for i, rec := range p.Actions {
		action, err := parseActionTag(rec.Action)
		if err != nil {
			return nil, fmt.Errorf("scribe: action %d: %w", i, err)
		}
		actions[i] = sequence.AbstractAction{
			Action:      action,
			Size:        rec.Size,
			MaxRaiseNum: rec.MaxRaiseNum,
			MinRound:    node.Round(rec.MinRound),
			MaxRound:    node.Round(rec.MaxRound),
			MaxPlayers:  rec.MaxPlayers,
			MinPot:      rec.MinPot,
		}
	}
	return actions, nil
}

func parseActionTag(tag string) (node.Action, error) {
	switch tag {
	case node.Fold.String():
		return node.Fold, nil
	case node.CheckCall.String():
		return node.CheckCall, nil
	case node.Bet.String():
		return node.Bet, nil
	case node.AllIn.String():
		return node.AllIn, nil
	default:
		return 0, fmt.Errorf("unknown action tag %q", tag)
	}
}

// StartNode constructs a fresh node.Node matching the hand this pack was
// trained from, the canonical root a sequence.Table rebuild walks from.
func (p *Pack) StartNode(rng *rand.Rand) (*node.Node, error) {
	return node.NewNode(node.Config{
		Stacks:     append([]int(nil), p.Start.Stacks...),
		Button:     p.Start.Button,
		SmallBlind: p.Start.SmallBlind,
		BigBlind:   p.Start.BigBlind,
		Ante:       p.Start.Ante,
		Rng:        rng,
	})
}

// BuildTable rebuilds the sequence.Table this pack's policy is indexed
// against. The table is cheap to recompute deterministically from Start and
// Actions, so the pack itself only persists the lighter RoundSequences
// summary rather than the table's internal lookup index.
func (p *Pack) BuildTable(rng *rand.Rand) (*sequence.Table, error) {
	actions, err := p.AbstractActions()
	if err != nil {
		return nil, err
	}
	start, err := p.StartNode(rng)
	if err != nil {
		return nil, fmt.Errorf("scribe: rebuild start node: %w", err)
	}
	return sequence.Build(start, actions)
}

// ClusterLookup returns a cluster.LookupFunc backed by this pack's
// persisted per-round cluster maps, the form a Commander needs for live
// play. Hands absent from the map resolve to cluster 0.
func (p *Pack) ClusterLookup() func(round node.Round, index uint64) int {
	return func(round node.Round, index uint64) int {
		if id, ok := p.Clusters[round][index]; ok {
			return id
		}
		return 0
	}
}

// Save atomically writes the pack as indented JSON.
func (p *Pack) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("scribe: marshal pack: %w", err)
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("scribe: write pack: %w", err)
	}
	return nil
}

// Load reads a pack from disk and validates its scalar attributes against
// its own start state, action, sequence and policy tables. The cluster
// maps are not checked.
func Load(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scribe: open pack: %w", err)
	}
	defer f.Close()

	var p Pack
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("scribe: decode pack: %w", err)
	}
	if p.Version != packVersion {
		return nil, fmt.Errorf("scribe: unsupported pack version %d", p.Version)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// validate checks kPlayers/kActions against the pack's own contents, the
// "opening with mismatched attributes is an error" requirement.
func (p *Pack) validate() error {
	if p.KActions != len(p.Actions) {
		return fmt.Errorf("scribe: k_actions=%d but %d action records present", p.KActions, len(p.Actions))
	}
	if p.KPlayers != len(p.Start.Stacks) {
		return fmt.Errorf("scribe: k_players=%d but start_state has %d stacks", p.KPlayers, len(p.Start.Stacks))
	}
	for r := node.Round(0); int(r) < node.NumRounds; r++ {
		for _, row := range p.Sequences[r].Rows {
			if len(row) != p.KActions {
				return fmt.Errorf("scribe: round %s has a sequence row of width %d, want %d", r, len(row), p.KActions)
			}
		}
		pol := p.Policy[r]
		if pol.Sequences == 0 {
			continue
		}
		if pol.Actions != p.KActions {
			return fmt.Errorf("scribe: round %s policy has %d actions, want %d", r, pol.Actions, p.KActions)
		}
		if len(pol.Values) != pol.Clusters*pol.Sequences*pol.Actions {
			return fmt.Errorf("scribe: round %s policy values length %d doesn't match %dx%dx%d", r, len(pol.Values), pol.Clusters, pol.Sequences, pol.Actions)
		}
	}
	return nil
}
