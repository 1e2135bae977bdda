package cluster

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	chd "github.com/opencoff/go-chd"
)

// Table is a materialized, read-only (hand index -> cluster id) map for one
// round, backed by a minimal perfect hash. It is the concrete form of the
// "materialized cluster table" Matchmaker.LookupFunc reads from; building
// the cluster assignments themselves (the equity/isomorphism clustering
// pipeline) is not this package's concern.
type Table struct {
	hash     *chd.CHD
	clusters []int32
}

// BuildTable freezes assignments (hand index -> cluster id) into a perfect
// hash. Every key must be unique; duplicate keys are an error.
func BuildTable(assignments map[uint64]int) (*Table, error) {
	if len(assignments) == 0 {
		return nil, fmt.Errorf("cluster: no assignments to build a table from")
	}

	keys := make([][]byte, 0, len(assignments))
	order := make([]uint64, 0, len(assignments))
	for idx := range assignments {
		order = append(order, idx)
	}
	// Deterministic key order so rebuilding from the same map is reproducible.
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	for _, idx := range order {
		keys = append(keys, encodeKey(idx))
	}

	b := chd.NewBuilder()
	for _, k := range keys {
		b.Add(k)
	}
	h, err := b.Freeze(0)
	if err != nil {
		return nil, fmt.Errorf("cluster: freeze perfect hash: %w", err)
	}

	clusters := make([]int32, len(order))
	for _, idx := range order {
		slot := h.Find(encodeKey(idx))
		if int(slot) >= len(clusters) {
			return nil, fmt.Errorf("cluster: hash slot %d out of range (%d keys)", slot, len(clusters))
		}
		clusters[slot] = int32(assignments[idx])
	}

	return &Table{hash: h, clusters: clusters}, nil
}

// Lookup returns the cluster id for index, or ok=false if index was never
// one of the keys the table was built from.
func (t *Table) Lookup(index uint64) (int, bool) {
	slot := t.hash.Find(encodeKey(index))
	if int(slot) < 0 || int(slot) >= len(t.clusters) {
		return 0, false
	}
	return int(t.clusters[slot]), true
}

// Func wraps Lookup as a single-argument index -> cluster function,
// discarding Lookup's ok flag, for callers that keep one Table per round.
// It takes no round argument, so it is not itself a LookupFunc.
func (t *Table) Func() func(index uint64) int {
	return func(index uint64) int {
		c, _ := t.Lookup(index)
		return c
	}
}

// MarshalBinary serializes the perfect hash and the cluster array so a
// Table can be rebuilt without replaying BuildTable.
func (t *Table) MarshalBinary() ([]byte, error) {
	hashBytes, err := t.hash.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("cluster: marshal perfect hash: %w", err)
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(hashBytes))); err != nil {
		return nil, err
	}
	buf.Write(hashBytes)
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(t.clusters))); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, t.clusters); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalTable rebuilds a Table from bytes written by MarshalBinary.
func UnmarshalTable(data []byte) (*Table, error) {
	r := bytes.NewReader(data)

	var hashLen uint32
	if err := binary.Read(r, binary.LittleEndian, &hashLen); err != nil {
		return nil, fmt.Errorf("cluster: read hash length: %w", err)
	}
	hashBytes := make([]byte, hashLen)
	if _, err := io.ReadFull(r, hashBytes); err != nil {
		return nil, fmt.Errorf("cluster: read hash bytes: %w", err)
	}
	h, err := chd.Read(bytes.NewReader(hashBytes))
	if err != nil {
		return nil, fmt.Errorf("cluster: decode perfect hash: %w", err)
	}

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("cluster: read cluster count: %w", err)
	}
	clusters := make([]int32, n)
	if err := binary.Read(r, binary.LittleEndian, &clusters); err != nil {
		return nil, fmt.Errorf("cluster: read clusters: %w", err)
	}

	return &Table{hash: h, clusters: clusters}, nil
}

func encodeKey(idx uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], idx)
	return b[:]
}
