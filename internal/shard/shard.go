// Package shard maps test positions to workers.
//
// A Strategy is a pure function of the test position, the corpus size and the
// worker count, so re-running with the same worker count reproduces the same
// partition. Every strategy yields disjoint shards whose union is the corpus.
package shard

import (
	"fmt"

	"github.com/duke-git/lancet/v2/slice"

	"yqhp/systest/pkg/types"
)

// Strategy decides which worker owns a test.
type Strategy interface {
	// Name returns the configuration name of the strategy.
	Name() string
	// Owner returns the worker index in [0, count) owning position.
	Owner(position, total, count int) int
}

// Modulo assigns position p to worker p mod count. It is the default.
type Modulo struct{}

// Name implements Strategy.
func (Modulo) Name() string { return "modulo" }

// Owner implements Strategy.
func (Modulo) Owner(position, _, count int) int {
	return position % count
}

// Block assigns contiguous runs of tests. The first total%count workers
// receive one extra test, so shard sizes differ by at most one.
type Block struct{}

// Name implements Strategy.
func (Block) Name() string { return "block" }

// Owner implements Strategy.
func (Block) Owner(position, total, count int) int {
	size := total / count
	extra := total % count
	boundary := extra * (size + 1)
	if position < boundary {
		return position / (size + 1)
	}
	return extra + (position-boundary)/size
}

// ByName returns the strategy registered under name.
func ByName(name string) (Strategy, error) {
	switch name {
	case "", "modulo":
		return Modulo{}, nil
	case "block":
		return Block{}, nil
	default:
		return nil, fmt.Errorf("unknown shard strategy: %s", name)
	}
}

// Assign returns the subsequence of corpus owned by key, in corpus order.
func Assign(corpus types.Corpus, key types.ShardKey, strategy Strategy) ([]types.TestCase, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		strategy = Modulo{}
	}
	total := len(corpus)
	return slice.Filter(corpus, func(index int, _ types.TestCase) bool {
		return strategy.Owner(index, total, key.Count) == key.Index
	}), nil
}

// Partition computes every shard at once. It is used for listing and tests;
// workers call Assign for their own key only.
func Partition(corpus types.Corpus, count int, strategy Strategy) ([][]types.TestCase, error) {
	if count < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", count)
	}
	if strategy == nil {
		strategy = Modulo{}
	}
	shards := make([][]types.TestCase, count)
	for i := range shards {
		shards[i] = make([]types.TestCase, 0)
	}
	for i, tc := range corpus {
		owner := strategy.Owner(i, len(corpus), count)
		shards[owner] = append(shards[owner], tc)
	}
	return shards, nil
}

// ApplyFilters splits a shard into the tests to run and the tests removed by the
// name filters. Tests excluded from pull-request builds stay in run; the
// worker reports them as skipped.
func ApplyFilters(shard []types.TestCase, filters types.Filters) (run, filtered []types.TestCase) {
	run = slice.Filter(shard, func(_ int, tc types.TestCase) bool {
		return filters.Selected(tc)
	})
	filtered = slice.Filter(shard, func(_ int, tc types.TestCase) bool {
		return !filters.Selected(tc)
	})
	return run, filtered
}
