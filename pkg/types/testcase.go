package types

import (
	"fmt"
	"strings"
	"time"
)

// TestCase is a single discoverable system test.
type TestCase struct {
	// Name identifies the test in reports and filters.
	Name string `yaml:"name" json:"name"`
	// Path is passed to the runner executable.
	Path string `yaml:"path" json:"path"`
	// Args are appended after Path.
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
	// ExcludeInPR marks tests that are not run in pull-request builds.
	ExcludeInPR bool `yaml:"exclude_in_pr,omitempty" json:"exclude_in_pr,omitempty"`
	// Timeout overrides the runner's per-test timeout when positive.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// Position is the index of the test in the corpus, set by discovery.
	Position int `yaml:"-" json:"position"`
}

// Corpus is the ordered, immutable sequence of tests of a run.
// Every worker recomputes it identically, it is never transmitted.
type Corpus []TestCase

// Names returns the test names in corpus order.
func (c Corpus) Names() []string {
	names := make([]string, len(c))
	for i, tc := range c {
		names[i] = tc.Name
	}
	return names
}

// ShardKey identifies one worker of a run.
type ShardKey struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

// Validate checks that 0 <= Index < Count.
func (k ShardKey) Validate() error {
	if k.Count < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", k.Count)
	}
	if k.Index < 0 || k.Index >= k.Count {
		return fmt.Errorf("worker index %d out of range [0, %d)", k.Index, k.Count)
	}
	return nil
}

func (k ShardKey) String() string {
	return fmt.Sprintf("%d/%d", k.Index, k.Count)
}

// Filters are the pure test filters passed unchanged to every worker.
type Filters struct {
	// Include keeps only tests whose name contains this substring.
	Include string `json:"include,omitempty"`
	// Exclude drops tests whose name contains this substring.
	Exclude string `json:"exclude,omitempty"`
	// ExcludeInPR skips tests marked as not run in pull-request builds.
	ExcludeInPR bool `json:"exclude_in_pr,omitempty"`
}

// Selected reports whether tc passes the name filters.
// An empty Include matches everything, an empty Exclude matches nothing.
func (f Filters) Selected(tc TestCase) bool {
	if f.Include != "" && !strings.Contains(tc.Name, f.Include) {
		return false
	}
	if f.Exclude != "" && strings.Contains(tc.Name, f.Exclude) {
		return false
	}
	return true
}

// PRExcluded reports whether tc must be skipped for a pull-request build.
func (f Filters) PRExcluded(tc TestCase) bool {
	return f.ExcludeInPR && tc.ExcludeInPR
}
