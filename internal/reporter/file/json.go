package file

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"yqhp/systest/pkg/types"
)

// JSONReporter writes one JSON document per worker.
type JSONReporter struct {
	config *Config

	mu          sync.Mutex
	doc         JSONDocument
	path        string
	initialized bool
	dirty       bool
}

// JSONDocument is the content of a worker's JSON report.
type JSONDocument struct {
	Suite   string             `json:"suite"`
	RunID   string             `json:"run_id"`
	Shard   types.ShardKey     `json:"shard"`
	Started string             `json:"started"`
	Tally   types.Tally        `json:"tally"`
	Slot    types.ResultSlot   `json:"slot"`
	Cases   []types.CaseResult `json:"cases"`
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(config *Config) *JSONReporter {
	if config == nil {
		config = DefaultConfig()
	}
	return &JSONReporter{config: config}
}

// NewJSONFromMap creates a JSON reporter from a config map.
func NewJSONFromMap(config map[string]any) (*JSONReporter, error) {
	return NewJSONReporter(ConfigFromMap(config)), nil
}

// Name returns the reporter name.
func (r *JSONReporter) Name() string {
	return "json"
}

// Path returns the artifact path, valid after Init.
func (r *JSONReporter) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Init initializes the reporter.
func (r *JSONReporter) Init(ctx context.Context, suite types.Suite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return fmt.Errorf("报告器已初始化")
	}
	r.path = r.config.Path(suite.Key.Index, "json")
	r.doc = JSONDocument{
		Suite:   suite.Name(),
		RunID:   suite.RunID,
		Shard:   suite.Key,
		Started: suite.Started.Format(time.RFC3339),
		Cases:   make([]types.CaseResult, 0),
	}
	r.initialized = true
	r.dirty = true
	return nil
}

// Report records one result.
func (r *JSONReporter) Report(ctx context.Context, result *types.CaseResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return fmt.Errorf("报告器未初始化")
	}
	r.doc.Tally.Add(result.Outcome)
	if r.config.visible(result) {
		r.doc.Cases = append(r.doc.Cases, *result)
	}
	r.dirty = true
	return nil
}

// Flush writes the document.
func (r *JSONReporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized || !r.dirty {
		return nil
	}
	r.doc.Slot = r.doc.Tally.Slot()
	data, err := sonic.ConfigStd.MarshalIndent(r.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化 JSON 失败: %w", err)
	}
	if err := writeFile(r.path, data); err != nil {
		return err
	}
	r.dirty = false
	return nil
}

// Close writes any pending data.
func (r *JSONReporter) Close(ctx context.Context) error {
	return r.Flush(ctx)
}
