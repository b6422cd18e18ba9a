package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"yqhp/systest/pkg/types"
)

// Manager fans test results out to the reporters of one worker.
type Manager struct {
	registry  *Registry
	reporters []Reporter
	mu        sync.RWMutex
	started   bool
}

// NewManager creates a new reporter manager.
func NewManager(registry *Registry) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		registry:  registry,
		reporters: make([]Reporter, 0),
	}
}

// AddReporter adds a reporter to the manager.
func (m *Manager) AddReporter(reporter Reporter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("管理器启动后无法添加报告器")
	}
	m.reporters = append(m.reporters, reporter)
	return nil
}

// AddReporterFromConfig creates and adds a reporter from configuration.
func (m *Manager) AddReporterFromConfig(config *ReporterConfig) error {
	if !config.Enabled {
		return nil
	}

	reporter, err := m.registry.Create(config.Type, config.Config)
	if err != nil {
		return fmt.Errorf("创建报告器 %s 失败: %w", config.Type, err)
	}
	return m.AddReporter(reporter)
}

// Start initializes every reporter for the given suite.
func (m *Manager) Start(ctx context.Context, suite types.Suite) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return fmt.Errorf("管理器已启动")
	}

	var errs []error
	for _, reporter := range m.reporters {
		if err := reporter.Init(ctx, suite); err != nil {
			errs = append(errs, fmt.Errorf("初始化报告器 %s 失败: %w", reporter.Name(), err))
		}
	}
	m.started = true
	return errors.Join(errs...)
}

// Report sends a result to all reporters.
func (m *Manager) Report(ctx context.Context, result *types.CaseResult) error {
	var errs []error
	for _, reporter := range m.snapshot() {
		if err := reporter.Report(ctx, result); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reporter.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Flush flushes all reporters.
func (m *Manager) Flush(ctx context.Context) error {
	var errs []error
	for _, reporter := range m.snapshot() {
		if err := reporter.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reporter.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes all reporters.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, reporter := range m.reporters {
		if err := reporter.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", reporter.Name(), err))
		}
	}

	m.reporters = nil
	m.started = false
	return errors.Join(errs...)
}

// GetReporterCount returns the number of registered reporters.
func (m *Manager) GetReporterCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reporters)
}

func (m *Manager) snapshot() []Reporter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reporters := make([]Reporter, len(m.reporters))
	copy(reporters, m.reporters)
	return reporters
}
