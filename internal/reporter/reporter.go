package reporter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"yqhp/systest/pkg/types"
)

// Reporter 定义了测试结果输出的接口。
type Reporter interface {
	// Name 返回报告器名称。
	Name() string

	// Init 在 worker 开始运行前初始化报告器。
	Init(ctx context.Context, suite types.Suite) error

	// Report 记录单个测试结果。
	Report(ctx context.Context, result *types.CaseResult) error

	// Flush 写出所有缓冲数据。
	Flush(ctx context.Context) error

	// Close 关闭报告器并释放资源。
	Close(ctx context.Context) error
}

// ReporterType 定义报告器类型。
type ReporterType string

const (
	// ReporterTypeConsole 输出到控制台。
	ReporterTypeConsole ReporterType = "console"
	// ReporterTypeJUnit 输出 JUnit XML 文件。
	ReporterTypeJUnit ReporterType = "junit"
	// ReporterTypeJSON 输出 JSON 文件。
	ReporterTypeJSON ReporterType = "json"
)

// ReporterConfig 保存报告器的配置。
type ReporterConfig struct {
	Type    ReporterType   `yaml:"type"`
	Enabled bool           `yaml:"enabled"`
	Config  map[string]any `yaml:"config,omitempty"`
}

// ReporterFactory 创建特定类型的报告器。
type ReporterFactory func(config map[string]any) (Reporter, error)

// Registry 管理报告器的注册和创建。
type Registry struct {
	factories map[ReporterType]ReporterFactory
	mu        sync.RWMutex
}

// NewRegistry 创建一个新的报告器注册表。
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[ReporterType]ReporterFactory),
	}
}

// Register 为指定类型注册报告器工厂。
func (r *Registry) Register(reporterType ReporterType, factory ReporterFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[reporterType]; exists {
		return fmt.Errorf("报告器类型已注册: %s", reporterType)
	}
	r.factories[reporterType] = factory
	return nil
}

// Create 创建指定类型的报告器。
func (r *Registry) Create(reporterType ReporterType, config map[string]any) (Reporter, error) {
	r.mu.RLock()
	factory, exists := r.factories[reporterType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("未知的报告器类型: %s", reporterType)
	}
	return factory(config)
}

// ListTypes 返回所有已注册的报告器类型，按名称排序。
func (r *Registry) ListTypes() []ReporterType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]ReporterType, 0, len(r.factories))
	for t := range r.factories {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// HasType 检查报告器类型是否已注册。
func (r *Registry) HasType(reporterType ReporterType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[reporterType]
	return exists
}
