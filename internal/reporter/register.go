package reporter

import (
	"yqhp/systest/internal/reporter/console"
	"yqhp/systest/internal/reporter/file"
)

// RegisterBuiltinReporters registers all built-in reporters with the registry.
func RegisterBuiltinReporters(registry *Registry) error {
	if err := registry.Register(ReporterTypeConsole, func(config map[string]any) (Reporter, error) {
		return console.NewFromMap(config), nil
	}); err != nil {
		return err
	}

	if err := registry.Register(ReporterTypeJUnit, func(config map[string]any) (Reporter, error) {
		return file.NewJUnitFromMap(config)
	}); err != nil {
		return err
	}

	return registry.Register(ReporterTypeJSON, func(config map[string]any) (Reporter, error) {
		return file.NewJSONFromMap(config)
	})
}

// NewDefaultRegistry creates a new registry with all built-in reporters registered.
func NewDefaultRegistry() (*Registry, error) {
	registry := NewRegistry()
	if err := RegisterBuiltinReporters(registry); err != nil {
		return nil, err
	}
	return registry, nil
}
