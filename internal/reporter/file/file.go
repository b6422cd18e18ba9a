// Package file provides the per-worker report artifacts.
//
// Each worker writes exactly one file named <prefix>-<index>.<ext> in the
// report directory, so concurrent workers never share an output file.
package file

import (
	"fmt"
	"os"
	"path/filepath"

	"yqhp/systest/pkg/types"
)

// Config holds configuration shared by the file reporters.
type Config struct {
	// Dir is the output directory.
	Dir string `yaml:"dir"`
	// Prefix is the file name prefix.
	Prefix string `yaml:"prefix"`
	// ShowSkipped lists skipped tests in the report.
	ShowSkipped bool `yaml:"show_skipped"`
}

// DefaultConfig returns the default file reporter configuration.
func DefaultConfig() *Config {
	return &Config{
		Dir:    ".",
		Prefix: "TEST-systemtests",
	}
}

// ConfigFromMap reads the reporter config map built by the worker.
func ConfigFromMap(config map[string]any) *Config {
	cfg := DefaultConfig()
	if config == nil {
		return cfg
	}
	if v, ok := config["dir"].(string); ok && v != "" {
		cfg.Dir = v
	}
	if v, ok := config["prefix"].(string); ok && v != "" {
		cfg.Prefix = v
	}
	if v, ok := config["show_skipped"].(bool); ok {
		cfg.ShowSkipped = v
	}
	return cfg
}

// Path returns the artifact path of worker index with extension ext.
func (c *Config) Path(index int, ext string) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s-%d.%s", c.Prefix, index, ext))
}

// visible reports whether a result is written to the artifact.
func (c *Config) visible(r *types.CaseResult) bool {
	return c.ShowSkipped || r.Outcome != types.OutcomeSkipped
}

// writeFile replaces path atomically with data.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("写入文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("写入文件失败: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
