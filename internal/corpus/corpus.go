// Package corpus discovers the ordered test corpus of a run.
// Discovery is deterministic so every worker can recompute the same corpus
// locally instead of receiving it from the orchestrator.
package corpus

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"yqhp/systest/pkg/types"
)

// PRExclusionMarker flags a test file as not run in pull-request builds
// when it appears in the first markerScanLines lines of the file.
const PRExclusionMarker = "systest:exclude-in-pr"

const markerScanLines = 20

// Discoverer produces the ordered test corpus.
type Discoverer interface {
	Discover(ctx context.Context) (types.Corpus, error)
}

// New returns a ManifestDiscoverer for YAML files and a DirDiscoverer otherwise.
func New(path, pattern string) Discoverer {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return &ManifestDiscoverer{Path: path}
	default:
		return &DirDiscoverer{Root: path, Pattern: pattern}
	}
}

// Manifest is a YAML-defined list of tests.
type Manifest struct {
	Version int             `yaml:"version"`
	Tests   []ManifestEntry `yaml:"tests"`
}

// ManifestEntry is a single test of a manifest.
type ManifestEntry struct {
	Name        string        `yaml:"name"`
	Path        string        `yaml:"path"`
	Args        []string      `yaml:"args,omitempty"`
	ExcludeInPR bool          `yaml:"exclude_in_pr,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// ManifestDiscoverer reads the corpus from a manifest, keeping file order.
// Relative test paths are resolved against the manifest directory.
type ManifestDiscoverer struct {
	Path string
}

// LoadManifest reads a YAML manifest from disk.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}
	return &m, nil
}

// Discover implements Discoverer.
func (d *ManifestDiscoverer) Discover(ctx context.Context) (types.Corpus, error) {
	m, err := LoadManifest(d.Path)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(d.Path)
	seen := make(map[string]int, len(m.Tests))
	corpus := make(types.Corpus, 0, len(m.Tests))
	for i, e := range m.Tests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(e.Path) == "" {
			return nil, fmt.Errorf("manifest entry %d: path is required", i)
		}
		path := e.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		name := e.Name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("manifest entry %d: duplicate test name %q (first at %d)", i, name, prev)
		}
		seen[name] = i

		corpus = append(corpus, types.TestCase{
			Name:        name,
			Path:        path,
			Args:        e.Args,
			ExcludeInPR: e.ExcludeInPR,
			Timeout:     e.Timeout,
			Position:    len(corpus),
		})
	}
	return corpus, nil
}

// DirDiscoverer finds test files under Root matching Pattern, sorted by
// their slash-separated path relative to Root.
type DirDiscoverer struct {
	Root    string
	Pattern string
}

// Discover implements Discoverer.
func (d *DirDiscoverer) Discover(ctx context.Context) (types.Corpus, error) {
	info, err := os.Stat(d.Root)
	if err != nil {
		return nil, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", d.Root)
	}
	pattern := d.Pattern
	if pattern == "" {
		pattern = "*"
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	var rels []string
	err = filepath.WalkDir(d.Root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			if path != d.Root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(pattern, entry.Name()); !ok {
			return nil
		}
		rel, err := filepath.Rel(d.Root, path)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}
	sort.Strings(rels)

	corpus := make(types.Corpus, 0, len(rels))
	for _, rel := range rels {
		path := filepath.Join(d.Root, filepath.FromSlash(rel))
		prExcluded, err := hasMarker(path)
		if err != nil {
			return nil, err
		}
		corpus = append(corpus, types.TestCase{
			Name:        testName(rel),
			Path:        path,
			ExcludeInPR: prExcluded,
			Position:    len(corpus),
		})
	}
	return corpus, nil
}

// testName strips the extension and turns directories into dots,
// so "sans/Reduction.py" becomes "sans.Reduction".
func testName(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(rel, "/", ".")
}

func hasMarker(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for n := 0; n < markerScanLines && scanner.Scan(); n++ {
		if strings.Contains(scanner.Text(), PRExclusionMarker) {
			return true, nil
		}
	}
	// 超长行只影响标记检测，不视为发现失败
	if err := scanner.Err(); err != nil && err != bufio.ErrTooLong {
		return false, err
	}
	return false, nil
}
