package file

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"sync"
	"time"

	"yqhp/systest/pkg/types"
)

// JUnitReporter writes one JUnit XML document per worker.
type JUnitReporter struct {
	config *Config

	mu          sync.Mutex
	suite       types.Suite
	path        string
	results     []types.CaseResult
	tally       types.Tally
	initialized bool
	dirty       bool
}

type junitSuites struct {
	XMLName xml.Name     `xml:"testsuites"`
	Suites  []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       string          `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Hostname   string          `xml:"hostname,attr,omitempty"`
	Properties []junitProperty `xml:"properties>property"`
	Cases      []junitCase     `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitMessage `xml:"failure,omitempty"`
	Error     *junitMessage `xml:"error,omitempty"`
	Skipped   *junitMessage `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitMessage struct {
	Message string `xml:"message,attr,omitempty"`
	Body    string `xml:",chardata"`
}

// NewJUnitReporter creates a new JUnit reporter.
func NewJUnitReporter(config *Config) *JUnitReporter {
	if config == nil {
		config = DefaultConfig()
	}
	return &JUnitReporter{config: config}
}

// NewJUnitFromMap creates a JUnit reporter from a config map.
func NewJUnitFromMap(config map[string]any) (*JUnitReporter, error) {
	return NewJUnitReporter(ConfigFromMap(config)), nil
}

// Name returns the reporter name.
func (r *JUnitReporter) Name() string {
	return "junit"
}

// Path returns the artifact path, valid after Init.
func (r *JUnitReporter) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Init initializes the reporter.
func (r *JUnitReporter) Init(ctx context.Context, suite types.Suite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return fmt.Errorf("报告器已初始化")
	}
	r.suite = suite
	r.path = r.config.Path(suite.Key.Index, "xml")
	r.initialized = true
	r.dirty = true
	return nil
}

// Report records one result.
func (r *JUnitReporter) Report(ctx context.Context, result *types.CaseResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized {
		return fmt.Errorf("报告器未初始化")
	}
	r.tally.Add(result.Outcome)
	if r.config.visible(result) {
		r.results = append(r.results, *result)
	}
	r.dirty = true
	return nil
}

// Flush writes the document.
func (r *JUnitReporter) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.initialized || !r.dirty {
		return nil
	}
	data, err := r.render()
	if err != nil {
		return err
	}
	if err := writeFile(r.path, data); err != nil {
		return err
	}
	r.dirty = false
	return nil
}

// Close writes any pending data.
func (r *JUnitReporter) Close(ctx context.Context) error {
	return r.Flush(ctx)
}

func (r *JUnitReporter) render() ([]byte, error) {
	var elapsed time.Duration
	cases := make([]junitCase, 0, len(r.results))
	for _, res := range r.results {
		elapsed += res.Duration
		c := junitCase{
			ClassName: "systemtests",
			Name:      res.Name,
			Time:      seconds(res.Duration),
		}
		switch res.Outcome {
		case types.OutcomeFailed:
			c.Failure = &junitMessage{Message: res.Message, Body: res.Output}
		case types.OutcomeCrashed:
			c.Error = &junitMessage{Message: res.Message, Body: res.Output}
		case types.OutcomeSkipped:
			c.Skipped = &junitMessage{Message: res.Message}
		default:
			c.SystemOut = res.Output
		}
		cases = append(cases, c)
	}

	hostname, _ := os.Hostname()
	doc := junitSuites{Suites: []junitSuite{{
		Name:      r.suite.Name(),
		Tests:     r.tally.Total(),
		Failures:  r.tally.Failed,
		Errors:    r.tally.Crashed,
		Skipped:   r.tally.Skipped,
		Time:      seconds(elapsed),
		Timestamp: r.suite.Started.Format(time.RFC3339),
		Hostname:  hostname,
		Properties: []junitProperty{
			{Name: "run_id", Value: r.suite.RunID},
			{Name: "shard", Value: r.suite.Key.String()},
		},
		Cases: cases,
	}}}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("序列化 XML 失败: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
