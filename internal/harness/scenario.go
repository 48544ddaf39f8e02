package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/iamez/slomix-sub001/internal/engine"
	"github.com/iamez/slomix-sub001/internal/store"
)

// DefaultRunID is stamped on scenario results that don't set run_id.
const DefaultRunID = "scenario-run"

// Scenario defines a timing shadow test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RoundIDs is passed to the engine as given (order and duplicates allowed).
	RoundIDs []int64 `yaml:"round_ids"`

	// Fixture is seeded into the scenario's private store.
	Fixture *store.Fixture `yaml:"fixture,omitempty"`

	// FixtureFile loads the fixture from a separate YAML file instead.
	// Relative paths are resolved against the scenario file's directory.
	FixtureFile string `yaml:"fixture_file,omitempty"`

	// FailTelemetry makes the telemetry query fail.
	FailTelemetry bool `yaml:"fail_telemetry,omitempty"`

	// RunID is an optional fixed run id; defaults to DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`

	// Assertions validate the comparison result.
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion validates part of a comparison result.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// RoundID selects the row (row) or diagnostics record (round).
	RoundID int64 `yaml:"round_id,omitempty"`

	// ParticipantID selects the row (row) or summary (summary).
	ParticipantID string `yaml:"participant_id,omitempty"`

	// Expect contains expected field values. Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`

	// Metric, N and Signed configure top_n.
	Metric string `yaml:"metric,omitempty"`
	N      int    `yaml:"n,omitempty"`
	Signed bool   `yaml:"signed,omitempty"`

	// Order is the expected participant order (used by top_n).
	Order []string `yaml:"order,omitempty"`

	// Count is the expected number of rows (used by row_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRow      = "row"
	AssertSummary  = "summary"
	AssertRound    = "round"
	AssertResult   = "result"
	AssertTopN     = "top_n"
	AssertRowCount = "row_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving fixture_file relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.FixtureFile != "" {
		if scenario.Fixture != nil {
			return nil, fmt.Errorf("invalid scenario: fixture and fixture_file are mutually exclusive")
		}
		fixturePath := scenario.FixtureFile
		if !filepath.IsAbs(fixturePath) && basePath != "" {
			fixturePath = filepath.Join(basePath, fixturePath)
		}
		fixture, err := store.LoadFixture(fixturePath)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario: %w", err)
		}
		scenario.Fixture = fixture
	} else if scenario.Fixture != nil {
		if err := scenario.Fixture.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scenario: fixture: %w", err)
		}
	}

	// Validate required fields
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// DiscoverScenarios returns the *.yaml and *.yml files directly under dir,
// sorted by name.
func DiscoverScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	paths := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	// Validate assertions
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRow:
		if a.RoundID <= 0 || a.ParticipantID == "" {
			return fmt.Errorf("assertions[%d]: round_id and participant_id are required for row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row", index)
		}
	case AssertSummary:
		if a.ParticipantID == "" {
			return fmt.Errorf("assertions[%d]: participant_id is required for summary", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for summary", index)
		}
	case AssertRound:
		if a.RoundID <= 0 {
			return fmt.Errorf("assertions[%d]: round_id is required for round", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for round", index)
		}
	case AssertResult:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for result", index)
		}
	case AssertTopN:
		if _, err := engine.ParseDiffMetric(a.Metric); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.N < 0 {
			return fmt.Errorf("assertions[%d]: n must be non-negative for top_n", index)
		}
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
