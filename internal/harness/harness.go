package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/iamez/slomix-sub001/internal/engine"
	"github.com/iamez/slomix-sub001/internal/store"
	"github.com/iamez/slomix-sub001/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and run id.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Seed the scenario fixture
// 3. Break the telemetry table when fail_telemetry is set
// 4. Compare the requested rounds
// 5. Return result with pass/fail, session and errors
//
// An error is returned only when the scenario cannot be executed; failed
// assertions are reported on the Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	// Create fresh in-memory SQLite database
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.engine = engine.New(st,
		engine.WithClock(testutil.NewFixedClock(testutil.Epoch)),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runID)),
		engine.WithLogger(h.logger),
	)

	if err := h.seed(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed scenario: %w", err)
	}

	session, err := h.engine.Compare(ctx, scenario.RoundIDs, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compare rounds: %w", err)
	}

	result := NewResult()
	result.Session = session
	for _, errMsg := range EvaluateAssertions(session, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// seed writes the fixture and applies failure injection.
func (h *Harness) seed(ctx context.Context, scenario *Scenario) error {
	if scenario.Fixture != nil {
		if err := h.store.Seed(ctx, scenario.Fixture); err != nil {
			return err
		}
	}

	if scenario.FailTelemetry {
		if _, err := h.store.DB().ExecContext(ctx, "DROP TABLE lua_spawn_stats"); err != nil {
			return fmt.Errorf("drop telemetry table: %w", err)
		}
	}

	return nil
}

// RunFile loads and runs the scenario at path.
func RunFile(path string) (*Scenario, *Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := Run(scenario)
	if err != nil {
		return scenario, nil, err
	}
	return scenario, result, nil
}
