package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iamez/slomix-sub001/internal/engine"
	"github.com/iamez/slomix-sub001/internal/store"
	"github.com/iamez/slomix-sub001/internal/testutil"
)

const testRunID = "run-cli"

// Participant ids from harness/testdata/fixtures/two_rounds.yaml.
const (
	alphaGUID   = "A1B2C3D4E5F60718293A4B5C6D7E8F90"
	bravoGUID   = "B2C3D4E5F60718293A4B5C6D7E8F90A1"
	charlieGUID = "C3D4E5F60718293A4B5C6D7E8F90A1B2"
)

// fixturePath returns the absolute path of the shared two-round fixture.
// Call it before isolate changes the working directory.
func fixturePath(t *testing.T) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "harness", "testdata", "fixtures", "two_rounds.yaml"))
	require.NoError(t, err)
	return path
}

// scenarioDir returns the absolute path of the harness scenario directory.
func scenarioDir(t *testing.T) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err)
	return path
}

// isolate moves the test into an empty working directory and clears every
// environment variable the config layer reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{
		"DATABASE_URL",
		"TIMINGSHADOW_DRIVER",
		"TIMINGSHADOW_DATABASE",
		"TIMINGSHADOW_DATABASE_URL",
		"TIMINGSHADOW_ARTIFACT_DIR",
		"TIMINGSHADOW_WRITE_ARTIFACTS",
		"TIMINGSHADOW_LOG_LEVEL",
		"TIMINGSHADOW_LOG_FORMAT",
		"TIMINGSHADOW_METRICS_ADDR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

// seededDB isolates the test and returns a SQLite database seeded with the
// two-round fixture.
func seededDB(t *testing.T) string {
	t.Helper()
	fixture := fixturePath(t)
	dir := isolate(t)

	f, err := store.LoadFixture(fixture)
	require.NoError(t, err)

	dbPath := filepath.Join(dir, "slomix.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Seed(context.Background(), f))

	return dbPath
}

// execute runs the root command with a fixed clock and run id.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	opts := &RootOptions{
		EngineOptions: []engine.Option{
			engine.WithClock(testutil.NewFixedClock(testutil.Epoch)),
			engine.WithRunIDGenerator(engine.NewFixedGenerator(testRunID)),
		},
	}
	cmd := newRootCommand(opts)

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	err = cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}
