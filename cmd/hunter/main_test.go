package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ad-tracker/video-hunter-go/internal/config"
)

func TestRunThenInspectStore(t *testing.T) {
	env := setupCLI(t, roadTripFixture())

	stdout, stderr, err := runCLI(t, "run", "budget", "road", "trip", "--target", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Saved")
	assert.Contains(t, stderr, "searching")
	assert.Contains(t, stderr, "filtering_and_scoring (2)")
	assert.Contains(t, stderr, "2/2")
	assert.Equal(t, 1, env.api.calls["search"])
	assert.Equal(t, 1, env.api.calls["videos"])
	assert.Equal(t, 1, env.api.calls["channels"])

	stdout, _, err = runCLI(t, "count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", stdout)

	stdout, _, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "roadtrip001")
	assert.Contains(t, stdout, "12,000")
	assert.Contains(t, stdout, "United States")
	assert.NotContains(t, stdout, "quiet000002")

	stdout, _, err = runCLI(t, "quota", "--days", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "102 of 10,000 units used")
}

func TestRunKeepsPreviousResultsWithKeep(t *testing.T) {
	setupCLI(t, roadTripFixture())

	_, _, err := runCLI(t, "run", "road trip", "-n", "1")
	require.NoError(t, err)
	_, _, err = runCLI(t, "run", "road trip", "-n", "1", "--keep")
	require.NoError(t, err)

	stdout, _, err := runCLI(t, "count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", stdout, "re-running the same query upserts the same video")
}

func TestRunRejectsBadInput(t *testing.T) {
	setupCLI(t, roadTripFixture())

	_, _, err := runCLI(t, "run", "   ")
	assert.ErrorContains(t, err, "search query is required")

	_, _, err = runCLI(t, "run", "road trip", "--target", "0")
	assert.ErrorContains(t, err, "target count must be positive")

	_, _, err = runCLI(t, "run", "road trip", "--target", "5000")
	assert.ErrorContains(t, err, "exceeds maximum")
}

func TestRunRequiresAPIKey(t *testing.T) {
	env := setupCLI(t, roadTripFixture())
	t.Setenv("YOUTUBE_API_KEY", "")

	_, _, err := runCLI(t, "run", "road trip")
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	assert.Empty(t, env.api.calls)
}

func TestClearNeedsConfirmation(t *testing.T) {
	setupCLI(t, roadTripFixture())

	_, _, err := runCLI(t, "run", "road trip", "-n", "1")
	require.NoError(t, err)

	_, _, err = runCLI(t, "clear")
	assert.ErrorIs(t, err, errClearNotConfirmed)

	stdout, _, err := runCLI(t, "clear", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "Cleared 1 videos\n", stdout)

	stdout, _, err = runCLI(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "No videos stored\n", stdout)
}

func TestMigrateReportsSchemaVersion(t *testing.T) {
	setupCLI(t, roadTripFixture())

	stdout, _, err := runCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Schema at version 2 (dirty: false)")
}

func TestMetricsFileIsWritten(t *testing.T) {
	setupCLI(t, roadTripFixture())
	path := filepath.Join(t.TempDir(), "hunter.prom")

	_, _, err := runCLI(t, "run", "road trip", "-n", "1", "--metrics-file", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `hunter_candidates_total{disposition="saved"} 1`)
	assert.Contains(t, string(data), `hunter_runs_total{result="ok"} 1`)
}

func TestInvalidConfigFails(t *testing.T) {
	setupCLI(t, roadTripFixture())
	t.Setenv("HUNTER_FILTER_MINVIEWS", "90000")

	_, _, err := runCLI(t, "count")
	assert.ErrorContains(t, err, "exceeds filter.maxviews")
}
