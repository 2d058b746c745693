package telemetry

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/teamplay/go/internal/models"
)

func ptr[T any](v T) *T {
	return &v
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVRepositorySave(t *testing.T) {
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC))
	repo, err := NewCSVRepository(dir, clock)
	require.NoError(t, err)

	ts := time.Date(2024, 3, 9, 14, 30, 1, 500, time.UTC)
	require.NoError(t, repo.Save(context.Background(), models.TelemetryEvent{
		User:       "P01",
		Action:     "click",
		Text:       ptr("hello, world"),
		Timestamp:  ts,
		X:          ptr(12.5),
		Y:          ptr(3.0),
		Resolution: ptr("AP"),
	}))
	require.NoError(t, repo.Save(context.Background(), models.TelemetryEvent{
		User:      "P01",
		Action:    "hover",
		Timestamp: ts,
	}))

	path := filepath.Join(dir, "telemetry_data_P01_2024-03-09.csv")
	assert.Equal(t, path, repo.FilePath("P01"))

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"P01", "", "click", "hello, world", "2024-03-09T14:30:01.0000005Z", "12.5", "3", "AP"}, records[1])
	assert.Equal(t, []string{"P01", "", "hover", "", "2024-03-09T14:30:01.0000005Z", "", "", ""}, records[2])
}

func TestCSVRepositoryFilesConfederateMessagesUnderConfederate(t *testing.T) {
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	repo, err := NewCSVRepository(dir, clock)
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), models.TelemetryEvent{
		User:        "P01",
		Confederate: ptr("Alex"),
		Action:      models.ActionConfederateMessage,
		Text:        ptr("hi"),
	}))

	records := readCSV(t, filepath.Join(dir, "telemetry_data_Alex_2024-03-09.csv"))
	require.Len(t, records, 2)
	assert.Equal(t, "P01", records[1][0])
	assert.Equal(t, "Alex", records[1][1])

	_, err = os.Stat(filepath.Join(dir, "telemetry_data_P01_2024-03-09.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestCSVRepositoryNewFilePerDay(t *testing.T) {
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC))
	repo, err := NewCSVRepository(dir, clock)
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), models.TelemetryEvent{User: "P01", Action: "a"}))
	clock.Advance(2 * time.Minute)
	require.NoError(t, repo.Save(context.Background(), models.TelemetryEvent{User: "P01", Action: "b"}))

	assert.Len(t, readCSV(t, filepath.Join(dir, "telemetry_data_P01_2024-03-09.csv")), 2)
	assert.Len(t, readCSV(t, filepath.Join(dir, "telemetry_data_P01_2024-03-10.csv")), 2)
}

func TestSafeFileComponent(t *testing.T) {
	tests := map[string]string{
		"P01":           "P01",
		"":              "Unknown",
		"  ":            "Unknown",
		"../etc/passwd": "__etc_passwd",
		`a\b:c`:         "a_b_c",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeFileComponent(in), in)
	}
}
