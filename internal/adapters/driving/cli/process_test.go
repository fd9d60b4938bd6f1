package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/core/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProcessCmd_Flags(t *testing.T) {
	for _, name := range []string{"json", "stdin", "name", "plain", "follow-up"} {
		assert.NotNil(t, processCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "stdin.txt", processCmd.Flags().Lookup("name").DefValue)
}

func TestProcessCmd_SingleFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	path := writeFile(t, t.TempDir(), "visit.txt", "John Doe, 45, diagnosed with diabetes.")

	out, err := execute("process", path)

	require.NoError(t, err)
	assert.Equal(t, []string{"visit.txt"}, ts.reports.Processed())
	assert.Contains(t, out, "MEDICAL REPORT SUMMARY")
	assert.Contains(t, out, "John Doe")
	assert.Contains(t, out, "[visit.txt] retrieving degraded: embedding timed out")
	assert.NotContains(t, out, "started")
}

func TestProcessCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	path := writeFile(t, t.TempDir(), "visit.txt", "notes")

	out, err := execute("process", "--json", path)

	require.NoError(t, err)
	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "doc-visit.txt", report.DocumentID)
	assert.Equal(t, domain.RetrievalOK, report.RetrievalStatus)
}

func TestProcessCmd_Stdin(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetIn(strings.NewReader("Patient reports chest pain."))

	out, err := execute("process", "--stdin", "--name", "notes.txt")

	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, ts.reports.Processed())
	assert.Contains(t, out, "notes.txt")
}

func TestProcessCmd_StdinRejectsFiles(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("process", "--stdin", "a.txt")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProcessCmd_NoFiles(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("process")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "no files given")
}

func TestProcessCmd_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("process", filepath.Join(t.TempDir(), "absent.txt"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading")
}

func TestProcessCmd_Failure(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.reports.failFor["empty.txt"] = domain.ErrValidation

	path := writeFile(t, t.TempDir(), "empty.txt", "")

	_, err := execute("process", path)

	require.ErrorIs(t, err, domain.ErrValidation)
	stage, ok := domain.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.StageValidating, stage)
}

func TestProcessCmd_Batch(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.reports.failFor["broken.txt"] = domain.ErrValidation

	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "one")
	b := writeFile(t, dir, "broken.txt", "")
	c := writeFile(t, dir, "c.txt", "three")

	out, err := execute("process", a, b, c)

	require.Error(t, err)
	assert.Equal(t, "1 of 3 documents failed", err.Error())
	assert.Equal(t, []string{"a.txt", "broken.txt", "c.txt"}, ts.reports.Processed())
	assert.Contains(t, out, "broken.txt: FAILED")
	assert.Equal(t, 2, strings.Count(out, "MEDICAL REPORT SUMMARY"))
}

func TestProcessCmd_BatchJSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.reports.failFor["broken.txt"] = domain.ErrValidation

	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "one")
	b := writeFile(t, dir, "broken.txt", "")

	out, err := execute("process", "--json", a, b)

	require.Error(t, err)
	idx := strings.Index(out, "[")
	require.GreaterOrEqual(t, idx, 0)
	var entries []batchEntry
	require.NoError(t, json.NewDecoder(strings.NewReader(out[idx:])).Decode(&entries))
	require.Len(t, entries, 2)
	assert.NotNil(t, entries[0].Report)
	assert.Empty(t, entries[0].Error)
	assert.Nil(t, entries[1].Report)
	assert.Contains(t, entries[1].Error, "validation failed")
}

func TestProcessCmd_FollowUp(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	path := writeFile(t, t.TempDir(), "visit.txt", "notes")

	out, err := execute("process", "--json", "--follow-up", "2025-06-01", path)

	require.NoError(t, err)
	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.NotNil(t, report.FollowUpDate)
	assert.Equal(t, "2025-06-01", report.FollowUpDate.Format(domain.DateLayout))
	assert.Equal(t, domain.FollowUpUserCue, report.FollowUpCue)
}

func TestProcessCmd_FollowUpBatchRendered(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "one")
	b := writeFile(t, dir, "b.txt", "two")

	out, err := execute("process", "--follow-up", "2025-06-01", a, b)

	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "2025-06-01 (user supplied)"))
}

func TestProcessCmd_FollowUpInvalid(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	path := writeFile(t, t.TempDir(), "visit.txt", "notes")

	for _, date := range []string{"06/01/2025", "2025-02-30", "soon"} {
		_, err := execute("process", "--follow-up", date, path)
		require.ErrorIs(t, err, domain.ErrInvalidInput, date)
	}
	assert.Empty(t, ts.reports.Processed())
}

func TestProcessCmd_ServiceNotConfigured(t *testing.T) {
	SetServices(nil)
	defer resetFlags()

	_, err := execute("process", "a.txt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "report service not configured")
}

func TestInteractive_FalseForBuffers(t *testing.T) {
	defer resetFlags()
	_, _ = execute("version")

	assert.False(t, interactive(rootCmd))

	processPlain = true
	assert.False(t, interactive(rootCmd))
}
