package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medreport/internal/adapters/driven/config/file"
	"github.com/custodia-labs/medreport/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/medreport/internal/core/domain"
)

const visitNote = `Patient: John Doe
Age: 45
Gender: Male

Assessment: The patient was diagnosed with type 2 diabetes. Blood sugar remains elevated.
Follow-up in 2 weeks.`

func TestBootstrap_ProcessesDocumentEndToEnd(t *testing.T) {
	dir := t.TempDir()

	svc, err := bootstrap(dir)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	require.NotNil(t, svc.Reports)
	require.NotNil(t, svc.Context)
	require.NotNil(t, svc.Settings)
	assert.FileExists(t, filepath.Join(dir, "data", sqlite.DBFile))

	ctx := context.Background()
	report, err := svc.Reports.Process(ctx, domain.Upload{Filename: "visit.txt", Content: []byte(visitNote)})
	require.NoError(t, err)
	assert.NotEmpty(t, report.DocumentID)
	assert.Equal(t, "visit.txt", report.Filename)
	assert.Equal(t, domain.RetrievalOK, report.RetrievalStatus)

	stored, err := svc.Reports.Get(ctx, report.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, report.DocumentID, stored.DocumentID)

	hits, err := svc.Context.Search(ctx, "diabetes blood sugar", 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, report.DocumentID, hits[0].Record.DocumentID)
}

func TestBootstrap_MemoryBackend(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("vector_store.backend", "memory"))

	svc, err := bootstrap(dir)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	ctx := context.Background()
	report, err := svc.Reports.Process(ctx, domain.Upload{Filename: "visit.txt", Content: []byte(visitNote)})
	require.NoError(t, err)

	count, err := svc.Context.Stats(ctx)
	require.NoError(t, err)
	assert.Positive(t, count)

	_, err = svc.Reports.Get(ctx, report.DocumentID)
	require.NoError(t, err)
}

func TestBootstrap_MemoryBackendClosesIndex(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("vector_store.backend", "memory"))

	svc, err := bootstrap(dir)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Context.Stats(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Close())

	_, err = svc.Context.Stats(ctx)
	require.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

// unusableDataDir returns a data path below a regular file.
func unusableDataDir(t *testing.T, dir string) string {
	t.Helper()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))
	return filepath.Join(blocker, "data")
}

func TestBootstrap_UnusableDataDirStillProducesReports(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("vector_store.path", unusableDataDir(t, dir)))

	svc, err := bootstrap(dir)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()
	require.NotNil(t, svc.Reports)
	require.NotNil(t, svc.Context)

	ctx := context.Background()
	report, err := svc.Reports.Process(ctx, domain.Upload{Filename: "visit.txt", Content: []byte(visitNote)})
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalDisabled, report.RetrievalStatus)
	assert.NotNil(t, report.RetrievalProvenance)
	assert.Empty(t, report.RetrievalProvenance)
	assert.Contains(t, report.ConditionLabels(), "diabetes")

	_, err = svc.Reports.Get(ctx, report.DocumentID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	history, err := svc.Reports.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = svc.Context.Stats(ctx)
	require.ErrorIs(t, err, domain.ErrIndexUnavailable)
	require.NoError(t, svc.Context.Purge(ctx, report.DocumentID))
}

func TestBootstrap_UnusableDataDirWithMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("vector_store.path", unusableDataDir(t, dir)))
	require.NoError(t, store.Set("vector_store.backend", "memory"))

	svc, err := bootstrap(dir)
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	ctx := context.Background()
	report, err := svc.Reports.Process(ctx, domain.Upload{Filename: "visit.txt", Content: []byte(visitNote)})
	require.NoError(t, err)
	assert.Equal(t, domain.RetrievalOK, report.RetrievalStatus)

	count, err := svc.Context.Stats(ctx)
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestBootstrap_InvalidSettingsKeepSettingsEditable(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("batch.workers", 0))

	svc, err := bootstrap(dir)
	require.NoError(t, err)

	assert.Nil(t, svc.Reports)
	assert.Nil(t, svc.Context)
	require.NotNil(t, svc.Settings)
	require.NoError(t, svc.Settings.Set("batch.workers", "2"))
}

func TestBootstrap_BadKnowledgeTable(t *testing.T) {
	dir := t.TempDir()
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("knowledge.path", filepath.Join(dir, "missing.toml")))

	_, err = bootstrap(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading knowledge table")
}

func TestLoadKnowledge_Builtin(t *testing.T) {
	table, err := loadKnowledge("")

	require.NoError(t, err)
	assert.NotNil(t, table)
}
