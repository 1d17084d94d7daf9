package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boardroom/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func newTestThread(t *testing.T, s *store.Store, workspace string) *store.Thread {
	t.Helper()
	thread := &store.Thread{Workspace: workspace}
	require.NoError(t, s.CreateThread(thread))
	return thread
}

func TestIngestAttachmentIdempotent(t *testing.T) {
	s := newTestStore(t)
	ing := NewIngestor(s)
	thread := newTestThread(t, s, "ws")

	att := &store.Attachment{
		Filename:      "forecast.txt",
		ExtractedText: "sales forecast for the next quarter",
	}

	require.NoError(t, ing.IngestAttachment("ws", thread.ID, att))
	count, err := s.CountKnowledgeRecords("ws")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Re-ingesting byte-identical content must not create a duplicate.
	require.NoError(t, ing.IngestAttachment("ws", thread.ID, att))
	count, err = s.CountKnowledgeRecords("ws")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestAttachmentLinksSecondThread(t *testing.T) {
	s := newTestStore(t)
	ing := NewIngestor(s)
	first := newTestThread(t, s, "ws")
	second := newTestThread(t, s, "ws")

	att := &store.Attachment{Filename: "forecast.txt", ExtractedText: "shared content"}

	require.NoError(t, ing.IngestAttachment("ws", first.ID, att))
	require.NoError(t, ing.IngestAttachment("ws", second.ID, att))

	// Same record, two thread links.
	count, err := s.CountKnowledgeRecords("ws")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestAttachmentChangedContentCreatesNewRecord(t *testing.T) {
	s := newTestStore(t)
	ing := NewIngestor(s)
	thread := newTestThread(t, s, "ws")

	require.NoError(t, ing.IngestAttachment("ws", thread.ID, &store.Attachment{
		Filename:      "forecast.txt",
		ExtractedText: "version one",
	}))
	require.NoError(t, ing.IngestAttachment("ws", thread.ID, &store.Attachment{
		Filename:      "forecast.txt",
		ExtractedText: "version two",
	}))

	count, err := s.CountKnowledgeRecords("ws")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "changed content under the same locator is a new record")
}

func TestIngestAttachmentReadsFileWhenNoExtractedText(t *testing.T) {
	s := newTestStore(t)
	ing := NewIngestor(s)
	thread := newTestThread(t, s, "ws")

	path := filepath.Join(t.TempDir(), "deck.pdf")
	require.NoError(t, os.WriteFile(path, []byte("binary-ish content"), 0o644))

	require.NoError(t, ing.IngestAttachment("ws", thread.ID, &store.Attachment{
		Filename:    "deck.pdf",
		StoragePath: path,
	}))

	count, err := s.CountKnowledgeRecords("ws")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestAttachmentMissingFile(t *testing.T) {
	s := newTestStore(t)
	ing := NewIngestor(s)
	thread := newTestThread(t, s, "ws")

	err := ing.IngestAttachment("ws", thread.ID, &store.Attachment{
		Filename:    "gone.pdf",
		StoragePath: filepath.Join(t.TempDir(), "does-not-exist.pdf"),
	})
	assert.Error(t, err)
}

func TestStoreRetriever(t *testing.T) {
	s := newTestStore(t)
	ing := NewIngestor(s)
	thread := newTestThread(t, s, "ws")

	require.NoError(t, ing.IngestAttachment("ws", thread.ID, &store.Attachment{
		Filename:      "forecast.txt",
		ExtractedText: "sales forecast with aggressive growth targets",
	}))

	r := NewStoreRetriever(s)
	background, err := r.Retrieve(context.Background(), "ws", "growth forecast", 5)
	require.NoError(t, err)
	assert.Contains(t, background, "[forecast.txt]")
	assert.Contains(t, background, "aggressive growth targets")

	background, err = r.Retrieve(context.Background(), "ws", "nonexistent topic zzz", 5)
	require.NoError(t, err)
	assert.Empty(t, background)
}

func TestMaintenanceCache(t *testing.T) {
	cache := NewMaintenanceCache(time.Hour)
	now := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)

	assert.True(t, cache.ShouldRun("ws", now))
	assert.False(t, cache.ShouldRun("ws", now.Add(time.Minute)), "within the TTL window")
	assert.True(t, cache.ShouldRun("other", now), "workspaces are tracked independently")

	assert.True(t, cache.ShouldRun("ws", now.Add(2*time.Hour)), "due again after the TTL")

	cache.Invalidate("ws")
	assert.True(t, cache.ShouldRun("ws", now.Add(2*time.Hour+time.Minute)))
}

func TestMaintainPrunesOrphans(t *testing.T) {
	s := newTestStore(t)
	ing := NewIngestor(s)
	thread := newTestThread(t, s, "ws")

	require.NoError(t, ing.IngestAttachment("ws", thread.ID, &store.Attachment{
		Filename:      "forecast.txt",
		ExtractedText: "content",
	}))
	require.NoError(t, s.DeleteThread("ws", thread.ID))

	require.NoError(t, ing.Maintain("ws"))

	// Records survive maintenance; only dangling links are removed.
	count, err := s.CountKnowledgeRecords("ws")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
