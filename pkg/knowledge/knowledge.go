// Package knowledge implements best-effort knowledge ingestion from
// attachments and retrieval-augmentation for review runs.
package knowledge

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"

	"boardroom/pkg/logx"
	"boardroom/pkg/store"
)

// Retriever is the external knowledge-retrieval collaborator. Callers treat
// it as best-effort: failures are swallowed and the context slice is omitted.
type Retriever interface {
	Retrieve(ctx context.Context, workspace, query string, topK int) (string, error)
}

// Ingestor ingests attachment content into the knowledge store.
type Ingestor struct {
	store  *store.Store
	logger *logx.Logger
}

// NewIngestor creates an ingestor over the given store.
func NewIngestor(s *store.Store) *Ingestor {
	return &Ingestor{
		store:  s,
		logger: logx.NewLogger("knowledge"),
	}
}

// IngestAttachment ingests one attachment. Idempotent: re-ingesting
// byte-identical content under the same source locator does not create a
// duplicate record. Returns an error for the caller to log and discard;
// ingestion must never abort a review run.
func (i *Ingestor) IngestAttachment(workspace, threadID string, att *store.Attachment) error {
	content := att.ExtractedText
	if content == "" {
		data, err := os.ReadFile(att.StoragePath)
		if err != nil {
			return fmt.Errorf("failed to read attachment content %s: %w", att.StoragePath, err)
		}
		content = string(data)
	}

	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
	locator := "attachment://" + att.Filename

	rec, err := i.store.FindKnowledgeRecord(workspace, hash, locator)
	if errors.Is(err, store.ErrNotFound) {
		rec = &store.KnowledgeRecord{
			Workspace:     workspace,
			ContentHash:   hash,
			SourceLocator: locator,
			Title:         att.Filename,
			SearchText:    searchBlob(att.Filename, content),
		}
		if err := i.store.CreateKnowledgeRecord(rec); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if _, err := i.store.LinkKnowledgeRecord(workspace, rec.ID, threadID); err != nil {
		return err
	}
	return nil
}

// searchBlob builds the search-index text for a record.
func searchBlob(filename, content string) string {
	const maxBlob = 4096
	blob := filename + "\n" + content
	if len(blob) > maxBlob {
		blob = blob[:maxBlob]
	}
	return strings.ToValidUTF8(blob, "")
}

// StoreRetriever is the built-in Retriever backed by the local knowledge
// store. An external retrieval service can be injected in its place.
type StoreRetriever struct {
	store *store.Store
}

// NewStoreRetriever creates a retriever over the local store.
func NewStoreRetriever(s *store.Store) *StoreRetriever {
	return &StoreRetriever{store: s}
}

// Retrieve implements Retriever.
func (r *StoreRetriever) Retrieve(_ context.Context, workspace, query string, topK int) (string, error) {
	records, err := r.store.SearchKnowledge(workspace, query, topK)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, rec := range records {
		text := rec.SearchText
		const perRecord = 600
		if len(text) > perRecord {
			text = text[:perRecord]
		}
		fmt.Fprintf(&sb, "[%s]\n%s\n", rec.Title, text)
	}
	return sb.String(), nil
}
