package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// FindKnowledgeRecord looks up a record by its dedupe key. Returns
// ErrNotFound when no record exists.
func (s *Store) FindKnowledgeRecord(workspace, contentHash, sourceLocator string) (*KnowledgeRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, workspace, content_hash, source_locator, title, search_text, created_at
		FROM knowledge_records
		WHERE workspace = ? AND content_hash = ? AND source_locator = ?`,
		workspace, contentHash, sourceLocator)

	var rec KnowledgeRecord
	err := row.Scan(&rec.ID, &rec.Workspace, &rec.ContentHash, &rec.SourceLocator, &rec.Title, &rec.SearchText, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find knowledge record: %w", err)
	}
	return &rec, nil
}

// CreateKnowledgeRecord inserts a knowledge record.
func (s *Store) CreateKnowledgeRecord(rec *KnowledgeRecord) error {
	if rec.ID == "" {
		rec.ID = GenerateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO knowledge_records (id, workspace, content_hash, source_locator, title, search_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Workspace, rec.ContentHash, rec.SourceLocator, rec.Title, rec.SearchText, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create knowledge record %s: %w", rec.ID, err)
	}
	return nil
}

// LinkKnowledgeRecord binds a record to a thread. On a uniqueness conflict
// the existing link is fetched and returned instead of raising.
func (s *Store) LinkKnowledgeRecord(workspace, recordID, threadID string) (*KnowledgeLink, error) {
	link := &KnowledgeLink{
		ID:        GenerateID(),
		Workspace: workspace,
		RecordID:  recordID,
		ThreadID:  threadID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(`
		INSERT INTO knowledge_links (id, workspace, record_id, thread_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(record_id, thread_id) DO NOTHING`,
		link.ID, link.Workspace, link.RecordID, link.ThreadID, link.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to link knowledge record %s: %w", recordID, err)
	}

	row := s.db.QueryRow(`
		SELECT id, workspace, record_id, thread_id, created_at
		FROM knowledge_links WHERE record_id = ? AND thread_id = ?`,
		recordID, threadID)
	var existing KnowledgeLink
	if err := row.Scan(&existing.ID, &existing.Workspace, &existing.RecordID, &existing.ThreadID, &existing.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to fetch knowledge link for record %s: %w", recordID, err)
	}
	return &existing, nil
}

// SearchKnowledge returns up to topK records whose search text matches any of
// the query terms, most recent first.
func (s *Store) SearchKnowledge(workspace, query string, topK int) ([]*KnowledgeRecord, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || topK <= 0 {
		return nil, nil
	}

	clauses := make([]string, 0, len(terms))
	args := []any{workspace}
	for _, term := range terms {
		clauses = append(clauses, "LOWER(search_text) LIKE ?")
		args = append(args, "%"+term+"%")
	}
	args = append(args, topK)

	query = fmt.Sprintf(`
		SELECT id, workspace, content_hash, source_locator, title, search_text, created_at
		FROM knowledge_records
		WHERE workspace = ? AND (%s)
		ORDER BY created_at DESC LIMIT ?`, strings.Join(clauses, " OR "))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge records: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Close in defer is safe

	var out []*KnowledgeRecord
	for rows.Next() {
		var rec KnowledgeRecord
		if err := rows.Scan(&rec.ID, &rec.Workspace, &rec.ContentHash, &rec.SourceLocator, &rec.Title, &rec.SearchText, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge record: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge row iteration failed: %w", err)
	}
	return out, nil
}

// PruneOrphanKnowledgeLinks removes links whose thread no longer exists.
func (s *Store) PruneOrphanKnowledgeLinks(workspace string) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM knowledge_links
		WHERE workspace = ?
		AND thread_id NOT IN (SELECT id FROM threads WHERE workspace = ?)`,
		workspace, workspace)
	if err != nil {
		return 0, fmt.Errorf("failed to prune orphan knowledge links: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read prune result: %w", err)
	}
	return affected, nil
}

// CountKnowledgeRecords returns the number of knowledge records in a workspace.
func (s *Store) CountKnowledgeRecords(workspace string) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM knowledge_records WHERE workspace = ?", workspace,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count knowledge records: %w", err)
	}
	return count, nil
}
