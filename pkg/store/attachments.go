package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateAttachment inserts an attachment record.
func (s *Store) CreateAttachment(att *Attachment) error {
	if att.ID == "" {
		att.ID = GenerateID()
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO attachments (id, thread_id, message_id, workspace, filename, mime, size, storage_path, extracted_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		att.ID, att.ThreadID, att.MessageID, att.Workspace, att.Filename, att.Mime, att.Size, att.StoragePath, att.ExtractedText, att.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create attachment %s: %w", att.ID, err)
	}
	return nil
}

// GetAttachment fetches an attachment by id within a workspace.
func (s *Store) GetAttachment(workspace, id string) (*Attachment, error) {
	row := s.db.QueryRow(`
		SELECT id, thread_id, message_id, workspace, filename, mime, size, storage_path, extracted_text, created_at
		FROM attachments WHERE id = ? AND workspace = ?`, id, workspace)

	var att Attachment
	err := row.Scan(&att.ID, &att.ThreadID, &att.MessageID, &att.Workspace, &att.Filename, &att.Mime, &att.Size, &att.StoragePath, &att.ExtractedText, &att.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", id, err)
	}
	return &att, nil
}

// ListAttachmentsByMessage returns the attachments bound to a message.
func (s *Store) ListAttachmentsByMessage(workspace, messageID string) ([]*Attachment, error) {
	rows, err := s.db.Query(`
		SELECT id, thread_id, message_id, workspace, filename, mime, size, storage_path, extracted_text, created_at
		FROM attachments WHERE message_id = ? AND workspace = ?
		ORDER BY created_at ASC, id ASC`, messageID, workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments for message %s: %w", messageID, err)
	}
	defer rows.Close() //nolint:errcheck // Close in defer is safe

	var out []*Attachment
	for rows.Next() {
		var att Attachment
		if err := rows.Scan(&att.ID, &att.ThreadID, &att.MessageID, &att.Workspace, &att.Filename, &att.Mime, &att.Size, &att.StoragePath, &att.ExtractedText, &att.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		out = append(out, &att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("attachment row iteration failed: %w", err)
	}
	return out, nil
}
