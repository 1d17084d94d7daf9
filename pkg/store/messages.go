package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// CreateMessage inserts a message. Chips are serialized to JSON text in the
// message row.
func (s *Store) CreateMessage(msg *Message) error {
	if msg.ID == "" {
		msg.ID = GenerateID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	chips := msg.Chips
	if chips == nil {
		chips = []Chip{}
	}
	chipsJSON, err := json.Marshal(chips)
	if err != nil {
		return fmt.Errorf("failed to serialize chips for message %s: %w", msg.ID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO messages (id, thread_id, workspace, role, content, chips, is_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ThreadID, msg.Workspace, msg.Role, msg.Content, string(chipsJSON), msg.IsError, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message %s: %w", msg.ID, err)
	}
	return nil
}

// ListMessages returns all messages in a thread in creation order.
func (s *Store) ListMessages(workspace, threadID string) ([]*Message, error) {
	rows, err := s.db.Query(`
		SELECT id, thread_id, workspace, role, content, chips, is_error, created_at
		FROM messages WHERE thread_id = ? AND workspace = ?
		ORDER BY created_at ASC, id ASC`, threadID, workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for thread %s: %w", threadID, err)
	}
	defer rows.Close() //nolint:errcheck // Close in defer is safe

	var messages []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message row iteration failed: %w", err)
	}
	return messages, nil
}

// LastMessages returns up to n most recent messages, oldest first.
func (s *Store) LastMessages(workspace, threadID string, n int) ([]*Message, error) {
	rows, err := s.db.Query(`
		SELECT id, thread_id, workspace, role, content, chips, is_error, created_at
		FROM (
			SELECT * FROM messages WHERE thread_id = ? AND workspace = ?
			ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at ASC, id ASC`, threadID, workspace, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query last messages for thread %s: %w", threadID, err)
	}
	defer rows.Close() //nolint:errcheck // Close in defer is safe

	var messages []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("message row iteration failed: %w", err)
	}
	return messages, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*Message, error) {
	var msg Message
	var chipsJSON string
	if err := row.Scan(&msg.ID, &msg.ThreadID, &msg.Workspace, &msg.Role, &msg.Content, &chipsJSON, &msg.IsError, &msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan message row: %w", err)
	}
	if err := json.Unmarshal([]byte(chipsJSON), &msg.Chips); err != nil {
		return nil, fmt.Errorf("failed to parse chips for message %s: %w", msg.ID, err)
	}
	return &msg, nil
}
