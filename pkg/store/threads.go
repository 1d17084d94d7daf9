package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateThread inserts a new thread. ID and timestamps are filled when empty.
func (s *Store) CreateThread(thread *Thread) error {
	if thread.ID == "" {
		thread.ID = GenerateID()
	}
	now := time.Now().UTC()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	thread.UpdatedAt = now
	if thread.LastStatus == "" {
		thread.LastStatus = StatusDone
	}

	_, err := s.db.Exec(`
		INSERT INTO threads (id, workspace, title, last_status, lease_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', ?, ?)`,
		thread.ID, thread.Workspace, thread.Title, thread.LastStatus, thread.CreatedAt, thread.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create thread %s: %w", thread.ID, err)
	}
	return nil
}

// GetThread fetches a thread by id within a workspace.
func (s *Store) GetThread(workspace, id string) (*Thread, error) {
	row := s.db.QueryRow(`
		SELECT id, workspace, title, last_status, lease_token, created_at, updated_at
		FROM threads WHERE id = ? AND workspace = ?`, id, workspace)

	var t Thread
	err := row.Scan(&t.ID, &t.Workspace, &t.Title, &t.LastStatus, &t.LeaseToken, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", id, err)
	}
	return &t, nil
}

// UpdateThreadTitle sets a thread's title.
func (s *Store) UpdateThreadTitle(workspace, id, title string) error {
	res, err := s.db.Exec(`
		UPDATE threads SET title = ?, updated_at = ? WHERE id = ? AND workspace = ?`,
		title, time.Now().UTC(), id, workspace,
	)
	if err != nil {
		return fmt.Errorf("failed to update thread title %s: %w", id, err)
	}
	return requireRow(res, id)
}

// AcquireRunLease transitions a thread to running and records an exclusive
// lease token. It fails with ErrRunInFlight when another run already holds
// the lease, preventing interleaved message writes from concurrent runs.
func (s *Store) AcquireRunLease(workspace, id, token string) error {
	res, err := s.db.Exec(`
		UPDATE threads SET last_status = ?, lease_token = ?, updated_at = ?
		WHERE id = ? AND workspace = ? AND lease_token = ''`,
		StatusRunning, token, time.Now().UTC(), id, workspace,
	)
	if err != nil {
		return fmt.Errorf("failed to acquire run lease for thread %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read lease result for thread %s: %w", id, err)
	}
	if affected == 0 {
		if _, getErr := s.GetThread(workspace, id); getErr != nil {
			return getErr
		}
		return ErrRunInFlight
	}
	return nil
}

// ReleaseRunLease clears the lease and records the run's final status. The
// token must match the one that acquired the lease.
func (s *Store) ReleaseRunLease(workspace, id, token, status string) error {
	if !IsValidStatus(status) {
		return fmt.Errorf("invalid thread status %q", status)
	}
	res, err := s.db.Exec(`
		UPDATE threads SET last_status = ?, lease_token = '', updated_at = ?
		WHERE id = ? AND workspace = ? AND lease_token = ?`,
		status, time.Now().UTC(), id, workspace, token,
	)
	if err != nil {
		return fmt.Errorf("failed to release run lease for thread %s: %w", id, err)
	}
	return requireRow(res, id)
}

// DeleteThread removes a thread with its messages and attachment rows.
// Knowledge links pointing at the thread are left for maintenance to prune.
func (s *Store) DeleteThread(workspace, id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin thread deletion for %s: %w", id, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	if _, err := tx.Exec(`DELETE FROM attachments WHERE thread_id = ? AND workspace = ?`, id, workspace); err != nil {
		return fmt.Errorf("failed to delete attachments for thread %s: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE thread_id = ? AND workspace = ?`, id, workspace); err != nil {
		return fmt.Errorf("failed to delete messages for thread %s: %w", id, err)
	}
	res, err := tx.Exec(`DELETE FROM threads WHERE id = ? AND workspace = ?`, id, workspace)
	if err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", id, err)
	}
	if err := requireRow(res, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit thread deletion for %s: %w", id, err)
	}
	return nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
