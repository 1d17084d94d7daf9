// Package store provides SQLite-backed storage for threads, messages,
// attachments, and knowledge records. All operations are keyed by workspace
// for tenant isolation.
package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Thread status constants. A thread's last_status always reflects the most
// recent run outcome.
const (
	StatusDone    = "done"
	StatusRunning = "running"
	StatusError   = "error"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a record does not exist in the workspace.
	ErrNotFound = errors.New("record not found")
	// ErrRunInFlight is returned when a run lease is already held for a thread.
	ErrRunInFlight = errors.New("a run is already in flight for this thread")
)

// Thread is a conversation container holding one review dialogue.
type Thread struct {
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ID         string    `json:"id"`
	Workspace  string    `json:"workspace"`
	Title      string    `json:"title"`
	LastStatus string    `json:"last_status"`
	LeaseToken string    `json:"-"`
}

// Chip is the compact attachment summary persisted alongside a message.
type Chip struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Mime     string `json:"mime"`
	Size     int64  `json:"size"`
}

// Message is one utterance inside a thread. Chips are stored as serialized
// JSON text in the message row.
type Message struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Workspace string    `json:"workspace"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Chips     []Chip    `json:"chips,omitempty"`
	IsError   bool      `json:"is_error"`
}

// Attachment is a file bound to exactly one message and one thread.
type Attachment struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	ThreadID      string    `json:"thread_id"`
	MessageID     string    `json:"message_id"`
	Workspace     string    `json:"workspace"`
	Filename      string    `json:"filename"`
	Mime          string    `json:"mime"`
	Size          int64     `json:"size"`
	StoragePath   string    `json:"storage_path"`
	ExtractedText string    `json:"extracted_text,omitempty"`
}

// KnowledgeRecord is an ingested piece of background knowledge, deduplicated
// by (workspace, content hash, source locator).
type KnowledgeRecord struct {
	CreatedAt     time.Time `json:"created_at"`
	ID            string    `json:"id"`
	Workspace     string    `json:"workspace"`
	ContentHash   string    `json:"content_hash"`
	SourceLocator string    `json:"source_locator"`
	Title         string    `json:"title"`
	SearchText    string    `json:"search_text"`
}

// KnowledgeLink binds a knowledge record to a thread. Unique per pair.
type KnowledgeLink struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	Workspace string    `json:"workspace"`
	RecordID  string    `json:"record_id"`
	ThreadID  string    `json:"thread_id"`
}

// GenerateID returns a new UUID string for any store entity.
func GenerateID() string {
	return uuid.New().String()
}

// IsValidStatus checks whether a thread status value is valid.
func IsValidStatus(status string) bool {
	return status == StatusDone || status == StatusRunning || status == StatusError
}
