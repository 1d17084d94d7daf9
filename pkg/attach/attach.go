// Package attach implements attachment acceptance, sanitization, and
// best-effort text extraction.
package attach

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxExtractChars is the hard ceiling on extracted text length.
const MaxExtractChars = 20000

// ErrDisallowedExtension is returned when an upload's extension is not in the
// allow-list. Callers must reject the upload before persisting any bytes.
var ErrDisallowedExtension = errors.New("attachment extension is not allowed")

// allowedExtensions is the explicit allow-list: document, spreadsheet, text,
// image, and JSON/markdown types. Everything else is rejected.
//
//nolint:gochecknoglobals // Static allow-list, read-only.
var allowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true, ".csv": true,
	".txt": true, ".md": true, ".json": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// textLikeExtensions marks extensions whose content is extracted as text.
//
//nolint:gochecknoglobals // Static classification table, read-only.
var textLikeExtensions = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".csv": true,
}

// Incoming is an attachment as received from the client.
type Incoming struct {
	Filename string
	Mime     string
	Data     []byte
}

// Processed is an accepted attachment ready for persistence.
type Processed struct {
	SafeName      string
	Mime          string
	Size          int64
	StoragePath   string
	ExtractedText string
}

// SanitizeFilename reduces a filename to a safe character set, dropping any
// path components.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	out := strings.Trim(sb.String(), "._")
	if out == "" {
		out = "attachment"
	}
	return out
}

// Allowed reports whether the filename's extension is in the allow-list.
func Allowed(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// TextLike reports whether an attachment's content should be extracted as text.
func TextLike(filename, mime string) bool {
	if textLikeExtensions[strings.ToLower(filepath.Ext(filename))] {
		return true
	}
	return strings.HasPrefix(mime, "text/") || mime == "application/json"
}

// ExtractText sanitizes and caps text content: null bytes dropped, line
// endings normalized, length bounded by MaxExtractChars.
func ExtractText(data []byte) string {
	text := string(data)
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if len(text) > MaxExtractChars {
		text = text[:MaxExtractChars]
	}
	return text
}

// Process validates, stores, and extracts an incoming attachment. The
// extension check runs before any bytes are written; extraction is
// best-effort and absence of extracted text is a valid state.
func Process(baseDir, threadID string, in Incoming) (*Processed, error) {
	safeName := SanitizeFilename(in.Filename)
	if !Allowed(safeName) {
		return nil, fmt.Errorf("%w: %s", ErrDisallowedExtension, filepath.Ext(safeName))
	}

	storagePath, err := saveFile(baseDir, threadID, safeName, in.Data)
	if err != nil {
		return nil, err
	}

	var extracted string
	if TextLike(safeName, in.Mime) {
		extracted = ExtractText(in.Data)
	}

	return &Processed{
		SafeName:      safeName,
		Mime:          in.Mime,
		Size:          int64(len(in.Data)),
		StoragePath:   storagePath,
		ExtractedText: extracted,
	}, nil
}

// saveFile writes attachment bytes into a per-thread directory with a random
// filename suffix to avoid collisions.
func saveFile(baseDir, threadID, safeName string, data []byte) (string, error) {
	dir := filepath.Join(baseDir, threadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create attachment dir %s: %w", dir, err)
	}

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("failed to generate filename suffix: %w", err)
	}

	ext := filepath.Ext(safeName)
	base := strings.TrimSuffix(safeName, ext)
	path := filepath.Join(dir, fmt.Sprintf("%s_%x%s", base, suffix, ext))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write attachment %s: %w", path, err)
	}
	return path, nil
}
