package council

import (
	"fmt"
	"regexp"
	"strings"

	"boardroom/pkg/review"
	"boardroom/pkg/store"
)

// Context assembly limits.
const (
	historyWindow      = 6
	historyLineChars   = 300
	attachSummaryChars = 500
	retrievalTopK      = 5
)

// inlineConstraintRe matches an inline "keyword: value" constraint mention,
// the fallback when no constraint line is found.
var inlineConstraintRe = regexp.MustCompile(`(?i)(budget|deadline|timeline|resources?)\s*[:\-]\s*(\S[^.;]*)`)

// constraintKeywords begin a dedicated constraint line in a submission.
//
//nolint:gochecknoglobals // Static keyword list, read-only.
var constraintKeywords = []string{"budget", "deadline", "timeline", "resource", "resources", "constraint", "constraints"}

// RenderHistory renders the last messages as "<RoleLabel>: <content>" lines,
// truncating long content.
func RenderHistory(messages []*store.Message) string {
	var sb strings.Builder
	for _, msg := range messages {
		content := strings.ReplaceAll(msg.Content, "\n", " ")
		if len(content) > historyLineChars {
			content = content[:historyLineChars] + "..."
		}
		fmt.Fprintf(&sb, "%s: %s\n", review.Role(msg.Role).Label(), content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// AttachmentSummary builds the per-attachment context slice: truncated
// extracted text, or a generic availability note for binary attachments.
func AttachmentSummary(att *store.Attachment) string {
	if att.ExtractedText != "" {
		text := att.ExtractedText
		if len(text) > attachSummaryChars {
			text = text[:attachSummaryChars] + "..."
		}
		return fmt.Sprintf("%s:\n%s", att.Filename, text)
	}
	return fmt.Sprintf("%s (%s, %d bytes) is attached and available to review.", att.Filename, att.Mime, att.Size)
}

// ExtractConstraints derives a constraints string from raw submission text
// when the user supplied none: first a scan for lines beginning with a
// constraint keyword, then an inline "keyword: value" match.
func ExtractConstraints(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		for _, kw := range constraintKeywords {
			if strings.HasPrefix(lower, kw) {
				lines = append(lines, trimmed)
				break
			}
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}

	if m := inlineConstraintRe.FindStringSubmatch(text); len(m) == 3 {
		return strings.TrimSpace(m[1] + ": " + m[2])
	}
	return ""
}
