// Package review renders per-role review payloads into deterministic,
// fixed-shape messages. Output shape never depends on upstream completeness:
// short lists are padded, long lists are truncated, and an empty payload
// yields a hard-coded placeholder flagged as an error.
package review

// Role identifies a participant in a review thread.
type Role string

const (
	// RoleUser is the submitting user.
	RoleUser Role = "user"
	// RoleCEO reviews strategy and market fit.
	RoleCEO Role = "ceo"
	// RoleCTO reviews technical feasibility and execution.
	RoleCTO Role = "cto"
	// RoleCFO reviews unit economics and budget exposure.
	RoleCFO Role = "cfo"
	// RoleChair synthesizes the panel into a decision.
	RoleChair Role = "chair"
)

// ReviewOrder returns the reviewer roles in their fixed output order.
func ReviewOrder() []Role {
	return []Role{RoleCEO, RoleCTO, RoleCFO, RoleChair}
}

// IsReviewer reports whether the role is one of the configured reviewers.
func IsReviewer(role Role) bool {
	for _, r := range ReviewOrder() {
		if r == role {
			return true
		}
	}
	return false
}

// Label returns the human-facing label for a role, used both in message
// headers and in rendered conversation context lines.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleCEO:
		return "CEO"
	case RoleCTO:
		return "CTO"
	case RoleCFO:
		return "CFO"
	case RoleChair:
		return "Chair"
	default:
		return string(r)
	}
}

// Valid reports whether the role is a known message role.
func (r Role) Valid() bool {
	return r == RoleUser || IsReviewer(r)
}
