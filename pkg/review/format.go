package review

import (
	"fmt"
	"strings"
)

// List bounds for each template section.
const (
	questionCount = 3 // exact
	riskCount     = 3 // exact

	closingMin = 3
	closingMax = 5

	chairPlanMin = 5
	chairPlanMax = 7
	metricCount  = 3 // exact
)

// noPositionText is the deterministic placeholder produced for a role whose
// payload was absent or had zero populated keys.
const noPositionText = "No position could be formed for this role. Rerun the review and check the inputs."

// Decision labels for the chair synthesis. Any unrecognized upstream value
// maps to the cautious "Verify first", never to the affirmative label.
const (
	DecisionGo     = "Go"
	DecisionNoGo   = "No-go"
	DecisionVerify = "Verify first"
)

// RoleMessage is one formatted message ready for persistence.
type RoleMessage struct {
	Role    Role
	Content string
	IsError bool
}

// FormatRoleMessages renders every configured reviewer role from the
// executor's final object, in fixed role order. Each role yields exactly one
// message: a formatted review, or the placeholder when its payload is empty.
func FormatRoleMessages(final map[string]any) []RoleMessage {
	messages := make([]RoleMessage, 0, len(ReviewOrder()))
	for _, role := range ReviewOrder() {
		raw, _ := final[string(role)].(map[string]any)
		messages = append(messages, FormatRole(role, raw))
	}
	return messages
}

// FormatRole renders a single role's payload into its fixed template.
func FormatRole(role Role, raw map[string]any) RoleMessage {
	payload := DecodePayload(raw)
	if payload.Empty() {
		return RoleMessage{Role: role, Content: noPositionText, IsError: true}
	}

	var content string
	switch role {
	case RoleCEO:
		content = formatReviewer(role, payload, "Next actions", payload.NextActions, "Action")
	case RoleCTO:
		content = formatReviewer(role, payload, "Execution plan", payload.PlanSteps, "Step")
	case RoleCFO:
		content = formatReviewer(role, payload, "Budget guardrails", payload.Guardrails, "Guardrail")
	case RoleChair:
		content = formatChair(payload)
	default:
		return RoleMessage{Role: role, Content: noPositionText, IsError: true}
	}
	return RoleMessage{Role: role, Content: content, IsError: false}
}

// FallbackMessage is the single chair-role message produced on a total plan
// executor failure. This is the intentional asymmetry with per-role
// placeholders: one error note instead of four redundant ones.
func FallbackMessage(err error) RoleMessage {
	return RoleMessage{
		Role:    RoleChair,
		Content: fmt.Sprintf("The review run failed before any role could respond: %v. Rerun the review and check the inputs.", err),
		IsError: true,
	}
}

func formatReviewer(role Role, p Payload, closingTitle string, closing []string, filler string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Review\n", role.Label())
	fmt.Fprintf(&sb, "Position: %s\n", orDefault(p.Stance, "Neutral"))
	fmt.Fprintf(&sb, "Verdict: %s\n", orDefault(p.Verdict, "No verdict provided."))

	writeSection(&sb, "3 difficult questions", pad(p.Questions, questionCount, questionCount, "Question"))
	writeSection(&sb, "3 risks", pad(p.Risks, riskCount, riskCount, "Risk"))
	writeSection(&sb, closingTitle, pad(closing, closingMin, closingMax, filler))

	return strings.TrimRight(sb.String(), "\n")
}

func formatChair(p Payload) string {
	var sb strings.Builder
	sb.WriteString("Chair Synthesis\n")
	fmt.Fprintf(&sb, "Decision: %s\n", NormalizeDecision(p.Decision))
	fmt.Fprintf(&sb, "Verdict: %s\n", orDefault(p.Verdict, "No verdict provided."))

	writeSection(&sb, "3 difficult questions", pad(p.Questions, questionCount, questionCount, "Question"))
	writeSection(&sb, "3 risks", pad(p.Risks, riskCount, riskCount, "Risk"))

	writeSection(&sb, "Plan (day by day)", pad(p.Plan, chairPlanMin, chairPlanMax, "Day"))
	writeSection(&sb, "Metrics", pad(p.Metrics, metricCount, metricCount, "Metric"))

	return strings.TrimRight(sb.String(), "\n")
}

// NormalizeDecision maps the tri-state upstream decision value to one of
// exactly three human-facing labels.
func NormalizeDecision(decision string) string {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "go", "invest", "approve", "yes":
		return DecisionGo
	case "no_go", "no-go", "reject", "no":
		return DecisionNoGo
	case "verify", "verify_first", "hold", "conditional":
		return DecisionVerify
	default:
		return DecisionVerify
	}
}

func writeSection(sb *strings.Builder, title string, items []string) {
	fmt.Fprintf(sb, "%s:\n", title)
	for i, item := range items {
		fmt.Fprintf(sb, "%d. %s\n", i+1, item)
	}
}

// pad stretches items to at least min entries using numbered filler and
// truncates to at most max entries.
func pad(items []string, min, max int, filler string) []string {
	out := make([]string, 0, max)
	for _, item := range items {
		if len(out) == max {
			break
		}
		out = append(out, item)
	}
	for len(out) < min {
		out = append(out, fmt.Sprintf("%s %d", filler, len(out)+1))
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
