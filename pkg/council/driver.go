package council

import (
	"context"
	"fmt"
	"time"

	"boardroom/pkg/attach"
	"boardroom/pkg/knowledge"
	"boardroom/pkg/logx"
	"boardroom/pkg/metrics"
	"boardroom/pkg/review"
	"boardroom/pkg/store"
)

const (
	defaultWorkspace = "default"
	maxTitleChars    = 80
	runBudgetWords   = 400
)

// Submission is one user submission starting a review run.
type Submission struct {
	Title       string
	Idea        string
	Constraints string
	Attachments []attach.Incoming
}

// RunResult reports the outcome of a review run.
type RunResult struct {
	ThreadID string           `json:"thread_id"`
	Status   string           `json:"status"`
	Messages []*store.Message `json:"messages"`
}

// Driver runs the review orchestration state machine: assemble context,
// invoke the plan executor, map results to messages, update thread status.
// Messages are always persisted before the status update.
type Driver struct {
	store       *store.Store
	executor    PlanExecutor
	ingestor    *knowledge.Ingestor
	retriever   knowledge.Retriever
	maintenance *knowledge.MaintenanceCache
	attachDir   string
	logger      *logx.Logger
}

// NewDriver creates a driver. Ingestor, retriever, and maintenance cache are
// optional; a nil value disables that best-effort concern.
func NewDriver(s *store.Store, executor PlanExecutor, ingestor *knowledge.Ingestor, retriever knowledge.Retriever, maintenance *knowledge.MaintenanceCache, attachDir string) *Driver {
	return &Driver{
		store:       s,
		executor:    executor,
		ingestor:    ingestor,
		retriever:   retriever,
		maintenance: maintenance,
		attachDir:   attachDir,
		logger:      logx.NewLogger("council"),
	}
}

// Run executes one review run on a thread. An empty threadID creates a new
// thread. The run holds the thread's exclusive lease for its duration;
// concurrent runs on the same thread fail with store.ErrRunInFlight.
func (d *Driver) Run(ctx context.Context, workspace, threadID string, sub Submission) (*RunResult, error) {
	if workspace == "" {
		workspace = defaultWorkspace
	}
	started := time.Now()
	defer func() { metrics.RunDuration.Observe(time.Since(started).Seconds()) }()

	// Reject disallowed attachments before any write or state change.
	for _, in := range sub.Attachments {
		if !attach.Allowed(attach.SanitizeFilename(in.Filename)) {
			return nil, fmt.Errorf("attachment %q rejected: %w", in.Filename, attach.ErrDisallowedExtension)
		}
	}

	thread, err := d.resolveThread(workspace, threadID, sub)
	if err != nil {
		return nil, err
	}

	leaseToken := store.GenerateID()
	if err := d.store.AcquireRunLease(workspace, thread.ID, leaseToken); err != nil {
		return nil, err
	}

	attachments, userMsg, err := d.persistSubmission(workspace, thread, sub)
	if err != nil {
		d.abandonRun(workspace, thread.ID, leaseToken)
		return nil, err
	}

	d.ingestAttachments(workspace, thread.ID, attachments)

	inputs, err := d.assembleInputs(ctx, workspace, thread.ID, sub)
	if err != nil {
		d.abandonRun(workspace, thread.ID, leaseToken)
		return nil, err
	}

	result, execErr := d.execute(ctx, PlanInput{
		Goal:   GoalPanelReview,
		Inputs: inputs,
		Budget: Budget{MaxWords: runBudgetWords},
	})

	var formatted []review.RoleMessage
	if execErr != nil {
		// Total executor failure: one fallback message for the synthesis role
		// instead of four placeholders. Intentional asymmetry with the
		// per-role degradation path.
		d.logger.Error("plan executor failed for thread %s: %v", thread.ID, execErr)
		formatted = []review.RoleMessage{review.FallbackMessage(execErr)}
	} else {
		formatted = review.FormatRoleMessages(result.Data.Final)
	}

	messages := make([]*store.Message, 0, len(formatted)+1)
	messages = append(messages, userMsg)

	status := store.StatusDone
	for _, rm := range formatted {
		msg := &store.Message{
			ThreadID:  thread.ID,
			Workspace: workspace,
			Role:      string(rm.Role),
			Content:   rm.Content,
			IsError:   rm.IsError,
		}
		if err := d.store.CreateMessage(msg); err != nil {
			d.abandonRun(workspace, thread.ID, leaseToken)
			return nil, fmt.Errorf("failed to persist %s message: %w", rm.Role, err)
		}
		messages = append(messages, msg)
		if rm.IsError {
			status = store.StatusError
		}
	}

	// Status update is the last step: the message set is already durable, so
	// a crash here leaves a consistent thread.
	if err := d.store.ReleaseRunLease(workspace, thread.ID, leaseToken, status); err != nil {
		return nil, fmt.Errorf("failed to finalize thread status: %w", err)
	}

	metrics.RunsTotal.WithLabelValues(status).Inc()
	return &RunResult{ThreadID: thread.ID, Status: status, Messages: messages}, nil
}

// execute invokes the opaque plan executor, converting a panic into an error.
func (d *Driver) execute(ctx context.Context, in PlanInput) (result *PlanResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("plan executor panicked: %v", r)
		}
	}()
	return d.executor.Run(ctx, in)
}

func (d *Driver) resolveThread(workspace, threadID string, sub Submission) (*store.Thread, error) {
	if threadID == "" {
		thread := &store.Thread{
			Workspace: workspace,
			Title:     defaultTitle(sub),
		}
		if err := d.store.CreateThread(thread); err != nil {
			return nil, err
		}
		return thread, nil
	}

	thread, err := d.store.GetThread(workspace, threadID)
	if err != nil {
		return nil, err
	}
	if thread.Title == "" {
		thread.Title = defaultTitle(sub)
		if err := d.store.UpdateThreadTitle(workspace, thread.ID, thread.Title); err != nil {
			return nil, err
		}
	}
	return thread, nil
}

func defaultTitle(sub Submission) string {
	title := sub.Title
	if title == "" {
		title = sub.Idea
	}
	if len(title) > maxTitleChars {
		title = title[:maxTitleChars]
	}
	return title
}

// persistSubmission writes the attachments and the verbatim user message with
// its chips. Exactly one user message precedes the run's role messages.
func (d *Driver) persistSubmission(workspace string, thread *store.Thread, sub Submission) ([]*store.Attachment, *store.Message, error) {
	attachments := make([]*store.Attachment, 0, len(sub.Attachments))
	chips := make([]store.Chip, 0, len(sub.Attachments))

	for _, in := range sub.Attachments {
		processed, err := attach.Process(d.attachDir, thread.ID, in)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to process attachment %q: %w", in.Filename, err)
		}
		att := &store.Attachment{
			ID:            store.GenerateID(),
			ThreadID:      thread.ID,
			Workspace:     workspace,
			Filename:      processed.SafeName,
			Mime:          processed.Mime,
			Size:          processed.Size,
			StoragePath:   processed.StoragePath,
			ExtractedText: processed.ExtractedText,
		}
		attachments = append(attachments, att)
		chips = append(chips, store.Chip{
			ID:       att.ID,
			Filename: att.Filename,
			Mime:     att.Mime,
			Size:     att.Size,
		})
	}

	userMsg := &store.Message{
		ThreadID:  thread.ID,
		Workspace: workspace,
		Role:      string(review.RoleUser),
		Content:   sub.Idea,
		Chips:     chips,
	}
	if err := d.store.CreateMessage(userMsg); err != nil {
		return nil, nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	for _, att := range attachments {
		att.MessageID = userMsg.ID
		if err := d.store.CreateAttachment(att); err != nil {
			return nil, nil, fmt.Errorf("failed to persist attachment %s: %w", att.Filename, err)
		}
	}
	return attachments, userMsg, nil
}

// ingestAttachments runs best-effort knowledge ingestion and maintenance.
// Every failure is logged and discarded; ingestion never aborts a run.
func (d *Driver) ingestAttachments(workspace, threadID string, attachments []*store.Attachment) {
	if d.ingestor == nil {
		return
	}

	if d.maintenance != nil && d.maintenance.ShouldRun(workspace, time.Now()) {
		if err := d.ingestor.Maintain(workspace); err != nil {
			d.logger.Warn("knowledge maintenance failed for workspace %s: %v", workspace, err)
		}
	}

	for _, att := range attachments {
		if err := d.ingestor.IngestAttachment(workspace, threadID, att); err != nil {
			d.logger.Warn("knowledge ingestion failed for attachment %s: %v", att.Filename, err)
		}
	}
}

// assembleInputs builds the structured input for the plan executor: thread
// history, attachment summaries, retrieved background, and constraints.
func (d *Driver) assembleInputs(ctx context.Context, workspace, threadID string, sub Submission) (map[string]any, error) {
	history, err := d.store.LastMessages(workspace, threadID, historyWindow)
	if err != nil {
		return nil, err
	}

	var summaries []string
	for _, msg := range history {
		if len(msg.Chips) == 0 {
			continue
		}
		atts, err := d.store.ListAttachmentsByMessage(workspace, msg.ID)
		if err != nil {
			return nil, err
		}
		for _, att := range atts {
			summaries = append(summaries, AttachmentSummary(att))
		}
	}

	inputs := map[string]any{
		"idea":    sub.Idea,
		"history": RenderHistory(history),
	}
	if len(summaries) > 0 {
		inputs["attachments"] = summaries
	}

	constraints := sub.Constraints
	if constraints == "" {
		constraints = ExtractConstraints(sub.Idea)
	}
	if constraints != "" {
		inputs["constraints"] = constraints
	}

	// Retrieval augmentation is best-effort: a failure omits the slice.
	if d.retriever != nil {
		background, err := d.retriever.Retrieve(ctx, workspace, sub.Idea, retrievalTopK)
		if err != nil {
			d.logger.Warn("retrieval failed for thread %s: %v", threadID, err)
		} else if background != "" {
			inputs["background"] = background
		}
	}

	return inputs, nil
}

// abandonRun releases the lease with error status after an internal failure.
func (d *Driver) abandonRun(workspace, threadID, token string) {
	if err := d.store.ReleaseRunLease(workspace, threadID, token, store.StatusError); err != nil {
		d.logger.Error("failed to release run lease for thread %s: %v", threadID, err)
	}
}
