package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	emailAdapter "ledenbeheer/internal/adapters/email"
	"ledenbeheer/internal/adapters/storage"
	auditDomain "ledenbeheer/internal/domain/audit"
	"ledenbeheer/internal/domain/compliance"
	policyDomain "ledenbeheer/internal/domain/policy"
	"ledenbeheer/internal/domain/reminder"
	volunteerDomain "ledenbeheer/internal/domain/volunteer"
	"ledenbeheer/internal/platform/metrics"
)

var tracer = otel.Tracer("ledenbeheer/orchestrators")

// mdRenderer turns reminder bodies into HTML. Raw HTML in a template is
// escaped because WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// BulkAction is one of the grouped actions on a selection of volunteers.
type BulkAction string

const (
	ActionSendReminder          BulkAction = "send_reminder"
	ActionMarkRequested         BulkAction = "mark_requested"
	ActionMarkRegistrySubmitted BulkAction = "mark_registry_submitted"
)

// Bulk execution bounds.
const (
	MaxBulkIDs             = 500
	DefaultBulkConcurrency = 4
	MaxBulkConcurrency     = 16
	DefaultDispatchTimeout = 15 * time.Second
)

// VolunteerLookup resolves a volunteer id in the member directory.
type VolunteerLookup interface {
	GetByID(ctx context.Context, id int64) (volunteerDomain.Volunteer, error)
}

// RecordStore reads compliance records and writes their dates one column at
// a time, so concurrent actions on the same volunteer never overwrite each other.
type RecordStore interface {
	Get(ctx context.Context, volunteerID int64) (compliance.Record, error)
	MarkReminderSent(ctx context.Context, volunteerID int64, date time.Time) error
	MarkRegistrySubmitted(ctx context.Context, volunteerID int64, date time.Time) error
	SeedCertificate(ctx context.Context, volunteerID int64, date time.Time) (bool, error)
	RenewCertificate(ctx context.Context, volunteerID int64, date time.Time) (bool, error)
}

// PolicySource returns the policy in effect for this call.
type PolicySource interface {
	Get(ctx context.Context) (policyDomain.Policy, error)
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Save(ctx context.Context, event auditDomain.Event) error
}

// HealthChecker reports whether persistence is reachable.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// BulkVOGActionInput carries the action and the selected volunteer ids.
// PRE: IDs are positive and unique
type BulkVOGActionInput struct {
	Action    BulkAction
	IDs       []int64
	RequestID string
	IPAddress string
}

// BulkItemResult is the outcome for one requested id.
type BulkItemResult struct {
	ID      int64
	Success bool
	Error   string // human-readable reason when Success is false
	Err     error  `json:"-"`
}

// BulkVOGActionResult holds counts and per-item results in request order.
type BulkVOGActionResult struct {
	Action    BulkAction
	Succeeded int
	Failed    int
	Items     []BulkItemResult
}

// BulkVOGActionDeps holds dependencies for ExecuteBulkVOGAction.
type BulkVOGActionDeps struct {
	VolunteerStore  VolunteerLookup
	RecordStore     RecordStore
	Policy          PolicySource
	Sender          emailAdapter.Sender
	AuditStore      AuditRecorder
	Health          HealthChecker // optional
	Now             func() time.Time
	Concurrency     int
	DispatchTimeout time.Duration
	Metrics         *metrics.Metrics
}

// ValidateBulkInput rejects malformed input before any mutation.
// POST: Returns a *compliance.ValidationError or nil
func ValidateBulkInput(input BulkVOGActionInput) error {
	switch input.Action {
	case ActionSendReminder, ActionMarkRequested, ActionMarkRegistrySubmitted:
	default:
		return &compliance.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", input.Action)}
	}
	if len(input.IDs) == 0 {
		return &compliance.ValidationError{Field: "ids", Reason: "at least one id is required"}
	}
	if len(input.IDs) > MaxBulkIDs {
		return &compliance.ValidationError{Field: "ids", Reason: fmt.Sprintf("at most %d ids per request", MaxBulkIDs)}
	}
	seen := make(map[int64]struct{}, len(input.IDs))
	for _, id := range input.IDs {
		if id <= 0 {
			return &compliance.ValidationError{Field: "ids", Reason: fmt.Sprintf("id %d is not positive", id)}
		}
		if _, dup := seen[id]; dup {
			return &compliance.ValidationError{Field: "ids", Reason: fmt.Sprintf("id %d is listed twice", id)}
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ExecuteBulkVOGAction applies one action to every requested volunteer.
// Items are independent: a failing item never aborts the batch and applied
// mutations are not rolled back. Once started the batch runs to completion
// even if the caller goes away.
// PRE: deps stores and Sender are set
// POST: Items[i] describes IDs[i]; Succeeded + Failed == len(IDs)
// INVARIANT: Only request-level validation or unreachable persistence return an error
func ExecuteBulkVOGAction(ctx context.Context, input BulkVOGActionInput, deps BulkVOGActionDeps) (BulkVOGActionResult, error) {
	if err := ValidateBulkInput(input); err != nil {
		return BulkVOGActionResult{}, err
	}

	ctx, span := tracer.Start(context.WithoutCancel(ctx), "orchestrators.bulk_vog_action",
		trace.WithAttributes(
			attribute.String("action", string(input.Action)),
			attribute.Int("ids", len(input.IDs)),
		),
	)
	defer span.End()

	if deps.Health != nil {
		if err := deps.Health.PingContext(ctx); err != nil {
			return BulkVOGActionResult{}, fmt.Errorf("persistence unreachable: %w", err)
		}
	}
	pol, err := deps.Policy.Get(ctx)
	if err != nil {
		return BulkVOGActionResult{}, fmt.Errorf("load policy: %w", err)
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	limit := deps.Concurrency
	if limit <= 0 {
		limit = DefaultBulkConcurrency
	}
	limit = min(limit, MaxBulkConcurrency)

	start := time.Now()
	items := make([]BulkItemResult, len(input.IDs))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range input.IDs {
		g.Go(func() error {
			items[i] = runBulkItem(ctx, input, id, pol, now(), deps)
			return nil
		})
	}
	_ = g.Wait()

	result := BulkVOGActionResult{Action: input.Action, Items: items}
	for _, it := range items {
		if it.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
	}
	deps.Metrics.ObserveBulkDuration(string(input.Action), time.Since(start))
	span.SetAttributes(
		attribute.Int("succeeded", result.Succeeded),
		attribute.Int("failed", result.Failed),
	)
	slog.InfoContext(ctx, "vog_bulk_event",
		"action", input.Action,
		"request_id", input.RequestID,
		"total", len(items),
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func runBulkItem(ctx context.Context, input BulkVOGActionInput, id int64, pol policyDomain.Policy, now time.Time, deps BulkVOGActionDeps) BulkItemResult {
	err := applyBulkItem(ctx, input.Action, id, pol, now, deps)
	deps.Metrics.IncrementBulkItem(string(input.Action), err == nil)

	ev := auditDomain.NewEvent(now, auditDomain.CategoryVOG, auditAction(input.Action)).
		WithResource(auditDomain.ResourceVolunteer, strconv.FormatInt(id, 10)).
		WithRequest(input.RequestID, input.IPAddress)
	if err != nil {
		ev = ev.WithSeverity(auditDomain.SeverityWarning).WithDescription("failed: " + itemReason(err))
	} else {
		ev = ev.WithDescription("applied")
	}
	if deps.AuditStore != nil {
		if aerr := deps.AuditStore.Save(ctx, ev); aerr != nil {
			slog.WarnContext(ctx, "vog_bulk_event", "event", "audit_save_failed", "volunteer_id", id, "error", aerr)
		}
	}

	if err != nil {
		slog.WarnContext(ctx, "vog_bulk_event",
			"event", "item_failed",
			"action", input.Action,
			"volunteer_id", id,
			"error", err,
		)
		return BulkItemResult{ID: id, Success: false, Error: itemReason(err), Err: err}
	}
	return BulkItemResult{ID: id, Success: true}
}

func applyBulkItem(ctx context.Context, action BulkAction, id int64, pol policyDomain.Policy, now time.Time, deps BulkVOGActionDeps) error {
	v, err := deps.VolunteerStore.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return &compliance.NotFoundError{VolunteerID: id}
	}
	if err != nil {
		return fmt.Errorf("load volunteer: %w", err)
	}

	switch action {
	case ActionSendReminder:
		rec, err := deps.RecordStore.Get(ctx, id)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			rec = compliance.NewRecord(id)
		case err != nil:
			return fmt.Errorf("load vog record: %w", err)
		}
		if err := dispatchReminder(ctx, v, rec, pol, deps); err != nil {
			return err
		}
		if err := deps.RecordStore.MarkReminderSent(ctx, id, now); err != nil {
			slog.ErrorContext(ctx, "vog_bulk_event", "event", "reminder_sent_not_recorded", "volunteer_id", id, "error", err)
			return fmt.Errorf("save reminder date: %w", err)
		}
	case ActionMarkRequested:
		if err := deps.RecordStore.MarkReminderSent(ctx, id, now); err != nil {
			return fmt.Errorf("save reminder date: %w", err)
		}
	case ActionMarkRegistrySubmitted:
		if err := deps.RecordStore.MarkRegistrySubmitted(ctx, id, now); err != nil {
			return fmt.Errorf("save registry date: %w", err)
		}
	}
	return nil
}

func dispatchReminder(ctx context.Context, v volunteerDomain.Volunteer, rec compliance.Record, pol policyDomain.Policy, deps BulkVOGActionDeps) error {
	to := strings.TrimSpace(v.Email)
	if to == "" {
		return &compliance.ValidationError{Field: "email", Reason: "volunteer has no email address"}
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return &compliance.ValidationError{Field: "email", Reason: fmt.Sprintf("email address %q is not valid", to)}
	}

	msg, err := reminder.Select(rec, v.FirstName, pol)
	if err != nil {
		return err
	}
	var html bytes.Buffer
	if err := mdRenderer.Convert([]byte(msg.Body), &html); err != nil {
		return &compliance.TemplateError{Reason: "cannot render message body: " + err.Error()}
	}

	timeout := deps.DispatchTimeout
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	_, err = deps.Sender.Send(dctx, emailAdapter.SendRequest{
		To:      addr.Address,
		From:    pol.Sender(),
		Subject: msg.Subject,
		HTML:    html.String(),
		Text:    msg.Body,
		ReplyTo: pol.FromEmail,
		Tags:    map[string]string{"kind": "vog_reminder", "category": string(msg.Category)},
	})
	deps.Metrics.ObserveDispatch(err == nil, time.Since(start))
	if err != nil {
		return &compliance.DispatchError{VolunteerID: v.ID, Err: err}
	}
	return nil
}

// itemReason turns an item error into the reason shown to the user.
// Storage failures are reported generically; details stay in the log.
func itemReason(err error) string {
	var (
		nf *compliance.NotFoundError
		ve *compliance.ValidationError
		te *compliance.TemplateError
		de *compliance.DispatchError
	)
	switch {
	case errors.As(err, &nf):
		return nf.Error()
	case errors.As(err, &ve):
		return ve.Reason
	case errors.As(err, &te):
		return te.Error()
	case errors.As(err, &de):
		if errors.Is(de.Err, context.DeadlineExceeded) {
			return "sending reminder timed out"
		}
		return de.Error()
	default:
		return "internal error, see server log"
	}
}

func auditAction(a BulkAction) auditDomain.Action {
	switch a {
	case ActionSendReminder:
		return auditDomain.ActionReminderSent
	case ActionMarkRequested:
		return auditDomain.ActionMarkedRequested
	default:
		return auditDomain.ActionRegistrySubmitted
	}
}
