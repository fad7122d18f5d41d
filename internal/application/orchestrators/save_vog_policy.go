package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ledenbeheer/internal/adapters/storage/volunteer"
	auditDomain "ledenbeheer/internal/domain/audit"
	policyDomain "ledenbeheer/internal/domain/policy"
	volunteerDomain "ledenbeheer/internal/domain/volunteer"
	"ledenbeheer/internal/platform/metrics"
)

// PolicyHolder is the process-wide policy that saves go through.
type PolicyHolder interface {
	Snapshot() policyDomain.Policy
	Save(ctx context.Context, next policyDomain.Policy, store policyDomain.Committer) (policyDomain.Event, error)
}

// VolunteerLister lists the member directory.
type VolunteerLister interface {
	List(ctx context.Context, filter volunteer.ListFilter) ([]volunteerDomain.Volunteer, error)
}

// SaveVOGPolicyInput carries the replacement policy.
type SaveVOGPolicyInput struct {
	Policy    policyDomain.Policy
	RequestID string
	IPAddress string
}

// SaveVOGPolicyResult carries the stored policy. PeopleRecalculated is set
// only when the exempt committee set changed.
type SaveVOGPolicyResult struct {
	Policy             policyDomain.Policy
	PeopleRecalculated *int
}

// SaveVOGPolicyDeps holds dependencies for ExecuteSaveVOGPolicy.
type SaveVOGPolicyDeps struct {
	Holder         PolicyHolder
	Store          policyDomain.Committer
	VolunteerStore VolunteerLister
	AuditStore     AuditRecorder
	Now            func() time.Time
	Metrics        *metrics.Metrics
}

// ExecuteSaveVOGPolicy replaces the policy as a whole.
// PRE: deps.Holder and deps.Store are set
// POST: On success the next compliance query sees the new exemptions
// INVARIANT: A failed commit leaves the previous policy in effect
func ExecuteSaveVOGPolicy(ctx context.Context, input SaveVOGPolicyInput, deps SaveVOGPolicyDeps) (SaveVOGPolicyResult, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	// Load the population before mutating so a read failure leaves the policy untouched.
	var population []volunteerDomain.Volunteer
	if deps.VolunteerStore != nil {
		var err error
		population, err = deps.VolunteerStore.List(ctx, volunteer.ListFilter{})
		if err != nil {
			return SaveVOGPolicyResult{}, fmt.Errorf("list volunteers: %w", err)
		}
	}

	ev, err := deps.Holder.Save(ctx, input.Policy, deps.Store)
	if err != nil {
		var pe *policyDomain.PolicyError
		if errors.As(err, &pe) {
			deps.Metrics.IncrementPolicySave("rejected")
			return SaveVOGPolicyResult{}, err
		}
		deps.Metrics.IncrementPolicySave("reverted")
		slog.ErrorContext(ctx, "policy_event", "event", string(policyDomain.EventReverted), "request_id", input.RequestID, "error", err)
		recordPolicyAudit(ctx, deps, now(), input, auditDomain.ActionPolicyReverted, auditDomain.SeverityWarning, "commit failed, previous policy restored")
		return SaveVOGPolicyResult{}, fmt.Errorf("save policy: %w", err)
	}

	// Previous is the value this save replaced, even when saves overlap.
	changed := ev.Previous.ExemptListChanged(ev.Current)
	result := SaveVOGPolicyResult{Policy: ev.Current}
	if changed {
		n := CountSubjectChanges(population, ev.Previous.ExemptCommittees, ev.Current.ExemptCommittees)
		result.PeopleRecalculated = &n
	}

	deps.Metrics.IncrementPolicySave("applied")
	slog.InfoContext(ctx, "policy_event",
		"event", string(ev.Kind),
		"request_id", input.RequestID,
		"exempt_changed", changed,
		"exempt_committees", ev.Current.ExemptCommittees,
	)
	desc := "policy saved"
	if changed {
		desc = fmt.Sprintf("exempt committees set to [%s], %d people recalculated", joinIDs(ev.Current.ExemptCommittees), *result.PeopleRecalculated)
	}
	recordPolicyAudit(ctx, deps, now(), input, auditDomain.ActionPolicySaved, auditDomain.SeverityInfo, desc)
	return result, nil
}

// CountSubjectChanges counts volunteers whose subject status differs
// between two exempt committee lists.
func CountSubjectChanges(population []volunteerDomain.Volunteer, before, after []int64) int {
	n := 0
	for _, v := range population {
		if volunteerDomain.IsSubject(v, before) != volunteerDomain.IsSubject(v, after) {
			n++
		}
	}
	return n
}

func recordPolicyAudit(ctx context.Context, deps SaveVOGPolicyDeps, now time.Time, input SaveVOGPolicyInput, action auditDomain.Action, sev auditDomain.Severity, desc string) {
	if deps.AuditStore == nil {
		return
	}
	ev := auditDomain.NewEvent(now, auditDomain.CategoryPolicy, action).
		WithSeverity(sev).
		WithResource(auditDomain.ResourcePolicy, "1").
		WithDescription(desc).
		WithRequest(input.RequestID, input.IPAddress)
	if err := deps.AuditStore.Save(ctx, ev); err != nil {
		slog.WarnContext(ctx, "policy_event", "event", "audit_save_failed", "error", err)
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
