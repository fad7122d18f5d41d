package projections

import (
	"context"

	"ledenbeheer/internal/adapters/storage/audit"
	"ledenbeheer/internal/adapters/storage/volunteer"
	domainAudit "ledenbeheer/internal/domain/audit"
	domainCompliance "ledenbeheer/internal/domain/compliance"
	domainPolicy "ledenbeheer/internal/domain/policy"
	domainVolunteer "ledenbeheer/internal/domain/volunteer"
)

// VolunteerStore interface for member-directory queries.
type VolunteerStore interface {
	List(ctx context.Context, filter volunteer.ListFilter) ([]domainVolunteer.Volunteer, error)
}

// ComplianceRecordStore interface for compliance record queries.
type ComplianceRecordStore interface {
	List(ctx context.Context) ([]domainCompliance.Record, error)
}

// PolicySource returns the policy in effect for this call.
type PolicySource interface {
	Get(ctx context.Context) (domainPolicy.Policy, error)
}

// AuditStore interface for audit trail queries.
type AuditStore interface {
	List(ctx context.Context, filter audit.Filter, limit int) ([]domainAudit.Event, error)
}
