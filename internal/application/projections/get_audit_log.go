package projections

import (
	"context"

	"ledenbeheer/internal/adapters/storage/audit"
	domainAudit "ledenbeheer/internal/domain/audit"
)

// Audit log page size bounds.
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// GetAuditLogQuery carries query parameters.
type GetAuditLogQuery struct {
	Limit      int
	Category   domainAudit.Category
	ResourceID string
}

// GetAuditLogResult carries the query result.
type GetAuditLogResult struct {
	Events []domainAudit.Event
}

// GetAuditLogDeps holds dependencies for GetAuditLog.
type GetAuditLogDeps struct {
	AuditStore AuditStore
}

// QueryGetAuditLog returns the most recent audit events.
// PRE: none
// POST: Returns at most MaxAuditLimit events, newest first
func QueryGetAuditLog(ctx context.Context, query GetAuditLogQuery, deps GetAuditLogDeps) (GetAuditLogResult, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	limit = min(limit, MaxAuditLimit)

	var filter audit.Filter
	if query.Category != "" {
		c := query.Category
		filter.Category = &c
	}
	if query.ResourceID != "" {
		r := query.ResourceID
		filter.ResourceID = &r
	}

	events, err := deps.AuditStore.List(ctx, filter, limit)
	if err != nil {
		return GetAuditLogResult{}, err
	}
	if events == nil {
		events = []domainAudit.Event{}
	}
	return GetAuditLogResult{Events: events}, nil
}
