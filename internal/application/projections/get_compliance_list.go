package projections

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledenbeheer/internal/adapters/storage/volunteer"
	"ledenbeheer/internal/application/listutil"
	domainCompliance "ledenbeheer/internal/domain/compliance"
	"ledenbeheer/internal/platform/metrics"
)

var tracer = otel.Tracer("ledenbeheer/projections")

// GetComplianceListQuery carries query parameters.
type GetComplianceListQuery struct {
	Filters ComplianceFilters
	Sort    ComplianceSort
	Page    listutil.PageParams
}

// GetComplianceListResult carries one page of the compliance view.
type GetComplianceListResult struct {
	Rows     []ComplianceRow
	Facets   FacetCounts
	PageInfo listutil.PageInfo
}

// GetComplianceListDeps holds dependencies for GetComplianceList.
type GetComplianceListDeps struct {
	VolunteerStore VolunteerStore
	RecordStore    ComplianceRecordStore
	Policy         PolicySource
	Now            func() time.Time
	Metrics        *metrics.Metrics
}

// QueryGetComplianceList loads the volunteer population and compliance
// records and evaluates the compliance view against the current policy.
// PRE: Valid query parameters
// POST: Returns the requested page; Total counts all matching rows
// INVARIANT: The policy snapshot is taken per call, so exemption edits show on the next query
func QueryGetComplianceList(ctx context.Context, query GetComplianceListQuery, deps GetComplianceListDeps) (GetComplianceListResult, error) {
	ctx, span := tracer.Start(ctx, "projections.compliance_list",
		trace.WithAttributes(
			attribute.Bool("filter.current_only", query.Filters.CurrentOnly),
			attribute.Bool("filter.expiring", query.Filters.ExpiringWithinDays != nil),
			attribute.String("sort.field", string(query.Sort.Field)),
		),
	)
	defer span.End()

	if err := query.Filters.Validate(); err != nil {
		return GetComplianceListResult{}, err
	}

	pol, err := deps.Policy.Get(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "policy")
		return GetComplianceListResult{}, fmt.Errorf("load policy: %w", err)
	}
	volunteers, err := deps.VolunteerStore.List(ctx, volunteer.ListFilter{CurrentOnly: query.Filters.CurrentOnly})
	if err != nil {
		span.SetStatus(codes.Error, "volunteers")
		return GetComplianceListResult{}, fmt.Errorf("list volunteers: %w", err)
	}
	stored, err := deps.RecordStore.List(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "records")
		return GetComplianceListResult{}, fmt.Errorf("list vog records: %w", err)
	}
	records := make(map[int64]domainCompliance.Record, len(stored))
	for _, r := range stored {
		records[r.VolunteerID] = r
	}

	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	start := time.Now()
	res, err := RunComplianceQuery(volunteers, records, ComplianceQuery{
		Filters:          query.Filters,
		Sort:             query.Sort,
		Now:              now(),
		ExemptCommittees: pol.ExemptCommittees,
	})
	deps.Metrics.ObserveQuery(time.Since(start))
	if err != nil {
		return GetComplianceListResult{}, err
	}

	info := listutil.NewPageInfo(query.Page.Page, query.Page.PerPage, res.Total)
	span.SetAttributes(
		attribute.Int("population", len(volunteers)),
		attribute.Int("result.total", res.Total),
	)
	return GetComplianceListResult{
		Rows:     listutil.Slice(res.Items, info),
		Facets:   res.Facets,
		PageInfo: info,
	}, nil
}
