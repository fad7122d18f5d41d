package projections

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledenbeheer/internal/adapters/storage/audit"
	"ledenbeheer/internal/adapters/storage/volunteer"
	"ledenbeheer/internal/application/listutil"
	domainAudit "ledenbeheer/internal/domain/audit"
	domainCompliance "ledenbeheer/internal/domain/compliance"
	domainPolicy "ledenbeheer/internal/domain/policy"
	domainVolunteer "ledenbeheer/internal/domain/volunteer"
	"ledenbeheer/internal/platform/metrics"
)

type mockVolunteerStore struct {
	volunteers []domainVolunteer.Volunteer
	lastFilter volunteer.ListFilter
	err        error
}

// List returns the seeded volunteers.
func (m *mockVolunteerStore) List(_ context.Context, filter volunteer.ListFilter) ([]domainVolunteer.Volunteer, error) {
	m.lastFilter = filter
	return m.volunteers, m.err
}

type mockRecordStore struct {
	records []domainCompliance.Record
}

// List returns the seeded records.
func (m *mockRecordStore) List(_ context.Context) ([]domainCompliance.Record, error) {
	return m.records, nil
}

type mockAuditStore struct {
	events     []domainAudit.Event
	lastLimit  int
	lastFilter audit.Filter
}

// List returns the seeded events up to limit.
func (m *mockAuditStore) List(_ context.Context, filter audit.Filter, limit int) ([]domainAudit.Event, error) {
	m.lastLimit = limit
	m.lastFilter = filter
	if limit < len(m.events) {
		return m.events[:limit], nil
	}
	return m.events, nil
}

func listDeps(vols []domainVolunteer.Volunteer, recs []domainCompliance.Record, holder *domainPolicy.Holder) GetComplianceListDeps {
	return GetComplianceListDeps{
		VolunteerStore: &mockVolunteerStore{volunteers: vols},
		RecordStore:    &mockRecordStore{records: recs},
		Policy:         holder,
		Now:            func() time.Time { return queryNow },
		Metrics:        metrics.New(prometheus.NewRegistry()),
	}
}

func TestQueryGetComplianceList_Paginates(t *testing.T) {
	var vols []domainVolunteer.Volunteer
	for i := int64(1); i <= 25; i++ {
		vols = append(vols, coach(i, "V", ""))
	}
	deps := listDeps(vols, nil, domainPolicy.NewHolder(domainPolicy.Default()))

	res, err := QueryGetComplianceList(context.Background(), GetComplianceListQuery{
		Sort: ComplianceSort{Field: SortID},
		Page: listutil.PageParams{Page: 3, PerPage: 10},
	}, deps)
	require.NoError(t, err)

	assert.Equal(t, 25, res.PageInfo.Total)
	assert.Equal(t, 3, res.PageInfo.TotalPages)
	require.Len(t, res.Rows, 5)
	assert.Equal(t, int64(21), res.Rows[0].VolunteerID)
	assert.Equal(t, 25, res.Facets[FacetVOGType]["nieuw"])
}

func TestQueryGetComplianceList_UsesCurrentPolicy(t *testing.T) {
	vols, recMap := fixture()
	var recs []domainCompliance.Record
	for _, r := range recMap {
		recs = append(recs, r)
	}
	p := domainPolicy.Default()
	p.ExemptCommittees = []int64{9}
	holder := domainPolicy.NewHolder(p)
	deps := listDeps(vols, recs, holder)
	query := GetComplianceListQuery{Filters: ComplianceFilters{CurrentOnly: true}, Page: listutil.PageParams{Page: 1, PerPage: 50}}

	res, err := QueryGetComplianceList(context.Background(), query, deps)
	require.NoError(t, err)
	assert.Equal(t, 4, res.PageInfo.Total)
	assert.True(t, deps.VolunteerStore.(*mockVolunteerStore).lastFilter.CurrentOnly)

	_, err = holder.Save(context.Background(), domainPolicy.Default(), nopCommitter{})
	require.NoError(t, err)

	res, err = QueryGetComplianceList(context.Background(), query, deps)
	require.NoError(t, err)
	assert.Equal(t, 5, res.PageInfo.Total, "volunteer in the formerly exempt committee is back in scope")
}

func TestQueryGetComplianceList_RejectsInvalidFilters(t *testing.T) {
	deps := listDeps(nil, nil, domainPolicy.NewHolder(domainPolicy.Default()))
	_, err := QueryGetComplianceList(context.Background(), GetComplianceListQuery{
		Filters: ComplianceFilters{MissingOnly: true, ExpiringWithinDays: intPtr(30)},
	}, deps)
	var ve *domainCompliance.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestQueryGetComplianceList_StoreError(t *testing.T) {
	deps := listDeps(nil, nil, domainPolicy.NewHolder(domainPolicy.Default()))
	boom := errors.New("database is locked")
	deps.VolunteerStore = &mockVolunteerStore{err: boom}

	_, err := QueryGetComplianceList(context.Background(), GetComplianceListQuery{}, deps)
	assert.ErrorIs(t, err, boom)
}

func TestQueryGetAuditLog(t *testing.T) {
	store := &mockAuditStore{}
	for i := 0; i < 3; i++ {
		store.events = append(store.events, domainAudit.NewEvent(queryNow, domainAudit.CategoryVOG, domainAudit.ActionReminderSent))
	}

	res, err := QueryGetAuditLog(context.Background(), GetAuditLogQuery{Limit: 2, Category: domainAudit.CategoryVOG}, GetAuditLogDeps{AuditStore: store})
	require.NoError(t, err)
	assert.Len(t, res.Events, 2)
	require.NotNil(t, store.lastFilter.Category)
	assert.Equal(t, domainAudit.CategoryVOG, *store.lastFilter.Category)

	_, err = QueryGetAuditLog(context.Background(), GetAuditLogQuery{Limit: 10000}, GetAuditLogDeps{AuditStore: store})
	require.NoError(t, err)
	assert.Equal(t, MaxAuditLimit, store.lastLimit)

	emptyStore := &mockAuditStore{}
	empty, err := QueryGetAuditLog(context.Background(), GetAuditLogQuery{}, GetAuditLogDeps{AuditStore: emptyStore})
	require.NoError(t, err)
	assert.NotNil(t, empty.Events)
	assert.Equal(t, DefaultAuditLimit, emptyStore.lastLimit)
}

type nopCommitter struct{}

func (nopCommitter) Save(context.Context, domainPolicy.Policy) error { return nil }
