package projections

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"ledenbeheer/internal/domain/compliance"
	"ledenbeheer/internal/domain/volunteer"
)

// ReminderStatus filters on whether a reminder date is recorded.
type ReminderStatus string

const (
	ReminderSent    ReminderStatus = "sent"
	ReminderNotSent ReminderStatus = "not_sent"
)

// RegistryStatus filters on whether a registry submission is recorded.
type RegistryStatus string

const (
	RegistrySubmitted    RegistryStatus = "submitted"
	RegistryNotSubmitted RegistryStatus = "not_submitted"
)

// SortField names a sortable projected column.
type SortField string

const (
	SortName            SortField = "name"
	SortVOGDate         SortField = "vog_date"
	SortEmailDate       SortField = "vog_email_date"
	SortJustisDate      SortField = "vog_justis_date"
	SortDaysUntilExpiry SortField = "days_until_expiry"
	SortID              SortField = "id"
)

// SortFields lists every accepted sort column.
var SortFields = []string{
	string(SortName), string(SortVOGDate), string(SortEmailDate),
	string(SortJustisDate), string(SortDaysUntilExpiry), string(SortID),
}

// ComplianceFilters are independently combinable (logical AND). Zero values
// mean "no filter".
type ComplianceFilters struct {
	CurrentOnly bool

	// MissingOnly keeps volunteers without a certificate. Combined with
	// OlderThanYears the two form one "needs attention" union.
	MissingOnly bool

	// OlderThanYears keeps volunteers whose certificate is absent OR older than N years.
	OlderThanYears *int

	ReminderStatus ReminderStatus
	Category       compliance.Category
	RegistryStatus RegistryStatus

	// ExpiringWithinDays drives the upcoming-expiry view and cannot be
	// combined with the needs-attention filters.
	ExpiringWithinDays *int
}

// Validate rejects unknown enum values, negative numbers and the
// expiring/needs-attention combination.
// POST: Returns a *compliance.ValidationError or nil
func (f ComplianceFilters) Validate() error {
	switch f.ReminderStatus {
	case "", ReminderSent, ReminderNotSent:
	default:
		return &compliance.ValidationError{Field: "vogEmailStatus", Reason: fmt.Sprintf("unknown value %q", f.ReminderStatus)}
	}
	switch f.RegistryStatus {
	case "", RegistrySubmitted, RegistryNotSubmitted:
	default:
		return &compliance.ValidationError{Field: "vogJustisStatus", Reason: fmt.Sprintf("unknown value %q", f.RegistryStatus)}
	}
	switch f.Category {
	case "", compliance.CategoryNew, compliance.CategoryRenewal:
	default:
		return &compliance.ValidationError{Field: "vogType", Reason: fmt.Sprintf("unknown value %q", f.Category)}
	}
	if f.OlderThanYears != nil && *f.OlderThanYears < 0 {
		return &compliance.ValidationError{Field: "vogOlderThanYears", Reason: "must not be negative"}
	}
	if f.ExpiringWithinDays != nil {
		if *f.ExpiringWithinDays < 0 {
			return &compliance.ValidationError{Field: "vogExpiringWithinDays", Reason: "must not be negative"}
		}
		if f.MissingOnly || f.OlderThanYears != nil {
			return &compliance.ValidationError{
				Field:  "vogExpiringWithinDays",
				Reason: "cannot be combined with vogMissing or vogOlderThanYears",
			}
		}
	}
	return nil
}

// ComplianceSort orders the result. An empty Field picks the view default:
// days until expiry for the upcoming view, name otherwise.
type ComplianceSort struct {
	Field SortField
	Desc  bool
}

// ComplianceQuery is the complete input of one evaluation. Now and
// ExemptCommittees are passed in; the engine never reads clocks or globals.
type ComplianceQuery struct {
	Filters          ComplianceFilters
	Sort             ComplianceSort
	Now              time.Time
	ExemptCommittees []int64
}

// ComplianceRow is the annotated view of one subject volunteer.
type ComplianceRow struct {
	VolunteerID     int64
	FirstName       string
	LastName        string
	Name            string
	Email           string
	Functions       []string
	Record          compliance.Record
	Status          compliance.Status
	Stage           compliance.Stage
	ExpiresOn       time.Time // zero without certificate
	DaysUntilExpiry *int
}

// Facet groups counted per option.
const (
	FacetEmailStatus  = "email_status"
	FacetVOGType      = "vog_type"
	FacetJustisStatus = "justis_status"
	FacetVOGStatus    = "vog_status"
)

// FacetCounts maps facet name to option to count.
type FacetCounts map[string]map[string]int

// ComplianceQueryResult is the filtered, sorted view plus facet counts.
type ComplianceQueryResult struct {
	Items  []ComplianceRow
	Total  int
	Facets FacetCounts
}

// RunComplianceQuery evaluates the compliance view over a volunteer population.
// Volunteers without a stored record get the empty record created lazily.
// PRE: q.Now is not zero
// POST: Items contain only subject volunteers; Total == len(Items)
// INVARIANT: Facets are counted over the eligible population before optional filters
func RunComplianceQuery(volunteers []volunteer.Volunteer, records map[int64]compliance.Record, q ComplianceQuery) (ComplianceQueryResult, error) {
	if err := q.Filters.Validate(); err != nil {
		return ComplianceQueryResult{}, err
	}
	if q.Now.IsZero() {
		return ComplianceQueryResult{}, &compliance.ValidationError{Field: "now", Reason: "evaluation time is required"}
	}

	facets := newFacetCounts()
	items := make([]ComplianceRow, 0, len(volunteers))
	for _, v := range volunteers {
		if !volunteer.IsSubject(v, q.ExemptCommittees) {
			continue
		}
		if q.Filters.CurrentOnly && !v.Current {
			continue
		}
		rec, ok := records[v.ID]
		if !ok {
			rec = compliance.NewRecord(v.ID)
		}
		row := annotate(v, rec, q.Now)
		facets.add(row)

		if q.Filters.matches(row, q.Now) {
			items = append(items, row)
		}
	}

	sortRows(items, q.resolvedSort())
	return ComplianceQueryResult{Items: items, Total: len(items), Facets: facets}, nil
}

func annotate(v volunteer.Volunteer, rec compliance.Record, now time.Time) ComplianceRow {
	row := ComplianceRow{
		VolunteerID: v.ID,
		FirstName:   v.FirstName,
		LastName:    v.LastName,
		Name:        v.Name(),
		Email:       v.Email,
		Functions:   v.Functions,
		Record:      rec,
		Status:      compliance.Resolve(rec, now),
		Stage:       compliance.StageOf(true, rec, now),
	}
	if rec.HasCertificate() {
		row.ExpiresOn = compliance.ExpiresOn(rec.CertificateDate)
		days, _ := compliance.DaysUntilExpiry(rec.CertificateDate, now)
		row.DaysUntilExpiry = &days
	}
	return row
}

func (f ComplianceFilters) matches(row ComplianceRow, now time.Time) bool {
	rec := row.Record

	if f.MissingOnly || f.OlderThanYears != nil {
		attention := !rec.HasCertificate()
		if f.OlderThanYears != nil && compliance.OlderThan(rec.CertificateDate, now, *f.OlderThanYears) {
			attention = true
		}
		if !attention {
			return false
		}
	}
	if f.ExpiringWithinDays != nil && !compliance.IsExpiringWithin(rec.CertificateDate, now, *f.ExpiringWithinDays) {
		return false
	}
	switch f.ReminderStatus {
	case ReminderSent:
		if !rec.ReminderSent() {
			return false
		}
	case ReminderNotSent:
		if rec.ReminderSent() {
			return false
		}
	}
	if f.Category != "" && row.Status.Category != f.Category {
		return false
	}
	switch f.RegistryStatus {
	case RegistrySubmitted:
		if !rec.RegistrySubmitted() {
			return false
		}
	case RegistryNotSubmitted:
		if rec.RegistrySubmitted() {
			return false
		}
	}
	return true
}

func newFacetCounts() FacetCounts {
	return FacetCounts{
		FacetEmailStatus:  {string(ReminderSent): 0, string(ReminderNotSent): 0},
		FacetVOGType:      {compliance.CategoryNew.DutchLabel(): 0, compliance.CategoryRenewal.DutchLabel(): 0},
		FacetJustisStatus: {string(RegistrySubmitted): 0, string(RegistryNotSubmitted): 0},
		FacetVOGStatus:    {compliance.BadgeNone: 0, compliance.BadgeOK: 0, compliance.BadgeExpired: 0},
	}
}

func (fc FacetCounts) add(row ComplianceRow) {
	if row.Record.ReminderSent() {
		fc[FacetEmailStatus][string(ReminderSent)]++
	} else {
		fc[FacetEmailStatus][string(ReminderNotSent)]++
	}
	fc[FacetVOGType][row.Status.Category.DutchLabel()]++
	if row.Record.RegistrySubmitted() {
		fc[FacetJustisStatus][string(RegistrySubmitted)]++
	} else {
		fc[FacetJustisStatus][string(RegistryNotSubmitted)]++
	}
	fc[FacetVOGStatus][row.Status.Badge()]++
}

func (q ComplianceQuery) resolvedSort() ComplianceSort {
	s := q.Sort
	if s.Field == "" {
		s.Field = SortName
		if q.Filters.ExpiringWithinDays != nil {
			s.Field = SortDaysUntilExpiry
		}
	}
	return s
}

// sortRows orders rows by the requested field. Absent values sort last in
// both directions and ties fall back to id ascending.
func sortRows(rows []ComplianceRow, s ComplianceSort) {
	slices.SortStableFunc(rows, func(a, b ComplianceRow) int {
		if c := compareField(a, b, s); c != 0 {
			return c
		}
		return cmp.Compare(a.VolunteerID, b.VolunteerID)
	})
}

func compareField(a, b ComplianceRow, s ComplianceSort) int {
	dir := 1
	if s.Desc {
		dir = -1
	}
	switch s.Field {
	case SortVOGDate:
		return compareTimes(a.Record.CertificateDate, b.Record.CertificateDate, dir)
	case SortEmailDate:
		return compareTimes(a.Record.ReminderSentDate, b.Record.ReminderSentDate, dir)
	case SortJustisDate:
		return compareTimes(a.Record.RegistrySubmittedDate, b.Record.RegistrySubmittedDate, dir)
	case SortDaysUntilExpiry:
		return compareOptional(a.DaysUntilExpiry, b.DaysUntilExpiry, dir)
	case SortID:
		return dir * cmp.Compare(a.VolunteerID, b.VolunteerID)
	default:
		return dir * strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}

func compareTimes(a, b time.Time, dir int) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return dir * a.Compare(b)
}

func compareOptional(a, b *int, dir int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return dir * cmp.Compare(*a, *b)
}
