package compliance

import "time"

// Category tells whether the volunteer is on a first certificate or a repeat cycle.
type Category string

const (
	CategoryNew     Category = "new"
	CategoryRenewal Category = "renewal"
)

// Validity is the state of the most recent certificate.
type Validity string

const (
	ValidityMissing Validity = "missing"
	ValidityValid   Validity = "valid"
	ValidityExpired Validity = "expired"
)

// Badge labels shown next to a volunteer.
const (
	BadgeNone    = "none"
	BadgeOK      = "ok"
	BadgeExpired = "expired"
)

// Status is the derived compliance status of a record at a point in time.
type Status struct {
	Category Category
	Validity Validity
}

// Resolve derives the status of a record. now is always passed in so the
// result is deterministic.
// PRE: none
// POST: Category is new iff CertificateDate is absent; Validity follows the 3 year window
func Resolve(r Record, now time.Time) Status {
	if !r.HasCertificate() {
		return Status{Category: CategoryNew, Validity: ValidityMissing}
	}
	st := Status{Category: CategoryRenewal, Validity: ValidityValid}
	if IsExpired(r.CertificateDate, now) {
		st.Validity = ValidityExpired
	}
	return st
}

// Badge projects the validity onto its display badge.
func (s Status) Badge() string {
	switch s.Validity {
	case ValidityValid:
		return BadgeOK
	case ValidityExpired:
		return BadgeExpired
	default:
		return BadgeNone
	}
}

// CategoryBadge is the independent new/renewal badge.
func (s Status) CategoryBadge() string {
	return string(s.Category)
}

// ParseCategory accepts the internal names and the Dutch labels used by the dashboard.
func ParseCategory(s string) (Category, bool) {
	switch s {
	case string(CategoryNew), "nieuw":
		return CategoryNew, true
	case string(CategoryRenewal), "vernieuwing":
		return CategoryRenewal, true
	}
	return "", false
}

// DutchLabel returns the dashboard label for the category.
func (c Category) DutchLabel() string {
	if c == CategoryRenewal {
		return "vernieuwing"
	}
	return "nieuw"
}
