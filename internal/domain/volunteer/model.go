package volunteer

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// DonorFunction is the function label held by supporting donors. A volunteer
// whose only function is this label never needs a certificate of conduct.
const DonorFunction = "Donateur"

// Domain errors
var (
	ErrInvalidID    = errors.New("volunteer id must be positive")
	ErrEmptyName    = errors.New("volunteer needs a first or last name")
	ErrNameTooLong  = errors.New("volunteer name cannot exceed 100 characters")
	ErrInvalidEmail = errors.New("volunteer email must be valid")
)

// Volunteer is the projection of a member-directory entry that the
// compliance engine works with. The directory owns the record.
type Volunteer struct {
	ID                   int64
	FirstName            string
	LastName             string
	Email                string
	Functions            []string
	CommitteeMemberships []int64
	Current              bool
}

// Validate checks if the Volunteer has valid data.
// PRE: Volunteer struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email may be empty, but when present must contain '@'
func (v *Volunteer) Validate() error {
	if v.ID <= 0 {
		return ErrInvalidID
	}
	name := v.Name()
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	if v.Email != "" && !strings.Contains(v.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// Name returns the display name, "First Last".
func (v Volunteer) Name() string {
	return strings.TrimSpace(strings.TrimSpace(v.FirstName) + " " + strings.TrimSpace(v.LastName))
}

// HasSubjectFunction reports whether the volunteer holds at least one
// function other than the donor label. Blank labels are ignored.
// INVARIANT: Functions is not mutated
func (v Volunteer) HasSubjectFunction() bool {
	for _, fn := range v.Functions {
		fn = strings.TrimSpace(fn)
		if fn == "" || strings.EqualFold(fn, DonorFunction) {
			continue
		}
		return true
	}
	return false
}

// InAnyCommittee reports whether the volunteer belongs to one of the given committees.
func (v Volunteer) InAnyCommittee(committees []int64) bool {
	if len(committees) == 0 || len(v.CommitteeMemberships) == 0 {
		return false
	}
	set := make(map[int64]struct{}, len(committees))
	for _, c := range committees {
		set[c] = struct{}{}
	}
	for _, c := range v.CommitteeMemberships {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}

// IsSubject decides whether the certificate requirement applies to the volunteer.
// Missing data means "not subject"; the function never fails.
// PRE: none
// POST: false for no functions, donor-only functions, or membership of an exempt committee
func IsSubject(v Volunteer, exemptCommittees []int64) bool {
	if !v.HasSubjectFunction() {
		return false
	}
	return !v.InAnyCommittee(exemptCommittees)
}
