package compliance

import (
	"errors"
	"time"
)

// Record holds the persisted certificate dates for one volunteer. Status is
// never stored; it is derived from these dates on every read.
// A zero time.Time means the date is absent.
type Record struct {
	VolunteerID           int64
	CertificateDate       time.Time
	ReminderSentDate      time.Time
	RegistrySubmittedDate time.Time
}

// NewRecord returns the empty record created lazily on first evaluation.
// PRE: volunteerID > 0
// POST: All dates absent
func NewRecord(volunteerID int64) Record {
	return Record{VolunteerID: volunteerID}
}

// Validate checks if the Record has valid data.
// PRE: Record struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (r *Record) Validate() error {
	if r.VolunteerID <= 0 {
		return errors.New("compliance record needs a volunteer id")
	}
	return nil
}

// HasCertificate reports whether a certificate date has been recorded.
// INVARIANT: Record is not mutated
func (r Record) HasCertificate() bool {
	return !r.CertificateDate.IsZero()
}

// ReminderSent reports whether a reminder has ever been recorded.
func (r Record) ReminderSent() bool {
	return !r.ReminderSentDate.IsZero()
}

// RegistrySubmitted reports whether a registry request has ever been recorded.
func (r Record) RegistrySubmitted() bool {
	return !r.RegistrySubmittedDate.IsZero()
}

// MarkReminderSent records that a reminder went out on the date of now.
// POST: ReminderSentDate set; other dates untouched
func (r *Record) MarkReminderSent(now time.Time) {
	r.ReminderSentDate = Date(now)
}

// MarkRegistrySubmitted records that the request was filed with the registry.
// POST: RegistrySubmittedDate set; other dates untouched
func (r *Record) MarkRegistrySubmitted(now time.Time) {
	r.RegistrySubmittedDate = Date(now)
}

// Date truncates t to its calendar date, expressed at UTC midnight.
// All compliance arithmetic runs on calendar dates.
func Date(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
