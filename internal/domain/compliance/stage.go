package compliance

import "time"

// Stage is the position of a volunteer in the certificate lifecycle:
//
//	not-subject
//	missing -> reminded -> registry-submitted -> valid -> expired -> reminded ...
//
// Stages are computed from the stored dates, never persisted.
type Stage string

const (
	StageNotSubject        Stage = "not-subject"
	StageMissing           Stage = "missing"
	StageReminded          Stage = "reminded"
	StageRegistrySubmitted Stage = "registry-submitted"
	StageValid             Stage = "valid"
	StageExpired           Stage = "expired"
)

// StageOf derives the lifecycle stage. Follow-up dates only count for the
// current cycle: when a certificate exists they must fall on or after it.
// PRE: none
// POST: Returns exactly one Stage
func StageOf(subject bool, r Record, now time.Time) Stage {
	if !subject {
		return StageNotSubject
	}
	st := Resolve(r, now)
	if st.Validity == ValidityValid {
		return StageValid
	}
	if inCycle(r.RegistrySubmittedDate, r.CertificateDate) {
		return StageRegistrySubmitted
	}
	if inCycle(r.ReminderSentDate, r.CertificateDate) {
		return StageReminded
	}
	if st.Validity == ValidityExpired {
		return StageExpired
	}
	return StageMissing
}

func inCycle(step, certificate time.Time) bool {
	if step.IsZero() {
		return false
	}
	if certificate.IsZero() {
		return true
	}
	return !Date(step).Before(Date(certificate))
}
