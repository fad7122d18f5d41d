package compliance

import "time"

// ValidityYears is the fixed validity window of a certificate.
const ValidityYears = 3

const day = 24 * time.Hour

// ExpiresOn returns the calendar date on which the certificate stops being valid.
// PRE: certificateDate is not zero
func ExpiresOn(certificateDate time.Time) time.Time {
	return Date(certificateDate).AddDate(ValidityYears, 0, 0)
}

// IsExpired reports certificateDate + 3y < now, compared on calendar dates.
// An absent date is not "expired"; it is missing.
func IsExpired(certificateDate, now time.Time) bool {
	if certificateDate.IsZero() {
		return false
	}
	return ExpiresOn(certificateDate).Before(Date(now))
}

// DaysUntilExpiry returns ceil((certificateDate + 3y - now) / 1 day). ok is
// false when there is no certificate. Negative values mean the certificate
// has already expired and are returned as-is.
func DaysUntilExpiry(certificateDate, now time.Time) (days int, ok bool) {
	if certificateDate.IsZero() {
		return 0, false
	}
	diff := ExpiresOn(certificateDate).Sub(Date(now))
	q := diff / day
	if diff%day > 0 {
		q++
	}
	return int(q), true
}

// IsExpiringWithin reports 0 <= DaysUntilExpiry <= windowDays. Expired
// certificates are overdue, not "expiring soon".
func IsExpiringWithin(certificateDate, now time.Time, windowDays int) bool {
	days, ok := DaysUntilExpiry(certificateDate, now)
	if !ok {
		return false
	}
	return days >= 0 && days <= windowDays
}

// OlderThan reports whether the certificate is more than years old at now.
func OlderThan(certificateDate, now time.Time, years int) bool {
	if certificateDate.IsZero() {
		return false
	}
	return Date(certificateDate).AddDate(years, 0, 0).Before(Date(now))
}
