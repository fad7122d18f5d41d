package compliance_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ledenbeheer/internal/domain/compliance"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestResolve_ValidityBoundary checks the strict 3 year window.
func TestResolve_ValidityBoundary(t *testing.T) {
	rec := compliance.Record{VolunteerID: 1, CertificateDate: date(2021, time.January, 15)}

	tests := []struct {
		name string
		now  time.Time
		want compliance.Validity
	}{
		{"before boundary", date(2024, time.January, 10), compliance.ValidityValid},
		{"on expiry date", time.Date(2024, time.January, 15, 18, 30, 0, 0, time.UTC), compliance.ValidityValid},
		{"day after", date(2024, time.January, 16), compliance.ValidityExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := compliance.Resolve(rec, tt.now)
			if st.Validity != tt.want {
				t.Errorf("expected validity %s, got %s", tt.want, st.Validity)
			}
			if st.Category != compliance.CategoryRenewal {
				t.Errorf("expected category %s, got %s", compliance.CategoryRenewal, st.Category)
			}
		})
	}
}

// TestResolve_Missing checks that an absent certificate is new and missing.
func TestResolve_Missing(t *testing.T) {
	st := compliance.Resolve(compliance.NewRecord(4), date(2024, time.March, 1))
	assert.Equal(t, compliance.CategoryNew, st.Category)
	assert.Equal(t, compliance.ValidityMissing, st.Validity)
	assert.Equal(t, compliance.BadgeNone, st.Badge())
}

// TestStatusBadge tests the validity to badge projection.
func TestStatusBadge(t *testing.T) {
	assert.Equal(t, "ok", compliance.Status{Validity: compliance.ValidityValid}.Badge())
	assert.Equal(t, "expired", compliance.Status{Validity: compliance.ValidityExpired}.Badge())
	assert.Equal(t, "none", compliance.Status{Validity: compliance.ValidityMissing}.Badge())

	both := compliance.Resolve(compliance.Record{VolunteerID: 1, CertificateDate: date(2019, time.May, 1)}, date(2024, time.May, 1))
	assert.Equal(t, "renewal", both.CategoryBadge())
	assert.Equal(t, "expired", both.Badge())
}

// TestCategoryTotal checks the category is decided by certificate presence alone.
func TestCategoryTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		now := date(2020, time.January, 1).AddDate(0, 0, rapid.IntRange(0, 3000).Draw(t, "now"))
		rec := compliance.NewRecord(1)
		if rapid.Bool().Draw(t, "hasCert") {
			rec.CertificateDate = date(2010, time.January, 1).AddDate(0, 0, rapid.IntRange(0, 6000).Draw(t, "cert"))
		}
		st := compliance.Resolve(rec, now)
		if rec.HasCertificate() && st.Category != compliance.CategoryRenewal {
			t.Fatalf("certificate present but category %q", st.Category)
		}
		if !rec.HasCertificate() && (st.Category != compliance.CategoryNew || st.Validity != compliance.ValidityMissing) {
			t.Fatalf("certificate absent but status %+v", st)
		}
	})
}

// TestDaysUntilExpiry tests the day arithmetic around the expiry date.
func TestDaysUntilExpiry(t *testing.T) {
	now := date(2024, time.June, 1)

	_, ok := compliance.DaysUntilExpiry(time.Time{}, now)
	assert.False(t, ok, "absent certificate has no expiry")

	days, ok := compliance.DaysUntilExpiry(now.AddDate(-3, 0, 10), now)
	require.True(t, ok)
	assert.Equal(t, 10, days)
	assert.True(t, compliance.IsExpiringWithin(now.AddDate(-3, 0, 10), now, 30))

	days, ok = compliance.DaysUntilExpiry(now.AddDate(-3, 0, -5), now)
	require.True(t, ok)
	assert.Equal(t, -5, days)
	assert.False(t, compliance.IsExpiringWithin(now.AddDate(-3, 0, -5), now, 30))
}

// TestIsExpiringWithin_Boundaries covers the [0, window] range.
func TestIsExpiringWithin_Boundaries(t *testing.T) {
	now := date(2024, time.June, 1)
	tests := []struct {
		name      string
		daysLeft  int
		window    int
		wantMatch bool
	}{
		{"expires today", 0, 30, true},
		{"last day of window", 30, 30, true},
		{"just outside window", 31, 30, false},
		{"expired yesterday", -1, 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := now.AddDate(-3, 0, tt.daysLeft)
			if got := compliance.IsExpiringWithin(cert, now, tt.window); got != tt.wantMatch {
				t.Errorf("IsExpiringWithin(%d days left, window %d) = %v, expected %v", tt.daysLeft, tt.window, got, tt.wantMatch)
			}
		})
	}
}

// TestDaysUntilExpiry_IgnoresTimeOfDay checks calendar-date semantics.
func TestDaysUntilExpiry_IgnoresTimeOfDay(t *testing.T) {
	cert := time.Date(2021, time.March, 10, 23, 59, 0, 0, time.UTC)
	now := time.Date(2024, time.March, 9, 0, 1, 0, 0, time.UTC)
	days, ok := compliance.DaysUntilExpiry(cert, now)
	require.True(t, ok)
	assert.Equal(t, 1, days)
}

// TestOlderThan tests the "needs attention" age check.
func TestOlderThan(t *testing.T) {
	now := date(2024, time.June, 1)
	assert.False(t, compliance.OlderThan(time.Time{}, now, 3))
	assert.True(t, compliance.OlderThan(date(2021, time.May, 31), now, 3))
	assert.False(t, compliance.OlderThan(date(2021, time.June, 1), now, 3))
}

// TestStageOf walks the lifecycle.
func TestStageOf(t *testing.T) {
	now := date(2024, time.June, 1)
	cert := date(2020, time.January, 10)

	tests := []struct {
		name    string
		subject bool
		rec     compliance.Record
		want    compliance.Stage
	}{
		{"not subject", false, compliance.Record{VolunteerID: 1}, compliance.StageNotSubject},
		{"missing", true, compliance.Record{VolunteerID: 1}, compliance.StageMissing},
		{"reminded", true, compliance.Record{VolunteerID: 1, ReminderSentDate: date(2024, time.May, 1)}, compliance.StageReminded},
		{
			name:    "registry submitted",
			subject: true,
			rec:     compliance.Record{VolunteerID: 1, ReminderSentDate: date(2024, time.May, 1), RegistrySubmittedDate: date(2024, time.May, 3)},
			want:    compliance.StageRegistrySubmitted,
		},
		{"valid", true, compliance.Record{VolunteerID: 1, CertificateDate: date(2023, time.January, 1), ReminderSentDate: date(2022, time.December, 1)}, compliance.StageValid},
		{"expired, old reminder", true, compliance.Record{VolunteerID: 1, CertificateDate: cert, ReminderSentDate: date(2019, time.December, 1)}, compliance.StageExpired},
		{"expired, reminded again", true, compliance.Record{VolunteerID: 1, CertificateDate: cert, ReminderSentDate: date(2024, time.April, 2)}, compliance.StageReminded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := compliance.StageOf(tt.subject, tt.rec, now); got != tt.want {
				t.Errorf("expected stage %s, got %s", tt.want, got)
			}
		})
	}
}

// TestRecordMarks checks that marks only touch their own date.
func TestRecordMarks(t *testing.T) {
	now := time.Date(2024, time.June, 1, 14, 5, 0, 0, time.UTC)
	rec := compliance.Record{VolunteerID: 1, CertificateDate: date(2021, time.February, 2)}

	rec.MarkReminderSent(now)
	assert.Equal(t, date(2024, time.June, 1), rec.ReminderSentDate)
	assert.Equal(t, date(2021, time.February, 2), rec.CertificateDate)
	assert.True(t, rec.RegistrySubmittedDate.IsZero())

	rec.MarkRegistrySubmitted(now)
	assert.Equal(t, date(2024, time.June, 1), rec.RegistrySubmittedDate)
}

// TestParseCategory accepts both vocabularies.
func TestParseCategory(t *testing.T) {
	c, ok := compliance.ParseCategory("vernieuwing")
	assert.True(t, ok)
	assert.Equal(t, compliance.CategoryRenewal, c)
	c, ok = compliance.ParseCategory("new")
	assert.True(t, ok)
	assert.Equal(t, compliance.CategoryNew, c)
	_, ok = compliance.ParseCategory("other")
	assert.False(t, ok)
}
