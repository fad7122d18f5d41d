package compliance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledenbeheer/internal/adapters/storage"
	domain "ledenbeheer/internal/domain/compliance"
)

// dateLayout stores calendar dates only; time of day is never kept.
const dateLayout = "2006-01-02"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new compliance record store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get retrieves the record of a volunteer.
// PRE: volunteerID > 0
// POST: Returns the record or an error wrapping storage.ErrNotFound when none exists yet
func (s *SQLiteStore) Get(ctx context.Context, volunteerID int64) (domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT volunteer_id, certificate_date, reminder_sent_date, registry_submitted_date
		 FROM vog_record WHERE volunteer_id = ?`, volunteerID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, fmt.Errorf("vog record %d: %w", volunteerID, storage.ErrNotFound)
	}
	return rec, err
}

// Save upserts a record.
// PRE: rec.Validate() == nil
// POST: Stored dates equal rec's calendar dates; absent dates are NULL
func (s *SQLiteStore) Save(ctx context.Context, rec domain.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vog_record (volunteer_id, certificate_date, reminder_sent_date, registry_submitted_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(volunteer_id) DO UPDATE SET
			certificate_date = excluded.certificate_date,
			reminder_sent_date = excluded.reminder_sent_date,
			registry_submitted_date = excluded.registry_submitted_date`,
		rec.VolunteerID,
		formatDate(rec.CertificateDate),
		formatDate(rec.ReminderSentDate),
		formatDate(rec.RegistrySubmittedDate))
	if err != nil {
		return fmt.Errorf("save vog record %d: %w", rec.VolunteerID, err)
	}
	return nil
}

const (
	upsertReminderSent = `
		INSERT INTO vog_record (volunteer_id, reminder_sent_date) VALUES (?, ?)
		ON CONFLICT(volunteer_id) DO UPDATE SET reminder_sent_date = excluded.reminder_sent_date`
	upsertRegistrySubmitted = `
		INSERT INTO vog_record (volunteer_id, registry_submitted_date) VALUES (?, ?)
		ON CONFLICT(volunteer_id) DO UPDATE SET registry_submitted_date = excluded.registry_submitted_date`
	upsertCertificateIfAbsent = `
		INSERT INTO vog_record (volunteer_id, certificate_date) VALUES (?, ?)
		ON CONFLICT(volunteer_id) DO UPDATE SET certificate_date = excluded.certificate_date
		WHERE vog_record.certificate_date IS NULL`
	upsertCertificateIfNewer = `
		INSERT INTO vog_record (volunteer_id, certificate_date) VALUES (?, ?)
		ON CONFLICT(volunteer_id) DO UPDATE SET certificate_date = excluded.certificate_date
		WHERE vog_record.certificate_date IS NULL OR vog_record.certificate_date < excluded.certificate_date`
)

// MarkReminderSent sets the reminder date of one record.
// PRE: volunteerID > 0, date is not zero
// POST: reminder_sent_date holds date; certificate and registry dates are untouched
func (s *SQLiteStore) MarkReminderSent(ctx context.Context, volunteerID int64, date time.Time) error {
	_, err := s.upsertDate(ctx, upsertReminderSent, volunteerID, date)
	return err
}

// MarkRegistrySubmitted sets the registry-submitted date of one record.
// PRE: volunteerID > 0, date is not zero
// POST: registry_submitted_date holds date; certificate and reminder dates are untouched
func (s *SQLiteStore) MarkRegistrySubmitted(ctx context.Context, volunteerID int64, date time.Time) error {
	_, err := s.upsertDate(ctx, upsertRegistrySubmitted, volunteerID, date)
	return err
}

// SeedCertificate records a certificate date when none is stored yet.
func (s *SQLiteStore) SeedCertificate(ctx context.Context, volunteerID int64, date time.Time) (bool, error) {
	return s.upsertDate(ctx, upsertCertificateIfAbsent, volunteerID, date)
}

// RenewCertificate records date when it is later than the stored certificate
// date, or when none is stored.
func (s *SQLiteStore) RenewCertificate(ctx context.Context, volunteerID int64, date time.Time) (bool, error) {
	return s.upsertDate(ctx, upsertCertificateIfNewer, volunteerID, date)
}

// upsertDate runs one single-column upsert and reports whether a row changed.
// The statement runs atomically, so concurrent writes to other columns survive.
func (s *SQLiteStore) upsertDate(ctx context.Context, query string, volunteerID int64, date time.Time) (bool, error) {
	if volunteerID <= 0 {
		return false, errors.New("compliance record needs a volunteer id")
	}
	if date.IsZero() {
		return false, fmt.Errorf("vog record %d: date is required", volunteerID)
	}
	res, err := s.db.ExecContext(ctx, query, volunteerID, formatDate(date))
	if err != nil {
		return false, fmt.Errorf("update vog record %d: %w", volunteerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update vog record %d: %w", volunteerID, err)
	}
	return n > 0, nil
}

// List returns every stored record ordered by volunteer id.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT volunteer_id, certificate_date, reminder_sent_date, registry_submitted_date
		 FROM vog_record ORDER BY volunteer_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.Record, error) {
	var rec domain.Record
	var cert, reminder, registry sql.NullString
	if err := row.Scan(&rec.VolunteerID, &cert, &reminder, &registry); err != nil {
		return domain.Record{}, err
	}
	var err error
	if rec.CertificateDate, err = parseDate(cert); err != nil {
		return domain.Record{}, err
	}
	if rec.ReminderSentDate, err = parseDate(reminder); err != nil {
		return domain.Record{}, err
	}
	if rec.RegistrySubmittedDate, err = parseDate(registry); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

func formatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return domain.Date(t).Format(dateLayout)
}

func parseDate(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, ns.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse vog date %q: %w", ns.String, err)
	}
	return t, nil
}
