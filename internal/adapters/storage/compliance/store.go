package compliance

import (
	"context"
	"time"

	domain "ledenbeheer/internal/domain/compliance"
)

// Store persists compliance records. Records are created lazily and never
// deleted on their own; they go away with their volunteer.
type Store interface {
	Get(ctx context.Context, volunteerID int64) (domain.Record, error)
	Save(ctx context.Context, rec domain.Record) error
	List(ctx context.Context) ([]domain.Record, error)

	// MarkReminderSent and MarkRegistrySubmitted write one date column and
	// leave the others as stored, creating the record when needed.
	MarkReminderSent(ctx context.Context, volunteerID int64, date time.Time) error
	MarkRegistrySubmitted(ctx context.Context, volunteerID int64, date time.Time) error

	// SeedCertificate stores date only when no certificate is recorded.
	// RenewCertificate also replaces an older certificate date.
	// Both report whether the stored date changed.
	SeedCertificate(ctx context.Context, volunteerID int64, date time.Time) (bool, error)
	RenewCertificate(ctx context.Context, volunteerID int64, date time.Time) (bool, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
