package policy

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ledenbeheer/internal/adapters/storage"
	domain "ledenbeheer/internal/domain/policy"
)

// SQLiteStore implements Store using SQLite. The exempt committee list is
// kept as a JSON array in a single column.
type SQLiteStore struct {
	db  storage.SQLDB
	now func() time.Time
}

// NewSQLiteStore creates a new policy store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

// Load returns the stored policy.
// POST: Returns the policy or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) Load(ctx context.Context) (domain.Policy, error) {
	var p domain.Policy
	var exempt string
	err := s.db.QueryRowContext(ctx,
		`SELECT from_email, from_name, template_new, template_renewal, exempt_committees FROM vog_policy WHERE id = 1`,
	).Scan(&p.FromEmail, &p.FromName, &p.TemplateNew, &p.TemplateRenewal, &exempt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Policy{}, fmt.Errorf("vog policy: %w", storage.ErrNotFound)
	}
	if err != nil {
		return domain.Policy{}, err
	}
	if err := json.Unmarshal([]byte(exempt), &p.ExemptCommittees); err != nil {
		return domain.Policy{}, fmt.Errorf("decode exempt committees: %w", err)
	}
	return p, nil
}

// Save replaces the stored policy.
// PRE: p.Validate() == nil
// POST: Exactly one policy row exists and equals p
func (s *SQLiteStore) Save(ctx context.Context, p domain.Policy) error {
	exempt := p.ExemptCommittees
	if exempt == nil {
		exempt = []int64{}
	}
	raw, err := json.Marshal(exempt)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vog_policy (id, from_email, from_name, template_new, template_renewal, exempt_committees, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			from_email = excluded.from_email,
			from_name = excluded.from_name,
			template_new = excluded.template_new,
			template_renewal = excluded.template_renewal,
			exempt_committees = excluded.exempt_committees,
			updated_at = excluded.updated_at`,
		p.FromEmail, p.FromName, p.TemplateNew, p.TemplateRenewal, string(raw), s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save vog policy: %w", err)
	}
	return nil
}
