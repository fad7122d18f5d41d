package volunteer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledenbeheer/internal/adapters/storage"
	domain "ledenbeheer/internal/domain/volunteer"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new volunteer store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Volunteer with its functions and committees.
// PRE: id > 0
// POST: Returns the entity or an error wrapping storage.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (domain.Volunteer, error) {
	var v domain.Volunteer
	var current int
	err := s.db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, email, current FROM volunteer WHERE id = ?", id,
	).Scan(&v.ID, &v.FirstName, &v.LastName, &v.Email, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Volunteer{}, fmt.Errorf("volunteer %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return domain.Volunteer{}, err
	}
	v.Current = current == 1

	funcs, err := s.loadFunctions(ctx, "WHERE volunteer_id = ?", id)
	if err != nil {
		return domain.Volunteer{}, err
	}
	committees, err := s.loadCommittees(ctx, "WHERE volunteer_id = ?", id)
	if err != nil {
		return domain.Volunteer{}, err
	}
	v.Functions = funcs[id]
	v.CommitteeMemberships = committees[id]
	return v, nil
}

// List returns volunteers ordered by id.
// PRE: none
// POST: Functions and committees are populated for every volunteer
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Volunteer, error) {
	query := "SELECT id, first_name, last_name, email, current FROM volunteer"
	if filter.CurrentOnly {
		query += " WHERE current = 1"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	var list []domain.Volunteer
	for rows.Next() {
		var v domain.Volunteer
		var current int
		if err := rows.Scan(&v.ID, &v.FirstName, &v.LastName, &v.Email, &current); err != nil {
			rows.Close()
			return nil, err
		}
		v.Current = current == 1
		list = append(list, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	funcs, err := s.loadFunctions(ctx, "")
	if err != nil {
		return nil, err
	}
	committees, err := s.loadCommittees(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Functions = funcs[list[i].ID]
		list[i].CommitteeMemberships = committees[list[i].ID]
	}
	return list, nil
}

// Save upserts a Volunteer and replaces its functions and committees.
// PRE: value.Validate() == nil
// POST: Stored row and link tables match value
func (s *SQLiteStore) Save(ctx context.Context, value domain.Volunteer) error {
	if err := value.Validate(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	current := 0
	if value.Current {
		current = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO volunteer (id, first_name, last_name, email, current) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			current = excluded.current`,
		value.ID, value.FirstName, value.LastName, value.Email, current)
	if err != nil {
		return fmt.Errorf("save volunteer %d: %w", value.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM volunteer_function WHERE volunteer_id = ?", value.ID); err != nil {
		return err
	}
	for _, f := range value.Functions {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO volunteer_function (volunteer_id, function) VALUES (?, ?)", value.ID, f); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM volunteer_committee WHERE volunteer_id = ?", value.ID); err != nil {
		return err
	}
	for _, c := range value.CommitteeMemberships {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO volunteer_committee (volunteer_id, committee_id) VALUES (?, ?)", value.ID, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) loadFunctions(ctx context.Context, where string, args ...any) (map[int64][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT volunteer_id, function FROM volunteer_function "+where+" ORDER BY volunteer_id, function", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var f string
		if err := rows.Scan(&id, &f); err != nil {
			return nil, err
		}
		out[id] = append(out[id], f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) loadCommittees(ctx context.Context, where string, args ...any) (map[int64][]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT volunteer_id, committee_id FROM volunteer_committee "+where+" ORDER BY volunteer_id, committee_id", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var id, c int64
		if err := rows.Scan(&id, &c); err != nil {
			return nil, err
		}
		out[id] = append(out[id], c)
	}
	return out, rows.Err()
}
