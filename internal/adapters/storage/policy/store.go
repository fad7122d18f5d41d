package policy

import (
	"context"

	domain "ledenbeheer/internal/domain/policy"
)

// Store persists the singleton VOG policy.
type Store interface {
	// Load returns the stored policy or an error wrapping storage.ErrNotFound
	// when settings were never saved.
	Load(ctx context.Context) (domain.Policy, error)

	// Save replaces the stored policy.
	Save(ctx context.Context, p domain.Policy) error
}

// Ensure SQLiteStore implements Store and can commit holder saves.
var (
	_ Store            = (*SQLiteStore)(nil)
	_ domain.Committer = (*SQLiteStore)(nil)
)
