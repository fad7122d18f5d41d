package volunteer

import (
	"context"

	domain "ledenbeheer/internal/domain/volunteer"
)

// Store is the member-directory view used by the compliance engine.
type Store interface {
	GetByID(ctx context.Context, id int64) (domain.Volunteer, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Volunteer, error)
	Save(ctx context.Context, value domain.Volunteer) error
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	CurrentOnly bool
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
