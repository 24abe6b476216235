package area

import "context"

type AreaRepository interface {
	GetByID(ctx context.Context, id string) (Area, error)

	// GetDefault returns the organisation's shared area, or ErrAreaNotFound
	// when none is flagged.
	GetDefault(ctx context.Context) (Area, error)
}
