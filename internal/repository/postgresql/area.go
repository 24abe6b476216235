package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-backend-go/internal/domain/area"
	"github.com/cmlabs-hris/attendance-backend-go/internal/pkg/database"
)

type areaRepository struct {
	db *database.DB
}

const areaColumns = `id, name, latitude, longitude, radius_meters, is_default, created_at, updated_at`

func scanArea(row scanner) (area.Area, error) {
	var a area.Area
	err := row.Scan(&a.ID, &a.Name, &a.Latitude, &a.Longitude, &a.RadiusMeters, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// GetByID implements area.AreaRepository.
func (r *areaRepository) GetByID(ctx context.Context, id string) (area.Area, error) {
	q := GetQuerier(ctx, r.db)

	a, err := scanArea(q.QueryRow(ctx, `SELECT `+areaColumns+` FROM attendance_areas WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return area.Area{}, area.ErrAreaNotFound
		}
		return area.Area{}, fmt.Errorf("failed to get area by ID: %w", err)
	}

	return a, nil
}

// GetDefault implements area.AreaRepository.
func (r *areaRepository) GetDefault(ctx context.Context) (area.Area, error) {
	q := GetQuerier(ctx, r.db)

	// At most one row is flagged; a partial unique index enforces it.
	a, err := scanArea(q.QueryRow(ctx, `SELECT `+areaColumns+` FROM attendance_areas WHERE is_default = TRUE`))
	if err != nil {
		if isNoRows(err) {
			return area.Area{}, area.ErrAreaNotFound
		}
		return area.Area{}, fmt.Errorf("failed to get default area: %w", err)
	}

	return a, nil
}

func NewAreaRepository(db *database.DB) area.AreaRepository {
	return &areaRepository{db: db}
}
