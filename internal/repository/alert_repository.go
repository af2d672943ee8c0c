package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lpr-service/internal/domain/lpr"
)

type Alert struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	Plate     string    `gorm:"not null;index:idx_alerts_plate_type_active"`
	Type      int       `gorm:"not null;index:idx_alerts_plate_type_active"`
	Active    bool      `gorm:"not null;default:true;index:idx_alerts_plate_type_active"`
	CreatedBy uuid.UUID `gorm:"not null"`
	CreatedAt time.Time
}

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// FindActive returns the most recent active alert for the plate and type,
// or nil when there is none.
func (r *AlertRepository) FindActive(ctx context.Context, plate string, alertType lpr.AlertType) (*lpr.AlertRecord, error) {
	var row Alert
	err := r.db.WithContext(ctx).
		Where("plate = ? AND type = ? AND active = ?", plate, int(alertType), true).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &lpr.AlertRecord{
		ID:        row.ID,
		Plate:     row.Plate,
		Type:      lpr.AlertType(row.Type),
		Active:    row.Active,
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt,
	}, nil
}
