package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lpr-service/internal/domain/lpr"
)

type Notification struct {
	ID          uuid.UUID `gorm:"primaryKey"`
	UserID      uuid.UUID `gorm:"not null;index"`
	DetectionID uuid.UUID `gorm:"not null"`
	CreatedAt   time.Time
}

type AuditLog struct {
	ID          uuid.UUID `gorm:"primaryKey"`
	Action      string    `gorm:"not null"`
	Description string
	UserID      *uuid.UUID
	Metadata    datatypes.JSON
	CreatedAt   time.Time `gorm:"index"`
}

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertMany stores all notifications in one statement and returns them
// with generated ids.
func (r *NotificationRepository) InsertMany(ctx context.Context, pending []lpr.Notification) ([]lpr.Notification, error) {
	if len(pending) == 0 {
		return nil, nil
	}

	now := time.Now()
	rows := make([]Notification, 0, len(pending))
	for _, n := range pending {
		rows = append(rows, Notification{
			ID:          uuid.New(),
			UserID:      n.UserID,
			DetectionID: n.DetectionID,
			CreatedAt:   now,
		})
	}

	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]lpr.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, lpr.Notification{
			ID:          row.ID,
			UserID:      row.UserID,
			DetectionID: row.DetectionID,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out, nil
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InsertMany(ctx context.Context, entries []lpr.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]AuditLog, 0, len(entries))
	for _, e := range entries {
		row := AuditLog{
			ID:          uuid.New(),
			Action:      e.Action,
			Description: e.Description,
			UserID:      e.UserID,
			CreatedAt:   now,
		}
		if len(e.Metadata) > 0 {
			raw, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("encode audit metadata: %w", err)
			}
			row.Metadata = datatypes.JSON(raw)
		}
		rows = append(rows, row)
	}

	return r.db.WithContext(ctx).Create(&rows).Error
}
