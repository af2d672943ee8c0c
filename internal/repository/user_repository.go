package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lpr-service/internal/domain/lpr"
)

type User struct {
	ID           uuid.UUID `gorm:"primaryKey"`
	Name         string    `gorm:"not null"`
	Email        string
	Phone        string
	PasswordHash string
	Role         string
	CityID       *uuid.UUID `gorm:"index:idx_users_city_group"`
	GroupID      string     `gorm:"index:idx_users_city_group"`
	DetectedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// recipientColumns never includes credentials, role or activity timestamps.
var recipientColumns = []string{"id", "name", "email", "phone", "city_id", "group_id"}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (u User) toRecipient() lpr.Recipient {
	rcpt := lpr.Recipient{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Phone:   u.Phone,
		GroupID: u.GroupID,
	}
	if u.CityID != nil {
		rcpt.CityID = *u.CityID
	}
	return rcpt
}

func (r *UserRepository) FindRecipient(ctx context.Context, id uuid.UUID) (*lpr.Recipient, error) {
	var user User
	err := r.db.WithContext(ctx).Select(recipientColumns).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rcpt := user.toRecipient()
	return &rcpt, nil
}

func (r *UserRepository) FindBroadcastMembers(ctx context.Context, cityID uuid.UUID, groups []string) ([]lpr.Recipient, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	var users []User
	err := r.db.WithContext(ctx).
		Select(recipientColumns).
		Where("city_id = ? AND group_id IN ?", cityID, groups).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	out := make([]lpr.Recipient, 0, len(users))
	for _, u := range users {
		out = append(out, u.toRecipient())
	}
	return out, nil
}
