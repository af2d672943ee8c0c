package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"lpr-service/internal/domain/lpr"
)

type City struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	State     string    `gorm:"not null"`
	CreatedAt time.Time
}

type Station struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	Code      string    `gorm:"not null;uniqueIndex"`
	Name      string
	CityID    uuid.UUID `gorm:"not null"`
	CreatedAt time.Time
}

type Camera struct {
	ID        uuid.UUID `gorm:"primaryKey"`
	Code      string    `gorm:"not null;uniqueIndex:ux_cameras_station_code"`
	StationID uuid.UUID `gorm:"not null;uniqueIndex:ux_cameras_station_code"`
	CityID    uuid.UUID `gorm:"not null"`
	Street    string
	CreatedAt time.Time
}

// ReferenceRepository reads station/camera/city data. The tables are
// maintained elsewhere and change rarely, so hits are cached.
type ReferenceRepository struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewReferenceRepository(db *gorm.DB, ttl time.Duration) *ReferenceRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReferenceRepository{
		db:    db,
		cache: cache.New(ttl, ttl*2),
	}
}

func (r *ReferenceRepository) StationByCode(ctx context.Context, code string) (*lpr.Station, error) {
	key := "station:" + code
	if cached, found := r.cache.Get(key); found {
		return cached.(*lpr.Station), nil
	}

	var row Station
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	station := &lpr.Station{ID: row.ID, Code: row.Code, Name: row.Name, CityID: row.CityID}
	r.cache.Set(key, station, cache.DefaultExpiration)
	return station, nil
}

func (r *ReferenceRepository) CameraByCode(ctx context.Context, stationID uuid.UUID, code string) (*lpr.Camera, error) {
	key := "camera:" + stationID.String() + ":" + code
	if cached, found := r.cache.Get(key); found {
		return cached.(*lpr.Camera), nil
	}

	var row Camera
	err := r.db.WithContext(ctx).Where("station_id = ? AND code = ?", stationID, code).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	camera := &lpr.Camera{ID: row.ID, Code: row.Code, StationID: row.StationID, CityID: row.CityID, Street: row.Street}
	r.cache.Set(key, camera, cache.DefaultExpiration)
	return camera, nil
}

func (r *ReferenceRepository) CityByID(ctx context.Context, id uuid.UUID) (*lpr.City, error) {
	key := "city:" + id.String()
	if cached, found := r.cache.Get(key); found {
		return cached.(*lpr.City), nil
	}

	var row City
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	city := &lpr.City{ID: row.ID, Name: row.Name, State: row.State}
	r.cache.Set(key, city, cache.DefaultExpiration)
	return city, nil
}
