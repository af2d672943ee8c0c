package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lpr-service/internal/domain/lpr"
	"lpr-service/internal/utils"
)

type DetectionRepository struct {
	db *gorm.DB
}

func NewDetectionRepository(db *gorm.DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

type Detection struct {
	ID            uuid.UUID `gorm:"primaryKey"`
	Station       string    `gorm:"not null"`
	Camera        string    `gorm:"not null;index:idx_detections_camera_detected_at"`
	Plate         string    `gorm:"not null;index"`
	Date          string    `gorm:"not null"`
	Time          string    `gorm:"not null"`
	Color         string
	OriginalColor string
	VehicleImage  string `gorm:"not null"`
	PlateImage    string `gorm:"not null"`
	Alert         int    `gorm:"not null;default:0"`
	AlertLabel    string
	Street        string
	CityID        *uuid.UUID
	CityLabel     string
	Model         string
	RenavamID     string
	Owner         string
	DetectedAt    *time.Time `gorm:"index:idx_detections_camera_detected_at"`
	CreatedAt     time.Time
}

func (Detection) TableName() string {
	return "detections"
}

func detectionRow(d *lpr.Detection) Detection {
	row := Detection{
		ID:            d.ID,
		Station:       d.Station,
		Camera:        d.Camera,
		Plate:         d.Plate,
		Date:          d.Date,
		Time:          d.Time,
		Color:         d.Color,
		OriginalColor: d.OriginalColor,
		VehicleImage:  d.VehicleImage,
		PlateImage:    d.PlateImage,
		Alert:         int(d.Alert),
		AlertLabel:    d.AlertLabel,
		Street:        d.Street,
		CityLabel:     d.CityLabel,
		Model:         d.Model,
		RenavamID:     d.RenavamID,
		Owner:         d.Owner,
		CreatedAt:     d.CreatedAt,
	}
	if d.CityID != uuid.Nil {
		cityID := d.CityID
		row.CityID = &cityID
	}
	if !d.DetectedAt.IsZero() {
		detectedAt := d.DetectedAt
		row.DetectedAt = &detectedAt
	}
	return row
}

func (r Detection) toDomain() lpr.Detection {
	d := lpr.Detection{
		ID:            r.ID,
		Station:       r.Station,
		Camera:        r.Camera,
		Plate:         r.Plate,
		Date:          r.Date,
		Time:          r.Time,
		Color:         r.Color,
		OriginalColor: r.OriginalColor,
		VehicleImage:  r.VehicleImage,
		PlateImage:    r.PlateImage,
		Alert:         lpr.AlertType(r.Alert),
		AlertLabel:    r.AlertLabel,
		Street:        r.Street,
		CityLabel:     r.CityLabel,
		Model:         r.Model,
		RenavamID:     r.RenavamID,
		Owner:         r.Owner,
		CreatedAt:     r.CreatedAt,
	}
	if r.CityID != nil {
		d.CityID = *r.CityID
	}
	if r.DetectedAt != nil {
		d.DetectedAt = *r.DetectedAt
	}
	return d
}

func toDomainList(rows []Detection) []lpr.Detection {
	out := make([]lpr.Detection, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

func (r *DetectionRepository) Create(ctx context.Context, d *lpr.Detection) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}

	row := detectionRow(d)
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *DetectionRepository) Save(ctx context.Context, d *lpr.Detection) error {
	row := detectionRow(d)
	return r.db.WithContext(ctx).Save(&row).Error
}

func (r *DetectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*lpr.Detection, error) {
	var row Detection
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	d := row.toDomain()
	return &d, nil
}

// effectiveTimestamp mirrors lpr.Detection.Timestamp: rows stored without a
// detection time are ordered by their creation time, never as NULL.
const effectiveTimestamp = "COALESCE(detected_at, created_at)"

func (r *DetectionRepository) LastAlert(ctx context.Context, station, camera string) ([]lpr.Detection, error) {
	var rows []Detection
	err := r.db.WithContext(ctx).
		Where("station = ? AND camera = ? AND alert <> ?", station, camera, int(lpr.AlertNone)).
		Order(effectiveTimestamp + " DESC").
		Order("created_at DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

// Search returns detections newest first; equal timestamps keep insertion order.
func (r *DetectionRepository) Search(ctx context.Context, filter lpr.DetectionFilter) ([]lpr.Detection, error) {
	query := r.db.WithContext(ctx).Model(&Detection{})

	if plate := utils.NormalizePlate(filter.Plate); plate != "" {
		if pattern, ok := utils.PlateLikePattern(plate); ok {
			query = query.Where(`UPPER(plate) LIKE ? ESCAPE '\'`, pattern)
		} else {
			query = query.Where("UPPER(plate) = ?", plate)
		}
	}
	if filter.Camera != "" {
		query = query.Where("camera = ?", filter.Camera)
	}
	if filter.Color != "" {
		query = query.Where("UPPER(color) = ?", strings.ToUpper(strings.TrimSpace(filter.Color)))
	}
	if filter.From != nil {
		query = query.Where(effectiveTimestamp+" >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where(effectiveTimestamp+" <= ?", *filter.To)
	}

	var rows []Detection
	err := query.Order(effectiveTimestamp + " DESC").Order("created_at ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

func (r *DetectionRepository) Neighbours(ctx context.Context, camera string, from, to time.Time, excludePlate string) ([]lpr.Detection, error) {
	var rows []Detection
	err := r.db.WithContext(ctx).
		Where("camera = ? AND detected_at >= ? AND detected_at <= ? AND plate <> ?", camera, from, to, excludePlate).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}
