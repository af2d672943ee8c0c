package lpr

import (
	"time"

	"github.com/google/uuid"
)

type AlertType int

const (
	AlertNone    AlertType = 0
	MaxAlertType AlertType = 5
)

func (t AlertType) Valid() bool {
	return t >= AlertNone && t <= MaxAlertType
}

type Detection struct {
	ID            uuid.UUID `json:"id"`
	Station       string    `json:"station"`
	Camera        string    `json:"camera"`
	Plate         string    `json:"plate"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Color         string    `json:"color"`
	OriginalColor string    `json:"original_color"`
	VehicleImage  string    `json:"vehicle_image"`
	PlateImage    string    `json:"plate_image"`
	Alert         AlertType `json:"alert"`
	AlertLabel    string    `json:"alert_type"`
	Street        string    `json:"street"`
	CityID        uuid.UUID `json:"city"`
	CityLabel     string    `json:"city_label"`
	Model         string    `json:"model"`
	RenavamID     string    `json:"renavam"`
	Owner         string    `json:"owner"`
	DetectedAt    time.Time `json:"detected_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Timestamp returns the detection time, falling back to the creation time
// for records stored without one.
func (d *Detection) Timestamp() time.Time {
	if d.DetectedAt.IsZero() {
		return d.CreatedAt
	}
	return d.DetectedAt
}

type RegistryEntry struct {
	MakeAndModel flexString `json:"makeAndModel"`
	RenavamID    flexString `json:"renavamId"`
	Owner        string     `json:"owner"`
	Color        string     `json:"color"`
}

type AlertRecord struct {
	ID        uuid.UUID `json:"id"`
	Plate     string    `json:"plate"`
	Type      AlertType `json:"type"`
	Active    bool      `json:"active"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Recipient is the public part of a user profile. Credentials, role and
// activity timestamps never reach it.
type Recipient struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	CityID  uuid.UUID `json:"city"`
	GroupID string    `json:"group,omitempty"`
}

type Notification struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user"`
	DetectionID uuid.UUID `json:"vehicle"`
	CreatedAt   time.Time `json:"created_at"`
}

type AuditEntry struct {
	Action      string
	Description string
	UserID      *uuid.UUID
	Metadata    map[string]interface{}
}

type City struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"city"`
	State string    `json:"state"`
}

func (c *City) Label() string {
	return c.Name + "-" + c.State
}

type Station struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	CityID uuid.UUID `json:"city"`
}

type Camera struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"camera_id"`
	StationID uuid.UUID `json:"station"`
	CityID    uuid.UUID `json:"city"`
	Street    string    `json:"street"`
}

type Location struct {
	Station *Station `json:"station"`
	Camera  *Camera  `json:"camera"`
	City    *City    `json:"city"`
}

type CompanionResult struct {
	Vehicles []Detection `json:"vehicles"`
	Target   *Detection  `json:"target"`
	Total    int         `json:"total"`
}

// DetectionFilter narrows the detection stream fed to the companion
// correlator. Plate accepts '*' wildcards.
type DetectionFilter struct {
	Plate  string
	Camera string
	Color  string
	From   *time.Time
	To     *time.Time
}
