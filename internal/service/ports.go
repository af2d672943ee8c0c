package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"lpr-service/internal/domain/lpr"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrReferenceNotFound = errors.New("reference data not found")
	ErrLookupFailed      = errors.New("key-value lookup failed")
)

type KeyValueLookup interface {
	Lookup(ctx context.Context, namespace, key string) (string, bool, error)
}

type ReferenceStore interface {
	StationByCode(ctx context.Context, code string) (*lpr.Station, error)
	CameraByCode(ctx context.Context, stationID uuid.UUID, code string) (*lpr.Camera, error)
	CityByID(ctx context.Context, id uuid.UUID) (*lpr.City, error)
}

type AlertStore interface {
	FindActive(ctx context.Context, plate string, alertType lpr.AlertType) (*lpr.AlertRecord, error)
}

type UserStore interface {
	FindRecipient(ctx context.Context, id uuid.UUID) (*lpr.Recipient, error)
	FindBroadcastMembers(ctx context.Context, cityID uuid.UUID, groups []string) ([]lpr.Recipient, error)
}

type DetectionStore interface {
	Create(ctx context.Context, d *lpr.Detection) error
	Save(ctx context.Context, d *lpr.Detection) error
	FindByID(ctx context.Context, id uuid.UUID) (*lpr.Detection, error)
	LastAlert(ctx context.Context, station, camera string) ([]lpr.Detection, error)
	Search(ctx context.Context, filter lpr.DetectionFilter) ([]lpr.Detection, error)
	NeighbourQuerier
}

type NeighbourQuerier interface {
	Neighbours(ctx context.Context, camera string, from, to time.Time, excludePlate string) ([]lpr.Detection, error)
}

type NotificationStore interface {
	InsertMany(ctx context.Context, pending []lpr.Notification) ([]lpr.Notification, error)
}

type AuditStore interface {
	InsertMany(ctx context.Context, entries []lpr.AuditEntry) error
}
