package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lpr-service/internal/domain/lpr"
	"lpr-service/internal/metrics"
	"lpr-service/internal/utils"
)

// DetectionPatch holds the editable fields of a stored detection. Nil
// fields are left untouched.
type DetectionPatch struct {
	Plate         *string `json:"plate"`
	Color         *string `json:"color"`
	OriginalColor *string `json:"original_color"`
	Model         *string `json:"model"`
	Owner         *string `json:"owner"`
	Street        *string `json:"street"`
}

type DetectionView struct {
	Detection *lpr.Detection `json:"vehicle"`
	Location  *lpr.Location  `json:"location"`
}

type DetectionService struct {
	detections DetectionStore
	references ReferenceStore
	enricher   *RegistryEnricher
	matcher    *AlertMatcher
	fanout     *Fanout
	location   *time.Location
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func NewDetectionService(
	detections DetectionStore,
	references ReferenceStore,
	enricher *RegistryEnricher,
	matcher *AlertMatcher,
	fanout *Fanout,
	location *time.Location,
	m *metrics.Metrics,
	log zerolog.Logger,
) *DetectionService {
	if location == nil {
		location = time.UTC
	}
	return &DetectionService{
		detections: detections,
		references: references,
		enricher:   enricher,
		matcher:    matcher,
		fanout:     fanout,
		location:   location,
		metrics:    m,
		log:        log,
	}
}

// Ingest turns a station image identifier into a persisted, enriched
// detection and notifies the alert recipients. Nothing is written when the
// identifier is malformed or the station/camera/city is unknown.
func (s *DetectionService) Ingest(ctx context.Context, identifier string) (*lpr.Detection, error) {
	if strings.TrimSpace(identifier) == "" {
		return nil, fmt.Errorf("%w: image identifier is required", ErrInvalidInput)
	}

	d, err := lpr.ParseIdentifier(identifier, s.location)
	if err != nil {
		return nil, err
	}
	// image names keep the station's spelling, lookups use the canonical plate
	d.Plate = utils.NormalizePlate(d.Plate)

	match, err := s.process(ctx, d)
	if err != nil {
		return nil, err
	}

	if err := s.detections.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create detection: %w", err)
	}
	s.metrics.ObserveDetection(int(d.Alert))

	s.log.Info().
		Str("detection_id", d.ID.String()).
		Str("station", d.Station).
		Str("camera", d.Camera).
		Str("plate", d.Plate).
		Int("alert", int(d.Alert)).
		Msg("detection ingested")

	if d.Alert != lpr.AlertNone {
		s.fanout.Dispatch(ctx, d, match)
	}

	return d, nil
}

// process runs the enrichment pipeline shared by ingestion and plate
// correction. Only d is mutated.
func (s *DetectionService) process(ctx context.Context, d *lpr.Detection) (*AlertMatch, error) {
	if err := s.enricher.Enrich(ctx, d); err != nil {
		return nil, err
	}

	loc, err := s.resolveLocation(ctx, d.Station, d.Camera)
	if err != nil {
		return nil, err
	}
	d.Street = loc.Camera.Street
	d.CityID = loc.Camera.CityID
	d.CityLabel = loc.City.Label()

	return s.matcher.Match(ctx, d, loc.Station.CityID)
}

func (s *DetectionService) resolveLocation(ctx context.Context, stationCode, cameraCode string) (*lpr.Location, error) {
	station, err := s.references.StationByCode(ctx, stationCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load station: %w", err)
	}
	if station == nil {
		return nil, referenceNotFound("station %q", stationCode)
	}

	camera, err := s.references.CameraByCode(ctx, station.ID, cameraCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load camera: %w", err)
	}
	if camera == nil {
		return nil, referenceNotFound("camera %q of station %q", cameraCode, stationCode)
	}

	city, err := s.references.CityByID(ctx, camera.CityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load city: %w", err)
	}
	if city == nil {
		return nil, referenceNotFound("city %s", camera.CityID)
	}

	return &lpr.Location{Station: station, Camera: camera, City: city}, nil
}

func referenceNotFound(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %w: %s", ErrNotFound, ErrReferenceNotFound, fmt.Sprintf(format, args...))
}

func (s *DetectionService) Get(ctx context.Context, id uuid.UUID) (*DetectionView, error) {
	d, err := s.detections.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load detection: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: detection %s", ErrNotFound, id)
	}

	view := &DetectionView{Detection: d}
	loc, err := s.resolveLocation(ctx, d.Station, d.Camera)
	switch {
	case err == nil:
		view.Location = loc
	case errors.Is(err, ErrReferenceNotFound):
		// станцию или камеру могли удалить после записи
		s.log.Warn().Err(err).Str("detection_id", id.String()).Msg("detection location no longer resolves")
	default:
		return nil, err
	}

	return view, nil
}

func (s *DetectionService) LastAlert(ctx context.Context, station, camera string) ([]lpr.Detection, error) {
	station = strings.TrimSpace(station)
	camera = strings.TrimSpace(camera)
	if station == "" || camera == "" {
		return nil, fmt.Errorf("%w: station and camera are required", ErrInvalidInput)
	}

	detections, err := s.detections.LastAlert(ctx, station, camera)
	if err != nil {
		return nil, fmt.Errorf("failed to load last alert: %w", err)
	}
	if detections == nil {
		detections = []lpr.Detection{}
	}
	return detections, nil
}

// Update applies patch to a stored detection. A plate correction reruns
// the ingestion pipeline and the alert fan-out; reprocessed reports it.
func (s *DetectionService) Update(ctx context.Context, id uuid.UUID, patch DetectionPatch) (d *lpr.Detection, reprocessed bool, err error) {
	d, err = s.detections.FindByID(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load detection: %w", err)
	}
	if d == nil {
		return nil, false, fmt.Errorf("%w: detection %s", ErrNotFound, id)
	}

	var match *AlertMatch
	if patch.Plate != nil {
		plate := utils.NormalizePlate(*patch.Plate)
		if plate == "" {
			return nil, false, fmt.Errorf("%w: plate must not be empty", ErrInvalidInput)
		}
		d.Plate = plate

		match, err = s.process(ctx, d)
		if err != nil {
			return nil, false, err
		}
		reprocessed = true
	} else {
		applyPlainFields(d, patch)
	}

	if err := s.detections.Save(ctx, d); err != nil {
		return nil, false, fmt.Errorf("failed to save detection: %w", err)
	}

	s.log.Info().
		Str("detection_id", d.ID.String()).
		Str("plate", d.Plate).
		Bool("reprocessed", reprocessed).
		Msg("detection updated")

	if reprocessed && d.Alert != lpr.AlertNone {
		s.fanout.Dispatch(ctx, d, match)
	}

	return d, reprocessed, nil
}

func applyPlainFields(d *lpr.Detection, patch DetectionPatch) {
	if patch.Color != nil {
		d.Color = strings.TrimSpace(*patch.Color)
	}
	if patch.OriginalColor != nil {
		d.OriginalColor = strings.TrimSpace(*patch.OriginalColor)
	}
	if patch.Model != nil {
		d.Model = strings.TrimSpace(*patch.Model)
	}
	if patch.Owner != nil {
		d.Owner = strings.TrimSpace(*patch.Owner)
	}
	if patch.Street != nil {
		d.Street = strings.TrimSpace(*patch.Street)
	}
}
