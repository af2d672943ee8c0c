package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"lpr-service/internal/domain/lpr"
	"lpr-service/internal/metrics"
)

const (
	// WindowReopenThreshold separates two passes of the target that are
	// scanned independently.
	WindowReopenThreshold = 5 * time.Minute
	// WindowRadius is the neighbourhood scanned around each anchor.
	WindowRadius = time.Minute
)

// Correlate walks a time-ordered detection stream and returns the plates
// seen near the target in at least two of the scanned windows. The first
// element is the target. Windows are opened sequentially because each
// anchor depends on the previous one.
func Correlate(ctx context.Context, stream []lpr.Detection, q NeighbourQuerier) (lpr.CompanionResult, int, error) {
	result := lpr.CompanionResult{Vehicles: []lpr.Detection{}}
	if len(stream) == 0 {
		return result, 0, nil
	}

	target := stream[0]
	result.Target = &target

	var (
		candidates []lpr.Detection
		anchor     time.Time
		windows    int
	)
	for i := range stream {
		d := &stream[i]
		ts := d.Timestamp()

		if i > 0 && absDuration(ts.Sub(anchor)) <= WindowReopenThreshold {
			continue
		}

		anchor = ts
		windows++
		found, err := q.Neighbours(ctx, d.Camera, anchor.Add(-WindowRadius), anchor.Add(WindowRadius), d.Plate)
		if err != nil {
			return lpr.CompanionResult{}, windows, fmt.Errorf("scan window at %s: %w", anchor.Format(time.RFC3339), err)
		}
		candidates = append(candidates, found...)
	}

	counts := make(map[string]int, len(candidates))
	for _, c := range candidates {
		counts[c.Plate]++
	}
	for _, c := range candidates {
		if counts[c.Plate] >= 2 {
			result.Vehicles = append(result.Vehicles, c)
		}
	}
	result.Total = len(result.Vehicles)

	return result, windows, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

type CompanionService struct {
	detections DetectionStore
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func NewCompanionService(detections DetectionStore, m *metrics.Metrics, log zerolog.Logger) *CompanionService {
	return &CompanionService{detections: detections, metrics: m, log: log}
}

// Find loads the target's detection history matching filter and derives
// its companion vehicles.
func (s *CompanionService) Find(ctx context.Context, filter lpr.DetectionFilter) (*lpr.CompanionResult, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("%w: start date is after end date", ErrInvalidInput)
	}

	stream, err := s.detections.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load detections: %w", err)
	}

	result, windows, err := Correlate(ctx, stream, s.detections)
	if err != nil {
		return nil, err
	}
	s.metrics.CompanionWindows.Observe(float64(windows))

	s.log.Info().
		Str("plate", filter.Plate).
		Int("detections", len(stream)).
		Int("windows", windows).
		Int("companions", result.Total).
		Msg("companion query finished")

	return &result, nil
}
