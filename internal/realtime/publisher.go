// Package realtime delivers flagged detections and notification batches to
// connected operators.
package realtime

import (
	"context"
	"errors"
)

const (
	TopicFlaggedDetection  = "vehicle"
	TopicNotificationBatch = "notification"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, topic string, payload interface{}) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, topic, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
