package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lpr-service/internal/domain/lpr"
	"lpr-service/internal/jobs"
	"lpr-service/internal/metrics"
	"lpr-service/internal/realtime"
	"lpr-service/internal/reporting"
)

const (
	auditActionAlert      = "Alert"
	auditOwnerNotified    = "Alert owner notified"
	auditAlertTriggered   = "Alert triggered"
	stepPublishFlagged    = "publish_flagged"
	stepPersistBatch      = "persist_notifications"
	stepPublishBatch      = "publish_notifications"
	stepAudit             = "audit"
	stepDispatchOwnerTask = "dispatch_job"
)

type NotificationView struct {
	ID        uuid.UUID     `json:"id"`
	User      uuid.UUID     `json:"user"`
	Vehicle   lpr.Detection `json:"vehicle"`
	CreatedAt time.Time     `json:"created_at"`
}

type NotificationBatch struct {
	Users    []uuid.UUID                 `json:"users"`
	Vehicles map[string]NotificationView `json:"vehicles"`
}

// Outcome summarises a fan-out for logging; it never changes the
// ingestion response.
type Outcome struct {
	FlaggedPublished bool
	Notifications    []lpr.Notification
	BatchPublished   bool
	AuditEntries     int
	JobSubmitted     bool
	Errors           []error
}

type Fanout struct {
	publisher     realtime.Publisher
	notifications NotificationStore
	audit         AuditStore
	dispatcher    jobs.Dispatcher
	reporter      reporting.Reporter
	metrics       *metrics.Metrics
	log           zerolog.Logger
}

func NewFanout(
	publisher realtime.Publisher,
	notifications NotificationStore,
	audit AuditStore,
	dispatcher jobs.Dispatcher,
	reporter reporting.Reporter,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Fanout {
	return &Fanout{
		publisher:     publisher,
		notifications: notifications,
		audit:         audit,
		dispatcher:    dispatcher,
		reporter:      reporter,
		metrics:       m,
		log:           log,
	}
}

// DedupRecipients keeps the first occurrence of every recipient id.
func DedupRecipients(in []lpr.Recipient) []lpr.Recipient {
	seen := make(map[uuid.UUID]struct{}, len(in))
	out := make([]lpr.Recipient, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Dispatch notifies everyone concerned by a persisted flagged detection.
// The steps are independent: a failing step is reported and the others
// still run.
func (f *Fanout) Dispatch(ctx context.Context, d *lpr.Detection, match *AlertMatch) Outcome {
	var out Outcome
	if d.Alert == lpr.AlertNone {
		return out
	}
	if match == nil {
		match = &AlertMatch{}
	}

	if err := f.publisher.Publish(ctx, realtime.TopicFlaggedDetection, d); err != nil {
		out.Errors = append(out.Errors, f.fail(ctx, stepPublishFlagged, d, err))
	} else {
		out.FlaggedPublished = true
	}

	recipients := DedupRecipients(match.Recipients)

	if len(recipients) > 0 {
		pending := make([]lpr.Notification, 0, len(recipients))
		for _, r := range recipients {
			pending = append(pending, lpr.Notification{UserID: r.ID, DetectionID: d.ID})
		}

		created, err := f.notifications.InsertMany(ctx, pending)
		if err != nil {
			out.Errors = append(out.Errors, f.fail(ctx, stepPersistBatch, d, err))
		} else {
			out.Notifications = created
			f.metrics.NotificationsCreated.Add(float64(len(created)))

			if err := f.publisher.Publish(ctx, realtime.TopicNotificationBatch, buildBatch(d, recipients, created)); err != nil {
				out.Errors = append(out.Errors, f.fail(ctx, stepPublishBatch, d, err))
			} else {
				out.BatchPublished = true
			}
		}
	}

	entries := auditEntries(d, match.Owner, recipients)
	if len(entries) > 0 {
		if err := f.audit.InsertMany(ctx, entries); err != nil {
			out.Errors = append(out.Errors, f.fail(ctx, stepAudit, d, err))
		} else {
			out.AuditEntries = len(entries)
		}
	}

	if match.Owner != nil {
		job := jobs.Job{Detection: *d, Recipients: recipients}
		if err := f.dispatcher.Submit(job); err != nil {
			out.Errors = append(out.Errors, f.fail(ctx, stepDispatchOwnerTask, d, err))
		} else {
			out.JobSubmitted = true
		}
	}

	f.log.Info().
		Str("detection_id", d.ID.String()).
		Str("plate", d.Plate).
		Int("alert", int(d.Alert)).
		Int("recipients", len(recipients)).
		Int("notifications", len(out.Notifications)).
		Bool("job_submitted", out.JobSubmitted).
		Int("failed_steps", len(out.Errors)).
		Msg("alert fan-out finished")

	return out
}

func (f *Fanout) fail(ctx context.Context, step string, d *lpr.Detection, err error) error {
	f.metrics.FanoutFailures.WithLabelValues(step).Inc()
	f.reporter.Report(ctx, "fanout."+step, err, map[string]string{
		"detection_id": d.ID.String(),
		"plate":        d.Plate,
	})
	return fmt.Errorf("%s: %w", step, err)
}

func buildBatch(d *lpr.Detection, recipients []lpr.Recipient, created []lpr.Notification) NotificationBatch {
	batch := NotificationBatch{
		Users:    make([]uuid.UUID, 0, len(recipients)),
		Vehicles: make(map[string]NotificationView, len(created)),
	}
	for _, r := range recipients {
		batch.Users = append(batch.Users, r.ID)
	}
	for _, n := range created {
		batch.Vehicles[n.UserID.String()] = NotificationView{
			ID:        n.ID,
			User:      n.UserID,
			Vehicle:   *d,
			CreatedAt: n.CreatedAt,
		}
	}
	return batch
}

func auditEntries(d *lpr.Detection, owner *lpr.Recipient, recipients []lpr.Recipient) []lpr.AuditEntry {
	meta := func() map[string]interface{} {
		return map[string]interface{}{
			"detection_id": d.ID.String(),
			"plate":        d.Plate,
			"alert":        int(d.Alert),
		}
	}

	entries := make([]lpr.AuditEntry, 0, len(recipients)+1)
	if owner != nil {
		id := owner.ID
		entries = append(entries, lpr.AuditEntry{
			Action:      auditActionAlert,
			Description: auditOwnerNotified,
			UserID:      &id,
			Metadata:    meta(),
		})
	}
	for _, r := range recipients {
		id := r.ID
		entries = append(entries, lpr.AuditEntry{
			Action:      auditActionAlert,
			Description: auditAlertTriggered,
			UserID:      &id,
			Metadata:    meta(),
		})
	}
	return entries
}
