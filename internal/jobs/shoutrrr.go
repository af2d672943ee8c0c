package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/rs/zerolog"
)

// ShoutrrrNotifier delivers alert jobs to every configured service URL
// (telegram://, smtp://, twilio-style generic webhooks...).
type ShoutrrrNotifier struct {
	sender *router.ServiceRouter
}

func NewShoutrrrNotifier(urls []string, timeout time.Duration) (*ShoutrrrNotifier, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("at least one notification URL is required")
	}
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("create notification sender: %w", err)
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return &ShoutrrrNotifier{sender: sender}, nil
}

func (s *ShoutrrrNotifier) Notify(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := types.Params{}
	params.SetTitle(job.Title())

	var errs []error
	for _, err := range s.sender.Send(job.Message(), &params) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier is used when no outward channel is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, job Job) error {
	l.log.Info().
		Str("plate", job.Detection.Plate).
		Int("alert", int(job.Detection.Alert)).
		Int("recipients", len(job.Recipients)).
		Str("message", job.Message()).
		Msg("alert notification (no outward channel configured)")
	return nil
}
