// Package jobs runs the slow outward alert notifications (SMS, push, chat)
// away from the request path.
package jobs

import (
	"errors"
	"fmt"
	"strings"

	"lpr-service/internal/domain/lpr"
)

var (
	ErrQueueFull  = errors.New("notification queue is full")
	ErrPoolClosed = errors.New("notification pool is closed")
)

// Job is the complete input of an outward alert notification.
type Job struct {
	Detection  lpr.Detection   `json:"vehicle"`
	Recipients []lpr.Recipient `json:"users"`
}

// Dispatcher accepts jobs without waiting for them to run.
type Dispatcher interface {
	Submit(job Job) error
}

func (j Job) Title() string {
	return fmt.Sprintf("Alerta LPR: %s", j.Detection.Plate)
}

func (j Job) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Placa %s (%s) detectada", j.Detection.Plate, j.Detection.AlertLabel)
	if j.Detection.Street != "" {
		fmt.Fprintf(&b, " em %s", j.Detection.Street)
	}
	if j.Detection.CityLabel != "" {
		fmt.Fprintf(&b, ", %s", j.Detection.CityLabel)
	}
	if !j.Detection.DetectedAt.IsZero() {
		fmt.Fprintf(&b, " às %s", j.Detection.DetectedAt.Format("02/01/2006 15:04:05"))
	}
	if j.Detection.Model != "" {
		fmt.Fprintf(&b, ". Veículo: %s", j.Detection.Model)
	}
	if j.Detection.Color != "" {
		fmt.Fprintf(&b, ", cor %s", j.Detection.Color)
	}
	b.WriteString(".")

	names := make([]string, 0, len(j.Recipients))
	for _, r := range j.Recipients {
		names = append(names, r.Name)
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, " Destinatários: %s.", strings.Join(names, ", "))
	}
	return b.String()
}
