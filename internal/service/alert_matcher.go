package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lpr-service/internal/domain/lpr"
	"lpr-service/internal/kv"
)

// AlertMatch is the recipient set of one flagged detection. Recipients
// holds the owner first followed by broadcast-group members and may
// contain duplicates.
type AlertMatch struct {
	Owner      *lpr.Recipient
	Recipients []lpr.Recipient
}

type AlertMatcher struct {
	lookup          KeyValueLookup
	alerts          AlertStore
	users           UserStore
	catalog         *lpr.AlertCatalog
	broadcastGroups []string
	log             zerolog.Logger
}

func NewAlertMatcher(
	lookup KeyValueLookup,
	alerts AlertStore,
	users UserStore,
	catalog *lpr.AlertCatalog,
	broadcastGroups []string,
	log zerolog.Logger,
) *AlertMatcher {
	return &AlertMatcher{
		lookup:          lookup,
		alerts:          alerts,
		users:           users,
		catalog:         catalog,
		broadcastGroups: append([]string(nil), broadcastGroups...),
		log:             log,
	}
}

// Match sets the alert type of d from the alert namespace and resolves who
// must hear about it. stationCity scopes the broadcast group.
func (m *AlertMatcher) Match(ctx context.Context, d *lpr.Detection, stationCity uuid.UUID) (*AlertMatch, error) {
	d.Alert = lpr.AlertNone
	d.AlertLabel = m.catalog.Label(lpr.AlertNone)
	match := &AlertMatch{}

	raw, found, err := m.lookup.Lookup(ctx, kv.NamespaceAlert, d.Plate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if !found {
		return match, nil
	}

	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !lpr.AlertType(code).Valid() {
		m.log.Warn().Str("plate", d.Plate).Str("value", raw).Msg("alert namespace holds an invalid alert type, ignoring")
		return match, nil
	}
	d.Alert = lpr.AlertType(code)
	d.AlertLabel = m.catalog.Label(d.Alert)

	record, err := m.alerts.FindActive(ctx, d.Plate, d.Alert)
	if err != nil {
		return nil, fmt.Errorf("find active alert: %w", err)
	}
	if record != nil {
		owner, err := m.users.FindRecipient(ctx, record.CreatedBy)
		if err != nil {
			return nil, fmt.Errorf("find alert owner: %w", err)
		}
		if owner != nil {
			match.Owner = owner
			match.Recipients = append(match.Recipients, *owner)
		} else {
			m.log.Warn().
				Str("plate", d.Plate).
				Str("alert_id", record.ID.String()).
				Str("created_by", record.CreatedBy.String()).
				Msg("alert owner no longer exists")
		}
	}

	members, err := m.users.FindBroadcastMembers(ctx, stationCity, m.broadcastGroups)
	if err != nil {
		return nil, fmt.Errorf("find broadcast group members: %w", err)
	}
	match.Recipients = append(match.Recipients, members...)

	m.log.Debug().
		Str("plate", d.Plate).
		Int("alert", int(d.Alert)).
		Bool("owner", match.Owner != nil).
		Int("broadcast_members", len(members)).
		Msg("alert matched")

	return match, nil
}
