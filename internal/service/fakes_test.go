package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lpr-service/internal/domain/lpr"
	"lpr-service/internal/jobs"
	"lpr-service/internal/metrics"
)

type fakeKV struct {
	data map[string]map[string]string
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]map[string]string{}}
}

func (f *fakeKV) set(namespace, key, value string) {
	if f.data[namespace] == nil {
		f.data[namespace] = map[string]string{}
	}
	f.data[namespace][key] = value
}

func (f *fakeKV) Lookup(_ context.Context, namespace, key string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	v, ok := f.data[namespace][key]
	return v, ok, nil
}

type fakeReferences struct {
	stations map[string]*lpr.Station
	cameras  map[string]*lpr.Camera
	cities   map[uuid.UUID]*lpr.City
}

func (f *fakeReferences) StationByCode(_ context.Context, code string) (*lpr.Station, error) {
	return f.stations[code], nil
}

func (f *fakeReferences) CameraByCode(_ context.Context, stationID uuid.UUID, code string) (*lpr.Camera, error) {
	return f.cameras[stationID.String()+"/"+code], nil
}

func (f *fakeReferences) CityByID(_ context.Context, id uuid.UUID) (*lpr.City, error) {
	return f.cities[id], nil
}

type fakeAlerts struct {
	records []lpr.AlertRecord
}

func (f *fakeAlerts) FindActive(_ context.Context, plate string, alertType lpr.AlertType) (*lpr.AlertRecord, error) {
	for i := len(f.records) - 1; i >= 0; i-- {
		r := f.records[i]
		if r.Plate == plate && r.Type == alertType && r.Active {
			return &r, nil
		}
	}
	return nil, nil
}

type fakeUsers struct {
	users []lpr.Recipient
}

func (f *fakeUsers) FindRecipient(_ context.Context, id uuid.UUID) (*lpr.Recipient, error) {
	for _, u := range f.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) FindBroadcastMembers(_ context.Context, cityID uuid.UUID, groups []string) ([]lpr.Recipient, error) {
	var out []lpr.Recipient
	for _, u := range f.users {
		if u.CityID != cityID {
			continue
		}
		for _, g := range groups {
			if u.GroupID == g {
				out = append(out, u)
				break
			}
		}
	}
	return out, nil
}

type fakeDetections struct {
	mu        sync.Mutex
	rows      []lpr.Detection
	search    []lpr.Detection
	createErr error
	queries   int
}

func (f *fakeDetections) Create(_ context.Context, d *lpr.Detection) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	f.rows = append(f.rows, *d)
	return nil
}

func (f *fakeDetections) Save(_ context.Context, d *lpr.Detection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == d.ID {
			f.rows[i] = *d
			return nil
		}
	}
	f.rows = append(f.rows, *d)
	return nil
}

func (f *fakeDetections) FindByID(_ context.Context, id uuid.UUID) (*lpr.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.rows {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	return nil, nil
}

func (f *fakeDetections) LastAlert(_ context.Context, station, camera string) ([]lpr.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var last *lpr.Detection
	for i := range f.rows {
		d := &f.rows[i]
		if d.Station != station || d.Camera != camera || d.Alert == lpr.AlertNone {
			continue
		}
		if last == nil || d.DetectedAt.After(last.DetectedAt) {
			last = d
		}
	}
	if last == nil {
		return nil, nil
	}
	return []lpr.Detection{*last}, nil
}

func (f *fakeDetections) Search(_ context.Context, _ lpr.DetectionFilter) ([]lpr.Detection, error) {
	return f.search, nil
}

func (f *fakeDetections) Neighbours(_ context.Context, camera string, from, to time.Time, excludePlate string) ([]lpr.Detection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	var out []lpr.Detection
	for _, d := range f.rows {
		ts := d.Timestamp()
		if d.Camera == camera && d.Plate != excludePlate && !ts.Before(from) && !ts.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeNotifications struct {
	created []lpr.Notification
	err     error
}

func (f *fakeNotifications) InsertMany(_ context.Context, pending []lpr.Notification) ([]lpr.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]lpr.Notification, 0, len(pending))
	for _, n := range pending {
		n.ID = uuid.New()
		n.CreatedAt = time.Now()
		out = append(out, n)
	}
	f.created = append(f.created, out...)
	return out, nil
}

type fakeAudit struct {
	entries []lpr.AuditEntry
	err     error
}

func (f *fakeAudit) InsertMany(_ context.Context, entries []lpr.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entries...)
	return nil
}

type publishedEvent struct {
	topic   string
	payload interface{}
}

type fakePublisher struct {
	events []publishedEvent
	errs   map[string]error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload interface{}) error {
	if err := f.errs[topic]; err != nil {
		return err
	}
	f.events = append(f.events, publishedEvent{topic: topic, payload: payload})
	return nil
}

func (f *fakePublisher) topics() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.topic)
	}
	return out
}

type fakeDispatcher struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeDispatcher) Submit(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fakeReporter struct {
	ops []string
}

func (f *fakeReporter) Report(_ context.Context, op string, _ error, _ map[string]string) {
	f.ops = append(f.ops, op)
}

var testLabels = []string{"Nenhum", "Roubo", "Licenciamento", "Renajud", "Envolvido na ocorrência", "Investigado"}

// fixture wires a DetectionService to fakes seeded with one station
// (ST1), one camera (CAM2) and one city (Campinas-SP).
type fixture struct {
	kv            *fakeKV
	refs          *fakeReferences
	alerts        *fakeAlerts
	users         *fakeUsers
	detections    *fakeDetections
	notifications *fakeNotifications
	audit         *fakeAudit
	publisher     *fakePublisher
	dispatcher    *fakeDispatcher
	reporter      *fakeReporter
	metrics       *metrics.Metrics

	city    lpr.City
	station lpr.Station
	camera  lpr.Camera

	service *DetectionService
}

func newFixture() *fixture {
	city := lpr.City{ID: uuid.New(), Name: "Campinas", State: "SP"}
	station := lpr.Station{ID: uuid.New(), Code: "ST1", Name: "Station 1", CityID: city.ID}
	camera := lpr.Camera{ID: uuid.New(), Code: "CAM2", StationID: station.ID, CityID: city.ID, Street: "Av. Brasil"}

	f := &fixture{
		kv: newFakeKV(),
		refs: &fakeReferences{
			stations: map[string]*lpr.Station{station.Code: &station},
			cameras:  map[string]*lpr.Camera{station.ID.String() + "/" + camera.Code: &camera},
			cities:   map[uuid.UUID]*lpr.City{city.ID: &city},
		},
		alerts:        &fakeAlerts{},
		users:         &fakeUsers{},
		detections:    &fakeDetections{},
		notifications: &fakeNotifications{},
		audit:         &fakeAudit{},
		publisher:     &fakePublisher{},
		dispatcher:    &fakeDispatcher{},
		reporter:      &fakeReporter{},
		metrics:       metrics.NewNop(),
		city:          city,
		station:       station,
		camera:        camera,
	}

	catalog, err := lpr.NewAlertCatalog(testLabels)
	if err != nil {
		panic(err)
	}

	log := zerolog.Nop()
	enricher := NewRegistryEnricher(f.kv, log)
	matcher := NewAlertMatcher(f.kv, f.alerts, f.users, catalog, []string{"police"}, log)
	fanout := NewFanout(f.publisher, f.notifications, f.audit, f.dispatcher, f.reporter, f.metrics, log)
	f.service = NewDetectionService(f.detections, f.refs, enricher, matcher, fanout, time.UTC, f.metrics, log)
	return f
}

func (f *fixture) addUser(name, group string) lpr.Recipient {
	u := lpr.Recipient{ID: uuid.New(), Name: name, CityID: f.city.ID, GroupID: group}
	f.users.users = append(f.users.users, u)
	return u
}

func (f *fixture) addAlert(plate string, t lpr.AlertType, owner uuid.UUID) {
	f.alerts.records = append(f.alerts.records, lpr.AlertRecord{
		ID: uuid.New(), Plate: plate, Type: t, Active: true, CreatedBy: owner, CreatedAt: time.Now(),
	})
}
