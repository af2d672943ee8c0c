package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"lpr-service/internal/domain/lpr"
	"lpr-service/internal/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/segmentio/kafka-go.(*Writer).run"),
	)
}

type recordingNotifier struct {
	mu    sync.Mutex
	jobs  []Job
	err   error
	block chan struct{}
}

func (r *recordingNotifier) Notify(ctx context.Context, job Job) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) Report(_ context.Context, _ string, err error, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func sampleJob(plate string) Job {
	return Job{
		Detection: lpr.Detection{
			ID:         uuid.New(),
			Plate:      plate,
			Alert:      1,
			AlertLabel: "Roubo",
			Street:     "Av. Brasil",
			CityLabel:  "Campinas-SP",
			DetectedAt: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		},
		Recipients: []lpr.Recipient{{ID: uuid.New(), Name: "Ana"}},
	}
}

func TestPool_RunsSubmittedJobs(t *testing.T) {
	notifier := &recordingNotifier{}
	m := metrics.NewNop()
	pool := NewPool(PoolConfig{Workers: 2, QueueSize: 8, Timeout: time.Second}, notifier, zerolog.Nop(), &recordingReporter{}, m)
	pool.Start()

	for _, plate := range []string{"AAA1111", "BBB2222", "CCC3333"} {
		require.NoError(t, pool.Submit(sampleJob(plate)))
	}

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Equal(t, 3, notifier.count())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.JobsProcessed.WithLabelValues("sent")))
}

func TestPool_FailuresAreReported(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("sms gateway down")}
	reporter := &recordingReporter{}
	pool := NewPool(PoolConfig{Workers: 1, QueueSize: 2}, notifier, zerolog.Nop(), reporter, metrics.NewNop())
	pool.Start()

	require.NoError(t, pool.Submit(sampleJob("AAA1111")))
	require.NoError(t, pool.Shutdown(context.Background()))

	assert.Equal(t, 1, reporter.count())
}

func TestPool_SubmitDoesNotBlockWhenFull(t *testing.T) {
	notifier := &recordingNotifier{block: make(chan struct{})}
	pool := NewPool(PoolConfig{Workers: 1, QueueSize: 1, Timeout: time.Second}, notifier, zerolog.Nop(), &recordingReporter{}, metrics.NewNop())
	pool.Start()

	require.NoError(t, pool.Submit(sampleJob("AAA1111")))

	// the worker may or may not have picked the first job yet; fill the
	// queue until it rejects
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = pool.Submit(sampleJob("BBB2222"))
	}
	require.ErrorIs(t, err, ErrQueueFull)

	close(notifier.block)
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	pool := NewPool(PoolConfig{}, &recordingNotifier{}, zerolog.Nop(), &recordingReporter{}, metrics.NewNop())
	pool.Start()
	require.NoError(t, pool.Shutdown(context.Background()))
	require.NoError(t, pool.Shutdown(context.Background()))

	require.ErrorIs(t, pool.Submit(sampleJob("AAA1111")), ErrPoolClosed)
}

func TestPool_ShutdownDeadlineCancelsRunningJobs(t *testing.T) {
	notifier := &recordingNotifier{block: make(chan struct{})}
	reporter := &recordingReporter{}
	pool := NewPool(PoolConfig{Workers: 1, QueueSize: 1, Timeout: time.Minute}, notifier, zerolog.Nop(), reporter, metrics.NewNop())
	pool.Start()
	require.NoError(t, pool.Submit(sampleJob("AAA1111")))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := pool.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, reporter.count())
}

func TestJob_Message(t *testing.T) {
	job := sampleJob("ABC1234")
	job.Detection.Model = "FIAT/UNO"
	job.Detection.Color = "RED"

	assert.Equal(t, "Alerta LPR: ABC1234", job.Title())
	assert.Equal(t,
		"Placa ABC1234 (Roubo) detectada em Av. Brasil, Campinas-SP às 15/03/2024 10:30:00. Veículo: FIAT/UNO, cor RED. Destinatários: Ana.",
		job.Message())
}

func TestBuildMessage(t *testing.T) {
	job := sampleJob("ABC1234")
	msg, err := buildMessage(job)
	require.NoError(t, err)

	assert.Equal(t, []byte("ABC1234"), msg.Key)
	var decoded Job
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, job.Detection.ID, decoded.Detection.ID)
	assert.Len(t, decoded.Recipients, 1)
	assert.Equal(t, "1", string(msg.Headers[1].Value))
}

func TestNewKafkaDispatcher_Validation(t *testing.T) {
	_, err := NewKafkaDispatcher("", "topic", zerolog.Nop(), &recordingReporter{})
	require.Error(t, err)

	_, err = NewKafkaDispatcher(" , ", "topic", zerolog.Nop(), &recordingReporter{})
	require.Error(t, err)

	_, err = NewKafkaDispatcher("localhost:9092", "", zerolog.Nop(), &recordingReporter{})
	require.Error(t, err)

	d, err := NewKafkaDispatcher("localhost:9092, localhost:9093", "lpr.alert-jobs", zerolog.Nop(), &recordingReporter{})
	require.NoError(t, err)
	require.NoError(t, d.Close())
}

func TestNewShoutrrrNotifier_RequiresURL(t *testing.T) {
	_, err := NewShoutrrrNotifier(nil, time.Second)
	require.Error(t, err)
}
