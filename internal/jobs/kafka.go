package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"lpr-service/internal/reporting"
)

// KafkaDispatcher hands jobs to an external sender service through a topic.
// The writer is asynchronous: Submit returns once the message is buffered
// and delivery errors arrive through the reporter.
type KafkaDispatcher struct {
	writer *kafka.Writer
	topic  string
	log    zerolog.Logger
}

func NewKafkaDispatcher(brokers, topic string, log zerolog.Logger, reporter reporting.Reporter) (*KafkaDispatcher, error) {
	brokerList := parseBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err == nil {
				return
			}
			for _, m := range messages {
				reporter.Report(context.Background(), "jobs.kafka", err, map[string]string{
					"topic": topic,
					"plate": string(m.Key),
				})
			}
		},
	}

	log.Info().Strs("brokers", brokerList).Str("topic", topic).Msg("kafka job dispatcher configured")
	return &KafkaDispatcher{writer: writer, topic: topic, log: log}, nil
}

func buildMessage(job Job) (kafka.Message, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal alert job: %w", err)
	}
	return kafka.Message{
		Key:   []byte(job.Detection.Plate),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "detection_id", Value: []byte(job.Detection.ID.String())},
			{Key: "alert", Value: []byte(fmt.Sprintf("%d", job.Detection.Alert))},
		},
		Time: time.Now(),
	}, nil
}

func (d *KafkaDispatcher) Submit(job Job) error {
	msg, err := buildMessage(job)
	if err != nil {
		return err
	}
	if err := d.writer.WriteMessages(context.Background(), msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

func (d *KafkaDispatcher) Close() error {
	d.log.Info().Str("topic", d.topic).Msg("closing kafka job dispatcher")
	return d.writer.Close()
}

func parseBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
