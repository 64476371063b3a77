// Package publish forwards per-page summaries of a collection run to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/activity-collector/pkg/activity"
	"github.com/Sternrassler/activity-collector/pkg/balancer"
	"github.com/Sternrassler/activity-collector/pkg/client"
	"github.com/Sternrassler/activity-collector/pkg/jobs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

var publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "collector_published_messages_total",
	Help: "Total page summaries written to Kafka",
}, []string{"result"}) // "ok", "error"

// ErrNoBrokers is returned by New without any broker address.
var ErrNoBrokers = errors.New("at least one kafka broker is required")

// PageSummary is the message published for every merged result.
type PageSummary struct {
	JobID      string              `json:"job_id,omitempty"`
	Seed       string              `json:"seed"`
	URL        string              `json:"url"`
	Records    int                 `json:"records"`
	TypeCounts activity.TypeCounts `json:"type_counts,omitempty"`
	Error      string              `json:"error,omitempty"`
	ErrorClass string              `json:"error_class,omitempty"`
	At         time.Time           `json:"at"`
}

// Summarize builds the message for one result.
func Summarize(jobID string, r balancer.Result[activity.Event]) PageSummary {
	s := PageSummary{
		JobID: jobID,
		Seed:  r.Seed,
		URL:   r.Page.URL,
		At:    time.Now().UTC(),
	}
	if r.Failed() {
		s.Error = r.Err.Error()
		s.ErrorClass = string(client.ClassOf(r.Err))
		return s
	}
	s.Records = r.Page.Len()
	s.TypeCounts = activity.Tally(r.Page.Records)
	return s
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes page summaries to a Kafka topic, keyed by seed so that
// one user's pages stay ordered within a partition.
type Publisher struct {
	writer messageWriter
}

// New creates a publisher for the given brokers and topic.
func New(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
	}, nil
}

// NewWithWriter builds a publisher using a custom writer (tests).
func NewWithWriter(writer messageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// Close shuts down the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Consume publishes one result. The job ID is taken from ctx when present.
func (p *Publisher) Consume(ctx context.Context, r balancer.Result[activity.Event]) error {
	payload, err := json.Marshal(Summarize(jobs.IDFromContext(ctx), r))
	if err != nil {
		return fmt.Errorf("marshal page summary: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(r.Seed),
		Value: payload,
		Time:  time.Now().UTC(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		publishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("kafka write: %w", err)
	}
	publishedTotal.WithLabelValues("ok").Inc()
	return nil
}
