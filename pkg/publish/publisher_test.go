package publish

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/Sternrassler/activity-collector/pkg/activity"
	"github.com/Sternrassler/activity-collector/pkg/balancer"
	"github.com/Sternrassler/activity-collector/pkg/client"
	"github.com/Sternrassler/activity-collector/pkg/jobs"
	"github.com/Sternrassler/activity-collector/pkg/pagination"
	"github.com/segmentio/kafka-go"
)

// fakeWriter records written messages.
type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func pageResult(seed, url string, types ...string) balancer.Result[activity.Event] {
	events := make([]activity.Event, len(types))
	for i, typ := range types {
		events[i] = activity.Event{Type: typ}
	}
	return balancer.Result[activity.Event]{Seed: seed, Page: pagination.NewPage(url, events)}
}

func TestPublisher_Consume(t *testing.T) {
	writer := &fakeWriter{}
	pub := NewWithWriter(writer)
	ctx := jobs.WithID(context.Background(), "job-42")

	r := pageResult("https://api.github.com/users/octocat/events?per_page=10&page=1",
		"https://api.github.com/users/octocat/events?per_page=10&page=2",
		"PushEvent", "PushEvent", "WatchEvent")

	if err := pub.Consume(ctx, r); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	if len(writer.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(writer.msgs))
	}
	msg := writer.msgs[0]
	if string(msg.Key) != r.Seed {
		t.Errorf("Key = %q, want seed", msg.Key)
	}

	var got PageSummary
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got.JobID != "job-42" {
		t.Errorf("JobID = %q, want job-42", got.JobID)
	}
	if got.Records != 3 {
		t.Errorf("Records = %d, want 3", got.Records)
	}
	if got.TypeCounts["PushEvent"] != 2 || got.TypeCounts["WatchEvent"] != 1 {
		t.Errorf("TypeCounts = %v", got.TypeCounts)
	}
	if got.Error != "" {
		t.Errorf("Error = %q, want empty", got.Error)
	}
}

func TestPublisher_ConsumeFailure(t *testing.T) {
	writer := &fakeWriter{}
	pub := NewWithWriter(writer)

	r := balancer.Result[activity.Event]{
		Seed: "seed",
		Page: pagination.Page[activity.Event]{URL: "https://api.github.com/users/ghost/events"},
		Err:  &client.APIError{StatusCode: http.StatusNotFound, ErrorClass: client.ErrorClassClient, Message: "Not Found"},
	}

	if err := pub.Consume(context.Background(), r); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	var got PageSummary
	if err := json.Unmarshal(writer.msgs[0].Value, &got); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if got.Error == "" {
		t.Error("Error should be set for failed seeds")
	}
	if got.ErrorClass != string(client.ErrorClassClient) {
		t.Errorf("ErrorClass = %q, want client", got.ErrorClass)
	}
	if got.JobID != "" {
		t.Errorf("JobID = %q, want empty outside a job", got.JobID)
	}
}

func TestPublisher_WriteError(t *testing.T) {
	writeErr := errors.New("broker down")
	pub := NewWithWriter(&fakeWriter{err: writeErr})

	err := pub.Consume(context.Background(), pageResult("seed", "url"))
	if !errors.Is(err, writeErr) {
		t.Errorf("Consume() error = %v, want wrapped broker error", err)
	}
}

func TestPublisher_Close(t *testing.T) {
	writer := &fakeWriter{}
	if err := NewWithWriter(writer).Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !writer.closed {
		t.Error("writer not closed")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		brokers []string
		topic   string
		wantErr bool
	}{
		{name: "no brokers", brokers: nil, topic: "activity", wantErr: true},
		{name: "no topic", brokers: []string{"localhost:9092"}, topic: "", wantErr: true},
		{name: "valid", brokers: []string{"localhost:9092", "localhost:9093"}, topic: "activity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, err := New(tt.brokers, tt.topic)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				pub.Close()
			}
		})
	}
}
