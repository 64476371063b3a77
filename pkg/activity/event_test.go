package activity

import (
	"encoding/json"
	"testing"
)

func TestTally(t *testing.T) {
	tests := []struct {
		name     string
		events   []Event
		expected string
		total    int
	}{
		{
			name:     "empty page",
			events:   nil,
			expected: "",
			total:    0,
		},
		{
			name: "grouped and sorted",
			events: []Event{
				{ID: "1", Type: "WatchEvent"},
				{ID: "2", Type: "PushEvent"},
				{ID: "3", Type: "PushEvent"},
			},
			expected: "PushEvent: 2 | WatchEvent: 1",
			total:    3,
		},
		{
			name:     "missing type",
			events:   []Event{{ID: "1"}},
			expected: "Unknown: 1",
			total:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := Tally(tt.events)
			if got := counts.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
			if got := counts.Total(); got != tt.total {
				t.Errorf("Total() = %d, want %d", got, tt.total)
			}
		})
	}
}

func TestTypeCounts_Add(t *testing.T) {
	counts := TypeCounts{"PushEvent": 1}
	counts.Add(TypeCounts{"PushEvent": 2, "ForkEvent": 1})

	if counts["PushEvent"] != 3 {
		t.Errorf("PushEvent = %d, want 3", counts["PushEvent"])
	}
	if counts["ForkEvent"] != 1 {
		t.Errorf("ForkEvent = %d, want 1", counts["ForkEvent"])
	}
}

func TestEvent_DecodeGitHubPayload(t *testing.T) {
	payload := `[{"id":"2489651045","type":"CreateEvent","actor":{"id":665991,"login":"petroav"},
		"repo":{"id":28688495,"name":"petroav/6.828"},"public":true,"created_at":"2015-01-01T15:00:00Z"}]`

	var events []Event
	if err := json.Unmarshal([]byte(payload), &events); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	e := events[0]
	if e.Type != "CreateEvent" || e.Actor.Login != "petroav" || e.Repo.Name != "petroav/6.828" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.CreatedAt.Year() != 2015 {
		t.Errorf("CreatedAt = %v, want 2015", e.CreatedAt)
	}
}
