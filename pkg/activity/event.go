// Package activity defines the GitHub activity records collected by the pipeline
// and the per-type tallies reported for every delivered page.
package activity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Actor is the user that triggered an event.
type Actor struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// Repo is the repository an event happened in.
type Repo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Event is one entry of a user's public events feed
// (GET /users/{username}/events).
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Actor     Actor     `json:"actor"`
	Repo      Repo      `json:"repo"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// UnknownType is the tally key for events that carry no type.
const UnknownType = "Unknown"

// TypeCounts counts events grouped by their Type field.
type TypeCounts map[string]int

// Tally groups events by type.
func Tally(events []Event) TypeCounts {
	counts := make(TypeCounts, len(events))
	for _, e := range events {
		t := e.Type
		if t == "" {
			t = UnknownType
		}
		counts[t]++
	}
	return counts
}

// Add merges other into c.
func (c TypeCounts) Add(other TypeCounts) {
	for t, n := range other {
		c[t] += n
	}
}

// Total returns the number of events across all types.
func (c TypeCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// String formats the tally as "PushEvent: 2 | WatchEvent: 1", sorted by type.
func (c TypeCounts) String() string {
	types := make([]string, 0, len(c))
	for t := range c {
		types = append(types, t)
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, t := range types {
		parts = append(parts, fmt.Sprintf("%s: %d", t, c[t]))
	}
	return strings.Join(parts, " | ")
}
