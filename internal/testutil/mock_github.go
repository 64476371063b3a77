// Package testutil provides testing utilities for the activity collector.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockPage defines the response for one page of a user's events feed.
type MockPage struct {
	StatusCode int
	Body       string
	Delay      time.Duration
	// NoLink suppresses the Link header even if more pages follow.
	NoLink bool
}

// MockGitHub is a configurable fake of GET /users/{user}/events with
// Link-header pagination. It records every request for assertions.
type MockGitHub struct {
	server *httptest.Server
	mu     sync.Mutex
	chains map[string][]MockPage

	// OnRequest, when set, runs before a page is served (outside the lock).
	OnRequest func(r *http.Request)

	requests          []string
	inFlight          int
	maxInFlight       int
	lastRequestHeader http.Header
}

// NewMockGitHub creates and starts a new mock server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		chains: make(map[string][]MockPage),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// SeedURL returns the first-page URL for user, as the collector builds it.
func (m *MockGitHub) SeedURL(user string) string {
	return fmt.Sprintf("%s/users/%s/events?per_page=10&page=1", m.server.URL, user)
}

// PageURL returns the URL of page n for user.
func (m *MockGitHub) PageURL(user string, n int) string {
	return fmt.Sprintf("%s/users/%s/events?per_page=10&page=%d", m.server.URL, user, n)
}

// SetChain configures the pages served for user, page 1 first.
func (m *MockGitHub) SetChain(user string, pages ...MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chains[user] = pages
}

// SetRecordChain configures a healthy chain with the given number of events per page.
func (m *MockGitHub) SetRecordChain(user string, sizes ...int) {
	pages := make([]MockPage, 0, len(sizes))
	for i, n := range sizes {
		types := make([]string, n)
		for j := range types {
			types[j] = EventTypes[(i+j)%len(EventTypes)]
		}
		pages = append(pages, MockPage{StatusCode: http.StatusOK, Body: EventsJSON(user, types...)})
	}
	m.SetChain(user, pages...)
}

// RequestCount returns the number of requests served.
func (m *MockGitHub) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns the request URIs in arrival order.
func (m *MockGitHub) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// MaxInFlight returns the highest number of concurrently served requests.
func (m *MockGitHub) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockGitHub) LastRequestHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequestHeader
}

func (m *MockGitHub) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests = append(m.requests, r.URL.RequestURI())
	m.lastRequestHeader = r.Header.Clone()
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.OnRequest != nil {
		m.OnRequest(r)
	}

	// /users/{user}/events
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "users" || parts[2] != "events" {
		http.NotFound(w, r)
		return
	}
	user := parts[1]

	m.mu.Lock()
	chain, ok := m.chains[user]
	m.mu.Unlock()
	if !ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
		return
	}

	pageNum := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		pageNum = n
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if pageNum > len(chain) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
		return
	}

	page := chain[pageNum-1]
	if page.Delay > 0 {
		time.Sleep(page.Delay)
	}

	if !page.NoLink {
		if link := m.linkHeader(user, pageNum, len(chain)); link != "" {
			w.Header().Set("Link", link)
		}
	}

	status := page.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if page.Body != "" {
		w.Write([]byte(page.Body))
	}
}

// linkHeader renders GitHub's Link header (prev, next, last, first).
func (m *MockGitHub) linkHeader(user string, page, total int) string {
	var links []string
	if page > 1 {
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, m.PageURL(user, page-1)))
	}
	if page < total {
		links = append(links,
			fmt.Sprintf(`<%s>; rel="next"`, m.PageURL(user, page+1)),
			fmt.Sprintf(`<%s>; rel="last"`, m.PageURL(user, total)))
	}
	if page > 1 {
		links = append(links, fmt.Sprintf(`<%s>; rel="first"`, m.PageURL(user, 1)))
	}
	return strings.Join(links, ", ")
}

// EventTypes is the rotation of event types used by SetRecordChain.
var EventTypes = []string{"PushEvent", "WatchEvent", "IssuesEvent"}

type mockEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Actor     mockActor `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

type mockActor struct {
	Login string `json:"login"`
}

var eventSeq struct {
	sync.Mutex
	n int
}

// EventsJSON renders a GitHub events array with one event per type.
func EventsJSON(user string, types ...string) string {
	events := make([]mockEvent, 0, len(types))
	for _, t := range types {
		eventSeq.Lock()
		eventSeq.n++
		id := strconv.Itoa(eventSeq.n)
		eventSeq.Unlock()

		events = append(events, mockEvent{
			ID:        id,
			Type:      t,
			Actor:     mockActor{Login: user},
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		})
	}

	data, err := json.Marshal(events)
	if err != nil {
		panic(err)
	}
	return string(data)
}
