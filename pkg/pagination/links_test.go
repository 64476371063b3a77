package pagination

import (
	"net/http"
	"testing"
)

func TestParseLinks(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected map[string]string
	}{
		{
			name:     "missing header",
			header:   "",
			expected: map[string]string{},
		},
		{
			name:   "github style header",
			header: `<https://api.github.com/user/1/events?page=2>; rel="next", <https://api.github.com/user/1/events?page=5>; rel="last"`,
			expected: map[string]string{
				"next": "https://api.github.com/user/1/events?page=2",
				"last": "https://api.github.com/user/1/events?page=5",
			},
		},
		{
			name:   "case insensitive relation",
			header: `<https://api.github.com/x?page=3>; REL="Next"`,
			expected: map[string]string{
				"next": "https://api.github.com/x?page=3",
			},
		},
		{
			name:   "all four relations",
			header: `<https://h/x?page=1>; rel="prev", <https://h/x?page=3>; rel="next", <https://h/x?page=9>; rel="last", <https://h/x?page=1>; rel="first"`,
			expected: map[string]string{
				"prev":  "https://h/x?page=1",
				"next":  "https://h/x?page=3",
				"last":  "https://h/x?page=9",
				"first": "https://h/x?page=1",
			},
		},
		{
			name:   "scan stops at entry without relation",
			header: `<https://h/x?page=1>; rel="prev", <https://h/x?page=3>; title="oops", <https://h/x?page=9>; rel="next"`,
			expected: map[string]string{
				"prev": "https://h/x?page=1",
			},
		},
		{
			name:   "scan stops at entry without uri",
			header: `<https://h/x?page=9>; rel="last", rel="next"`,
			expected: map[string]string{
				"last": "https://h/x?page=9",
			},
		},
		{
			name:     "unknown relation stops the scan",
			header:   `<https://h/x>; rel="alternate", <https://h/x?page=2>; rel="next"`,
			expected: map[string]string{},
		},
		{
			name:     "relative uri is malformed",
			header:   `</x?page=2>; rel="next"`,
			expected: map[string]string{},
		},
		{
			name:   "repeated relation keeps the first",
			header: `<https://h/x?page=2>; rel="next", <https://h/x?page=7>; rel="next"`,
			expected: map[string]string{
				"next": "https://h/x?page=2",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Link", tt.header)
			}

			links := ParseLinks(h)
			if len(links) != len(tt.expected) {
				t.Fatalf("len(links) = %d, want %d (%v)", len(links), len(tt.expected), links)
			}
			for rel, want := range tt.expected {
				got, ok := links[rel]
				if !ok {
					t.Errorf("relation %q missing", rel)
					continue
				}
				if got.String() != want {
					t.Errorf("links[%q] = %q, want %q", rel, got.String(), want)
				}
			}
		})
	}
}

func TestNextLink(t *testing.T) {
	h := http.Header{}
	h.Set("Link", `<https://api.github.com/users/octocat/events?page=2>; rel="next"`)

	next, ok := NextLink(h)
	if !ok {
		t.Fatal("NextLink() ok = false, want true")
	}
	if next != "https://api.github.com/users/octocat/events?page=2" {
		t.Errorf("NextLink() = %q", next)
	}

	h.Set("Link", `<https://api.github.com/users/octocat/events?page=1>; rel="first"`)
	if next, ok := NextLink(h); ok {
		t.Errorf("NextLink() = %q, want none", next)
	}

	if _, ok := NextLink(http.Header{}); ok {
		t.Error("NextLink() on empty header should report no cursor")
	}
}
