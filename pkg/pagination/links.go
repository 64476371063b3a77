package pagination

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Pagination relation names understood in a Link header.
const (
	RelNext  = "next"
	RelPrev  = "prev"
	RelFirst = "first"
	RelLast  = "last"
)

var (
	linkRelRegex = regexp.MustCompile(`(?i)rel="(next|prev|first|last)"`)
	linkURIRegex = regexp.MustCompile(`<(.+)>`)
)

// Links maps a lower-cased relation name to its absolute URI.
type Links map[string]*url.URL

// ParseLinks extracts the pagination relations from the Link header, e.g.
//
//	Link: <https://api.github.com/user/1/events?page=2>; rel="next", <...?page=5>; rel="last"
//
// Scanning stops at the first malformed entry (no known rel, no <uri>, or a
// URI that is not absolute); relations parsed before it are kept. A missing
// header yields an empty map. When a relation repeats, the first one wins.
func ParseLinks(h http.Header) Links {
	links := Links{}

	value := h.Get("Link")
	if value == "" {
		return links
	}

	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)

		relMatch := linkRelRegex.FindStringSubmatch(entry)
		if len(relMatch) != 2 {
			break
		}

		uriMatch := linkURIRegex.FindStringSubmatch(entry)
		if len(uriMatch) != 2 {
			break
		}

		uri, err := url.Parse(uriMatch[1])
		if err != nil || !uri.IsAbs() {
			break
		}

		rel := strings.ToLower(relMatch[1])
		if _, seen := links[rel]; !seen {
			links[rel] = uri
		}
	}

	return links
}

// Next returns the "next" cursor if present.
func (l Links) Next() (*url.URL, bool) {
	u, ok := l[RelNext]
	return u, ok
}

// NextLink returns the "next" cursor of a response as a string.
func NextLink(h http.Header) (string, bool) {
	next, ok := ParseLinks(h).Next()
	if !ok {
		return "", false
	}
	return next.String(), true
}
