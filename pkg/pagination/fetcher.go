package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"

	"github.com/Sternrassler/activity-collector/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Doer issues the GET request for one page. *client.Client implements it.
type Doer interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// DecodeError reports a response body that is not a JSON array of records.
type DecodeError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode page %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// FetcherOptions tunes a Fetcher.
type FetcherOptions struct {
	// LenientDecode turns an undecodable body into an empty page instead of
	// ending the traversal with a *DecodeError.
	LenientDecode bool

	// Logger defaults to the global logger.
	Logger *zerolog.Logger
}

// Fetcher walks a cursor-paginated collection one page at a time.
// A Fetcher belongs to one worker: its pacer spaces that worker's requests.
type Fetcher[T any] struct {
	doer   Doer
	pacer  ratelimit.Pacer
	opts   FetcherOptions
	logger zerolog.Logger
}

// NewFetcher creates a fetcher. A nil pacer means no spacing.
func NewFetcher[T any](doer Doer, pacer ratelimit.Pacer, opts FetcherOptions) *Fetcher[T] {
	if pacer == nil {
		pacer = ratelimit.Unpaced()
	}

	logger := log.With().Str("component", "page-fetcher").Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Fetcher[T]{
		doer:   doer,
		pacer:  pacer,
		opts:   opts,
		logger: logger,
	}
}

// Pages returns the lazy sequence of pages reachable from seed.
//
// Nothing is requested until the sequence is ranged over, and the request for
// page i+1 is only issued once the loop body for page i has returned. The
// sequence ends cleanly after the first page without a "next" relation. On
// failure it yields a single (Page{URL: failing url}, err) pair and stops.
// Ranging twice starts over from the seed.
func (f *Fetcher[T]) Pages(ctx context.Context, seed string) iter.Seq2[Page[T], error] {
	return func(yield func(Page[T], error) bool) {
		next := seed
		for next != "" {
			page, cursor, err := f.fetch(ctx, next)
			if err != nil {
				yield(Page[T]{URL: next}, err)
				return
			}

			if !yield(page, nil) {
				return
			}
			next = cursor
		}
	}
}

// fetch retrieves a single page and returns it with the next cursor ("" at the end).
func (f *Fetcher[T]) fetch(ctx context.Context, pageURL string) (Page[T], string, error) {
	if err := f.pacer.Wait(ctx); err != nil {
		return Page[T]{}, "", fmt.Errorf("wait for pacer: %w", err)
	}

	resp, err := f.doer.Get(ctx, pageURL)
	if err != nil {
		return Page[T]{}, "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	records, err := decodeRecords[T](resp.Body)
	if err != nil {
		if !f.opts.LenientDecode {
			return Page[T]{}, "", &DecodeError{URL: pageURL, Err: err}
		}
		f.logger.Warn().
			Err(err).
			Str("url", pageURL).
			Msg("Undecodable page treated as empty")
		records = nil
	}

	next, _ := NextLink(resp.Header)

	f.logger.Debug().
		Str("url", pageURL).
		Int("records", len(records)).
		Bool("has_next", next != "").
		Msg("Page fetched")

	return NewPage(pageURL, records), next, nil
}

// decodeRecords decodes a JSON array. An empty body or "null" is an empty page.
func decodeRecords[T any](body io.Reader) ([]T, error) {
	var records []T
	if err := json.NewDecoder(body).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	return records, nil
}
