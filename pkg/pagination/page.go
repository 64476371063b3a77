package pagination

// Page is one decoded response of a paginated collection. Records keep the
// order the server returned them in. A Page is handed from stage to stage and
// must not be modified once built.
type Page[T any] struct {
	// URL is the request URL that produced the page.
	URL string `json:"url"`

	// Records are the decoded items, in server order.
	Records []T `json:"records"`
}

// NewPage creates a page for the given request URL.
func NewPage[T any](url string, records []T) Page[T] {
	return Page[T]{URL: url, Records: records}
}

// Len returns the number of records on the page.
func (p Page[T]) Len() int {
	return len(p.Records)
}
