// Package pagination follows cursor-paginated REST collections.
//
// GitHub (and many other APIs) announce the next page through the Link
// response header rather than a page count. This package parses that header
// and turns a seed URL into a lazy sequence of decoded pages:
//
//	fetcher := pagination.NewFetcher[activity.Event](githubClient, ratelimit.FixedInterval(time.Second), pagination.FetcherOptions{})
//	for page, err := range fetcher.Pages(ctx, "https://api.github.com/users/octocat/events?per_page=10&page=1") {
//		if err != nil {
//			return err
//		}
//		fmt.Println(page.URL, page.Len())
//	}
//
// The fetcher:
//   - issues one request at a time per seed, paced by the worker's Pacer
//   - requests the next page only after the caller consumed the previous one
//   - delivers the last page and stops when no rel="next" is present
//   - stops at the first error (transport, status, decode) without retrying
//
// Link header parsing stops at the first malformed entry (see ParseLinks).
package pagination
