// Package balancer fans seed URLs out to a fixed set of page-fetching workers
// and merges their pages back into one backpressured stream.
//
// Shape of one Run:
//
//	seeds ──▶ intake (unbuffered, pulled by idle workers)
//	            ├─▶ worker 0: Source.Pages(seed) ─┐
//	            ├─▶ worker 1: Source.Pages(seed) ─┼─▶ results (unbuffered) ──▶ Sink.Accept
//	            └─▶ worker N-1 ...               ─┘
//
// Guarantees:
//   - Dispatch starts only after every worker is ready, so the first N seeds
//     start in parallel.
//   - A worker runs a seed's whole cursor chain before it pulls another seed;
//     slow chains therefore absorb fewer seeds.
//   - Pages are delivered in arrival order, one at a time.
//   - A worker resumes (and issues its next request) only after the sink has
//     accepted its previous page, so at most N requests are outstanding and a
//     slow sink throttles the upstream API.
//   - A failing seed produces one Result with Err set; the pool continues.
package balancer
