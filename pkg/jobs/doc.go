// Package jobs tracks collection runs started through the HTTP surface.
//
// A job is created in the queued state when a batch of users is accepted,
// moves to running when the pool starts, accumulates per-page progress and
// per-seed failures, and ends in exactly one terminal state: completed,
// failed or cancelled.
//
// # Stores
//
// Two Store implementations are provided:
//
//   - MemoryStore keeps jobs in process memory (single instance, tests).
//   - RedisStore persists jobs as JSON under "activity:job:<id>" with a TTL,
//     so any collector instance behind a load balancer can answer status queries.
//
// # Basic Usage
//
//	store := jobs.NewRedisStore(redisClient, 24*time.Hour)
//
//	job := jobs.New([]string{"octocat", "torvalds"})
//	if err := store.Save(ctx, job); err != nil {
//		return err
//	}
//
//	job, err := store.Get(ctx, id)
//	if errors.Is(err, jobs.ErrNotFound) {
//		// unknown or expired
//	}
//
// # Metrics
//
//   - collector_jobs_finished_total{status} - Jobs that reached a terminal state
//   - collector_job_duration_seconds - Wall time from start to finish
//   - collector_job_store_errors_total{operation} - Store operation errors
//   - collector_job_store_misses_total - Lookups of unknown job IDs
package jobs
