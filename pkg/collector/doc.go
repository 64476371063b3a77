// Package collector wires a batch of GitHub users through the balanced pool.
//
// Each user becomes one seed URL (the first page of the user's public events
// feed). The pool drains every seed's cursor chain with at most
// min(MaxParallelism, len(users)) requests in flight, and each delivered page
// or seed failure is handed to a Consumer in completion order.
//
// # Synchronous use
//
//	c, err := collector.New(collector.DefaultConfig())
//	summary, err := c.Run(ctx, []string{"octocat", "torvalds"}, collector.NewLogConsumer(logger))
//
// # Background jobs
//
// Start validates the batch, records a queued job and returns it at once.
// The pipeline then runs under the collector's base context; the job record
// is updated per page and ends completed, failed or cancelled.
//
//	job, err := c.Start(ctx, users, consumer)
//	...
//	job, err = c.Job(ctx, job.ID)
package collector
