package collector

import (
	"context"

	"github.com/Sternrassler/activity-collector/pkg/activity"
	"github.com/Sternrassler/activity-collector/pkg/balancer"
	"github.com/Sternrassler/activity-collector/pkg/client"
	"github.com/rs/zerolog"
)

// Consumer receives merged results one at a time. Returning an error aborts
// the batch.
type Consumer interface {
	Consume(ctx context.Context, r balancer.Result[activity.Event]) error
}

// ConsumerFunc adapts a function to Consumer.
type ConsumerFunc func(ctx context.Context, r balancer.Result[activity.Event]) error

// Consume calls f.
func (f ConsumerFunc) Consume(ctx context.Context, r balancer.Result[activity.Event]) error {
	return f(ctx, r)
}

// Discard accepts and drops every result.
var Discard Consumer = ConsumerFunc(func(context.Context, balancer.Result[activity.Event]) error {
	return nil
})

// Chain calls each consumer in order and stops at the first error.
// Nil consumers are skipped.
func Chain(consumers ...Consumer) Consumer {
	return ConsumerFunc(func(ctx context.Context, r balancer.Result[activity.Event]) error {
		for _, c := range consumers {
			if c == nil {
				continue
			}
			if err := c.Consume(ctx, r); err != nil {
				return err
			}
		}
		return nil
	})
}

// LogConsumer writes one log line per page with its per-type tally.
type LogConsumer struct {
	logger zerolog.Logger
}

// NewLogConsumer creates a LogConsumer.
func NewLogConsumer(logger zerolog.Logger) *LogConsumer {
	return &LogConsumer{logger: logger}
}

// Consume logs the page URL and its "Type: count | ..." summary, or the
// failure that ended the seed.
func (c *LogConsumer) Consume(_ context.Context, r balancer.Result[activity.Event]) error {
	if r.Failed() {
		c.logger.Warn().
			Err(r.Err).
			Str("seed", r.Seed).
			Str("url", r.Page.URL).
			Str("error_class", string(client.ClassOf(r.Err))).
			Msg("Seed failed")
		return nil
	}

	c.logger.Info().
		Str("seed", r.Seed).
		Str("url", r.Page.URL).
		Int("records", r.Page.Len()).
		Str("types", activity.Tally(r.Page.Records).String()).
		Msg("Page delivered")
	return nil
}
