// Package bench runs repeated requests against an endpoint and aggregates
// latency statistics.
package bench

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config controls a benchmark run.
type Config struct {
	Requests    int           // total requests, ignored when Duration is set
	Concurrency int           // parallel workers, default 1
	Rate        float64       // requests per second, 0 means unlimited
	Duration    time.Duration // run for this long instead of a fixed count
}

// Runner executes a benchmark with bounded concurrency and an optional rate
// limit.
type Runner struct {
	config  Config
	limiter *rate.Limiter
	metrics *Metrics
}

// New creates a Runner from config.
func New(config Config) *Runner {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Requests < 1 && config.Duration <= 0 {
		config.Requests = 1
	}

	r := &Runner{
		config:  config,
		metrics: NewMetrics(),
	}
	if config.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(config.Rate), 1)
	}
	return r
}

// Run executes do until the configured count or duration is reached and
// returns the aggregated summary. do performs one request and returns its
// status code.
func (r *Runner) Run(ctx context.Context, do func(ctx context.Context) (int, error)) (*Summary, error) {
	if r.config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Duration)
		defer cancel()
	}

	r.metrics.Start()

	jobs := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < r.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				if r.limiter != nil {
					if err := r.limiter.Wait(ctx); err != nil {
						return
					}
				}
				start := time.Now()
				status, err := do(ctx)
				r.metrics.Record(status, time.Since(start), err)
			}
		}()
	}

	feed := func() {
		defer close(jobs)
		if r.config.Duration > 0 {
			for {
				select {
				case <-ctx.Done():
					return
				case jobs <- struct{}{}:
				}
			}
		}
		for i := 0; i < r.config.Requests; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- struct{}{}:
			}
		}
	}

	feed()
	wg.Wait()
	r.metrics.Stop()

	// The deadline expiring is the normal way a duration run ends.
	if err := ctx.Err(); err != nil && !(r.config.Duration > 0 && err == context.DeadlineExceeded) {
		return r.metrics.Summary(), err
	}
	return r.metrics.Summary(), nil
}
