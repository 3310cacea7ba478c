// Package scheduler serializes outgoing network calls behind a
// rate-limited, batched processing loop.
//
// Every request the graph client makes is enqueued here. The loop pulls
// pending operations in fixed-size batches, starts each one through a
// shared rate limiter, runs the batch concurrently, and enforces a minimum
// delay between batch starts. Failure is per-operation: a failed call
// rejects only its own result channel and the loop keeps going.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrCancelled rejects operations that were still queued when Clear was
// called. In-flight calls are not interrupted.
var ErrCancelled = errors.New("scheduler: pending operation cancelled")

// Operation is one unit of queued work, normally a closure around a single
// HTTP call that captures its own response.
type Operation func() error

// Options tunes the processing loop. Zero values select the defaults.
type Options struct {
	// RateLimit is the request-per-second ceiling. Default 50.
	RateLimit float64
	// BatchSize is the number of operations pulled and run concurrently per
	// loop iteration. Default 10.
	BatchSize int
	// BatchDelay is the minimum time between the start of one batch and the
	// start of the next. Default 100ms.
	BatchDelay time.Duration
}

const (
	defaultRateLimit  = 50
	defaultBatchSize  = 10
	defaultBatchDelay = 100 * time.Millisecond
)

type pending struct {
	op     Operation
	result chan error
}

// Scheduler owns the queue and the single processing loop. Enqueue may be
// called from any goroutine.
type Scheduler struct {
	mu      sync.Mutex
	queue   []pending
	running bool

	limiter    *rate.Limiter
	batchSize  int
	batchDelay time.Duration
	log        zerolog.Logger
}

// New creates a scheduler with the given options.
func New(opts Options, log zerolog.Logger) *Scheduler {
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = defaultBatchDelay
	}
	return &Scheduler{
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		batchSize:  opts.BatchSize,
		batchDelay: opts.BatchDelay,
		log:        log.With().Str("component", "scheduler").Logger(),
	}
}

// Enqueue appends op to the queue and starts the processing loop if it is
// idle. The returned channel receives exactly one value: the operation's
// error, nil on success, or ErrCancelled if the queue was cleared first.
func (s *Scheduler) Enqueue(op Operation) <-chan error {
	p := pending{op: op, result: make(chan error, 1)}
	s.mu.Lock()
	s.queue = append(s.queue, p)
	if !s.running {
		s.running = true
		go s.process()
	}
	s.mu.Unlock()
	return p.result
}

// Pending reports the number of queued, not yet started operations.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Clear rejects every queued operation with ErrCancelled and empties the
// queue. This is the only cancellation mechanism: calls already handed to
// the network are left to finish on their own.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	dropped := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, p := range dropped {
		p.result <- ErrCancelled
	}
	if len(dropped) > 0 {
		s.log.Info().Int("dropped", len(dropped)).Msg("cleared pending operations")
	}
}

// process is the single loop draining the queue. It exits when the queue is
// empty; the next Enqueue restarts it.
func (s *Scheduler) process() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		n := s.batchSize
		if n > len(s.queue) {
			n = len(s.queue)
		}
		batch := make([]pending, n)
		copy(batch, s.queue[:n])
		s.queue = s.queue[n:]
		s.mu.Unlock()

		start := time.Now()
		var wg sync.WaitGroup
		for _, p := range batch {
			// Gate each launch on the rate ceiling; the batch itself runs
			// concurrently.
			if err := s.limiter.Wait(context.Background()); err != nil {
				p.result <- err
				continue
			}
			wg.Add(1)
			go func(p pending) {
				defer wg.Done()
				p.result <- p.op()
			}(p)
		}
		wg.Wait()

		if remaining := s.batchDelay - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}
