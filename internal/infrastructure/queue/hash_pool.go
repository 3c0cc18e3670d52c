package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/selectexposure/authcore/internal/api/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// ErrPoolStopped is returned for jobs submitted after the pool shut down.
var ErrPoolStopped = errors.New("hash pool stopped")

// Hasher is the synchronous primitive run by the pool.
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Verify(plaintext string, hash []byte) (bool, error)
}

type job struct {
	op   string
	run  func()
	done chan struct{}

	dequeued atomic.Bool
}

// leaveQueue drops j from the queue depth gauge exactly once.
func (j *job) leaveQueue() {
	if j.dequeued.CompareAndSwap(false, true) {
		metrics.HashQueueDepth.Dec()
	}
}

// HashPool runs password hash and verify jobs on a fixed set of workers so
// that bcrypt never competes with every request goroutine at once. It
// satisfies ports.PasswordHasher.
type HashPool struct {
	jobs    chan *job
	hasher  Hasher
	workers int
	log     zerolog.Logger

	startOnce sync.Once
	wg        sync.WaitGroup
	stopped   chan struct{}
}

// NewHashPool creates a HashPool with numWorkers workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewHashPool(numWorkers int, hasher Hasher, log zerolog.Logger) *HashPool {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &HashPool{
		jobs:    make(chan *job, channelBuffer),
		hasher:  hasher,
		workers: numWorkers,
		log:     log,
		stopped: make(chan struct{}),
	}
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// jobs still queued at that point fail with ErrPoolStopped.
func (p *HashPool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.runWorker(ctx, i)
		}
		go func() {
			p.wg.Wait()
			close(p.stopped)
		}()
	})
}

// Wait blocks until every worker has exited.
func (p *HashPool) Wait() {
	<-p.stopped
}

func (p *HashPool) Hash(ctx context.Context, plaintext string) ([]byte, error) {
	var (
		hash []byte
		err  error
	)
	if serr := p.submit(ctx, "hash", func() { hash, err = p.hasher.Hash(plaintext) }); serr != nil {
		return nil, serr
	}
	return hash, err
}

func (p *HashPool) Verify(ctx context.Context, plaintext string, hash []byte) (bool, error) {
	var (
		ok  bool
		err error
	)
	if serr := p.submit(ctx, "verify", func() { ok, err = p.hasher.Verify(plaintext, hash) }); serr != nil {
		return false, serr
	}
	return ok, err
}

// submit enqueues fn and waits for a worker to finish it. Both the enqueue
// and the wait give up when ctx is done; an abandoned job still runs.
func (p *HashPool) submit(ctx context.Context, op string, fn func()) error {
	select {
	case <-p.stopped:
		return ErrPoolStopped
	default:
	}

	j := &job{op: op, run: fn, done: make(chan struct{})}

	// counted before the send so a fast worker never takes the gauge below zero
	metrics.HashQueueDepth.Inc()
	select {
	case p.jobs <- j:
	case <-ctx.Done():
		metrics.HashQueueDepth.Dec()
		return ctx.Err()
	case <-p.stopped:
		metrics.HashQueueDepth.Dec()
		return ErrPoolStopped
	}

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		// the job may have completed just before the last worker exited
		select {
		case <-j.done:
			return nil
		default:
			j.leaveQueue()
			return ErrPoolStopped
		}
	}
}

func (p *HashPool) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			j.leaveQueue()
			start := time.Now()
			j.run()
			close(j.done)
			elapsed := time.Since(start)
			metrics.HashDuration.WithLabelValues(j.op).Observe(elapsed.Seconds())
			p.log.Debug().
				Str("op", j.op).
				Int("worker_id", id).
				Dur("elapsed", elapsed).
				Msg("hash job done")
		}
	}
}
