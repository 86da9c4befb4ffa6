package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/identitystore/identity-service/internal/core/ports"
	"github.com/identitystore/identity-service/internal/pkg/metrics"
)

var _ ports.UserCache = (*Projector)(nil)

// ErrProjectorStopped is returned for writes submitted after the workers
// have been told to stop.
var ErrProjectorStopped = errors.New("projector stopped")

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

type opKind int

const (
	opPut opKind = iota
	opRemove
)

type job struct {
	kind     opKind
	view     ports.UserView
	id       string
	username string
}

// Projector is a write-behind ports.UserCache. Writes are routed to a fixed
// set of workers by hashing the user id, so every update for one user is
// applied in submission order. Reads go straight to the wrapped cache.
//
// A full shard applies backpressure: the writer waits for room instead of
// overtaking jobs already queued for the same user.
type Projector struct {
	next    ports.UserCache
	workers []chan job
	stopped chan struct{}
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewProjector wraps next with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewProjector(numWorkers int, next ports.UserCache, log zerolog.Logger) *Projector {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	p := &Projector{
		next:    next,
		workers: make([]chan job, numWorkers),
		stopped: make(chan struct{}),
		log:     log,
	}
	for i := range p.workers {
		p.workers[i] = make(chan job, channelBuffer)
	}
	return p
}

// Start launches all worker goroutines. When ctx is cancelled each worker
// applies what is still buffered in its shard and returns.
func (p *Projector) Start(ctx context.Context) {
	for i, ch := range p.workers {
		p.wg.Add(1)
		go p.runWorker(ctx, i, ch)
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		<-ctx.Done()
		close(p.stopped)
	}()
}

// Wait blocks until every worker has returned.
func (p *Projector) Wait() {
	p.wg.Wait()
}

func (p *Projector) Get(ctx context.Context, id string) (*ports.UserView, bool, error) {
	return p.next.Get(ctx, id)
}

func (p *Projector) IDForUsername(ctx context.Context, username string) (string, bool, error) {
	return p.next.IDForUsername(ctx, username)
}

// Put queues an upsert of user. The view is copied, so the caller may reuse it.
func (p *Projector) Put(ctx context.Context, user *ports.UserView) error {
	v := *user
	v.Roles = append([]ports.RoleView(nil), user.Roles...)
	return p.enqueue(ctx, job{kind: opPut, view: v, id: v.ID})
}

func (p *Projector) Remove(ctx context.Context, id, username string) error {
	return p.enqueue(ctx, job{kind: opRemove, id: id, username: username})
}

// enqueue hands j to its shard, waiting for room when the buffer is full.
func (p *Projector) enqueue(ctx context.Context, j job) error {
	select {
	case <-p.stopped:
		return ErrProjectorStopped
	default:
	}

	idx := p.shardIndex(j.id)
	select {
	case p.workers[idx] <- j:
		p.recordDepth(idx)
		return nil
	default:
	}

	p.log.Warn().Str("user_id", j.id).Int("worker_id", idx).Msg("projection queue full, waiting")
	select {
	case p.workers[idx] <- j:
		p.recordDepth(idx)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopped:
		return ErrProjectorStopped
	}
}

func (p *Projector) recordDepth(idx int) {
	metrics.ProjectionQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(p.workers[idx])))
}

// shardIndex maps a user id deterministically to a worker index.
func (p *Projector) shardIndex(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(len(p.workers)))
}

func (p *Projector) apply(ctx context.Context, j job) error {
	switch j.kind {
	case opRemove:
		return p.next.Remove(ctx, j.id, j.username)
	default:
		return p.next.Put(ctx, &j.view)
	}
}

func (p *Projector) runWorker(ctx context.Context, id int, ch <-chan job) {
	defer p.wg.Done()
	depth := metrics.ProjectionQueueDepth.WithLabelValues(strconv.Itoa(id))
	// Jobs already accepted are applied even while shutting down.
	applyCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			p.drain(applyCtx, id, ch)
			depth.Set(0)
			return
		case j, ok := <-ch:
			if !ok {
				return
			}
			depth.Set(float64(len(ch)))
			p.applyLogged(applyCtx, id, j)
		}
	}
}

// drain applies every job still buffered in ch without blocking.
func (p *Projector) drain(ctx context.Context, id int, ch <-chan job) {
	for {
		select {
		case j, ok := <-ch:
			if !ok {
				return
			}
			p.applyLogged(ctx, id, j)
		default:
			return
		}
	}
}

func (p *Projector) applyLogged(ctx context.Context, id int, j job) {
	if err := p.apply(ctx, j); err != nil {
		p.log.Error().Err(err).
			Str("user_id", j.id).
			Int("worker_id", id).
			Msg("cache projection failed")
	}
}
