package qchsh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/theapemachine/errnie"
)

// Pool runs independent jobs, such as optimization restarts, on a fixed set of workers
type Pool struct {
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	workers    chan chan Job
	jobs       chan Job
	space      *ResultSpace
	metrics    *Metrics
	breakers   map[string]*CircuitBreaker
	breakersMu sync.RWMutex
	workerMu   sync.Mutex
	workerList []*Worker
	config     *Config
	closeOnce  sync.Once
}

// NewPool starts a pool with the given number of workers
func NewPool(ctx context.Context, workers int, config *Config) *Pool {
	if config == nil {
		config = NewConfig()
	}
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		ctx:        ctx,
		cancel:     cancel,
		breakers:   make(map[string]*CircuitBreaker),
		workerList: make([]*Worker, 0, workers),
		jobs:       make(chan Job, workers*10),
		workers:    make(chan chan Job, workers),
		space:      NewResultSpace(),
		metrics:    NewMetrics(),
		config:     config,
	}

	for i := 0; i < workers; i++ {
		p.startWorker()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.manage()
	}()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.collectMetrics()
	}()

	return p
}

// Pool management
func (p *Pool) manage() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobs:
			select {
			case <-p.ctx.Done():
				p.space.Store(job.ID, nil, fmt.Errorf("pool closed before job %s ran", job.ID), job.TTL)
				return
			case workerChan := <-p.workers:
				select {
				case workerChan <- job:
				case <-p.ctx.Done():
					return
				}
			}
		}
	}
}

func (p *Pool) collectMetrics() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.metrics.mu.Lock()
			p.metrics.JobQueueSize = len(p.jobs)
			p.metrics.ActiveWorkers = p.metrics.WorkerCount - len(p.workers)
			p.metrics.mu.Unlock()

			for _, reg := range p.regulators() {
				reg.Observe(p.metrics)
				reg.Renormalize()
			}
		}
	}
}

// Schedule queues fn and returns a channel that receives its result
func (p *Pool) Schedule(id string, fn func(ctx context.Context) (any, error), opts ...JobOption) chan ResultValue {
	job := Job{
		ID:        id,
		Fn:        fn,
		StartTime: time.Now(),
	}

	for _, opt := range opts {
		opt(&job)
	}

	if err := p.ctx.Err(); err != nil {
		return failed(fmt.Errorf("pool closed before job %s was scheduled: %w", id, err))
	}

	if job.CircuitID != "" {
		var reg Regulator = p.Breaker(job.CircuitID)
		if reg.Limit() {
			p.metrics.recordRejection()
			return failed(fmt.Errorf("job %s refused by %s: %w", id, job.CircuitID, ErrCircuitOpen))
		}
	}

	result := p.space.Await(id)

	select {
	case p.jobs <- job:
		return result
	case <-p.ctx.Done():
		p.space.Store(id, nil, fmt.Errorf("job scheduling cancelled: %w", p.ctx.Err()), job.TTL)
		return result
	}
}

// Breaker returns the named circuit breaker, creating it from the pool config
func (p *Pool) Breaker(id string) *CircuitBreaker {
	p.breakersMu.Lock()
	defer p.breakersMu.Unlock()

	breaker, exists := p.breakers[id]
	if !exists {
		breaker = NewCircuitBreaker(p.config.MaxFailures, p.config.BreakerReset, 1)
		p.breakers[id] = breaker
	}

	return breaker
}

func (p *Pool) breaker(id string) *CircuitBreaker {
	if id == "" {
		return nil
	}

	p.breakersMu.RLock()
	defer p.breakersMu.RUnlock()
	return p.breakers[id]
}

func (p *Pool) regulators() []Regulator {
	p.breakersMu.RLock()
	defer p.breakersMu.RUnlock()

	regs := make([]Regulator, 0, len(p.breakers))
	for _, breaker := range p.breakers {
		regs = append(regs, breaker)
	}
	return regs
}

// Metrics returns the pool's live metrics
func (p *Pool) Metrics() *Metrics {
	return p.metrics
}

func (p *Pool) startWorker() {
	worker := &Worker{
		pool: p,
		jobs: make(chan Job),
	}
	p.workerMu.Lock()
	p.workerList = append(p.workerList, worker)
	p.workerMu.Unlock()

	p.metrics.mu.Lock()
	p.metrics.WorkerCount++
	count := p.metrics.WorkerCount
	p.metrics.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		worker.run()
	}()
	errnie.Info("started worker, total workers: %d", count)
}

// Close stops the workers and waits for them to exit
func (p *Pool) Close() {
	if p == nil {
		return
	}

	p.closeOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		p.space.Close()
		errnie.Info("pool closed")
	})
}

func failed(err error) chan ResultValue {
	ch := make(chan ResultValue, 1)
	ch <- ResultValue{Error: err, CreatedAt: time.Now()}
	close(ch)
	return ch
}
