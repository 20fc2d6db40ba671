package qchsh

import (
	"sync"
	"time"
)

// ResultValue wraps a job result with metadata
type ResultValue struct {
	Value     any
	Error     error
	CreatedAt time.Time
	TTL       time.Duration
}

// ResultSpace stores job results and hands them to anyone awaiting them
type ResultSpace struct {
	mu      sync.RWMutex
	values  map[string]ResultValue
	waiting map[string][]chan ResultValue
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func NewResultSpace() *ResultSpace {
	rs := &ResultSpace{
		values:  make(map[string]ResultValue),
		waiting: make(map[string][]chan ResultValue),
		done:    make(chan struct{}),
	}

	rs.wg.Add(1)
	go func() {
		defer rs.wg.Done()
		rs.cleanup(time.Minute)
	}()

	return rs
}

// Store records a result and notifies every waiting channel
func (rs *ResultSpace) Store(id string, value any, err error, ttl time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rv := ResultValue{
		Value:     value,
		Error:     err,
		CreatedAt: time.Now(),
		TTL:       ttl,
	}
	rs.values[id] = rv

	for _, ch := range rs.waiting[id] {
		// Await channels are buffered for exactly one value.
		ch <- rv
		close(ch)
	}
	delete(rs.waiting, id)
}

// Await returns a channel that will receive the value when it's available
func (rs *ResultSpace) Await(id string) chan ResultValue {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	ch := make(chan ResultValue, 1)

	if rv, ok := rs.values[id]; ok {
		ch <- rv
		close(ch)
		return ch
	}

	rs.waiting[id] = append(rs.waiting[id], ch)
	return ch
}

func (rs *ResultSpace) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rs.done:
			return
		case <-ticker.C:
			rs.CleanUp()
		}
	}
}

// CleanUp drops values whose TTL has expired. A zero TTL never expires.
func (rs *ResultSpace) CleanUp() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	now := time.Now()
	for id, rv := range rs.values {
		if rv.TTL > 0 && now.Sub(rv.CreatedAt) > rv.TTL {
			delete(rs.values, id)
		}
	}
}

// Close stops the cleanup loop. Stored values stay readable.
func (rs *ResultSpace) Close() {
	rs.once.Do(func() {
		close(rs.done)
	})
	rs.wg.Wait()
}
