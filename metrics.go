package qchsh

import (
	"math"
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mu            sync.RWMutex
	WorkerCount   int
	JobQueueSize  int
	ActiveWorkers int
	TotalJobTime  time.Duration
	JobCount      int64
	FailedJobs    int64
	RejectedJobs  int64

	AverageJobLatency time.Duration
	P95JobLatency     time.Duration
	P99JobLatency     time.Duration
	JobSuccessRate    float64
	BestScore         float64

	latencies  []time.Duration
	windowSize int
}

func NewMetrics() *Metrics {
	return &Metrics{
		BestScore:  math.Inf(-1),
		latencies:  make([]time.Duration, 0, 1000),
		windowSize: 1000,
	}
}

func (m *Metrics) recordJobExecution(startTime time.Time, success bool) {
	duration := time.Since(startTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalJobTime += duration
	m.JobCount++
	if !success {
		m.FailedJobs++
	}
	m.JobSuccessRate = float64(m.JobCount-m.FailedJobs) / float64(m.JobCount)

	m.updateLatencyPercentiles(duration)
}

func (m *Metrics) recordRejection() {
	m.mu.Lock()
	m.RejectedJobs++
	m.mu.Unlock()
}

// recordScore keeps the highest score seen by any restart.
func (m *Metrics) recordScore(score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if score > m.BestScore {
		m.BestScore = score
	}
}

// updateLatencyPercentiles expects the caller to hold the lock.
func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	m.AverageJobLatency = m.TotalJobTime / time.Duration(m.JobCount)

	m.latencies = append(m.latencies, duration)
	if len(m.latencies) > m.windowSize {
		m.latencies = m.latencies[1:]
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	m.P95JobLatency = sorted[percentileIndex(len(sorted), 0.95)]
	m.P99JobLatency = sorted[percentileIndex(len(sorted), 0.99)]
}

func percentileIndex(n int, p float64) int {
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	return idx
}

func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"worker_count":  m.WorkerCount,
		"queue_size":    m.JobQueueSize,
		"job_count":     m.JobCount,
		"failed_jobs":   m.FailedJobs,
		"rejected_jobs": m.RejectedJobs,
		"success_rate":  m.JobSuccessRate,
		"avg_latency":   m.AverageJobLatency.Milliseconds(),
		"p95_latency":   m.P95JobLatency.Milliseconds(),
		"p99_latency":   m.P99JobLatency.Milliseconds(),
		"best_score":    m.BestScore,
	}
}
