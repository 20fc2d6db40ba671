package qchsh

import (
	"sync"
	"time"
)

// RecordEvent is a training record tagged with the restart that produced it.
type RecordEvent struct {
	Restart int
	Record  TrainingRecord
}

/*
FilterFunc decides whether an event should be broadcast at all.

Returns:
  - bool: True if the event should be delivered, false if it should be dropped
*/
type FilterFunc func(RecordEvent) bool

/*
BroadcastGroup fans training records out to subscribers such as a live plot of
score against step.

Sends never block: a subscriber whose buffer is full misses the event, and the
drop is counted in the group's metrics. Training therefore runs at the same
speed whether or not anyone is listening.
*/
type BroadcastGroup struct {
	mu sync.RWMutex

	ID          string
	subscribers map[string]chan RecordEvent
	filters     []FilterFunc
	metrics     *BroadcastMetrics
	closed      bool
}

/*
BroadcastMetrics tracks delivery of the broadcast group.
*/
type BroadcastMetrics struct {
	MessagesSent      int64
	MessagesDropped   int64
	ActiveSubscribers int
	LastBroadcastTime time.Time
}

/*
NewBroadcastGroup creates an empty broadcast group.

Parameters:
  - id: Identifier used in log lines
*/
func NewBroadcastGroup(id string) *BroadcastGroup {
	return &BroadcastGroup{
		ID:          id,
		subscribers: make(map[string]chan RecordEvent),
		metrics:     &BroadcastMetrics{},
	}
}

/*
Subscribe adds a subscriber with the given buffer size and returns its channel.
Subscribing twice with the same id replaces the earlier channel, which is closed.
*/
func (bg *BroadcastGroup) Subscribe(subscriberID string, bufferSize int) <-chan RecordEvent {
	bg.mu.Lock()
	defer bg.mu.Unlock()

	ch := make(chan RecordEvent, bufferSize)
	if bg.closed {
		close(ch)
		return ch
	}

	if old, exists := bg.subscribers[subscriberID]; exists {
		close(old)
	} else {
		bg.metrics.ActiveSubscribers++
	}
	bg.subscribers[subscriberID] = ch

	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (bg *BroadcastGroup) Unsubscribe(subscriberID string) {
	bg.mu.Lock()
	defer bg.mu.Unlock()

	if ch, exists := bg.subscribers[subscriberID]; exists {
		close(ch)
		delete(bg.subscribers, subscriberID)
		bg.metrics.ActiveSubscribers--
	}
}

// Send delivers an event to every subscriber whose buffer has room.
func (bg *BroadcastGroup) Send(ev RecordEvent) {
	bg.mu.Lock()
	defer bg.mu.Unlock()

	if bg.closed {
		return
	}

	for _, filter := range bg.filters {
		if !filter(ev) {
			bg.metrics.MessagesDropped++
			return
		}
	}

	for _, ch := range bg.subscribers {
		select {
		case ch <- ev:
			bg.metrics.MessagesSent++
		default:
			bg.metrics.MessagesDropped++
		}
	}

	bg.metrics.LastBroadcastTime = time.Now()
}

// AddFilter registers a filter applied to every event before delivery.
func (bg *BroadcastGroup) AddFilter(filter FilterFunc) {
	bg.mu.Lock()
	defer bg.mu.Unlock()
	bg.filters = append(bg.filters, filter)
}

// GetMetrics returns a copy of the current metrics.
func (bg *BroadcastGroup) GetMetrics() BroadcastMetrics {
	bg.mu.RLock()
	defer bg.mu.RUnlock()
	return *bg.metrics
}

// Close closes every subscriber channel. Later sends are ignored.
func (bg *BroadcastGroup) Close() {
	bg.mu.Lock()
	defer bg.mu.Unlock()

	if bg.closed {
		return
	}
	bg.closed = true

	for id, ch := range bg.subscribers {
		close(ch)
		delete(bg.subscribers, id)
	}
	bg.metrics.ActiveSubscribers = 0
	bg.filters = nil
}
