package server

import (
	"encoding/json"
	"sync"
)

// BatchEvent is the payload published to batch progress subscribers.
type BatchEvent struct {
	Type          string `json:"type"`
	RunIndex      int    `json:"runIndex,omitempty"`
	RunsCompleted int    `json:"runsCompleted"`
	RunsTotal     int    `json:"runsTotal"`
	Status        string `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Broker is an in-process pub/sub for SSE events, keyed by batch ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the given batch.
func (b *Broker) Subscribe(batchID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[batchID] == nil {
		b.subs[batchID] = make(map[chan []byte]struct{})
	}
	b.subs[batchID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the batch's subscribers.
func (b *Broker) Unsubscribe(batchID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[batchID], ch)
	if len(b.subs[batchID]) == 0 {
		delete(b.subs, batchID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of the given batch.
func (b *Broker) Publish(batchID string, event BatchEvent) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[batchID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}
