package webhook

import (
	"sync"
	"time"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// DeliveryStatus is the lifecycle state of a single webhook delivery
// attempt.
type DeliveryStatus string

const (
	DeliveryStatusPending  DeliveryStatus = "pending"
	DeliveryStatusSuccess  DeliveryStatus = "success"
	DeliveryStatusFailed   DeliveryStatus = "failed"
	DeliveryStatusRetrying DeliveryStatus = "retrying"
)

// DeliveryLog records one attempt (and its retries) to deliver an event
// to a webhook target.
type DeliveryLog struct {
	ID           string                 `json:"id"`
	InstanceID   string                 `json:"instance_id"`
	EventID      string                 `json:"event_id"`
	EventType    types.WebhookEventType `json:"event_type"`
	URL          string                 `json:"url"`
	Status       DeliveryStatus         `json:"status"`
	Attempts     int                    `json:"attempts"`
	StatusCode   int                    `json:"status_code,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Duration     time.Duration          `json:"duration"`
	CreatedAt    time.Time              `json:"created_at"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	NextRetryAt  *time.Time             `json:"next_retry_at,omitempty"`
}

// DeliveryStore is a bounded, in-memory log of delivery attempts, indexed
// by log ID; per-instance history and retry sweeps scan the entries in
// insertion order.
type DeliveryStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string // log IDs in insertion order, oldest first
	byID     map[string]*DeliveryLog
}

// NewDeliveryStore builds a store retaining at most capacity entries.
func NewDeliveryStore(capacity int) *DeliveryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &DeliveryStore{capacity: capacity, byID: map[string]*DeliveryLog{}}
}

// Add records a new delivery log, evicting the oldest entry if the store
// is at capacity.
func (s *DeliveryStore) Add(log *DeliveryLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.byID, oldest)
	}
	s.order = append(s.order, log.ID)
	s.byID[log.ID] = log
}

// Update overwrites an existing log entry in place by ID.
func (s *DeliveryStore) Update(log *DeliveryLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[log.ID]; ok {
		s.byID[log.ID] = log
	}
}

// ByInstance returns the most recent up-to-limit delivery logs for an
// instance, newest first.
func (s *DeliveryStore) ByInstance(instanceID string, limit int) []*DeliveryLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*DeliveryLog
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		log := s.byID[s.order[i]]
		if log != nil && log.InstanceID == instanceID {
			out = append(out, log)
		}
	}
	return out
}

// PendingRetries returns every log entry currently in DeliveryStatusRetrying
// whose NextRetryAt has elapsed.
func (s *DeliveryStore) PendingRetries() []*DeliveryLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	var out []*DeliveryLog
	for _, id := range s.order {
		log := s.byID[id]
		if log == nil || log.Status != DeliveryStatusRetrying || log.NextRetryAt == nil {
			continue
		}
		if now.After(*log.NextRetryAt) || now.Equal(*log.NextRetryAt) {
			out = append(out, log)
		}
	}
	return out
}
