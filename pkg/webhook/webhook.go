// Package webhook dispatches manifest/schema lifecycle events to the
// webhook URLs a service instance declared in its manifest, with
// signed payloads, per-target rate limiting, and scheduled retries.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xraph-labs/nexus-registry/pkg/observability"
	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// Event is a single lifecycle notification delivered to a webhook target.
type Event struct {
	ID          string                 `json:"id"`
	Type        types.WebhookEventType `json:"type"`
	ServiceName string                 `json:"service_name"`
	InstanceID  string                 `json:"instance_id"`
	Timestamp   time.Time              `json:"timestamp"`
	Data        map[string]interface{} `json:"data"`
}

// Target pairs a destination URL with the signing secret and event
// filter that came from a manifest's WebhookConfig.
type Target struct {
	InstanceID string
	URL        string
	Secret     string
	Events     []types.WebhookEventType
}

func (t Target) subscribesTo(eventType types.WebhookEventType) bool {
	for _, e := range t.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// TargetFromConfig builds a Target from a manifest's webhook config,
// pointed at the service's own webhook (the endpoint a gateway calls to
// notify the service of control-plane events). Returns false if the
// config has no service webhook URL configured.
func TargetFromConfig(instanceID string, cfg *types.WebhookConfig) (Target, bool) {
	if cfg == nil || cfg.ServiceWebhook == nil || *cfg.ServiceWebhook == "" {
		return Target{}, false
	}
	secret := ""
	if cfg.Secret != nil {
		secret = *cfg.Secret
	}
	return Target{
		InstanceID: instanceID,
		URL:        *cfg.ServiceWebhook,
		Secret:     secret,
		Events:     cfg.SubscribeEvents,
	}, true
}

// Dispatcher fans lifecycle events out to every registered target
// interested in that event type, tracking delivery attempts for retry.
type Dispatcher struct {
	http        *http.Client
	logger      *observability.Logger
	metrics     *observability.Metrics
	rateLimiter *RateLimiter
	store       *DeliveryStore
	retryPolicy *RetryPolicy

	mu      sync.RWMutex
	targets map[string]Target // instance_id -> target
}

// SetMetrics attaches a metrics sink the dispatcher reports delivery
// outcomes to. Nil-safe: a Dispatcher with no metrics attached simply
// skips recording.
func (d *Dispatcher) SetMetrics(m *observability.Metrics) {
	d.metrics = m
}

// NewDispatcher builds a Dispatcher with the given retry policy and a
// 100-request-per-minute-per-target rate limit, matching the ceiling the
// registry's webhook fan-out has historically used.
func NewDispatcher(policy *RetryPolicy, logger *observability.Logger) *Dispatcher {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if policy == nil {
		policy = NewRetryPolicy(DefaultRetryConfig())
	}
	return &Dispatcher{
		http:        &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
		rateLimiter: NewRateLimiter(100, time.Minute),
		store:       NewDeliveryStore(1000),
		retryPolicy: policy,
		targets:     map[string]Target{},
	}
}

// SetTarget registers or replaces the webhook target for a given
// instance.
func (d *Dispatcher) SetTarget(t Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets[t.InstanceID] = t
}

// RemoveTarget drops the webhook target for an instance, e.g. once it
// has left the registry.
func (d *Dispatcher) RemoveTarget(instanceID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.targets, instanceID)
}

// Dispatch delivers event to every target subscribed to its type,
// sending each one asynchronously and recording a delivery log entry
// that the retry sweeper can later act on.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	d.mu.RLock()
	targets := make([]Target, 0, len(d.targets))
	for _, target := range d.targets {
		targets = append(targets, target)
	}
	d.mu.RUnlock()

	for _, target := range targets {
		if !target.subscribesTo(event.Type) {
			continue
		}
		log := &DeliveryLog{
			ID:         uuid.NewString(),
			InstanceID: target.InstanceID,
			EventID:    event.ID,
			EventType:  event.Type,
			URL:        target.URL,
			Status:     DeliveryStatusPending,
			CreatedAt:  time.Now(),
		}
		d.store.Add(log)
		go d.deliver(ctx, target, event, log)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, target Target, event Event, log *DeliveryLog) {
	log.Attempts++
	start := time.Now()
	err := d.send(ctx, target, event, log)
	log.Duration = time.Since(start)

	switch {
	case err == nil:
		log.Status = DeliveryStatusSuccess
		now := time.Now()
		log.CompletedAt = &now
	case d.retryPolicy.ShouldRetry(log.Attempts, err):
		log.Status = DeliveryStatusRetrying
		next := d.retryPolicy.NextRetryTime(log.Attempts)
		log.NextRetryAt = &next
		log.ErrorMessage = err.Error()
	default:
		log.Status = DeliveryStatusFailed
		log.ErrorMessage = err.Error()
		now := time.Now()
		log.CompletedAt = &now
	}
	d.store.Update(log)
	d.recordDeliveryMetrics(log)
}

func (d *Dispatcher) recordDeliveryMetrics(log *DeliveryLog) {
	if d.metrics == nil || log.Status == DeliveryStatusRetrying {
		return
	}
	d.metrics.WebhookDeliveriesTotal.WithLabelValues(string(log.Status)).Inc()
	d.metrics.WebhookDeliveryDuration.Observe(log.Duration.Seconds())
}

func (d *Dispatcher) send(ctx context.Context, target Target, event Event, log *DeliveryLog) error {
	if !d.rateLimiter.Allow(target.InstanceID) {
		return fmt.Errorf("rate limit exceeded for webhook target %s", target.InstanceID)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Registry-Event", string(event.Type))
	req.Header.Set("X-Registry-Event-ID", event.ID)
	req.Header.Set("X-Registry-Delivery", time.Now().Format(time.RFC3339))
	if target.Secret != "" {
		req.Header.Set("X-Registry-Signature", Sign(payload, target.Secret))
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()
	log.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook target returned non-2xx status: %d", resp.StatusCode)
	}
	return nil
}

// RetryPending re-delivers every log entry whose NextRetryAt has
// elapsed. Meant to be invoked on a schedule by a cron-driven sweeper.
func (d *Dispatcher) RetryPending(ctx context.Context) {
	for _, log := range d.store.PendingRetries() {
		d.mu.RLock()
		target, ok := d.targets[log.InstanceID]
		d.mu.RUnlock()
		if !ok {
			log.Status = DeliveryStatusFailed
			log.ErrorMessage = "webhook target no longer registered"
			now := time.Now()
			log.CompletedAt = &now
			d.store.Update(log)
			continue
		}
		event := Event{ID: log.EventID, Type: log.EventType, Timestamp: log.CreatedAt, Data: map[string]interface{}{}}
		d.retry(ctx, target, event, log)
	}
}

func (d *Dispatcher) retry(ctx context.Context, target Target, event Event, log *DeliveryLog) {
	log.Attempts++
	start := time.Now()
	err := d.send(ctx, target, event, log)
	log.Duration = time.Since(start)

	if err != nil {
		if d.retryPolicy.ShouldRetry(log.Attempts, err) {
			log.Status = DeliveryStatusRetrying
			next := d.retryPolicy.NextRetryTime(log.Attempts)
			log.NextRetryAt = &next
			log.ErrorMessage = err.Error()
		} else {
			log.Status = DeliveryStatusFailed
			log.ErrorMessage = fmt.Sprintf("max retries exceeded: %v", err)
			now := time.Now()
			log.CompletedAt = &now
		}
	} else {
		log.Status = DeliveryStatusSuccess
		log.ErrorMessage = ""
		now := time.Now()
		log.CompletedAt = &now
	}
	d.store.Update(log)
	d.recordDeliveryMetrics(log)
}

// DeliveryLogs returns the most recent delivery attempts for an
// instance's target, newest first, capped at limit entries.
func (d *Dispatcher) DeliveryLogs(instanceID string, limit int) []*DeliveryLog {
	return d.store.ByInstance(instanceID, limit)
}

// Sign computes the HMAC-SHA256 signature of a payload under secret, in
// the "sha256=<hex>" form services should compare against.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the correct HMAC-SHA256
// signature of payload under secret.
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}
