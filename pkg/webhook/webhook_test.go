package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

func TestSignAndVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"schema.updated"}`)
	sig := Sign(payload, "top-secret")

	if !VerifySignature(payload, sig, "top-secret") {
		t.Error("expected signature to verify against the same secret")
	}
	if VerifySignature(payload, sig, "wrong-secret") {
		t.Error("expected signature to fail verification against a different secret")
	}
}

func TestTargetFromConfigRequiresWebhookURL(t *testing.T) {
	if _, ok := TargetFromConfig("instance-1", nil); ok {
		t.Error("expected nil config to yield no target")
	}
	if _, ok := TargetFromConfig("instance-1", &types.WebhookConfig{}); ok {
		t.Error("expected empty webhook config to yield no target")
	}

	url := "https://service.internal/hooks"
	secret := "s3cr3t"
	cfg := &types.WebhookConfig{
		ServiceWebhook:  &url,
		Secret:          &secret,
		SubscribeEvents: []types.WebhookEventType{types.WebhookSchemaUpdated},
	}
	target, ok := TargetFromConfig("instance-1", cfg)
	if !ok {
		t.Fatal("expected a target to be built")
	}
	if target.URL != url || target.Secret != secret {
		t.Errorf("unexpected target: %+v", target)
	}
	if !target.subscribesTo(types.WebhookSchemaUpdated) {
		t.Error("expected target to subscribe to schema.updated")
	}
	if target.subscribesTo(types.WebhookHealthChanged) {
		t.Error("expected target to not subscribe to an unrelated event")
	}
}

func TestDispatchDeliversToSubscribedTargetsOnly(t *testing.T) {
	received := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	disp := NewDispatcher(NewRetryPolicy(DefaultRetryConfig()), nil)
	disp.SetTarget(Target{
		InstanceID: "subscribed",
		URL:        srv.URL,
		Secret:     "s3cr3t",
		Events:     []types.WebhookEventType{types.WebhookSchemaUpdated},
	})
	disp.SetTarget(Target{
		InstanceID: "not-subscribed",
		URL:        srv.URL,
		Events:     []types.WebhookEventType{types.WebhookHealthChanged},
	})

	disp.Dispatch(context.Background(), Event{Type: types.WebhookSchemaUpdated, ServiceName: "billing"})

	select {
	case req := <-received:
		if req.Header.Get("X-Registry-Signature") == "" {
			t.Error("expected a signature header on a signed target's delivery")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook delivery")
	}

	select {
	case <-received:
		t.Fatal("unsubscribed target should not have received a delivery")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRateLimiterAllowsUpToCapacityThenBlocks(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if !rl.Allow("target") || !rl.Allow("target") {
		t.Fatal("expected first two requests to be allowed")
	}
	if rl.Allow("target") {
		t.Error("expected third request within the period to be rate limited")
	}
}

func TestDeliveryStoreEvictsOldestBeyondCapacity(t *testing.T) {
	store := NewDeliveryStore(2)
	store.Add(&DeliveryLog{ID: "1", InstanceID: "a"})
	store.Add(&DeliveryLog{ID: "2", InstanceID: "a"})
	store.Add(&DeliveryLog{ID: "3", InstanceID: "a"})

	logs := store.ByInstance("a", 10)
	if len(logs) != 2 {
		t.Fatalf("expected capacity to bound stored logs at 2, got %d", len(logs))
	}
	if logs[0].ID != "3" || logs[1].ID != "2" {
		t.Errorf("expected newest-first ordering with id 1 evicted, got %+v", logs)
	}
}

func TestRetryPolicyBacksOffExponentiallyUpToMaxDelay(t *testing.T) {
	policy := NewRetryPolicy(RetryConfig{
		MaxAttempts:       5,
		InitialDelay:      1 * time.Second,
		MaxDelay:          4 * time.Second,
		BackoffMultiplier: 2.0,
	})

	if d := policy.NextRetryDelay(1); d != 1*time.Second {
		t.Errorf("expected first retry delay of 1s, got %v", d)
	}
	if d := policy.NextRetryDelay(2); d != 2*time.Second {
		t.Errorf("expected second retry delay of 2s, got %v", d)
	}
	if d := policy.NextRetryDelay(10); d != 4*time.Second {
		t.Errorf("expected delay to cap at MaxDelay, got %v", d)
	}
	if policy.ShouldRetry(5, nil) {
		t.Error("expected no retry when there is no error")
	}
	if policy.ShouldRetry(5, errTest) {
		t.Error("expected no retry once MaxAttempts is reached")
	}
}

var errTest = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
