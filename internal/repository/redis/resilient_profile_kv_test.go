package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"DetectiveProfileService/config"
	"DetectiveProfileService/pkg/apperrors"
	"DetectiveProfileService/pkg/resilience"

	"go.uber.org/zap"
)

// flakyKV отдает заданные ошибки по очереди, затем делегирует в data
type flakyKV struct {
	mu       sync.Mutex
	failures []error
	data     map[string][]byte
	gets     int
	removes  int
}

func (f *flakyKV) next() error {
	if len(f.failures) == 0 {
		return nil
	}
	err := f.failures[0]
	f.failures = f.failures[1:]
	return err
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if err := f.next(); err != nil {
		return nil, err
	}
	v, ok := f.data[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return v, nil
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.next(); err != nil {
		return err
	}
	f.data[key] = value
	return nil
}

func (f *flakyKV) RemoveAll(ctx context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removes++
	if err := f.next(); err != nil {
		return err
	}
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func testResilienceConfig() config.ResilienceConfig {
	cfg := config.DefaultResilienceConfig()
	cfg.CircuitBreaker.FailureThreshold = 3
	cfg.CircuitBreaker.ResetTimeout = time.Minute
	cfg.Retry.InitialBackoff = time.Millisecond
	cfg.Retry.MaxBackoff = 2 * time.Millisecond
	return cfg
}

func TestResilientProfileKV_RetriesTransientReadFailure(t *testing.T) {
	inner := &flakyKV{
		failures: []error{apperrors.NewStorageError("get", "character_u1", errors.New("connection reset by peer"))},
		data:     map[string][]byte{"character_u1": []byte("{}")},
	}
	kv := NewResilientProfileKV(inner, testResilienceConfig(), zap.NewNop())

	data, err := kv.Get(context.Background(), "character_u1")
	if err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("Unexpected data %s", data)
	}
	if inner.gets != 2 {
		t.Errorf("Expected 2 attempts, got %d", inner.gets)
	}
}

func TestResilientProfileKV_MissingKeyIsNotAFailure(t *testing.T) {
	inner := &flakyKV{data: map[string][]byte{}}
	kv := NewResilientProfileKV(inner, testResilienceConfig(), zap.NewNop())

	for i := 0; i < 10; i++ {
		if _, err := kv.Get(context.Background(), "character_u1"); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	}

	if inner.gets != 10 {
		t.Errorf("Missing key must not be retried, got %d reads", inner.gets)
	}
	if kv.BreakerState() != resilience.CircuitClosed {
		t.Errorf("Missing keys must not open the circuit, got %v", kv.BreakerState())
	}
}

func TestResilientProfileKV_OpenCircuitSurfacesStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	failures := make([]error, 20)
	for i := range failures {
		failures[i] = cause
	}
	inner := &flakyKV{failures: failures, data: map[string][]byte{}}
	kv := NewResilientProfileKV(inner, testResilienceConfig(), zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = kv.Set(ctx, "character_u1", []byte("{}"))
	}
	if kv.BreakerState() != resilience.CircuitOpen {
		t.Fatalf("Expected circuit to be OPEN, got %v", kv.BreakerState())
	}

	err := kv.RemoveAll(ctx, []string{"character_u1", "selected_character_u1"})
	if !apperrors.IsStorage(err) || !errors.Is(err, apperrors.ErrCircuitOpen) {
		t.Errorf("Expected StorageError wrapping ErrCircuitOpen, got %v", err)
	}
	if inner.removes != 0 {
		t.Error("Open circuit must not reach the store")
	}

	// Чтение при открытом circuit breaker тоже StorageError, а не "профиля нет"
	_, err = kv.Get(ctx, "character_u1")
	if !apperrors.IsStorage(err) || apperrors.IsNotFound(err) {
		t.Errorf("Expected StorageError, got %v", err)
	}
}

func TestResilientProfileKV_WritesAreNotSwallowed(t *testing.T) {
	inner := &flakyKV{
		failures: []error{errors.New("READONLY You can't write against a read only replica")},
		data:     map[string][]byte{},
	}
	kv := NewResilientProfileKV(inner, testResilienceConfig(), zap.NewNop())

	if err := kv.Set(context.Background(), "character_u1", []byte("{}")); !apperrors.IsStorage(err) {
		t.Errorf("Expected StorageError, got %v", err)
	}
}

func TestResilientProfileKV_WithMiniredis(t *testing.T) {
	mr, client := setupTestRedis(t)
	kv := NewResilientProfileKV(NewProfileKV(client), testResilienceConfig(), zap.NewNop())
	ctx := context.Background()

	if err := kv.Set(ctx, "selected_character_u1", []byte("woman-mid")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := mr.Get("selected_character_u1")
	if err != nil || got != "woman-mid" {
		t.Errorf("Unexpected stored value %q, %v", got, err)
	}
}
