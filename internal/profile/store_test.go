package profile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/pkg/apperrors"

	"go.uber.org/zap"
)

// memoryKV хранилище в памяти для тестов
type memoryKV struct {
	mu        sync.Mutex
	data      map[string][]byte
	getErr    error
	removeErr error
	sets      int
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string][]byte)}
}

func (m *memoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *memoryKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryKV) RemoveAll(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func sampleProfile() models.CharacterProfile {
	return models.CharacterProfile{
		FirstName:        "Sam",
		LastName:         "Spade",
		Gender:           "Male",
		Age:              "40",
		SexualPreference: "Women",
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	kv := newMemoryKV()
	store := NewStore(kv, zap.NewNop())
	ctx := context.Background()

	if err := store.Save(ctx, "u1", sampleProfile()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, ok := kv.data["character_u1"]; !ok {
		t.Fatal("Expected record under character_u1")
	}

	p, version, err := store.LoadProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("Expected current version, got %d", version)
	}
	if p.FullName() != "Sam Spade" {
		t.Errorf("Unexpected name %q", p.FullName())
	}
}

func TestStore_LoadDoesNotRewriteLegacyRecord(t *testing.T) {
	kv := newMemoryKV()
	legacy := []byte(`{"name":"Sam Spade","age":"40","gender":"Male"}`)
	kv.data[CharacterKey("u1")] = legacy
	store := NewStore(kv, zap.NewNop())

	if _, _, err := store.LoadProfile(context.Background(), "u1"); err != nil {
		t.Fatalf("LoadProfile failed: %v", err)
	}
	if kv.sets != 0 {
		t.Errorf("Read must not write, got %d writes", kv.sets)
	}
	if string(kv.data[CharacterKey("u1")]) != string(legacy) {
		t.Error("Legacy record was modified by a read")
	}
}

func TestStore_Exists(t *testing.T) {
	ctx := context.Background()

	t.Run("Absent", func(t *testing.T) {
		store := NewStore(newMemoryKV(), zap.NewNop())
		ok, err := store.Exists(ctx, "u1")
		if err != nil || ok {
			t.Errorf("Expected (false, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("Present", func(t *testing.T) {
		kv := newMemoryKV()
		kv.data[CharacterKey("u1")] = []byte(`{}`)
		store := NewStore(kv, zap.NewNop())
		ok, err := store.Exists(ctx, "u1")
		if err != nil || !ok {
			t.Errorf("Expected (true, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("StorageFault", func(t *testing.T) {
		kv := newMemoryKV()
		kv.getErr = apperrors.NewStorageError("get", CharacterKey("u1"), errors.New("disk unavailable"))
		store := NewStore(kv, zap.NewNop())
		ok, err := store.Exists(ctx, "u1")
		if ok || !apperrors.IsStorage(err) {
			t.Errorf("Expected StorageError, got (%v, %v)", ok, err)
		}
	})

	t.Run("EmptyUID", func(t *testing.T) {
		store := NewStore(newMemoryKV(), zap.NewNop())
		if _, err := store.Exists(ctx, ""); !errors.Is(err, ErrEmptyUID) {
			t.Errorf("Expected ErrEmptyUID, got %v", err)
		}
	})
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	store := NewStore(kv, zap.NewNop())

	if err := store.Save(ctx, "u1", sampleProfile()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.SavePortrait(ctx, "u1", ManMid); err != nil {
		t.Fatalf("SavePortrait failed: %v", err)
	}
	if err := store.Save(ctx, "u2", sampleProfile()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Reset(ctx, "u1"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	if _, err := store.Load(ctx, "u1"); !apperrors.IsNotFound(err) {
		t.Errorf("Expected profile to be absent, got %v", err)
	}
	if _, err := store.LoadPortrait(ctx, "u1"); !apperrors.IsNotFound(err) {
		t.Errorf("Expected portrait to be absent, got %v", err)
	}
	if ok, _ := store.Exists(ctx, "u2"); !ok {
		t.Error("Reset must not touch other users")
	}
}

func TestStore_ResetFailureLeavesKeys(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	store := NewStore(kv, zap.NewNop())
	_ = store.Save(ctx, "u1", sampleProfile())
	_ = store.SavePortrait(ctx, "u1", ManMid)

	kv.removeErr = apperrors.NewStorageError("remove", "character_u1", errors.New("exec aborted"))
	if err := store.Reset(ctx, "u1"); !apperrors.IsStorage(err) {
		t.Fatalf("Expected StorageError, got %v", err)
	}

	if ok, _ := store.Exists(ctx, "u1"); !ok {
		t.Error("Profile must survive a failed reset")
	}
	if p, err := store.LoadPortrait(ctx, "u1"); err != nil || p != ManMid {
		t.Errorf("Portrait must survive a failed reset, got %q, %v", p, err)
	}
}

func TestStore_MalformedRecord(t *testing.T) {
	kv := newMemoryKV()
	kv.data[CharacterKey("u1")] = []byte(`{"firstName":"Sam","age":"unknown"}`)
	store := NewStore(kv, zap.NewNop())

	if _, _, err := store.LoadProfile(context.Background(), "u1"); !apperrors.IsMalformed(err) {
		t.Errorf("Expected MalformedRecordError, got %v", err)
	}
}
