package profile

import (
	"context"
	"errors"
	"fmt"

	"DetectiveProfileService/internal/models"
	"DetectiveProfileService/pkg/apperrors"

	"go.uber.org/zap"
)

// KV постоянное хранилище байтовых значений по строковым ключам.
// Get возвращает apperrors.ErrNotFound для отсутствующего ключа.
// RemoveAll удаляет все ключи или ни одного.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	RemoveAll(ctx context.Context, keys []string) error
}

// ErrEmptyUID возвращается для операций без идентификатора пользователя
var ErrEmptyUID = errors.New("uid is required")

// Store хранит профиль детектива и кэш портрета для каждого пользователя
type Store struct {
	kv     KV
	logger *zap.Logger
}

// NewStore создает хранилище профилей поверх KV
func NewStore(kv KV, logger *zap.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
	}
}

// Load читает запись профиля как есть, без перезаписи
func (s *Store) Load(ctx context.Context, uid string) (Record, error) {
	if uid == "" {
		return nil, ErrEmptyUID
	}

	data, err := s.kv.Get(ctx, CharacterKey(uid))
	if err != nil {
		return nil, err
	}

	record, err := Decode(data)
	if err != nil {
		s.logger.Error("Сохраненный профиль не удалось разобрать",
			zap.String("uid", uid),
			zap.Error(err))
		return nil, err
	}
	return record, nil
}

// LoadProfile читает и нормализует профиль
func (s *Store) LoadProfile(ctx context.Context, uid string) (models.CharacterProfile, SchemaVersion, error) {
	record, err := s.Load(ctx, uid)
	if err != nil {
		return models.CharacterProfile{}, 0, err
	}
	p, err := Normalize(record)
	if err != nil {
		return models.CharacterProfile{}, 0, err
	}
	return p, record.Version(), nil
}

// Exists сообщает, есть ли у пользователя профиль.
// Только отсутствие ключа означает false, прочие сбои возвращаются ошибкой.
func (s *Store) Exists(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, ErrEmptyUID
	}

	_, err := s.kv.Get(ctx, CharacterKey(uid))
	switch {
	case err == nil:
		return true, nil
	case apperrors.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Save записывает профиль в текущем формате
func (s *Store) Save(ctx context.Context, uid string, p models.CharacterProfile) error {
	if uid == "" {
		return ErrEmptyUID
	}

	data, err := Encode(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.kv.Set(ctx, CharacterKey(uid), data); err != nil {
		return err
	}

	s.logger.Debug("Профиль сохранен", zap.String("uid", uid))
	return nil
}

// LoadPortrait читает кэшированный портрет. Неизвестное значение возвращается как есть.
func (s *Store) LoadPortrait(ctx context.Context, uid string) (Portrait, error) {
	if uid == "" {
		return "", ErrEmptyUID
	}

	data, err := s.kv.Get(ctx, SelectedCharacterKey(uid))
	if err != nil {
		return "", err
	}
	return Portrait(data), nil
}

// SavePortrait кэширует вычисленный портрет
func (s *Store) SavePortrait(ctx context.Context, uid string, p Portrait) error {
	if uid == "" {
		return ErrEmptyUID
	}
	return s.kv.Set(ctx, SelectedCharacterKey(uid), []byte(p))
}

// Reset удаляет профиль и кэш портрета одним набором
func (s *Store) Reset(ctx context.Context, uid string) error {
	if uid == "" {
		return ErrEmptyUID
	}

	if err := s.kv.RemoveAll(ctx, []string{CharacterKey(uid), SelectedCharacterKey(uid)}); err != nil {
		return err
	}

	s.logger.Info("Профиль сброшен", zap.String("uid", uid))
	return nil
}
