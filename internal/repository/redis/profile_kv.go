package redis

import (
	"context"
	"errors"

	"DetectiveProfileService/pkg/apperrors"

	"github.com/redis/go-redis/v9"
)

// ProfileKV хранит записи профилей в Redis без TTL
type ProfileKV struct {
	client redis.UniversalClient
}

// NewProfileKV создает новый экземпляр ProfileKV
func NewProfileKV(client redis.UniversalClient) *ProfileKV {
	return &ProfileKV{
		client: client,
	}
}

// Get возвращает значение ключа; для отсутствующего ключа apperrors.ErrNotFound
func (r *ProfileKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewStorageError("get", key, err)
	}
	return data, nil
}

// Set записывает значение целиком; последняя запись побеждает
func (r *ProfileKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return apperrors.NewStorageError("set", key, err)
	}
	return nil
}

// RemoveAll удаляет набор ключей одной командой DEL внутри MULTI/EXEC
func (r *ProfileKV) RemoveAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		return apperrors.NewStorageError("remove", keys[0], err)
	}
	return nil
}
