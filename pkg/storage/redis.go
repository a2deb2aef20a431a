package storage

import (
	"context"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
)

// RedisBackend stores keys in Redis; Watch polls the key prefix on a
// fixed interval rather than using keyspace notifications.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an existing Redis client (e.g. pointed at a real
// cluster, or at alicebob/miniredis in tests).
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Put(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, key, value, 0).Err(); err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, regerrors.ErrSchemaNotFound
	}
	if err != nil {
		return nil, regerrors.BackendUnavailable(err.Error())
	}
	return data, nil
}

func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}

func (b *RedisBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, regerrors.BackendUnavailable(err.Error())
	}
	return keys, nil
}

// Watch polls for key changes under prefix, since plain key/value Redis
// (unlike Consul/etcd) has no native prefix-watch primitive; the interval
// mirrors the teacher's cache refresh cadence.
func (b *RedisBackend) Watch(ctx context.Context, prefix string) (<-chan Event, error) {
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		known := make(map[string][]byte)
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				keys, err := b.List(ctx, prefix)
				if err != nil {
					continue
				}
				seen := make(map[string]bool, len(keys))
				for _, key := range keys {
					seen[key] = true
					value, err := b.Get(ctx, key)
					if err != nil {
						continue
					}
					prev, existed := known[key]
					if !existed {
						known[key] = value
						send(ctx, ch, Event{Type: EventAdded, Key: key, Value: value})
					} else if string(prev) != string(value) {
						known[key] = value
						send(ctx, ch, Event{Type: EventUpdated, Key: key, Value: value})
					}
				}
				for key := range known {
					if !seen[key] && strings.HasPrefix(key, prefix) {
						delete(known, key)
						send(ctx, ch, Event{Type: EventRemoved, Key: key})
					}
				}
			}
		}
	}()
	return ch, nil
}

func send(ctx context.Context, ch chan<- Event, evt Event) {
	select {
	case ch <- evt:
	case <-ctx.Done():
	default:
	}
}

func (b *RedisBackend) Close(ctx context.Context) error {
	if err := b.client.Close(); err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}
