package storage

import (
	"context"
	"strings"
	"sync"

	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
)

// MemoryBackend is an in-process Backend implementation for tests and
// development.
type MemoryBackend struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[string][]chan Event
	closed   bool
}

// NewMemoryBackend constructs an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		data:     make(map[string][]byte),
		watchers: make(map[string][]chan Event),
	}
}

func (b *MemoryBackend) Put(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	_, existed := b.data[key]
	cp := make([]byte, len(value))
	copy(cp, value)
	b.data[key] = cp
	b.mu.Unlock()

	evtType := EventAdded
	if existed {
		evtType = EventUpdated
	}
	b.notify(key, Event{Type: evtType, Key: key, Value: cp})
	return nil
}

func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.data[key]
	if !ok {
		return nil, regerrors.ErrSchemaNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

func (b *MemoryBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	delete(b.data, key)
	b.mu.Unlock()
	b.notify(key, Event{Type: EventRemoved, Key: key})
	return nil
}

func (b *MemoryBackend) List(ctx context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var keys []string
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (b *MemoryBackend) Watch(ctx context.Context, prefix string) (<-chan Event, error) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.watchers[prefix] = append(b.watchers[prefix], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.watchers[prefix]
		for i, c := range chans {
			if c == ch {
				b.watchers[prefix] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}

func (b *MemoryBackend) notify(key string, evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for prefix, chans := range b.watchers {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		for _, ch := range chans {
			select {
			case ch <- evt:
			default:
				// drop rather than block the writer
			}
		}
	}
}

func (b *MemoryBackend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
