package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
)

// FilesystemBackend persists keys as files under a root directory and uses
// fsnotify to power Watch.
type FilesystemBackend struct {
	root string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewFilesystemBackend creates a backend rooted at root, creating the
// directory if necessary.
func NewFilesystemBackend(root string) (*FilesystemBackend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, regerrors.BackendUnavailable(err.Error())
	}
	return &FilesystemBackend{root: root}, nil
}

func (b *FilesystemBackend) keyPath(key string) string {
	return filepath.Join(b.root, filepath.FromSlash(key))
}

func (b *FilesystemBackend) Put(ctx context.Context, key string, value []byte) error {
	path := b.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	if err := os.WriteFile(path, value, 0o644); err != nil {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}

func (b *FilesystemBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.keyPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, regerrors.ErrSchemaNotFound
		}
		return nil, regerrors.BackendUnavailable(err.Error())
	}
	return data, nil
}

func (b *FilesystemBackend) Delete(ctx context.Context, key string) error {
	err := os.Remove(b.keyPath(key))
	if err != nil && !os.IsNotExist(err) {
		return regerrors.BackendUnavailable(err.Error())
	}
	return nil
}

func (b *FilesystemBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	prefixPath := b.keyPath(prefix)
	baseDir := prefixPath
	if info, err := os.Stat(baseDir); err != nil || !info.IsDir() {
		baseDir = filepath.Dir(prefixPath)
	}

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, regerrors.BackendUnavailable(err.Error())
	}
	return keys, nil
}

func (b *FilesystemBackend) Watch(ctx context.Context, prefix string) (<-chan Event, error) {
	b.mu.Lock()
	if b.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			b.mu.Unlock()
			return nil, regerrors.BackendUnavailable(err.Error())
		}
		if err := w.Add(b.root); err != nil {
			b.mu.Unlock()
			return nil, regerrors.BackendUnavailable(err.Error())
		}
		b.watcher = w
	}
	watcher := b.watcher
	b.mu.Unlock()

	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				rel, err := filepath.Rel(b.root, ev.Name)
				if err != nil {
					continue
				}
				key := filepath.ToSlash(rel)
				if !strings.HasPrefix(key, prefix) {
					continue
				}
				evt := Event{Key: key}
				switch {
				case ev.Op&fsnotify.Create == fsnotify.Create:
					evt.Type = EventAdded
				case ev.Op&fsnotify.Write == fsnotify.Write:
					evt.Type = EventUpdated
				case ev.Op&fsnotify.Remove == fsnotify.Remove:
					evt.Type = EventRemoved
				default:
					continue
				}
				if evt.Type != EventRemoved {
					if data, err := os.ReadFile(ev.Name); err == nil {
						evt.Value = data
					}
				}
				select {
				case ch <- evt:
				default:
				}
			case <-watcher.Errors:
			}
		}
	}()

	return ch, nil
}

func (b *FilesystemBackend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.watcher != nil {
		return b.watcher.Close()
	}
	return nil
}
