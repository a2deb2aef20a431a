// Package storage provides the low-level key-value storage abstraction
// used to persist manifests and schemas, plus the gzip/size-limit helper
// layered on top of it.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xraph-labs/nexus-registry/pkg/regerrors"
)

// EventType classifies a storage or registry change.
type EventType string

const (
	EventAdded   EventType = "added"
	EventUpdated EventType = "updated"
	EventRemoved EventType = "removed"
)

// Backend is a low-level key-value storage mechanism (filesystem, Redis,
// Postgres, S3, memory, ...).
type Backend interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Watch(ctx context.Context, prefix string) (<-chan Event, error)
	Close(ctx context.Context) error
}

// Event is a single change observed on a watched key prefix.
type Event struct {
	Type  EventType
	Key   string
	Value []byte // nil for delete events
}

// Helper serializes values to JSON, enforces a size ceiling, and
// transparently gzip-compresses payloads above a configured threshold.
type Helper struct {
	CompressionThreshold int64
	MaxSize              int64
}

// NewHelper builds a Helper with the given thresholds. A threshold or max
// size of 0 disables that behavior.
func NewHelper(compressionThreshold, maxSize int64) *Helper {
	return &Helper{CompressionThreshold: compressionThreshold, MaxSize: maxSize}
}

// PutJSON serializes value, enforces the size limit, compresses it above
// the configured threshold (storing it under "<key>.gz"), and writes it to
// the backend.
func (h *Helper) PutJSON(ctx context.Context, backend Backend, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return regerrors.InvalidSchema(err.Error())
	}

	if h.MaxSize > 0 && int64(len(data)) > h.MaxSize {
		return regerrors.SchemaTooLarge(int64(len(data)), h.MaxSize)
	}

	finalKey := key
	finalData := data
	if h.CompressionThreshold > 0 && int64(len(data)) > h.CompressionThreshold {
		compressed, err := compressData(data)
		if err != nil {
			return err
		}
		finalData = compressed
		finalKey = key + ".gz"
	}

	return backend.Put(ctx, finalKey, finalData)
}

// GetJSON retrieves and deserializes a value, preferring the compressed
// key and falling back to the uncompressed key on any error.
func (h *Helper) GetJSON(ctx context.Context, backend Backend, key string, out interface{}) error {
	var data []byte

	compressed, err := backend.Get(ctx, key+".gz")
	if err == nil {
		decompressed, derr := decompressData(compressed)
		if derr != nil {
			return derr
		}
		data = decompressed
	} else {
		raw, rerr := backend.Get(ctx, key)
		if rerr != nil {
			return rerr
		}
		data = raw
	}

	if err := json.Unmarshal(data, out); err != nil {
		return regerrors.InvalidSchema(err.Error())
	}
	return nil
}

func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressData(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return out, nil
}
