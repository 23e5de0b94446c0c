package attachments

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory keeps objects in process memory.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

type memoryObject struct {
	data        []byte
	contentType string
	created     time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock stamps each upload's creation time with now.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{objects: make(map[string]memoryObject), now: now}
}

func (m *Memory) Upload(ctx context.Context, key, contentType string, data io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, data); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.objects[key] = memoryObject{data: buf.Bytes(), contentType: contentType, created: m.now()}
	m.mu.Unlock()
	return m.URL(key), nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return ctx.Err()
}

func (m *Memory) List(ctx context.Context, prefix string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Object, 0, len(m.objects))
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, Object{Key: key, Created: obj.created})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Get returns the stored bytes for key.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, ok
}

func (m *Memory) URL(key string) string { return "memory://" + key }

func (m *Memory) Close() error { return nil }
