package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Object is a blob held by Memory.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
}

// Memory is an in-process Storage. It backs local development without an S3
// endpoint and stands in for the real bucket in tests.
type Memory struct {
	mu         sync.Mutex
	objects    map[string]Object
	puts       int
	publicBase string
}

// NewMemory returns an empty in-memory store whose public URLs live under publicBase.
func NewMemory(publicBase string) *Memory {
	return &Memory{
		objects:    make(map[string]Object),
		publicBase: publicBase,
	}
}

// Ready always succeeds.
func (m *Memory) Ready(context.Context) error {
	return nil
}

// Upload reads reader to EOF and stores the bytes under key, replacing any
// previous object.
func (m *Memory) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return fmt.Errorf("read object %q: %w", key, err)
	}
	if size >= 0 && int64(buf.Len()) != size {
		return fmt.Errorf("put object %q: read %d bytes, expected %d", key, buf.Len(), size)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Key: key, Data: buf.Bytes(), ContentType: contentType}
	m.puts++
	return nil
}

// PublicURL returns the URL of key under the configured base.
func (m *Memory) PublicURL(key string) string {
	return JoinURL(m.publicBase, escapeKey(key))
}

// Get returns the object stored under key.
func (m *Memory) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys returns all stored keys in lexical order.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Puts returns the number of successful Upload calls.
func (m *Memory) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}
