package memstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type object struct {
	data        []byte
	contentType string
}

// Media is an in-memory photo bucket. Handles are the object keys.
type Media struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]object
}

func NewMedia(baseURL string) *Media {
	return &Media{baseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string]object)}
}

func (m *Media) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = object{data: append([]byte(nil), data...), contentType: contentType}
	return key, nil
}

func (m *Media) Copy(ctx context.Context, srcKey, dstKey string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[srcKey]
	if !ok {
		return "", fmt.Errorf("media object %s not found", srcKey)
	}
	m.objects[dstKey] = obj
	return dstKey, nil
}

func (m *Media) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Media) PublicURL(handle string) string {
	return m.baseURL + "/" + handle
}

// Get returns the stored bytes and content type of key.
func (m *Media) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, obj.contentType, ok
}
