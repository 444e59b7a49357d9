package storage

import (
	"context"
	"sync"

	apperrors "github.com/alanwallace9/agencytoolkit/pkg/errors"
)

type object struct {
	contentType string
	data        []byte
}

// MemoryStore is an in-process ports.BlobStore.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]object
	baseURL string
}

// NewMemoryStore creates an empty store whose public URLs start with baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]object), baseURL: baseURL}
}

func (s *MemoryStore) Put(ctx context.Context, path, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = object{contentType: contentType, data: append([]byte(nil), data...)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, apperrors.NewNotFoundError("image")
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *MemoryStore) Delete(ctx context.Context, paths ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		delete(s.objects, p)
	}
	return nil
}

func (s *MemoryStore) PublicURL(path string) string {
	return s.baseURL + "/" + path
}

// ContentType returns the stored content type of path.
func (s *MemoryStore) ContentType(path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[path].contentType
}
