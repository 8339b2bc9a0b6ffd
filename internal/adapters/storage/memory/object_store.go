package memory

import (
	"fmt"
	"sync"

	"github.com/minjae-dev/lurebait/internal/domain"
)

type storedObject struct {
	data        []byte
	contentType string
}

// ObjectStore keeps attachment blobs in memory. Enough for dev mode and for
// asserting upload/delete behavior in tests.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string]storedObject
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		objects: make(map[string]storedObject),
	}
}

func (s *ObjectStore) Put(key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = storedObject{data: cp, contentType: contentType}
	return nil
}

func (s *ObjectStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

// Get is a test helper; the pipeline itself never reads attachments back.
func (s *ObjectStore) Get(key string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return obj.data, obj.contentType, nil
}
