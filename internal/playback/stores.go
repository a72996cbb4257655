package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps containers in process memory. URLs point at the media
// endpoint, which serves them with Get.
type MemoryStore struct {
	baseURL string

	mu      sync.RWMutex
	objects map[uuid.UUID]memoryObject
	keys    map[string]uuid.UUID
}

type memoryObject struct {
	data     []byte
	mimeType string
}

// NewMemoryStore creates a MemoryStore whose URLs are baseURL + "/media/{id}".
// An empty baseURL yields root-relative URLs.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		objects: make(map[uuid.UUID]memoryObject),
		keys:    make(map[string]uuid.UUID),
	}
}

// MediaPath is the media endpoint path for a reference ID.
func MediaPath(id uuid.UUID) string {
	return "/media/" + id.String()
}

func (m *MemoryStore) Put(_ context.Context, obj Object) (string, error) {
	data := make([]byte, len(obj.Data))
	copy(data, obj.Data)

	m.mu.Lock()
	m.objects[obj.ID] = memoryObject{data: data, mimeType: obj.MIMEType}
	m.keys[obj.Key] = obj.ID
	m.mu.Unlock()

	return m.baseURL + MediaPath(obj.ID), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.keys[key]
	if !ok {
		return nil
	}
	delete(m.keys, key)
	delete(m.objects, id)
	return nil
}

// Get returns the stored container for id.
func (m *MemoryStore) Get(id uuid.UUID) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, "", false
	}
	return obj.data, obj.mimeType, true
}

// ObjectStorage is the subset of the S3 client used by S3Store.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string, contentLength int64) error
	PresignGet(ctx context.Context, key string, expiration time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3Store uploads containers to a bucket and hands out presigned URLs that
// expire with the reference.
type S3Store struct {
	client ObjectStorage
}

// NewS3Store creates an S3Store.
func NewS3Store(client ObjectStorage) *S3Store {
	return &S3Store{client: client}
}

func (s *S3Store) Put(ctx context.Context, obj Object) (string, error) {
	if err := s.client.Upload(ctx, obj.Key, bytes.NewReader(obj.Data), obj.MIMEType, int64(len(obj.Data))); err != nil {
		return "", err
	}
	url, err := s.client.PresignGet(ctx, obj.Key, obj.TTL)
	if err != nil {
		// Don't leave an object nothing refers to.
		_ = s.client.Delete(context.WithoutCancel(ctx), obj.Key)
		return "", fmt.Errorf("presign %s: %w", obj.Key, err)
	}
	return url, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	return s.client.Delete(ctx, key)
}
