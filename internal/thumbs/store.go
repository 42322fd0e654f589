package thumbs

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	// Decoders for the formats the server stores.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"

	"github.com/five82/lumen/internal/imgapi"
)

// Handle is an acquired in-memory image. The URL is unique for the lifetime
// of the process and stops resolving once the handle is released.
type Handle struct {
	URL         string
	ContentType string
	Size        int
	Width       int
	Height      int
}

// BlobStore owns image bytes behind opaque blob URLs.
type BlobStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	acquired int
	released int
}

// NewBlobStore returns an empty store.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

// Acquire stores blob and returns a fresh handle for it. Dimensions are left
// zero when the format cannot be decoded.
func (s *BlobStore) Acquire(blob imgapi.Blob) Handle {
	h := Handle{
		URL:         "blob:" + uuid.NewString(),
		ContentType: blob.ContentType,
		Size:        len(blob.Data),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(blob.Data)); err == nil {
		h.Width, h.Height = cfg.Width, cfg.Height
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[h.URL] = blob.Data
	s.acquired++
	return h
}

// Release frees the bytes behind url. It reports false if url was unknown or
// already released.
func (s *BlobStore) Release(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[url]; !ok {
		return false
	}
	delete(s.blobs, url)
	s.released++
	return true
}

// Resolve returns the bytes behind url.
func (s *BlobStore) Resolve(url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[url]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", url)
	}
	return data, nil
}

// Live returns the number of unreleased handles.
func (s *BlobStore) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// Stats returns lifetime acquire and release counts.
func (s *BlobStore) Stats() (acquired, released int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired, s.released
}
