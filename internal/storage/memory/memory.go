package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Mnabil10/fasketfornt-sub000/internal/storage"
)

// fileEntry keeps one stored payload in memory.
type fileEntry struct {
	FileName    string
	ContentType string
	Data        []byte
	URL         string
}

// Store implements storage.Store with an in-memory map. It backs local
// development and tests when no platform backend is configured.
type Store struct {
	mu      sync.RWMutex
	files   map[string]*fileEntry
	baseURL string
}

// New creates an in-memory store serving URLs under baseURL.
func New(baseURL string) *Store {
	return &Store{
		files:   make(map[string]*fileEntry),
		baseURL: baseURL,
	}
}

// Upload keeps the payload in memory and returns a synthetic URL.
func (s *Store) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	url := fmt.Sprintf("%s/media/%s", s.baseURL, input.FileName)
	data := make([]byte, len(input.Data))
	copy(data, input.Data)

	s.files[input.FileName] = &fileEntry{
		FileName:    input.FileName,
		ContentType: input.ContentType,
		Data:        data,
		URL:         url,
	}

	return &storage.UploadResult{
		URL:    url,
		Driver: storage.DriverInline,
	}, nil
}

// Get returns a stored payload and its content type.
func (s *Store) Get(fileName string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.files[fileName]
	if !exists {
		return nil, "", fmt.Errorf("file not found: %s", fileName)
	}
	return entry.Data, entry.ContentType, nil
}

// Len reports how many payloads are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}
