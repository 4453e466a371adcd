// assets.go - In-memory store for staged background files. A browser stages
// its locally chosen image here so the preview endpoint can render it before
// anything is uploaded to object storage; the file is only pushed to the
// upload service when the template is actually saved.
package server

import (
	"sync"

	"github.com/google/uuid"
)

type stagedAsset struct {
	Name string
	Data []byte
	Mime string
}

type assetStore struct {
	mu     sync.RWMutex
	assets map[string]*stagedAsset
}

func newAssetStore() *assetStore {
	return &assetStore{assets: make(map[string]*stagedAsset)}
}

func (s *assetStore) add(name string, data []byte, mimeType string) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.assets[id] = &stagedAsset{Name: name, Data: data, Mime: mimeType}
	s.mu.Unlock()
	return id
}

func (s *assetStore) get(id string) (*stagedAsset, bool) {
	s.mu.RLock()
	a, ok := s.assets[id]
	s.mu.RUnlock()
	return a, ok
}

func (s *assetStore) remove(id string) {
	s.mu.Lock()
	delete(s.assets, id)
	s.mu.Unlock()
}
