package dummy

import (
	"context"
	"sync"

	cloudstorage "github.com/harmonix-audio/harmonix-be/src/shared/cloud_storage/entity"
)

var _ cloudstorage.FileStore = &FileStore{}

func NewDummyFileStore() *FileStore {
	return &FileStore{
		Unavailable: false,
		State:       make(map[string][]byte),
	}
}

type FileStore struct {
	Unavailable bool
	State       map[string][]byte
	mutex       sync.RWMutex
}

func (f *FileStore) GetFile(ctx context.Context, url string) ([]byte, error) {
	if f.Unavailable {
		return nil, NetworkFailure
	}

	f.mutex.RLock()
	defer f.mutex.RUnlock()

	contents, ok := f.State[url]
	if !ok {
		return nil, NotFound
	}

	return contents, nil
}

func (f *FileStore) WriteFile(ctx context.Context, url string, fileContent []byte) error {
	if f.Unavailable {
		return NetworkFailure
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.State[url] = fileContent
	return nil
}
