package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/repository"
)

// Registry hands out one Store per session key, rehydrating lazily.
type Registry struct {
	blobs repository.BlobStore

	mu     sync.Mutex
	stores map[string]*Store
}

func NewRegistry(blobs repository.BlobStore) *Registry {
	return &Registry{blobs: blobs, stores: make(map[string]*Store)}
}

func (r *Registry) Get(ctx context.Context, key string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.stores[key]; ok {
		return st
	}
	st := Open(ctx, key, r.blobs)
	r.stores[key] = st
	return st
}

// ChatKey is the storage key of a Telegram chat's session.
func ChatKey(chatID int64) string {
	return fmt.Sprintf("%s:%d", config.StorageKey, chatID)
}
