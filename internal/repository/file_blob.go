package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileBlobStore keeps every blob in one JSON document on disk.
type FileBlobStore struct {
	path string
	mu   sync.Mutex
	data map[string]json.RawMessage
}

// NewFileBlobStore opens the document at path. A missing file starts empty;
// an unreadable document is logged and replaced on the next save.
func NewFileBlobStore(path string) (*FileBlobStore, error) {
	if path == "" {
		return nil, errors.New("state file path is required")
	}

	store := &FileBlobStore{path: path, data: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	if err := json.Unmarshal(raw, &store.data); err != nil {
		slog.Warn("state file is corrupt, starting empty", "path", path, "error", err)
		store.data = make(map[string]json.RawMessage)
	}

	return store, nil
}

func (f *FileBlobStore) Load(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, ok := f.data[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), raw...), nil
}

// Save stores data in compact form, which is also what Load returns after
// a reopen.
func (f *FileBlobStore) Save(_ context.Context, key string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("save blob %q: not a JSON document", key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return fmt.Errorf("save blob %q: %w", key, err)
	}
	f.data[key] = compact.Bytes()
	return f.persist()
}

func (f *FileBlobStore) persist() error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	var encoded bytes.Buffer
	enc := json.NewEncoder(&encoded)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f.data); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, encoded.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("persist state: %w", err)
	}

	return nil
}
