package state

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/set-night/chatcreate/internal/repository"
)

// Store owns the current snapshot of one session. Updates are serialized;
// after each one the durable subset is written through when it changed and
// subscribers receive the new snapshot.
type Store struct {
	key   string
	blobs repository.BlobStore

	mu        sync.Mutex
	state     State
	persisted []byte

	subMu       sync.Mutex
	subscribers map[int]func(State)
	nextSubID   int
}

// NewStore wraps an initial snapshot. blobs may be nil for a memory-only store.
func NewStore(key string, blobs repository.BlobStore, initial State) *Store {
	s := &Store{
		key:         key,
		blobs:       blobs,
		state:       initial,
		subscribers: make(map[int]func(State)),
	}
	s.persisted, _ = Encode(initial)
	return s
}

// Open rehydrates the store under key. Missing, unreadable or corrupt data
// never fails startup; affected fields fall back to defaults.
func Open(ctx context.Context, key string, blobs repository.BlobStore) *Store {
	initial := Default()

	if blobs != nil {
		data, err := blobs.Load(ctx, key)
		switch {
		case errors.Is(err, repository.ErrBlobNotFound):
		case err != nil:
			slog.Warn("load persisted state failed, using defaults", "key", key, "error", err)
		default:
			restored, err := Decode(data, initial)
			if err != nil {
				slog.Warn("persisted state partially restored", "key", key, "error", err)
			}
			initial = restored
		}
	}

	return NewStore(key, blobs, initial)
}

func (s *Store) Key() string {
	return s.key
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the current snapshot. When fn fails the state is left
// untouched and the error returned.
func (s *Store) Update(ctx context.Context, fn func(State) (State, error)) (State, error) {
	s.mu.Lock()
	next, err := fn(s.state)
	if err != nil {
		current := s.state
		s.mu.Unlock()
		return current, err
	}
	s.state = next
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(next)
	return next, nil
}

// Apply is Update for reducers that cannot fail.
func (s *Store) Apply(ctx context.Context, fn func(State) State) State {
	next, _ := s.Update(ctx, func(st State) (State, error) {
		return fn(st), nil
	})
	return next
}

func (s *Store) persistLocked(ctx context.Context) {
	if s.blobs == nil {
		return
	}

	data, err := Encode(s.state)
	if err != nil {
		slog.Error("encode state", "key", s.key, "error", err)
		return
	}
	if bytes.Equal(data, s.persisted) {
		return
	}

	if err := s.blobs.Save(context.WithoutCancel(ctx), s.key, data); err != nil {
		slog.Error("persist state", "key", s.key, "error", err)
		return
	}
	s.persisted = data
}

// Subscribe registers fn to receive every new snapshot. The returned func
// removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *Store) notify(st State) {
	s.subMu.Lock()
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}
