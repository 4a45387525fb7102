package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/state"
	"github.com/set-night/chatcreate/internal/stream"
)

type TextGenerator interface {
	Complete(ctx context.Context, model string, messages []domain.ChatMessage) (*Completion, error)
	Stream(ctx context.Context, model string, messages []domain.ChatMessage) (io.ReadCloser, error)
}

// ChatService runs one chat turn at a time per session and records the
// outcome in the session's store.
type ChatService struct {
	text TextGenerator

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func NewChatService(text TextGenerator) *ChatService {
	return &ChatService{text: text, inflight: make(map[string]context.CancelFunc)}
}

// Send submits text as a new user message and generates the reply.
// Progress is visible to store subscribers through the streaming buffer.
func (s *ChatService) Send(ctx context.Context, store *state.Store, text string) error {
	return s.run(ctx, store, func(st state.State) (state.State, []domain.ChatMessage, error) {
		return st.SubmitUserMessage(text, uuid.NewString())
	})
}

// Regenerate discards the transcript from index on and answers the most
// recent remaining user message again.
func (s *ChatService) Regenerate(ctx context.Context, store *state.Store, index int) error {
	return s.run(ctx, store, func(st state.State) (state.State, []domain.ChatMessage, error) {
		return st.Regenerate(index, uuid.NewString())
	})
}

// Cancel aborts the in-flight turn of the session under key.
func (s *ChatService) Cancel(key string) bool {
	s.mu.Lock()
	cancel, ok := s.inflight[key]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// track registers cancel for key unless a turn is already registered.
func (s *ChatService) track(key string, cancel context.CancelFunc) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, false
	}
	s.inflight[key] = cancel

	return func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
		cancel()
	}, true
}

// run registers the turn as cancellable before the stream begins, so a
// cancel seen together with IsStreaming always has something to fire.
func (s *ChatService) run(ctx context.Context, store *state.Store, prepare func(state.State) (state.State, []domain.ChatMessage, error)) error {
	reqCtx, cancel := context.WithCancel(ctx)
	release, ok := s.track(store.Key(), cancel)
	if !ok {
		cancel()
		return domain.ErrBusy
	}
	defer release()

	var messages []domain.ChatMessage
	snap, err := store.Update(ctx, func(st state.State) (state.State, error) {
		if st.IsStreaming {
			return st, domain.ErrBusy
		}
		next, msgs, err := prepare(st)
		if err != nil {
			return st, err
		}
		messages = msgs
		return next.BeginStream(), nil
	})
	if err != nil {
		return err
	}
	return s.generate(ctx, reqCtx, store, snap, messages)
}

func (s *ChatService) generate(ctx, reqCtx context.Context, store *state.Store, snap state.State, messages []domain.ChatMessage) error {
	content, err := s.produce(reqCtx, store, snap, messages)
	id := uuid.NewString()

	switch {
	case err == nil:
		if content == "" {
			content = config.EmptyCompletionText
		}
		store.Apply(ctx, func(st state.State) state.State {
			return st.FinalizeStream(content, id)
		})
		return nil

	case errors.Is(err, domain.ErrCancelled):
		store.Apply(ctx, state.State.CancelStream)
		return err

	default:
		slog.Error("generate reply", "key", store.Key(), "model", snap.ChatModel, "error", err)
		store.Apply(ctx, func(st state.State) state.State {
			return st.FailStream(domain.UserMessage(err), id)
		})
		return err
	}
}

func (s *ChatService) produce(ctx context.Context, store *state.Store, snap state.State, messages []domain.ChatMessage) (string, error) {
	if !snap.StreamMode {
		completion, err := s.text.Complete(ctx, snap.ChatModel, messages)
		if err != nil {
			return "", err
		}
		return completion.Text(), nil
	}

	body, err := s.text.Stream(ctx, snap.ChatModel, messages)
	if err != nil {
		return "", err
	}
	defer body.Close()

	dec := stream.NewDecoder()
	content, err := dec.Run(ctx, body, func(buffer string) {
		store.Apply(ctx, func(st state.State) state.State {
			return st.PublishStream(buffer)
		})
	})
	if err != nil && !errors.Is(err, domain.ErrCancelled) {
		return "", classifyError(ctx, err)
	}
	return content, err
}
