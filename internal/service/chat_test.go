package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/state"
)

type fakeText struct {
	mu       sync.Mutex
	calls    [][]domain.ChatMessage
	reply    string
	err      error
	stream   func(ctx context.Context) (io.ReadCloser, error)
	complete int
}

func (f *fakeText) Complete(_ context.Context, _ string, messages []domain.ChatMessage) (*Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	f.complete++
	if f.err != nil {
		return nil, f.err
	}
	return &Completion{Choices: []CompletionChoice{{Message: CompletionMessage{Role: "assistant", Content: f.reply}}}}, nil
}

func (f *fakeText) Stream(ctx context.Context, _ string, messages []domain.ChatMessage) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls = append(f.calls, messages)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.stream != nil {
		return f.stream(ctx)
	}
	var sb strings.Builder
	for _, word := range strings.Fields(f.reply) {
		fmt.Fprintf(&sb, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", word+" ")
	}
	sb.WriteString("data: [DONE]\n\n")
	return io.NopCloser(strings.NewReader(sb.String())), nil
}

func TestChatSendStreams(t *testing.T) {
	text := &fakeText{reply: "Hello world"}
	svc := NewChatService(text)
	store := state.NewStore("k", nil, state.Default())
	ctx := context.Background()

	var published []string
	store.Subscribe(func(s state.State) {
		if s.IsStreaming && s.StreamingContent != "" {
			published = append(published, s.StreamingContent)
		}
	})

	if err := svc.Send(ctx, store, "  hi  "); err != nil {
		t.Fatal(err)
	}

	s := store.Snapshot()
	if s.IsStreaming || s.StreamingContent != "" {
		t.Error("stream flags not reset")
	}
	visible := s.VisibleMessages()
	if len(visible) != 2 || visible[0].Content != "hi" || visible[1].Content != "Hello world" {
		t.Fatalf("transcript = %+v", visible)
	}
	if visible[1].ID == "" || visible[0].ID == visible[1].ID {
		t.Errorf("ids = %q %q", visible[0].ID, visible[1].ID)
	}
	if len(published) == 0 || published[len(published)-1] != "Hello world " {
		t.Errorf("published = %q", published)
	}
	if got := text.calls[0]; len(got) != 2 || got[0].Role != domain.RoleSystem || got[1].Content != "hi" {
		t.Errorf("sent = %+v", got)
	}
}

func TestChatSendNonStream(t *testing.T) {
	text := &fakeText{reply: "  whole answer  "}
	store := state.NewStore("k", nil, state.Default().WithStreamMode(false))

	if err := NewChatService(text).Send(context.Background(), store, "q"); err != nil {
		t.Fatal(err)
	}
	if text.complete != 1 {
		t.Errorf("complete calls = %d", text.complete)
	}
	visible := store.Snapshot().VisibleMessages()
	if visible[len(visible)-1].Content != "whole answer" {
		t.Errorf("reply = %q", visible[len(visible)-1].Content)
	}
}

func TestChatSendFailureCommitsDescription(t *testing.T) {
	text := &fakeText{err: &domain.ServiceError{Status: 503}}
	store := state.NewStore("k", nil, state.Default())

	err := NewChatService(text).Send(context.Background(), store, "q")
	var svcErr *domain.ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("err = %v", err)
	}

	s := store.Snapshot()
	visible := s.VisibleMessages()
	if len(visible) != 2 || visible[1].Role != domain.RoleAssistant {
		t.Fatalf("transcript = %+v", visible)
	}
	if !strings.Contains(visible[1].Content, "503") {
		t.Errorf("description = %q", visible[1].Content)
	}
	if s.IsStreaming {
		t.Error("still streaming after failure")
	}
}

func TestChatCancelKeepsUserMessage(t *testing.T) {
	pr, pw := io.Pipe()
	started := make(chan struct{})
	text := &fakeText{stream: func(ctx context.Context) (io.ReadCloser, error) {
		go func() {
			fmt.Fprint(pw, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
			close(started)
			<-ctx.Done()
			pw.CloseWithError(ctx.Err())
		}()
		return pr, nil
	}}
	svc := NewChatService(text)
	store := state.NewStore("k", nil, state.Default())

	go func() {
		<-started
		for !svc.Cancel("k") {
		}
	}()

	err := svc.Send(context.Background(), store, "question")
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}

	s := store.Snapshot()
	visible := s.VisibleMessages()
	if len(visible) != 1 || visible[0].Content != "question" {
		t.Errorf("transcript = %+v", visible)
	}
	if s.IsStreaming || s.StreamingContent != "" {
		t.Error("partial buffer survived cancellation")
	}
	if svc.Cancel("k") {
		t.Error("cancel func left registered")
	}
}

func TestChatBusy(t *testing.T) {
	store := state.NewStore("k", nil, state.Default().BeginStream())
	err := NewChatService(&fakeText{reply: "x"}).Send(context.Background(), store, "q")
	if !errors.Is(err, domain.ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
}

func TestChatRegenerate(t *testing.T) {
	text := &fakeText{reply: "first"}
	svc := NewChatService(text)
	store := state.NewStore("k", nil, state.Default())
	ctx := context.Background()

	if err := svc.Send(ctx, store, "question"); err != nil {
		t.Fatal(err)
	}
	assistantIdx := len(store.Snapshot().Messages) - 1

	text.reply = "second"
	if err := svc.Regenerate(ctx, store, assistantIdx); err != nil {
		t.Fatal(err)
	}

	visible := store.Snapshot().VisibleMessages()
	if len(visible) != 2 || visible[0].Content != "question" || visible[1].Content != "second" {
		t.Errorf("transcript = %+v", visible)
	}
	if got := text.calls[1]; len(got) != 2 || got[1].Content != "question" {
		t.Errorf("regenerate sent %+v", got)
	}
}

func TestChatCancellableAsSoonAsStreamBegins(t *testing.T) {
	svc := NewChatService(&fakeText{reply: "x"})
	store := state.NewStore("k", nil, state.Default().WithStreamMode(false))
	ctx := context.Background()

	var (
		seen      bool
		cancelled bool
		second    error
	)
	store.Subscribe(func(s state.State) {
		if s.IsStreaming && !seen {
			seen = true
			cancelled = svc.Cancel("k")
			second = svc.Send(ctx, store, "again")
		}
	})

	svc.Send(ctx, store, "q")

	if !seen || !cancelled {
		t.Errorf("cancel when stream began = %v (seen %v)", cancelled, seen)
	}
	if !errors.Is(second, domain.ErrBusy) {
		t.Errorf("concurrent send err = %v, want ErrBusy", second)
	}
	for _, m := range store.Snapshot().VisibleMessages() {
		if m.Content == "again" {
			t.Error("refused send reached the transcript")
		}
	}
}
