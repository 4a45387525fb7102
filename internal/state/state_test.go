package state

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
)

func contents(messages []domain.ChatMessage) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = string(m.Role) + ":" + m.Content
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDefault(t *testing.T) {
	s := Default()
	if s.Theme != domain.ThemeDark || s.ChatModel != "mistral" || s.ImageModel != "flux" {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.Seed != domain.RandomSeed || s.LockSeed || !s.NoLogo || s.AspectRatio != domain.Ratio1x1 {
		t.Errorf("unexpected image defaults: %+v", s)
	}
	if len(s.Messages) != 1 || s.Messages[0].Role != domain.RoleSystem || s.Messages[0].ID != domain.SystemMessageID {
		t.Errorf("unexpected default transcript: %+v", s.Messages)
	}
}

func TestSubmitUserMessageReplacesSystemMessage(t *testing.T) {
	s := Default().WithSystemPrompt("Be terse.")
	s = s.WithMessages(append(s.Messages,
		domain.ChatMessage{Role: domain.RoleSystem, Content: "stale"},
		domain.ChatMessage{Role: domain.RoleUser, Content: "hi", ID: "u1"},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: "hello", ID: "a1"},
	))

	next, sent, err := s.SubmitUserMessage("  next question ", "u2")
	if err != nil {
		t.Fatalf("SubmitUserMessage: %v", err)
	}

	want := []string{"system:Be terse.", "user:hi", "assistant:hello", "user:next question"}
	if got := contents(sent); !equalStrings(got, want) {
		t.Errorf("sent = %q, want %q", got, want)
	}
	if got := contents(next.Messages); !equalStrings(got, want) {
		t.Errorf("state = %q, want %q", got, want)
	}
	if len(s.Messages) != 4 {
		t.Errorf("receiver mutated: %d messages", len(s.Messages))
	}

	if _, _, err := s.SubmitUserMessage("   ", "u3"); !errors.Is(err, domain.ErrEmptyMessage) {
		t.Errorf("blank message err = %v", err)
	}
}

func TestRegenerateTruncatesAndResubmits(t *testing.T) {
	s := Default().WithMessages([]domain.ChatMessage{
		{Role: domain.RoleSystem, Content: config.DefaultSystemPrompt, ID: domain.SystemMessageID},
		{Role: domain.RoleUser, Content: "A", ID: "ua"},
		{Role: domain.RoleAssistant, Content: "A'", ID: "aa"},
		{Role: domain.RoleUser, Content: "B", ID: "ub"},
		{Role: domain.RoleAssistant, Content: "B'", ID: "ab"},
	})

	index := s.IndexOf("ab")
	if index != 4 {
		t.Fatalf("IndexOf = %d", index)
	}

	next, sent, err := s.Regenerate(index, "ub2")
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	want := []string{"system:" + config.DefaultSystemPrompt, "user:A", "assistant:A'", "user:B"}
	if got := contents(next.Messages); !equalStrings(got, want) {
		t.Errorf("transcript = %q, want %q", got, want)
	}
	if got := contents(sent); !equalStrings(got, want) {
		t.Errorf("request = %q, want %q", got, want)
	}
	if last := next.Messages[len(next.Messages)-1]; last.ID != "ub2" {
		t.Errorf("resubmitted message id = %q", last.ID)
	}
}

func TestRegenerateWithoutUserMessage(t *testing.T) {
	s := Default()
	if _, _, err := s.Regenerate(1, "x"); !errors.Is(err, domain.ErrNothingToRegenerate) {
		t.Errorf("err = %v", err)
	}
	if _, _, err := s.Regenerate(7, "x"); !errors.Is(err, domain.ErrNothingToRegenerate) {
		t.Errorf("out of range err = %v", err)
	}
}

func TestStreamLifecycle(t *testing.T) {
	s := Default().BeginStream()
	if !s.IsStreaming {
		t.Fatal("BeginStream should set the flag")
	}

	s = s.PublishStream("Hel").PublishStream("Hello")
	if s.StreamingContent != "Hello" {
		t.Errorf("StreamingContent = %q", s.StreamingContent)
	}

	final := s.FinalizeStream("  Hello world \n", "a1")
	if final.IsStreaming || final.StreamingContent != "" {
		t.Errorf("finalize left streaming fields set: %+v", final)
	}
	last := final.Messages[len(final.Messages)-1]
	if last.Role != domain.RoleAssistant || last.Content != "Hello world" {
		t.Errorf("committed = %+v", last)
	}

	cancelled := s.CancelStream()
	if cancelled.IsStreaming || cancelled.StreamingContent != "" || len(cancelled.Messages) != len(s.Messages) {
		t.Errorf("cancel should discard without committing: %+v", cancelled)
	}

	failed := s.FailStream("Sorry", "e1")
	if got := failed.Messages[len(failed.Messages)-1]; got.Content != "Sorry" || got.Role != domain.RoleAssistant {
		t.Errorf("failure message = %+v", got)
	}

	if idle := Default().PublishStream("late"); idle.StreamingContent != "" {
		t.Error("publish outside a stream should be ignored")
	}
}

func TestClearChat(t *testing.T) {
	s, _, _ := Default().WithSystemPrompt("x").SubmitUserMessage("hi", "u1")
	s = s.BeginStream().PublishStream("partial")

	cleared := s.ClearChat()
	if len(cleared.Messages) != 1 || cleared.Messages[0].Role != domain.RoleSystem {
		t.Errorf("Messages = %+v", cleared.Messages)
	}
	if cleared.IsStreaming || cleared.StreamingContent != "" {
		t.Errorf("streaming fields not reset")
	}
}

func seedOf(t *testing.T, s State, prompt string, gen func() string) (State, string) {
	t.Helper()
	next, opts, err := s.NextImageOptions(prompt, "test", gen)
	if err != nil {
		t.Fatalf("NextImageOptions: %v", err)
	}
	return next, opts.Seed
}

func TestSeedLock(t *testing.T) {
	s, err := Default().WithSeed("4242")
	if err != nil {
		t.Fatal(err)
	}
	s = s.WithLockSeed(true)

	for i := 0; i < 5; i++ {
		var seed string
		s, seed = seedOf(t, s, "fox", RandomSeed)
		if seed != "4242" {
			t.Fatalf("locked seed changed to %q", seed)
		}
	}
}

func TestSeedUnlockedRegenerates(t *testing.T) {
	s := Default()
	s, first := seedOf(t, s, "fox", RandomSeed)
	_, second := seedOf(t, s, "fox", RandomSeed)
	if first == second {
		// one in a million; retry once to keep the test deterministic enough
		_, second = seedOf(t, s, "fox", RandomSeed)
	}
	if first == second {
		t.Errorf("consecutive unlocked seeds are equal: %s", first)
	}
	if s.Seed != first {
		t.Errorf("drawn seed %q not stored (state has %q)", first, s.Seed)
	}
}

func TestNextImageOptionsSnapshot(t *testing.T) {
	s, _ := Default().WithAspectRatio(domain.Ratio16x9)
	s = s.WithFlag(domain.FlagSafe, true).WithFlag(domain.FlagNoLogo, false)

	_, opts, err := s.NextImageOptions(" fox ", "ref", func() string { return "7" })
	if err != nil {
		t.Fatal(err)
	}
	want := domain.ImageOptions{Prompt: "fox", Model: "flux", Width: 1365, Height: 768, Seed: "7", Safe: true, Referrer: "ref"}
	if opts != want {
		t.Errorf("opts = %+v, want %+v", opts, want)
	}

	if _, _, err := s.NextImageOptions("  ", "ref", RandomSeed); !errors.Is(err, domain.ErrInvalidImageOptions) {
		t.Errorf("empty prompt err = %v", err)
	}
}

func TestCommitImagePrependsAndCaps(t *testing.T) {
	s := Default().BeginImage("u0")
	now := time.Now()
	for i := 0; i < config.MaxGalleryInMemory+5; i++ {
		s = s.CommitImage("https://img/"+url.PathEscape(string(rune('a'+i%26))), domain.ImageOptions{Prompt: "p"}, "id", now)
	}
	if len(s.Images) != config.MaxGalleryInMemory {
		t.Errorf("gallery len = %d", len(s.Images))
	}
	if s.IsGenerating || s.ImageLoadError {
		t.Errorf("busy flags not cleared")
	}

	failed := Default().BeginImage("u").ImageFailed()
	if !failed.ImageLoadError || failed.IsGenerating {
		t.Errorf("ImageFailed flags = %+v", failed)
	}
	if len(failed.Messages) != 1 {
		t.Errorf("image failure must not touch the transcript")
	}
}

func TestSettersValidate(t *testing.T) {
	s := Default()
	if _, err := s.WithAspectRatio("2:1"); !errors.Is(err, domain.ErrUnknownAspectRatio) {
		t.Errorf("aspect err = %v", err)
	}
	if _, err := s.WithSeed("abc"); !errors.Is(err, domain.ErrInvalidImageOptions) {
		t.Errorf("seed err = %v", err)
	}
	if _, err := s.WithTheme("neon"); err == nil {
		t.Error("theme should be validated")
	}
	if _, err := s.WithChatModel(" "); !errors.Is(err, domain.ErrUnknownModel) {
		t.Errorf("model err = %v", err)
	}
	for _, f := range domain.ImageFlags {
		if !s.WithFlag(f, true).Flag(f) {
			t.Errorf("flag %s not set", f)
		}
	}
}
