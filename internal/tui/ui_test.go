package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/state"
)

type fakeChat struct {
	mu        sync.Mutex
	sent      []string
	regen     []int
	cancelled int
	err       error
}

func (f *fakeChat) Send(_ context.Context, _ *state.Store, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.err
}

func (f *fakeChat) Regenerate(_ context.Context, _ *state.Store, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regen = append(f.regen, index)
	return f.err
}

func (f *fakeChat) Cancel(string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled++
	return true
}

type fakeImages struct {
	prompts    []string
	variations int
}

func (f *fakeImages) Generate(_ context.Context, _ *state.Store, prompt string) (*domain.GeneratedImage, []byte, error) {
	f.prompts = append(f.prompts, prompt)
	return &domain.GeneratedImage{Prompt: prompt, URL: "https://img/" + prompt, Params: domain.ImageOptions{Seed: "7"}}, []byte("jpg"), nil
}

func (f *fakeImages) Variation(ctx context.Context, store *state.Store, prompt string) (*domain.GeneratedImage, []byte, error) {
	f.variations++
	return f.Generate(ctx, store, prompt)
}

func newTestModel(t *testing.T) (*model, *fakeChat, *fakeImages) {
	t.Helper()
	color.NoColor = true
	chat := &fakeChat{}
	images := &fakeImages{}
	store := state.NewStore("test", nil, state.Default())
	m := newModel(context.Background(), Deps{Chat: chat, Images: images, Store: store}, make(chan struct{}, 1))
	return m, chat, images
}

func typeLine(t *testing.T, m *model, line string) tea.Cmd {
	t.Helper()
	m.input = []rune(line)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestPlainInputSendsChat(t *testing.T) {
	m, chat, _ := newTestModel(t)

	cmd := typeLine(t, m, "  hello there ")
	if cmd == nil {
		t.Fatal("expected a command for chat input")
	}
	msg := cmd()
	if _, ok := msg.(chatDoneMsg); !ok {
		t.Fatalf("got %T, want chatDoneMsg", msg)
	}
	if len(chat.sent) != 1 || chat.sent[0] != "hello there" {
		t.Fatalf("sent = %q", chat.sent)
	}
	if len(m.input) != 0 {
		t.Fatalf("input not cleared: %q", string(m.input))
	}
}

func TestSettingCommands(t *testing.T) {
	m, _, _ := newTestModel(t)

	typeLine(t, m, "/ratio")
	typeLine(t, m, "/seed 42")
	typeLine(t, m, "/flag enhance")
	typeLine(t, m, "/flag nologo")
	typeLine(t, m, "/stream")
	typeLine(t, m, "/tab")
	typeLine(t, m, "/model llama")
	typeLine(t, m, "/system Be brief.")

	s := m.deps.Store.Snapshot()
	if s.AspectRatio != domain.Ratio3x4 {
		t.Errorf("ratio = %s", s.AspectRatio)
	}
	if s.Seed != "42" || !s.LockSeed {
		t.Errorf("seed = %s locked = %v", s.Seed, s.LockSeed)
	}
	if !s.Enhance || s.NoLogo {
		t.Errorf("enhance = %v nologo = %v", s.Enhance, s.NoLogo)
	}
	if s.StreamMode {
		t.Error("stream mode should be off")
	}
	if s.ActiveTab != domain.TabCreate {
		t.Errorf("tab = %s", s.ActiveTab)
	}
	if s.ChatModel != "llama" {
		t.Errorf("chat model = %s", s.ChatModel)
	}
	if s.SystemPrompt != "Be brief." {
		t.Errorf("system prompt = %q", s.SystemPrompt)
	}
	if m.snap.Seed != "42" {
		t.Error("model snapshot not refreshed")
	}

	typeLine(t, m, "/seed random")
	if s := m.deps.Store.Snapshot(); s.Seed != domain.RandomSeed || s.LockSeed {
		t.Errorf("random seed: seed = %s locked = %v", s.Seed, s.LockSeed)
	}
}

func TestCommandErrorsBecomeNotices(t *testing.T) {
	m, chat, _ := newTestModel(t)

	for _, line := range []string{"/regen x", "/flag shiny", "/ratio 2:1", "/seed -1", "/nope", "/image"} {
		if cmd := typeLine(t, m, line); cmd != nil {
			t.Errorf("%s: unexpected command", line)
		}
	}
	if len(m.notices) != maxNotices {
		t.Fatalf("notices = %d, want %d", len(m.notices), maxNotices)
	}
	if last := m.notices[len(m.notices)-1]; !strings.Contains(last, "usage: /image") || !strings.Contains(last, config.DefaultImagePrompt) {
		t.Errorf("last notice = %q", m.notices[len(m.notices)-1])
	}
	if len(chat.sent) != 0 {
		t.Error("commands must not reach the chat")
	}
}

func TestRegenAndImageCommands(t *testing.T) {
	m, chat, images := newTestModel(t)

	typeLine(t, m, "/regen 2")()
	if len(chat.regen) != 1 || chat.regen[0] != 2 {
		t.Fatalf("regen = %v", chat.regen)
	}

	msg := typeLine(t, m, "/image a red fox")()
	m.Update(msg)
	if len(images.prompts) != 1 || images.prompts[0] != "a red fox" {
		t.Fatalf("prompts = %q", images.prompts)
	}
	if last := m.notices[len(m.notices)-1]; !strings.Contains(last, "https://img/a red fox") {
		t.Errorf("notice = %q", last)
	}

	typeLine(t, m, "/variation")()
	if images.variations != 1 {
		t.Errorf("variations = %d", images.variations)
	}
}

func TestEscCancelsAndQuit(t *testing.T) {
	m, chat, _ := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if chat.cancelled != 1 {
		t.Errorf("cancelled = %d", chat.cancelled)
	}

	cmd := typeLine(t, m, "/quit")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestChatNotice(t *testing.T) {
	cases := map[error]string{
		nil:                                 "",
		domain.ErrCancelled:                 "generation stopped",
		domain.ErrBusy:                      domain.ErrBusy.Error(),
		errors.New("already in transcript"): "",
	}
	for err, want := range cases {
		if got := chatNotice(err); got != want {
			t.Errorf("chatNotice(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestViewShowsTranscriptAndStream(t *testing.T) {
	m, _, _ := newTestModel(t)
	ctx := context.Background()

	m.deps.Store.Update(ctx, func(s state.State) (state.State, error) {
		next, _, err := s.SubmitUserMessage("hi", "u1")
		return next.BeginStream().PublishStream("Hel"), err
	})
	m.Update(stateChangedMsg{})

	view := m.View()
	for _, want := range []string{"#1 you", "hi", "streaming", "Hel", "chat mistral"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, m.snap.SystemPrompt) {
		t.Error("system prompt should not be rendered")
	}
}
