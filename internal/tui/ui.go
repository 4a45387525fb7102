// Package tui is the terminal front end: transcript, live streaming buffer
// and an input line driven by slash commands.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/state"
)

type Chat interface {
	Send(ctx context.Context, store *state.Store, text string) error
	Regenerate(ctx context.Context, store *state.Store, index int) error
	Cancel(key string) bool
}

type Images interface {
	Generate(ctx context.Context, store *state.Store, prompt string) (*domain.GeneratedImage, []byte, error)
	Variation(ctx context.Context, store *state.Store, prompt string) (*domain.GeneratedImage, []byte, error)
}

type Models interface {
	ListModels(ctx context.Context, class domain.AssetClass) []string
}

type Deps struct {
	Chat   Chat
	Images Images
	Models Models
	Store  *state.Store
}

var errQuit = errors.New("quit")

// Run starts the Bubble Tea interface and blocks until it exits.
func Run(ctx context.Context, deps Deps) error {
	changes := make(chan struct{}, 1)
	unsubscribe := deps.Store.Subscribe(func(state.State) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	m := newModel(ctx, deps, changes)
	program := tea.NewProgram(m, tea.WithContext(ctx))
	_, err := program.Run()
	deps.Chat.Cancel(deps.Store.Key())
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

type stateChangedMsg struct{}

type chatDoneMsg struct {
	err error
}

type imageDoneMsg struct {
	image *domain.GeneratedImage
	size  int
	err   error
}

type modelsMsg struct {
	class  domain.AssetClass
	models []string
}

const maxNotices = 6

// model implements tea.Model over one session store.
type model struct {
	ctx     context.Context
	deps    Deps
	changes <-chan struct{}
	snap    state.State
	input   []rune
	notices []string
	width   int
}

func newModel(ctx context.Context, deps Deps, changes <-chan struct{}) *model {
	return &model{
		ctx:     ctx,
		deps:    deps,
		changes: changes,
		snap:    deps.Store.Snapshot(),
	}
}

func (m *model) Init() tea.Cmd {
	return waitForChange(m.changes)
}

// waitForChange blocks until the store publishes a new snapshot.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return tea.Quit()
		}
		return stateChangedMsg{}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateChangedMsg:
		m.snap = m.deps.Store.Snapshot()
		return m, waitForChange(m.changes)

	case chatDoneMsg:
		if text := chatNotice(msg.err); text != "" {
			m.notify("%s", text)
		}
		return m, nil

	case imageDoneMsg:
		switch {
		case msg.err != nil:
			m.notify("image: %v", msg.err)
			if errors.Is(msg.err, domain.ErrImageLoad) {
				m.notify("type /retry to try again")
			}
		case msg.image != nil:
			m.notify("image ready (seed %s, %d bytes): %s", msg.image.Params.Seed, msg.size, msg.image.URL)
		}
		return m, nil

	case modelsMsg:
		m.notify("%s models: %s", msg.class, strings.Join(msg.models, ", "))
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		if m.deps.Chat.Cancel(m.deps.Store.Key()) {
			m.notify("stopping generation")
		}
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(string(m.input))
		m.input = m.input[:0]
		cmd, err := m.handleInput(text)
		if errors.Is(err, errQuit) {
			return m, tea.Quit
		}
		if err != nil {
			m.notify("%v", err)
		}
		return m, cmd
	case tea.KeyBackspace, tea.KeyCtrlH:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeySpace:
		m.input = append(m.input, ' ')
		return m, nil
	case tea.KeyRunes:
		if !msg.Alt {
			m.input = append(m.input, msg.Runes...)
		}
		return m, nil
	}
	return m, nil
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(renderStatus(m.snap))
	b.WriteString("\n\n")

	if m.snap.ActiveTab == domain.TabCreate {
		b.WriteString(renderGallery(m.snap))
	} else {
		b.WriteString(renderTranscript(m.snap))
	}

	for _, n := range m.notices {
		b.WriteString(noticeStyle.Sprint("» " + n))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(promptStyle.Sprint("▸ "))
	b.WriteString(string(m.input))
	return b.String()
}

func (m *model) notify(format string, args ...any) {
	m.notices = append(m.notices, fmt.Sprintf(format, args...))
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

// chatNotice reports errors the transcript does not already show.
func chatNotice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrCancelled):
		return "generation stopped"
	case errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrNothingToRegenerate):
		return err.Error()
	}
	return ""
}
