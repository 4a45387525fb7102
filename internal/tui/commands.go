package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/state"
)

const helpText = `commands:
  /image <prompt>      generate an image
  /variation [prompt]  new seed for the last (or given) prompt
  /retry               retry the last failed image
  /regen N             regenerate from transcript message #N
  /model [name]        show text models or switch to one
  /imagemodel [name]   show image models or switch to one
  /ratio [w:h]         cycle or set the aspect ratio
  /seed <n|random>     set the seed, a number locks it
  /lock                toggle the seed lock
  /flag <name>         toggle nologo, enhance, safe or private
  /stream              toggle streaming replies
  /system [text]       show or set the system prompt
  /theme               cycle the theme
  /tab [chat|create]   switch between transcript and gallery
  /clear               clear the chat
  /clearimages         clear the gallery
  /quit                exit (Esc stops a reply, Ctrl+C quits)`

func (m *model) handleInput(text string) (tea.Cmd, error) {
	switch {
	case text == "":
		return nil, nil
	case strings.HasPrefix(text, "/"):
		return m.handleCommand(text)
	default:
		return m.send(text), nil
	}
}

func (m *model) handleCommand(line string) (tea.Cmd, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit", "/q":
		return nil, errQuit
	case "/help":
		m.notify("%s", helpText)
		return nil, nil

	case "/image":
		if arg == "" {
			return nil, fmt.Errorf("usage: /image <prompt>, e.g. /image %s", config.DefaultImagePrompt)
		}
		return m.generateImage(arg, false), nil
	case "/variation":
		return m.generateImage(arg, true), nil
	case "/retry":
		prompt := m.snap.ImagePrompt
		if prompt == "" {
			return nil, errors.New("no image to retry")
		}
		return m.generateImage(prompt, false), nil

	case "/regen":
		index, err := strconv.Atoi(arg)
		if err != nil {
			return nil, errors.New("usage: /regen N")
		}
		return m.regenerate(index), nil

	case "/model":
		if arg == "" {
			return m.listModels(domain.AssetText), nil
		}
		return nil, m.update(func(s state.State) (state.State, error) { return s.WithChatModel(arg) })
	case "/imagemodel":
		if arg == "" {
			return m.listModels(domain.AssetImage), nil
		}
		return nil, m.update(func(s state.State) (state.State, error) { return s.WithImageModel(arg) })

	case "/ratio":
		return nil, m.update(func(s state.State) (state.State, error) {
			if arg == "" {
				return s.WithAspectRatio(s.AspectRatio.Next())
			}
			ratio, err := domain.ParseAspectRatio(arg)
			if err != nil {
				return s, err
			}
			return s.WithAspectRatio(ratio)
		})
	case "/seed":
		if arg == "" {
			return nil, errors.New("usage: /seed <n|random>")
		}
		return nil, m.update(func(s state.State) (state.State, error) {
			next, err := s.WithSeed(arg)
			if err != nil {
				return s, err
			}
			return next.WithLockSeed(arg != domain.RandomSeed), nil
		})
	case "/lock":
		return nil, m.apply(func(s state.State) state.State { return s.WithLockSeed(!s.LockSeed) })
	case "/flag":
		flag, ok := domain.ParseImageFlag(arg)
		if !ok {
			return nil, fmt.Errorf("unknown flag %q", arg)
		}
		return nil, m.apply(func(s state.State) state.State { return s.WithFlag(flag, !s.Flag(flag)) })
	case "/stream":
		return nil, m.apply(func(s state.State) state.State { return s.WithStreamMode(!s.StreamMode) })

	case "/system":
		if arg == "" {
			m.notify("system prompt: %s", m.snap.SystemPrompt)
			return nil, nil
		}
		return nil, m.apply(func(s state.State) state.State { return s.WithSystemPrompt(arg) })
	case "/theme":
		return nil, m.update(func(s state.State) (state.State, error) { return s.WithTheme(s.Theme.Next()) })
	case "/tab":
		return nil, m.update(func(s state.State) (state.State, error) {
			tab := domain.Tab(arg)
			if arg == "" {
				tab = domain.TabCreate
				if s.ActiveTab == domain.TabCreate {
					tab = domain.TabChat
				}
			}
			return s.WithActiveTab(tab)
		})

	case "/clear":
		m.deps.Chat.Cancel(m.deps.Store.Key())
		return nil, m.apply(state.State.ClearChat)
	case "/clearimages":
		return nil, m.apply(state.State.ClearImages)
	}
	return nil, fmt.Errorf("unknown command %q, try /help", name)
}

func (m *model) update(fn func(state.State) (state.State, error)) error {
	snap, err := m.deps.Store.Update(m.ctx, fn)
	if err != nil {
		return err
	}
	m.snap = snap
	return nil
}

func (m *model) apply(fn func(state.State) state.State) error {
	m.snap = m.deps.Store.Apply(m.ctx, fn)
	return nil
}

func (m *model) send(text string) tea.Cmd {
	ctx, chat, store := m.ctx, m.deps.Chat, m.deps.Store
	return func() tea.Msg {
		return chatDoneMsg{err: chat.Send(ctx, store, text)}
	}
}

func (m *model) regenerate(index int) tea.Cmd {
	ctx, chat, store := m.ctx, m.deps.Chat, m.deps.Store
	return func() tea.Msg {
		return chatDoneMsg{err: chat.Regenerate(ctx, store, index)}
	}
}

func (m *model) generateImage(prompt string, variation bool) tea.Cmd {
	ctx, images, store := m.ctx, m.deps.Images, m.deps.Store
	m.notify("generating image…")
	return func() tea.Msg {
		generate := images.Generate
		if variation {
			generate = images.Variation
		}
		img, data, err := generate(ctx, store, prompt)
		return imageDoneMsg{image: img, size: len(data), err: err}
	}
}

func (m *model) listModels(class domain.AssetClass) tea.Cmd {
	if m.deps.Models == nil {
		return nil
	}
	ctx, lister := m.ctx, m.deps.Models
	return func() tea.Msg {
		return modelsMsg{class: class, models: lister.ListModels(ctx, class)}
	}
}
