// Package state holds the session state of one chat: transcript, streaming
// buffer, generation options and the image gallery.
//
// State is a value snapshot. Every method returns a new snapshot and never
// mutates the receiver's slices, so a snapshot handed to a renderer stays
// stable while newer ones are produced.
package state

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/set-night/chatcreate/internal/config"
	"github.com/set-night/chatcreate/internal/domain"
)

type State struct {
	Theme domain.Theme

	// Chat
	ChatModel        string
	Messages         []domain.ChatMessage
	SystemPrompt     string
	StreamMode       bool
	IsStreaming      bool
	StreamingContent string

	// Image
	ImageModel      string
	AspectRatio     domain.AspectRatio
	Seed            string
	LockSeed        bool
	NoLogo          bool
	Enhance         bool
	Safe            bool
	Private         bool
	ImagePrompt     string
	IsGenerating    bool
	ImageLoadError  bool
	CurrentImageURL string
	Images          []domain.GeneratedImage

	// UI
	ActiveTab domain.Tab
	IsMobile  bool
}

func Default() State {
	return State{
		Theme:        domain.ThemeDark,
		ChatModel:    config.DefaultChatModel,
		Messages:     defaultMessages(),
		SystemPrompt: config.DefaultSystemPrompt,
		StreamMode:   true,
		ImageModel:   config.DefaultImageModel,
		AspectRatio:  domain.Ratio1x1,
		Seed:         domain.RandomSeed,
		NoLogo:       true,
		ActiveTab:    domain.TabChat,
	}
}

func defaultMessages() []domain.ChatMessage {
	return []domain.ChatMessage{systemMessage(config.DefaultSystemPrompt)}
}

func systemMessage(prompt string) domain.ChatMessage {
	return domain.ChatMessage{Role: domain.RoleSystem, Content: prompt, ID: domain.SystemMessageID}
}

// RandomSeed draws a fresh numeric seed.
func RandomSeed() string {
	return strconv.Itoa(rand.IntN(config.MaxRandomSeed))
}

func (s State) WithTheme(t domain.Theme) (State, error) {
	if !t.Valid() {
		return s, fmt.Errorf("unknown theme %q", t)
	}
	s.Theme = t
	return s, nil
}

func (s State) WithChatModel(model string) (State, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return s, fmt.Errorf("%w: empty chat model", domain.ErrUnknownModel)
	}
	s.ChatModel = model
	return s, nil
}

func (s State) WithImageModel(model string) (State, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return s, fmt.Errorf("%w: empty image model", domain.ErrUnknownModel)
	}
	s.ImageModel = model
	return s, nil
}

func (s State) WithMessages(messages []domain.ChatMessage) State {
	s.Messages = slices.Clone(messages)
	return s
}

func (s State) WithSystemPrompt(prompt string) State {
	s.SystemPrompt = strings.TrimSpace(prompt)
	return s
}

func (s State) WithStreamMode(on bool) State {
	s.StreamMode = on
	return s
}

func (s State) WithAspectRatio(r domain.AspectRatio) (State, error) {
	if !r.Valid() {
		return s, fmt.Errorf("%w: %q", domain.ErrUnknownAspectRatio, r)
	}
	s.AspectRatio = r
	return s, nil
}

func (s State) WithSeed(seed string) (State, error) {
	seed = strings.TrimSpace(seed)
	if !domain.ValidSeed(seed) {
		return s, fmt.Errorf("%w: seed %q", domain.ErrInvalidImageOptions, seed)
	}
	s.Seed = seed
	return s, nil
}

func (s State) WithLockSeed(on bool) State {
	s.LockSeed = on
	return s
}

func (s State) WithFlag(flag domain.ImageFlag, on bool) State {
	switch flag {
	case domain.FlagNoLogo:
		s.NoLogo = on
	case domain.FlagEnhance:
		s.Enhance = on
	case domain.FlagSafe:
		s.Safe = on
	case domain.FlagPrivate:
		s.Private = on
	}
	return s
}

func (s State) Flag(flag domain.ImageFlag) bool {
	switch flag {
	case domain.FlagNoLogo:
		return s.NoLogo
	case domain.FlagEnhance:
		return s.Enhance
	case domain.FlagSafe:
		return s.Safe
	case domain.FlagPrivate:
		return s.Private
	}
	return false
}

func (s State) WithActiveTab(tab domain.Tab) (State, error) {
	if !tab.Valid() {
		return s, fmt.Errorf("unknown tab %q", tab)
	}
	s.ActiveTab = tab
	return s, nil
}

func (s State) WithMobile(on bool) State {
	s.IsMobile = on
	return s
}

// SubmitUserMessage replaces the system message with the current system
// prompt and appends the user message. The returned list is exactly what
// must be sent to the generation client.
func (s State) SubmitUserMessage(text, id string) (State, []domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return s, nil, domain.ErrEmptyMessage
	}

	rest := lo.Filter(s.Messages, func(m domain.ChatMessage, _ int) bool {
		return m.Role != domain.RoleSystem
	})

	messages := make([]domain.ChatMessage, 0, len(rest)+2)
	messages = append(messages, systemMessage(s.SystemPrompt))
	messages = append(messages, rest...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: text, ID: id})

	s.Messages = messages
	return s, slices.Clone(messages), nil
}

// Regenerate drops every message from index on, then resubmits the most
// recent remaining user message as if newly typed.
func (s State) Regenerate(index int, id string) (State, []domain.ChatMessage, error) {
	if index <= 0 || index > len(s.Messages) {
		return s, nil, fmt.Errorf("%w: index %d out of range", domain.ErrNothingToRegenerate, index)
	}

	kept := s.Messages[:index]
	last, at, ok := domain.LastUserMessage(kept)
	if !ok {
		return s, nil, domain.ErrNothingToRegenerate
	}

	s.Messages = slices.Clone(kept[:at])
	return s.SubmitUserMessage(last.Content, id)
}

// IndexOf returns the transcript position of the message with id, or -1.
func (s State) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(s.Messages, func(m domain.ChatMessage) bool {
		return m.ID == id
	})
}

// VisibleMessages returns the transcript without system messages.
func (s State) VisibleMessages() []domain.ChatMessage {
	return lo.Filter(s.Messages, func(m domain.ChatMessage, _ int) bool {
		return m.Role != domain.RoleSystem
	})
}

func (s State) BeginStream() State {
	s.IsStreaming = true
	s.StreamingContent = ""
	return s
}

// PublishStream replaces the streaming buffer with the whole text so far.
func (s State) PublishStream(buffer string) State {
	if !s.IsStreaming {
		return s
	}
	s.StreamingContent = buffer
	return s
}

func (s State) FinalizeStream(content, id string) State {
	s = s.appendMessage(domain.ChatMessage{
		Role:    domain.RoleAssistant,
		Content: strings.TrimSpace(content),
		ID:      id,
	})
	return s.endStream()
}

func (s State) CancelStream() State {
	return s.endStream()
}

// FailStream commits a synthesized assistant message instead of the partial buffer.
func (s State) FailStream(description, id string) State {
	s = s.appendMessage(domain.ChatMessage{
		Role:    domain.RoleAssistant,
		Content: description,
		ID:      id,
	})
	return s.endStream()
}

func (s State) endStream() State {
	s.IsStreaming = false
	s.StreamingContent = ""
	return s
}

func (s State) appendMessage(m domain.ChatMessage) State {
	messages := make([]domain.ChatMessage, 0, len(s.Messages)+1)
	messages = append(messages, s.Messages...)
	s.Messages = append(messages, m)
	return s
}

// NextImageOptions applies the seed rule and snapshots the options for a
// new generation. A locked seed is reused verbatim; otherwise newSeed
// provides a fresh one which is stored.
func (s State) NextImageOptions(prompt, referrer string, newSeed func() string) (State, domain.ImageOptions, error) {
	width, height, ok := s.AspectRatio.Dimensions()
	if !ok {
		return s, domain.ImageOptions{}, fmt.Errorf("%w: %q", domain.ErrUnknownAspectRatio, s.AspectRatio)
	}

	if !s.LockSeed {
		s.Seed = newSeed()
	}

	prompt = strings.TrimSpace(prompt)
	opts := domain.ImageOptions{
		Prompt:   prompt,
		Model:    s.ImageModel,
		Width:    width,
		Height:   height,
		Seed:     s.Seed,
		NoLogo:   s.NoLogo,
		Enhance:  s.Enhance,
		Safe:     s.Safe,
		Private:  s.Private,
		Referrer: referrer,
	}
	if err := opts.Validate(); err != nil {
		return s, domain.ImageOptions{}, err
	}
	s.ImagePrompt = prompt
	return s, opts, nil
}

func (s State) BeginImage(url string) State {
	s.IsGenerating = true
	s.ImageLoadError = false
	s.CurrentImageURL = url
	return s
}

func (s State) ImageFailed() State {
	s.IsGenerating = false
	s.ImageLoadError = true
	return s
}

// CommitImage prepends a gallery record and clears the busy flag.
func (s State) CommitImage(url string, opts domain.ImageOptions, id string, now time.Time) State {
	record := domain.GeneratedImage{
		ID:        id,
		Prompt:    opts.Prompt,
		URL:       url,
		Params:    opts,
		CreatedAt: now,
	}

	images := make([]domain.GeneratedImage, 0, len(s.Images)+1)
	images = append(images, record)
	images = append(images, s.Images...)
	if len(images) > config.MaxGalleryInMemory {
		images = images[:config.MaxGalleryInMemory]
	}

	s.Images = images
	s.IsGenerating = false
	s.ImageLoadError = false
	s.CurrentImageURL = url
	return s
}

func (s State) ClearChat() State {
	s.Messages = defaultMessages()
	s.StreamingContent = ""
	s.IsStreaming = false
	return s
}

func (s State) ClearImages() State {
	s.Images = nil
	return s
}
