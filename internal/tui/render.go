package tui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/set-night/chatcreate/internal/domain"
	"github.com/set-night/chatcreate/internal/state"
)

var (
	promptStyle    = color.New(color.FgYellow)
	userStyle      = color.New(color.FgCyan, color.Bold)
	assistantStyle = color.New(color.FgGreen, color.Bold)
	bodyStyle      = color.New(color.FgWhite)
	streamStyle    = color.New(color.FgHiBlack)
	noticeStyle    = color.New(color.FgMagenta)
	statusStyle    = color.New(color.FgHiBlue)
	borderStyle    = color.New(color.FgBlue)
)

const galleryLimit = 10

// renderStatus is the one-line header with the active settings.
func renderStatus(s state.State) string {
	seed := s.Seed
	if s.LockSeed {
		seed += " 🔒"
	}
	stream := "off"
	if s.StreamMode {
		stream = "on"
	}
	flags := lo.FilterMap(domain.ImageFlags, func(f domain.ImageFlag, _ int) (string, bool) {
		return string(f), s.Flag(f)
	})
	if len(flags) == 0 {
		flags = []string{"none"}
	}
	return statusStyle.Sprintf("[%s] chat %s · stream %s · image %s %s · seed %s · flags %s",
		s.ActiveTab, s.ChatModel, stream, s.ImageModel, s.AspectRatio, seed, strings.Join(flags, ","))
}

// renderTranscript draws every visible message numbered by its transcript
// index, which is what /regen expects.
func renderTranscript(s state.State) string {
	var b strings.Builder
	for i, msg := range s.Messages {
		if msg.Role == domain.RoleSystem {
			continue
		}
		label := userStyle.Sprint("you")
		if msg.Role == domain.RoleAssistant {
			label = assistantStyle.Sprint("assistant")
		}
		b.WriteString(renderBlock(fmt.Sprintf("#%d %s", i, label), msg.Content, bodyStyle))
	}
	if s.IsStreaming {
		content := s.StreamingContent
		if content == "" {
			content = "…"
		}
		b.WriteString(renderBlock(assistantStyle.Sprint("assistant")+" (streaming, Esc to stop)", content, streamStyle))
	}
	return b.String()
}

// renderGallery lists the newest images first.
func renderGallery(s state.State) string {
	var b strings.Builder
	switch {
	case s.IsGenerating:
		b.WriteString(noticeStyle.Sprint("generating: " + s.CurrentImageURL))
		b.WriteByte('\n')
	case s.ImageLoadError:
		b.WriteString(noticeStyle.Sprint("last image failed to load, /retry to try again"))
		b.WriteByte('\n')
	}
	if len(s.Images) == 0 {
		b.WriteString(bodyStyle.Sprint("gallery is empty, try /image <prompt>"))
		b.WriteByte('\n')
		return b.String()
	}
	for i, img := range lo.Slice(s.Images, 0, galleryLimit) {
		header := fmt.Sprintf("%d. %s", i+1, img.CreatedAt.Format("2006-01-02 15:04"))
		body := fmt.Sprintf("%s\nseed %s · %s\n%s", img.Prompt, img.Params.Seed, img.Params.Model, img.URL)
		b.WriteString(renderBlock(header, body, bodyStyle))
	}
	if len(s.Images) > galleryLimit {
		fmt.Fprintf(&b, "… and %d more\n", len(s.Images)-galleryLimit)
	}
	return b.String()
}

func renderBlock(header, body string, style *color.Color) string {
	var b strings.Builder
	b.WriteString(borderStyle.Sprint("┌ "))
	b.WriteString(header)
	b.WriteByte('\n')
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			line = " "
		}
		b.WriteString(borderStyle.Sprint("│ "))
		b.WriteString(style.Sprint(line))
		b.WriteByte('\n')
	}
	b.WriteString(borderStyle.Sprint("└"))
	b.WriteByte('\n')
	return b.String()
}
