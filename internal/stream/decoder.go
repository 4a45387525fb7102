// Package stream decodes server-sent-event style completion streams into
// a growing plain-text buffer.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/set-night/chatcreate/internal/domain"
)

type State int

const (
	Idle State = iota
	Receiving
	Finalized
	Cancelled
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Receiving:
		return "receiving"
	case Finalized:
		return "finalized"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
	readSize     = 4096
)

// Decoder is not safe for concurrent use.
type Decoder struct {
	buf     strings.Builder
	pending []byte
	state   State
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

func (d *Decoder) State() State {
	return d.state
}

// Buffer returns the text accumulated so far.
func (d *Decoder) Buffer() string {
	return d.buf.String()
}

// Feed consumes one chunk of raw bytes and reports whether the buffer grew.
// An unterminated trailing line is held back until the next chunk or Flush.
func (d *Decoder) Feed(chunk []byte) bool {
	if d.state == Idle {
		d.state = Receiving
	}
	if d.state != Receiving {
		return false
	}

	d.pending = append(d.pending, chunk...)
	cut := bytes.LastIndexByte(d.pending, '\n')
	if cut < 0 {
		return false
	}

	complete := string(d.pending[:cut])
	d.pending = append(d.pending[:0], d.pending[cut+1:]...)

	changed := false
	for _, line := range strings.Split(complete, "\n") {
		if d.consumeLine(line) {
			changed = true
		}
	}
	return changed
}

// Flush processes a held-back partial line, if any.
func (d *Decoder) Flush() bool {
	if len(d.pending) == 0 {
		return false
	}
	line := string(d.pending)
	d.pending = nil
	return d.consumeLine(line)
}

func (d *Decoder) consumeLine(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, dataPrefix) {
		return false
	}

	data := strings.TrimSpace(line[len(dataPrefix):])
	if data == "" || data == doneSentinel {
		return false
	}

	var parsed any
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		if !strings.HasPrefix(data, "{") && !strings.Contains(data, `"choices"`) {
			d.buf.WriteString(data)
			return true
		}
		slog.Debug("dropping malformed stream payload", "payload", data, "error", err)
		return false
	}

	if content := choiceContent(parsed); content != "" {
		d.buf.WriteString(content)
		return true
	}
	return false
}

// choiceContent extracts choices[0].delta.content, falling back to
// choices[0].message.content.
func choiceContent(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"delta", "message"} {
		inner, ok := first[key].(map[string]any)
		if !ok {
			continue
		}
		if content, ok := inner["content"].(string); ok && content != "" {
			return content
		}
	}
	return ""
}

// Run reads r to completion, publishing the whole buffer after every chunk
// that changed it. It returns the trimmed final text on end-of-data,
// domain.ErrCancelled when ctx fires, or the read error.
func (d *Decoder) Run(ctx context.Context, r io.Reader, publish func(string)) (string, error) {
	d.state = Receiving
	chunk := make([]byte, readSize)

	for {
		if ctx.Err() != nil {
			return d.cancel()
		}

		n, err := r.Read(chunk)
		if n > 0 && d.Feed(chunk[:n]) && publish != nil {
			publish(d.buf.String())
		}

		if errors.Is(err, io.EOF) {
			if d.Flush() && publish != nil {
				publish(d.buf.String())
			}
			d.state = Finalized
			return strings.TrimSpace(d.buf.String()), nil
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrCancelled) || errors.Is(err, context.Canceled) {
				return d.cancel()
			}
			d.state = Failed
			return "", fmt.Errorf("read stream: %w", err)
		}
	}
}

func (d *Decoder) cancel() (string, error) {
	d.state = Cancelled
	d.buf.Reset()
	d.pending = nil
	return "", domain.ErrCancelled
}
