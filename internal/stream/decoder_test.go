package stream

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/set-night/chatcreate/internal/domain"
)

// chunkReader returns one chunk per Read call.
type chunkReader struct {
	chunks []string
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestRunReconstructsDeltas(t *testing.T) {
	r := &chunkReader{chunks: []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n",
		"data: [DONE]\n\n",
	}}

	var published []string
	d := NewDecoder()
	got, err := d.Run(context.Background(), r, func(s string) {
		published = append(published, s)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "Hello world" {
		t.Errorf("final = %q, want %q", got, "Hello world")
	}
	if d.State() != Finalized {
		t.Errorf("state = %s, want finalized", d.State())
	}
	want := []string{"Hello", "Hello world"}
	if strings.Join(published, "|") != strings.Join(want, "|") {
		t.Errorf("published = %q, want %q", published, want)
	}
}

func TestFeedLineRules(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		changed bool
	}{
		{"plain text passthrough", "data: plain text chunk\n\n", "plain text chunk", true},
		{"json-like shape dropped", "data: {\"unexpected\":\"shape\"}\n\n", "", false},
		{"broken json object dropped", "data: {\"choices\": [\n\n", "", false},
		{"broken text mentioning choices dropped", "data: bad \"choices\" text\n\n", "", false},
		{"done sentinel ignored", "data: [DONE]\n\n", "", false},
		{"empty payload ignored", "data: \n\n", "", false},
		{"message shape appended", "data: {\"choices\":[{\"message\":{\"content\":\"full\"}}]}\n", "full", true},
		{"delta preferred over message", "data: {\"choices\":[{\"delta\":{\"content\":\"d\"},\"message\":{\"content\":\"m\"}}]}\n", "d", true},
		{"empty delta falls back to message", "data: {\"choices\":[{\"delta\":{\"content\":\"\"},\"message\":{\"content\":\"m\"}}]}\n", "m", true},
		{"non data lines ignored", "event: ping\n: comment\n{\"choices\":[]}\n", "", false},
		{"valid non-object json dropped", "data: 42\n", "", false},
		{"leading whitespace trimmed", "   data: hi  \n", "hi", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			changed := d.Feed([]byte(tt.input))
			if changed != tt.changed {
				t.Errorf("changed = %v, want %v", changed, tt.changed)
			}
			if d.Buffer() != tt.want {
				t.Errorf("buffer = %q, want %q", d.Buffer(), tt.want)
			}
		})
	}
}

func TestFeedCarriesPartialLines(t *testing.T) {
	d := NewDecoder()
	line := "data: {\"choices\":[{\"delta\":{\"content\":\"héllo\"}}]}\n"
	// split inside the multi-byte rune
	split := strings.Index(line, "é") + 1

	if d.Feed([]byte(line[:split])) {
		t.Fatal("partial line should not change the buffer")
	}
	if !d.Feed([]byte(line[split:])) {
		t.Fatal("completed line should change the buffer")
	}
	if d.Buffer() != "héllo" {
		t.Errorf("buffer = %q", d.Buffer())
	}
}

func TestRunFlushesUnterminatedLine(t *testing.T) {
	d := NewDecoder()
	got, err := d.Run(context.Background(), strings.NewReader("data: tail"), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "tail" {
		t.Errorf("final = %q, want tail", got)
	}
}

func TestRunTrimsFinalText(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"one \"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"two \"}}]}\n\n"
	d := NewDecoder()
	got, err := d.Run(context.Background(), iotest.OneByteReader(strings.NewReader(body)), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "one two" {
		t.Errorf("final = %q", got)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &chunkReader{chunks: []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n",
		"data: more\n\n",
	}}

	d := NewDecoder()
	_, err := d.Run(ctx, r, func(string) { cancel() })
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if d.State() != Cancelled {
		t.Errorf("state = %s, want cancelled", d.State())
	}
	if d.Buffer() != "" {
		t.Errorf("buffer should be discarded, got %q", d.Buffer())
	}
}

func TestRunFailed(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("data: partial\n"), iotest.ErrReader(boom))

	d := NewDecoder()
	_, err := d.Run(context.Background(), r, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if d.State() != Failed {
		t.Errorf("state = %s, want failed", d.State())
	}
}
