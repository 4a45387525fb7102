package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"hard split", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"newline split", "aaaa\nbbbbbb", 8, []string{"aaaa\n", "bbbbbb"}},
		{"early newline ignored", "a\nbcdefghij", 8, []string{"a\nbcdefg", "hij"}},
		{"multibyte", "привет мир", 6, []string{"привет", " мир"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.maxLen)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("SplitMessage = %q, want %q", got, tt.want)
			}
			for _, part := range got {
				if utf8.RuneCountInString(part) > tt.maxLen {
					t.Errorf("part %q exceeds %d runes", part, tt.maxLen)
				}
			}
		})
	}
}

func TestSplitMessageNewlineAfterMultibyte(t *testing.T) {
	text := strings.Repeat("ж", 6) + "\n" + strings.Repeat("ж", 6)
	got := SplitMessage(text, 8)
	if len(got) != 2 || got[0] != strings.Repeat("ж", 6)+"\n" {
		t.Errorf("SplitMessage = %q", got)
	}
}

func TestFixMarkdown(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"```go\nfmt.Println()", "```go\nfmt.Println()\n```"},
		{"use `x", "use `x`"},
		{"`a` and `b`", "`a` and `b`"},
		{"```\n`\n```", "```\n`\n```"},
	}
	for _, tt := range tests {
		if got := FixMarkdown(tt.in); got != tt.want {
			t.Errorf("FixMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPageBounds(t *testing.T) {
	tests := []struct {
		page, total, per     int
		wantPage, start, end int
	}{
		{0, 12, 5, 0, 0, 5},
		{2, 12, 5, 2, 10, 12},
		{9, 12, 5, 2, 10, 12},
		{-1, 12, 5, 0, 0, 5},
		{0, 0, 5, 0, 0, 0},
	}
	for _, tt := range tests {
		p, s, e := PageBounds(tt.page, tt.total, tt.per)
		if p != tt.wantPage || s != tt.start || e != tt.end {
			t.Errorf("PageBounds(%d,%d,%d) = %d,%d,%d", tt.page, tt.total, tt.per, p, s, e)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello world", 5); got != "hell…" {
		t.Errorf("got %q", got)
	}
}
