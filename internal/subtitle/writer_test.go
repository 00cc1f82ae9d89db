package subtitle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSRTWriterSingleSegment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")

	w := &SRTWriter{}
	written, err := w.Write([]Segment{{Start: 0, End: 1.5, Text: "  Hello  "}}, path)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if written != path {
		t.Errorf("Write returned %q, want %q", written, path)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,500\nHello\n\n"
	if string(got) != want {
		t.Errorf("output mismatch\ngot:  %q\nwant: %q", got, want)
	}
}

func TestSRTWriterEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.srt")

	if _, err := (&SRTWriter{}).Write(nil, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty file, got %d bytes", info.Size())
	}
}

func TestSRTWriterKeepsInputOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.srt")
	segments := []Segment{
		{Start: 10, End: 12, Text: "third in time"},
		{Start: 0, End: 2, Text: "first in time"},
		{Start: 5, End: 6, Text: "second in time"},
	}

	if _, err := (&SRTWriter{}).Write(segments, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	file, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(file.Segments) != len(segments) {
		t.Fatalf("expected %d segments, got %d", len(segments), len(file.Segments))
	}
	for i := range segments {
		if file.Segments[i] != segments[i] {
			t.Errorf("segment %d = %+v, want %+v", i, file.Segments[i], segments[i])
		}
	}

	raw, _ := os.ReadFile(path)
	blocks := strings.Split(strings.TrimSuffix(string(raw), "\n\n"), "\n\n")
	for i, block := range blocks {
		idx := strings.SplitN(block, "\n", 2)[0]
		if want := []string{"1", "2", "3"}[i]; idx != want {
			t.Errorf("block %d index = %q, want %q", i, idx, want)
		}
	}
}

func TestSRTWriterPreservesUnicode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unicode.srt")
	text := "Selamat pagi, dunia. こんにちは"

	if _, err := (&SRTWriter{}).Write([]Segment{{Start: 1, End: 2, Text: text}}, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(raw), text) {
		t.Errorf("unicode text not preserved: %q", raw)
	}
}

func TestSRTWriterRejectsNegativeTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.srt")
	segments := []Segment{
		{Start: 0, End: 1, Text: "ok"},
		{Start: -1, End: 2, Text: "bad"},
	}

	_, err := (&SRTWriter{}).Write(segments, path)
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Fatalf("expected ErrInvalidTimestamp, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Errorf("no file should be written on validation failure")
	}
}

func TestSRTWriterMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.srt")

	_, err := (&SRTWriter{}).Write([]Segment{{Start: 0, End: 1, Text: "x"}}, path)
	if err == nil {
		t.Fatal("expected error for missing parent directory")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}

func TestSRTWriterOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.srt")
	if err := os.WriteFile(path, []byte("stale content that is longer"), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, err := (&SRTWriter{}).Write([]Segment{{Start: 0, End: 1, Text: "new"}}, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, _ := os.ReadFile(path)
	if string(raw) != "1\n00:00:00,000 --> 00:00:01,000\nnew\n\n" {
		t.Errorf("file not overwritten: %q", raw)
	}
}

func TestVTTWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.vtt")

	w, err := NewWriter(FormatVTT, WriterOptions{})
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if _, err := w.Write([]Segment{{Start: 0, End: 1.5, Text: "Hello"}}, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, _ := os.ReadFile(path)
	want := "WEBVTT\n\n1\n00:00:00.000 --> 00:00:01.500\nHello\n\n"
	if string(raw) != want {
		t.Errorf("output mismatch\ngot:  %q\nwant: %q", raw, want)
	}
}

func TestWriterWrapsLongLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrap.srt")
	w, _ := NewWriter(FormatSRT, WriterOptions{MaxLineChars: 20})

	text := "the quick brown fox jumps over the lazy dog"
	if _, err := w.Write([]Segment{{Start: 0, End: 3, Text: text}}, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	file, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if len(file.Segments) != 1 {
		t.Fatalf("wrapping must not change segment count, got %d", len(file.Segments))
	}
	want := "the quick brown fox\njumps over the lazy dog"
	if file.Segments[0].Text != want {
		t.Errorf("wrapped text = %q, want %q", file.Segments[0].Text, want)
	}
}

func TestNewWriterUnsupported(t *testing.T) {
	if _, err := NewWriter(Format("ass"), WriterOptions{}); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestOutputPathFor(t *testing.T) {
	tests := []struct {
		media  string
		format Format
		want   string
	}{
		{"/videos/talk.mp4", FormatSRT, "/videos/talk.srt"},
		{"podcast.episode.mp3", FormatVTT, "podcast.episode.vtt"},
		{"noext", FormatSRT, "noext.srt"},
	}
	for _, tt := range tests {
		if got := OutputPathFor(tt.media, tt.format); got != tt.want {
			t.Errorf("OutputPathFor(%q) = %q, want %q", tt.media, got, tt.want)
		}
	}
}
