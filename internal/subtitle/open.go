package subtitle

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// parsed subtitle file
type File struct {
	Format   Format
	Segments []Segment
}

var cueTimingPattern = regexp.MustCompile(
	`^\s*(\d+:\d{2}:\d{2}[,.]\d{3})\s*-->\s*(\d+:\d{2}:\d{2}[,.]\d{3})`,
)

// Open parses an SRT or VTT file. Cue numbers in the file are ignored;
// segments come back in file order.
func Open(path string) (*File, error) {
	var format Format
	switch strings.ToLower(filepath.Ext(path)) {
	case ".srt":
		format = FormatSRT
	case ".vtt":
		format = FormatVTT
	default:
		return nil, fmt.Errorf(
			"unsupported subtitle format: %s",
			filepath.Ext(path),
		)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subtitle file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	segments, err := parseCues(bufio.NewScanner(f), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	return &File{Format: format, Segments: segments}, nil
}

// Write serializes the file in its own format.
func (f *File) Write(path string, opts WriterOptions) (string, error) {
	w, err := NewWriter(f.Format, opts)
	if err != nil {
		return "", err
	}
	return w.Write(f.Segments, path)
}

func parseCues(scanner *bufio.Scanner, format Format) ([]Segment, error) {
	var (
		segments []Segment
		current  *Segment
		text     []string
		lineNum  int
	)

	flush := func() {
		if current != nil && len(text) > 0 {
			current.Text = strings.Join(text, "\n")
			segments = append(segments, *current)
		}
		current = nil
		text = nil
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		lineNum++
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
			if format == FormatVTT && strings.HasPrefix(line, "WEBVTT") {
				continue
			}
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}

		if current == nil {
			if m := cueTimingPattern.FindStringSubmatch(line); m != nil {
				start, err := ParseTimestamp(m[1])
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNum, err)
				}
				end, err := ParseTimestamp(m[2])
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNum, err)
				}
				current = &Segment{Start: start, End: end}
				continue
			}
			// cue number, VTT cue identifier, NOTE or STYLE block
			if _, err := strconv.Atoi(trimmed); err == nil ||
				format == FormatVTT {
				continue
			}
			return nil, fmt.Errorf("line %d: expected cue timing, got %q", lineNum, trimmed)
		}

		text = append(text, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading subtitle file: %w", err)
	}
	flush()

	return segments, nil
}
