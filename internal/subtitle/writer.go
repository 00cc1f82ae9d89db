package subtitle

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// interface for writing subtitles to files
type Writer interface {
	// Write serializes segments to path and returns the path written.
	Write(segments []Segment, path string) (string, error)
}

// knobs shared by all writers
type WriterOptions struct {
	// wrap text longer than this onto two lines; 0 disables wrapping
	MaxLineChars int
}

// SubRip format
type SRTWriter struct {
	Options WriterOptions
}

// WebVTT format
type VTTWriter struct {
	Options WriterOptions
}

func NewWriter(format Format, opts WriterOptions) (Writer, error) {
	switch format {
	case FormatSRT:
		return &SRTWriter{Options: opts}, nil
	case FormatVTT:
		return &VTTWriter{Options: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// writes the segments to an SRT file
func (w *SRTWriter) Write(segments []Segment, path string) (string, error) {
	body, err := renderCues(segments, FormatTimestamp, w.Options)
	if err != nil {
		return "", err
	}
	return writeFile(path, body)
}

// writes the segments to a VTT file
func (w *VTTWriter) Write(segments []Segment, path string) (string, error) {
	body, err := renderCues(segments, FormatVTTTimestamp, w.Options)
	if err != nil {
		return "", err
	}
	return writeFile(path, "WEBVTT\n\n"+body)
}

// renderCues emits one numbered block per segment in input order. All
// timestamps are formatted before anything is returned, so a bad segment
// never produces a partial document.
func renderCues(
	segments []Segment,
	format func(float64) (string, error),
	opts WriterOptions,
) (string, error) {
	var sb strings.Builder
	for i, seg := range segments {
		start, err := format(seg.Start)
		if err != nil {
			return "", fmt.Errorf("segment %d start: %w", i+1, err)
		}
		end, err := format(seg.End)
		if err != nil {
			return "", fmt.Errorf("segment %d end: %w", i+1, err)
		}

		text := strings.TrimSpace(seg.Text)
		if opts.MaxLineChars > 0 {
			text = wrapText(text, opts.MaxLineChars)
		}

		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteByte('\n')
		sb.WriteString(start)
		sb.WriteString(" --> ")
		sb.WriteString(end)
		sb.WriteByte('\n')
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

// the parent directory is not created; a missing directory is an error
func writeFile(path, content string) (string, error) {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	return path, nil
}
