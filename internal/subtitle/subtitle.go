package subtitle

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrInvalidTimestamp is returned for negative or non-finite offsets.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// one transcribed utterance; times are seconds from the start of the media
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(name string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case FormatSRT:
		return FormatSRT, true
	case FormatVTT:
		return FormatVTT, true
	default:
		return "", false
	}
}

// subtitle format based on file extension
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vtt":
		return FormatVTT
	default:
		return FormatSRT
	}
}

// file extension for a format
func ExtensionFor(format Format) string {
	switch format {
	case FormatVTT:
		return ".vtt"
	default:
		return ".srt"
	}
}

// OutputPathFor places a subtitle file next to the media it was made from.
func OutputPathFor(mediaPath string, format Format) string {
	return strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) +
		ExtensionFor(format)
}
