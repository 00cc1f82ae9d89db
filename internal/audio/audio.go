package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/samber/lo"

	"github.com/masubs/masubs/internal/binaries"
)

// Duration asks ffprobe for the container duration of a media file.
func Duration(ctx context.Context, path string) (time.Duration, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("probe %s: %w", filepath.Base(path), err)
	}
	ffprobe, err := binaries.FFprobePath()
	if err != nil {
		return 0, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbeDuration(stdout.Bytes())
}

func parseProbeDuration(raw []byte) (time.Duration, error) {
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported no usable duration: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// WAVDuration reads the length of a PCM WAV file from its header.
func WAVDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%s is not a valid wav file", filepath.Base(path))
	}

	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("failed to read wav duration: %w", err)
	}
	return d, nil
}

var (
	videoExtensions = []string{".mp4", ".mkv", ".mov", ".avi", ".webm", ".m4v", ".wmv", ".flv", ".mpg", ".mpeg", ".3gp"}
	audioExtensions = []string{".wav", ".mp3", ".m4a", ".aac", ".flac", ".ogg", ".opus", ".wma", ".aiff"}
)

func hasExt(path string, exts []string) bool {
	return lo.Contains(exts, strings.ToLower(filepath.Ext(path)))
}

func IsVideoFile(path string) bool { return hasExt(path, videoExtensions) }

func IsAudioFile(path string) bool { return hasExt(path, audioExtensions) }

// IsMediaFile reports whether path looks like something ffmpeg can decode.
func IsMediaFile(path string) bool {
	return IsAudioFile(path) || IsVideoFile(path)
}
