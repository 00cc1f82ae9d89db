package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/masubs/masubs/internal/audio"
	"github.com/masubs/masubs/internal/binaries"
	"github.com/masubs/masubs/internal/subtitle"
)

// implements Recognizer by running the openai-whisper command-line program
type WhisperCLI struct {
	options Options

	// decode the media to 16 kHz mono WAV before recognition
	Normalize bool

	locateWhisper func() (string, error)
	locateFFmpeg  func() (string, error)
}

// whisper --output_format json
type whisperOutput struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
}

// segment in whisper JSON output, shared with the OpenAI verbose_json shape
type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func NewWhisperCLI(opts Options) *WhisperCLI {
	return &WhisperCLI{
		options:       opts,
		Normalize:     true,
		locateWhisper: binaries.Whisper,
		locateFFmpeg:  binaries.FFmpegPath,
	}
}

func (w *WhisperCLI) Recognize(
	ctx context.Context,
	mediaPath string,
	model Model,
) (*Result, error) {
	if _, err := os.Stat(mediaPath); err != nil {
		return nil, fmt.Errorf("media file not found: %s", mediaPath)
	}

	whisperPath, err := w.locateWhisper()
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "masubs-whisper-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	input := mediaPath
	var duration time.Duration
	if w.Normalize {
		input = filepath.Join(workDir, "audio.wav")
		if err := audio.Extract(ctx, mediaPath, input, audio.RecognizerWAVOptions()); err != nil {
			return nil, err
		}
		duration, _ = audio.WAVDuration(input)
	}

	cmd := exec.CommandContext(ctx, whisperPath, w.args(input, workDir, model)...)
	cmd.Env = w.env()
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if details := strings.TrimSpace(stderr.String()); details != "" {
			return nil, fmt.Errorf("whisper failed: %w\n%s", err, details)
		}
		return nil, fmt.Errorf("whisper failed: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	raw, err := os.ReadFile(filepath.Join(workDir, stem+".json"))
	if err != nil {
		return nil, fmt.Errorf("whisper produced no output: %w", err)
	}

	result, err := parseWhisperOutput(raw)
	if err != nil {
		return nil, err
	}
	if duration == 0 && len(result.Segments) > 0 {
		last := result.Segments[len(result.Segments)-1]
		duration = time.Duration(last.End * float64(time.Second))
	}
	result.Duration = duration

	return result, nil
}

func (w *WhisperCLI) args(input, outputDir string, model Model) []string {
	args := []string{
		input,
		"--model", string(model),
		"--output_format", "json",
		"--output_dir", outputDir,
		"--fp16", "False",
		"--verbose", "False",
	}
	if w.options.Language != "" {
		args = append(args, "--language", w.options.Language)
	}
	if w.options.Prompt != "" {
		args = append(args, "--initial_prompt", w.options.Prompt)
	}
	return args
}

// whisper shells out to ffmpeg itself; put ours first on its PATH
func (w *WhisperCLI) env() []string {
	env := os.Environ()
	if w.locateFFmpeg == nil {
		return env
	}
	ffmpegPath, err := w.locateFFmpeg()
	if err != nil {
		return env
	}
	return append(env, "PATH="+binaries.PathWith(filepath.Dir(ffmpegPath)))
}

func parseWhisperOutput(raw []byte) (*Result, error) {
	var out whisperOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse whisper output: %w", err)
	}

	segments := make([]subtitle.Segment, 0, len(out.Segments))
	for _, seg := range out.Segments {
		segments = append(segments, subtitle.Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	return &Result{
		Segments: segments,
		Text:     out.Text,
		Language: out.Language,
	}, nil
}
