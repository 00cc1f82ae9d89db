// Package transcribe turns the speech in a media file into timed subtitle
// segments.
package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/masubs/masubs/internal/subtitle"
	"github.com/masubs/masubs/internal/task"
)

// recognition result
type Result struct {
	Segments []subtitle.Segment
	Text     string
	Language string
	Duration time.Duration
}

// interface for speech recognition
type Recognizer interface {
	Recognize(ctx context.Context, mediaPath string, model Model) (*Result, error)
}

// speech recognition provider
type Provider string

const (
	ProviderWhisper Provider = "whisper"
	ProviderOpenAI  Provider = "openai"
	ProviderGemini  Provider = "gemini"
)

func Providers() []Provider {
	return []Provider{ProviderWhisper, ProviderOpenAI, ProviderGemini}
}

// recognizer options
type Options struct {
	Language string // source language hint, empty to auto-detect
	Prompt   string

	// hosted providers only
	APIKey        string
	ChunkDuration time.Duration
	Concurrency   int
}

// creates a recognizer for provider
func Factory(ctx context.Context, provider Provider, opts Options) (Recognizer, error) {
	switch provider {
	case ProviderWhisper, "":
		return NewWhisperCLI(opts), nil
	case ProviderOpenAI:
		return NewOpenAIRecognizer(opts)
	case ProviderGemini:
		return NewGeminiRecognizer(ctx, opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// where and how the subtitles of a run are written
type OutputOptions struct {
	Format       subtitle.Format
	Path         string // defaults to the media path with the format's extension
	MaxLineChars int
}

// what a finished run hands back to the caller
type Outcome struct {
	Text         string
	SubtitlePath string
	Segments     []subtitle.Segment
}

// Transcribe runs rec over mediaPath and writes the subtitle file.
//
// The model name is validated before the recognizer is touched, so an unknown
// size fails without loading anything. Progress is reported at 10, 30, 60 and
// 95 percent.
func Transcribe(
	ctx context.Context,
	rec Recognizer,
	mediaPath string,
	modelName string,
	out OutputOptions,
	report task.Reporter,
) (Outcome, error) {
	if report == nil {
		report = func(int, string) {}
	}

	report(10, fmt.Sprintf("preparing model %q", modelName))

	model, err := ParseModel(modelName)
	if err != nil {
		return Outcome{}, err
	}

	format := out.Format
	if format == "" {
		format = subtitle.FormatSRT
	}
	writer, err := subtitle.NewWriter(format, subtitle.WriterOptions{
		MaxLineChars: out.MaxLineChars,
	})
	if err != nil {
		return Outcome{}, err
	}

	outputPath := out.Path
	if outputPath == "" {
		outputPath = subtitle.OutputPathFor(mediaPath, format)
	}

	report(30, fmt.Sprintf("model %q loaded, transcribing", model))

	result, err := rec.Recognize(ctx, mediaPath, model)
	if err != nil {
		return Outcome{}, fmt.Errorf("transcription failed: %w", err)
	}

	report(60, "transcription complete, formatting output")

	path, err := writer.Write(result.Segments, outputPath)
	if err != nil {
		return Outcome{}, err
	}

	report(95, fmt.Sprintf("subtitles saved to %s", path))

	text := result.Text
	if text == "" {
		text = joinText(result.Segments)
	}

	return Outcome{
		Text:         text,
		SubtitlePath: path,
		Segments:     result.Segments,
	}, nil
}

func joinText(segments []subtitle.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
