package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/samber/lo"

	"github.com/masubs/masubs/internal/subtitle"
)

// OpenAI hosts a single whisper size; the requested model is ignored.
const openAITranscriptionModel = "whisper-1"

type OpenAIRecognizer struct {
	client  openai.Client
	options Options
}

// body returned for response_format=verbose_json
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []whisperSegment `json:"segments"`
}

func NewOpenAIRecognizer(opts Options) (*OpenAIRecognizer, error) {
	if opts.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	return &OpenAIRecognizer{
		client:  openai.NewClient(option.WithAPIKey(opts.APIKey)),
		options: opts,
	}, nil
}

func (r *OpenAIRecognizer) Recognize(ctx context.Context, mediaPath string, _ Model) (*Result, error) {
	return recognizeChunked(ctx, mediaPath, r.options, r.recognizeFile)
}

func (r *OpenAIRecognizer) recognizeFile(ctx context.Context, audioPath string) ([]subtitle.Segment, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:                   f,
		Model:                  openai.AudioModel(openAITranscriptionModel),
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	}
	if lang := r.options.Language; lang != "" {
		params.Language = openai.String(lang)
	}
	if prompt := r.options.Prompt; prompt != "" {
		params.Prompt = openai.String(prompt)
	}

	resp, err := r.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai %s: %w", openAITranscriptionModel, err)
	}

	segments, err := parseVerboseJSONResponse(resp.RawJSON())
	if err == nil {
		return segments, nil
	}
	// plain text without timing
	if text := strings.TrimSpace(resp.Text); text != "" {
		return []subtitle.Segment{{Text: text}}, nil
	}
	return nil, err
}

// parseVerboseJSONResponse keeps the non-blank segments of a verbose_json
// body. A body with text but no segments becomes one cue covering the whole
// duration.
func parseVerboseJSONResponse(raw string) ([]subtitle.Segment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("openai returned an empty body")
	}
	var body whisperVerboseResponse
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, fmt.Errorf("decode verbose_json: %w", err)
	}

	if len(body.Segments) == 0 {
		text := strings.TrimSpace(body.Text)
		if text == "" {
			return nil, errors.New("openai transcribed nothing")
		}
		return []subtitle.Segment{{End: body.Duration, Text: text}}, nil
	}

	return lo.FilterMap(body.Segments, func(s whisperSegment, _ int) (subtitle.Segment, bool) {
		text := strings.TrimSpace(s.Text)
		return subtitle.Segment{Start: s.Start, End: s.End, Text: text}, text != ""
	}), nil
}
