package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
	"google.golang.org/genai"

	"github.com/masubs/masubs/internal/subtitle"
)

// implements Recognizer using Google Gemini
type GeminiRecognizer struct {
	client  *genai.Client
	options Options
}

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// keys a model tends to wrap the segment array in
var segmentWrapperKeys = []string{"segments", "transcript", "data"}

var jsonFenceRegex = regexp.MustCompile("```(?:json)?\\s*")

func NewGeminiRecognizer(ctx context.Context, opts Options) (*GeminiRecognizer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiRecognizer{
		client:  client,
		options: opts,
	}, nil
}

// geminiModelFor maps a whisper size onto a Gemini tier of similar cost.
func geminiModelFor(model Model) string {
	switch model {
	case ModelTiny, ModelBase:
		return "gemini-2.5-flash-lite"
	case ModelLarge:
		return "gemini-2.5-pro"
	default:
		return "gemini-2.5-flash"
	}
}

func (r *GeminiRecognizer) Recognize(
	ctx context.Context,
	mediaPath string,
	model Model,
) (*Result, error) {
	geminiModel := geminiModelFor(model)
	return recognizeChunked(ctx, mediaPath, r.options,
		func(ctx context.Context, audioPath string) ([]subtitle.Segment, error) {
			return r.recognizeFile(ctx, audioPath, geminiModel)
		},
	)
}

// recognizeFile uploads one audio file, asks for timed segments and removes
// the upload again.
func (r *GeminiRecognizer) recognizeFile(
	ctx context.Context,
	audioPath string,
	model string,
) ([]subtitle.Segment, error) {
	upload, err := r.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(audioPath), err)
	}
	defer func() {
		_, _ = r.client.Files.Delete(context.WithoutCancel(ctx), upload.Name, nil)
	}()

	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(buildTranscriptionPrompt(r.options)),
		genai.NewPartFromURI(upload.URI, upload.MIMEType),
	}, genai.RoleUser)}

	resp, err := r.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", model, err)
	}
	return parseTranscriptionResponse(resp)
}

const transcriptionInstructions = `Transcribe the speech in this audio file.
Split it into short subtitle-sized phrases. Reply with a JSON array only, no
markdown and no commentary. Each element is an object with "start" and "end"
(seconds from the beginning of the file, as numbers) and "text" (the words
spoken, verbatim).`

func buildTranscriptionPrompt(opts Options) string {
	lines := []string{transcriptionInstructions}
	if opts.Language != "" {
		lines = append(lines, fmt.Sprintf("The audio is in %s.", opts.Language))
	}
	if opts.Prompt != "" {
		lines = append(lines, "Context: "+opts.Prompt)
	}
	return strings.Join(lines, "\n")
}

func parseTranscriptionResponse(resp *genai.GenerateContentResponse) ([]subtitle.Segment, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}

	var reply strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			reply.WriteString(part.Text)
		}
	}
	text := cleanJSONResponse(reply.String())
	if text == "" {
		return nil, errors.New("gemini reply has no text")
	}

	transcript, err := extractTranscriptSegments(text)
	if err != nil {
		return nil, fmt.Errorf("%w (reply: %s)", err, truncateString(text, 200))
	}
	return lo.Map(transcript, func(ts transcriptSegment, _ int) subtitle.Segment {
		return subtitle.Segment{Start: ts.Start, End: ts.End, Text: strings.TrimSpace(ts.Text)}
	}), nil
}

// extractTranscriptSegments finds the first JSON value in text that holds a
// usable segment array, either bare or inside a wrapper object. Models often
// surround the JSON with prose.
func extractTranscriptSegments(text string) ([]transcriptSegment, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		if segments, ok := segmentsFromJSON(raw); ok {
			return segments, nil
		}
		// skip the whole value, nested brackets included
		i += int(dec.InputOffset()) - 1
	}

	return nil, errors.New("no transcript segments found in response")
}

func segmentsFromJSON(raw json.RawMessage) ([]transcriptSegment, bool) {
	var segments []transcriptSegment
	if err := json.Unmarshal(raw, &segments); err == nil {
		return segments, validateSegments(segments)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}

	for _, key := range segmentWrapperKeys {
		if v, ok := obj[key]; ok {
			if segments, ok := segmentsFromJSON(v); ok {
				return segments, true
			}
		}
	}

	keys := lo.Without(lo.Keys(obj), segmentWrapperKeys...)
	sort.Strings(keys)
	for _, key := range keys {
		if segments, ok := segmentsFromJSON(obj[key]); ok {
			return segments, true
		}
	}

	return nil, false
}

// at least one segment carries timing or text
func validateSegments(segments []transcriptSegment) bool {
	return lo.SomeBy(segments, func(s transcriptSegment) bool {
		return s.Start != 0 || s.End != 0 || s.Text != ""
	})
}

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = jsonFenceRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
