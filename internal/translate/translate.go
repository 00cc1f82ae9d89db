// Package translate rewrites the text of subtitle cues into another language
// with a hosted LLM. Timing and cue order are never touched.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/masubs/masubs/internal/subtitle"
)

const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 3
)

// Item is one cue text sent for translation; Index is its position in the
// subtitle file.
type Item struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type Result Item

// translation service provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

type Options struct {
	InputLanguage  string
	TargetLanguage string
	Model          string
	Prompt         string
	BatchSize      int // items per API request
	Concurrency    int // requests in flight
}

// one prompt in, raw model text out
type completer interface {
	complete(ctx context.Context, prompt string) (string, error)
}

// batches items into prompts for a completer
type Translator struct {
	llm     completer
	options Options
}

// creates Translator based on provider
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (*Translator, error) {
	if opts.TargetLanguage == "" {
		return nil, fmt.Errorf("target language is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	var (
		llm completer
		err error
	)
	switch provider {
	case ProviderGemini:
		llm, err = newGeminiCompleter(ctx, apiKey, opts.Model)
	case ProviderOpenAI:
		llm = newOpenAICompleter(apiKey, opts.Model)
	case ProviderAnthropic:
		llm = newAnthropicCompleter(apiKey, opts.Model)
	default:
		return nil, fmt.Errorf("unsupported translation provider: %s", provider)
	}
	if err != nil {
		return nil, err
	}

	return &Translator{llm: llm, options: opts}, nil
}

func (t *Translator) batchSize() int {
	if t.options.BatchSize > 0 {
		return t.options.BatchSize
	}
	return DefaultBatchSize
}

func (t *Translator) concurrency() int {
	if t.options.Concurrency > 0 {
		return t.options.Concurrency
	}
	return DefaultConcurrency
}

// Translate splits items into batches, one request each, with at most
// Concurrency requests in flight. Results come back in item order.
func (t *Translator) Translate(ctx context.Context, items []Item) ([]Result, error) {
	if len(items) == 0 {
		return []Result{}, nil
	}

	batches := lo.Chunk(items, t.batchSize())
	perBatch := make([][]Result, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.concurrency())
	for i, batch := range batches {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results, err := t.translateBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("batch %d failed: %w", i, err)
			}
			perBatch[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return lo.Flatten(perBatch), nil
}

func (t *Translator) translateBatch(ctx context.Context, items []Item) ([]Result, error) {
	reply, err := t.llm.complete(ctx, BuildPrompt(t.options, items))
	if err != nil {
		return nil, err
	}
	return parseResults(reply, items)
}

// Subtitles translates every cue of file. With overlay set, each cue holds
// the translation followed by the original text on the next line.
func (t *Translator) Subtitles(
	ctx context.Context,
	file *subtitle.File,
	overlay bool,
) (*subtitle.File, error) {
	items := lo.Map(file.Segments, func(seg subtitle.Segment, i int) Item {
		return Item{Index: i, Text: seg.Text}
	})

	results, err := t.Translate(ctx, items)
	if err != nil {
		return nil, err
	}

	return Apply(file, results, overlay), nil
}

// Apply returns a copy of file with the translated text put in place. Results
// pointing outside the file are ignored.
func Apply(file *subtitle.File, results []Result, overlay bool) *subtitle.File {
	segments := slices.Clone(file.Segments)
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(segments) {
			continue
		}
		seg := &segments[r.Index]
		if overlay {
			seg.Text = strings.TrimSpace(r.Text) + "\n" + seg.Text
		} else {
			seg.Text = strings.TrimSpace(r.Text)
		}
	}
	return &subtitle.File{Format: file.Format, Segments: segments}
}

const promptRules = `Rules:
- Translate the meaning of each text; keep names, numbers and tone.
- Keep any line breaks inside a text where they are.
- Reply with a JSON array of {"index", "text"} objects, one per input object.
- Every index of the input appears exactly once in the reply.
- No commentary, no markdown.`

// BuildPrompt renders one batch as a translation request. The batch itself
// is the last thing in the prompt, as an indented JSON array.
func BuildPrompt(opts Options, items []Item) string {
	lang := ""
	if opts.InputLanguage != "" {
		lang = opts.InputLanguage + " "
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Translate these %ssubtitle texts to %s.\n\n", lang, opts.TargetLanguage)
	sb.WriteString(promptRules)
	sb.WriteString("\n\n")
	if opts.Prompt != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n\n", opts.Prompt)
	}
	batch, _ := json.MarshalIndent(items, "", "  ")
	sb.Write(batch)
	return sb.String()
}
