package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/masubs/masubs/internal/subtitle"
	"github.com/masubs/masubs/internal/task"
	"github.com/masubs/masubs/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate <subtitle_file>",
	Short: "Translate an SRT or VTT file with a hosted LLM",
	Long: `Translate the text of every cue in an SRT or VTT file. Timing, order and
format are preserved.

With --overlay each cue carries the translation on its first line and the
original text below it.

Examples:
  masubs translate talk.srt -t japanese
  masubs translate talk.vtt -l english -t indonesian --overlay
  masubs translate talk.srt -t spanish -p anthropic -o talk.es.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	f := translateCmd.Flags()
	f.StringP("target-language", "t", "", "Language to translate into (required)")
	f.Bool("overlay", false, "Keep the original text under each translated line")
	f.StringP("provider", "p", "gemini", "LLM provider: gemini, openai or anthropic")
	f.String("model", "", "Provider model override")
	f.StringP("api-key", "k", "", "API key (defaults to <PROVIDER>_API_KEY)")
	f.Int("batch-size", translate.DefaultBatchSize, "Cues sent per request")
	f.Int("concurrency", translate.DefaultConcurrency, "Requests in flight at once")
	f.String("prompt", "", "Extra instructions for the translator")

	_ = translateCmd.MarkFlagRequired("target-language")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	input := args[0]
	target, _ := cmd.Flags().GetString("target-language")
	source, _ := cmd.Flags().GetString("language")
	overlay, _ := cmd.Flags().GetBool("overlay")
	prompt, _ := cmd.Flags().GetString("prompt")

	opts := translate.Options{
		InputLanguage:  strings.TrimSpace(source),
		TargetLanguage: strings.TrimSpace(target),
		Model:          stringFlag(cmd, "model", cfg.Translate.Model),
		Prompt:         prompt,
		BatchSize:      intFlag(cmd, "batch-size", cfg.Translate.BatchSize),
		Concurrency:    intFlag(cmd, "concurrency", cfg.Translate.Concurrency),
	}
	if err := checkTranslateOptions(opts); err != nil {
		return err
	}

	provider := translate.Provider(strings.ToLower(stringFlag(cmd, "provider", cfg.Translate.Provider)))
	key := resolveAPIKey(cmd, string(provider))
	if key == "" {
		return fmt.Errorf("no API key for %s: pass --api-key or set %s", provider, apiKeyEnv(string(provider)))
	}

	src, err := subtitle.Open(input)
	if err != nil {
		return err
	}
	if len(src.Segments) == 0 {
		return fmt.Errorf("%s has no cues to translate", input)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = translatedPath(input, opts.TargetLanguage, overlay)
	}
	logger.Debugw("translating subtitles",
		"input", input,
		"output", output,
		"cues", len(src.Segments),
		"provider", provider,
		"options", opts,
	)

	ctx := context.Background()
	translator, err := translate.Factory(ctx, provider, key, opts)
	if err != nil {
		return err
	}

	runner := task.NewRunner[*subtitle.File]()
	out, err := runTask(ctx, runner,
		func(ctx context.Context, report task.Reporter) (*subtitle.File, error) {
			report(task.Indeterminate, fmt.Sprintf("translating %d cues into %s", len(src.Segments), opts.TargetLanguage))
			return translator.Subtitles(ctx, src, overlay)
		},
		cmd.ErrOrStderr(),
	)
	if err != nil {
		return fmt.Errorf("translation failed: %w", err)
	}
	written, err := out.Write(output, subtitle.WriterOptions{})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Translated %d cues to %s: %s\n", len(out.Segments), opts.TargetLanguage, written)
	return nil
}

func checkTranslateOptions(opts translate.Options) error {
	if opts.TargetLanguage == "" {
		return fmt.Errorf("target language is required")
	}
	if strings.EqualFold(opts.InputLanguage, opts.TargetLanguage) {
		return fmt.Errorf("source and target language are both %q", opts.TargetLanguage)
	}
	if opts.BatchSize <= 0 || opts.Concurrency <= 0 {
		return fmt.Errorf("batch-size and concurrency must be positive")
	}
	return nil
}

// <name>.<lang>[.overlay]<ext> next to the source file
func translatedPath(subtitlePath, targetLang string, overlay bool) string {
	ext := filepath.Ext(subtitlePath)
	lang := strings.ToLower(strings.TrimSpace(targetLang))
	if overlay {
		lang += ".overlay"
	}
	return strings.TrimSuffix(subtitlePath, ext) + "." + lang + ext
}
