package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/masubs/masubs/internal/audio"
	"github.com/masubs/masubs/internal/subtitle"
	"github.com/masubs/masubs/internal/task"
	"github.com/masubs/masubs/internal/transcribe"
)

var generateCmd = &cobra.Command{
	Use:   "generate [media_file]",
	Short: "Generate subtitles for an audio or video file",
	Long: `Generate subtitles for the specified audio or video file.

The whisper provider runs the openai-whisper program locally with the chosen
model size. The openai and gemini providers upload the audio instead; long
recordings are split into chunks and transcribed in parallel.

The transcript is printed when recognition finishes and the subtitles are
written next to the media file unless --output is given.

Examples:
  masubs generate video.mp4
  masubs generate lecture.mp3 --model small --format vtt
  masubs generate podcast.mp3 --provider gemini --chunk-duration 5m --concurrency 5`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	f := generateCmd.Flags()
	f.StringP("model", "m", string(transcribe.ModelBase), "Model size: "+strings.Join(transcribe.ModelNames(), ", "))
	f.StringP("provider", "p", string(transcribe.ProviderWhisper), "Recognizer: whisper (local), openai or gemini")
	f.StringP("format", "f", string(subtitle.FormatSRT), "Subtitle format: srt or vtt")
	f.Int("max-line-chars", 0, "Wrap longer cues onto two lines, 0 to disable")
	f.StringP("api-key", "k", "", "API key for hosted recognizers (defaults to <PROVIDER>_API_KEY)")
	f.Int("concurrency", 3, "Chunks transcribed at once by hosted recognizers")
	f.DurationP("chunk-duration", "d", 0, "Chunk length for hosted recognizers, e.g. 10m")
	f.String("prompt", "", "Names or jargon to prime the recognizer with")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx := context.Background()

	if _, err := os.Stat(mediaPath); err != nil {
		return err
	}
	if !audio.IsMediaFile(mediaPath) {
		return fmt.Errorf("%s does not look like an audio or video file", filepath.Base(mediaPath))
	}

	modelName := stringFlag(cmd, "model", cfg.Transcribe.Model)
	providerStr := stringFlag(cmd, "provider", cfg.Transcribe.Provider)
	formatStr := stringFlag(cmd, "format", cfg.Transcribe.Format)
	language := stringFlag(cmd, "language", cfg.Transcribe.Language)
	maxLineChars := intFlag(cmd, "max-line-chars", cfg.Transcribe.MaxLineChars)
	concurrency := intFlag(cmd, "concurrency", cfg.Transcribe.Concurrency)
	chunkDuration := durationFlag(cmd, "chunk-duration", cfg.Transcribe.ChunkDuration)
	prompt, _ := cmd.Flags().GetString("prompt")
	outputPath, _ := cmd.Flags().GetString("output")

	format, ok := subtitle.ParseFormat(formatStr)
	if !ok {
		return fmt.Errorf("unknown subtitle format %q (srt or vtt)", formatStr)
	}

	provider := transcribe.Provider(strings.ToLower(providerStr))
	if !lo.Contains(transcribe.Providers(), provider) {
		return fmt.Errorf("unknown provider %q (whisper, openai or gemini)", providerStr)
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}

	opts := transcribe.Options{
		Language:      language,
		Prompt:        prompt,
		ChunkDuration: chunkDuration,
		Concurrency:   concurrency,
	}
	if provider != transcribe.ProviderWhisper {
		opts.APIKey = resolveAPIKey(cmd, string(provider))
		if opts.APIKey == "" {
			return fmt.Errorf("no API key for %s: pass --api-key or set %s", provider, apiKeyEnv(string(provider)))
		}
	}

	recognizer, err := transcribe.Factory(ctx, provider, opts)
	if err != nil {
		return err
	}
	logger.Debugw("generating subtitles", "input", mediaPath, "provider", provider, "model", modelName, "format", format)

	out := transcribe.OutputOptions{
		Format:       format,
		Path:         outputPath,
		MaxLineChars: maxLineChars,
	}
	runner := task.NewRunner[transcribe.Outcome]()
	outcome, err := runTask(ctx, runner,
		func(ctx context.Context, report task.Reporter) (transcribe.Outcome, error) {
			return transcribe.Transcribe(ctx, recognizer, mediaPath, modelName, out, report)
		},
		cmd.ErrOrStderr(),
	)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n\n", strings.TrimSpace(outcome.Text))
	abs, _ := filepath.Abs(outcome.SubtitlePath)
	fmt.Fprintf(w, "Wrote %d cues to %s\n", len(outcome.Segments), abs)
	return nil
}
