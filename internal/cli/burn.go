package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/masubs/masubs/internal/subtitle"
	"github.com/masubs/masubs/internal/task"
	"github.com/masubs/masubs/internal/video"
)

var burnCmd = &cobra.Command{
	Use:   "burn [video_file] [subtitle_file]",
	Short: "Hardcode a subtitle file into a video",
	Long: `Render the subtitles into the picture of the video with ffmpeg.

The result is written to <name>_hardsub<ext> next to the video unless
--output is given. Video is re-encoded with libx264 and audio with aac.

Examples:
  masubs burn talk.mp4 talk.srt
  masubs burn talk.mp4 talk.vtt -o talk_subbed.mp4 --crf 20 --preset medium`,
	Args: cobra.ExactArgs(2),
	RunE: runBurn,
}

func init() {
	rootCmd.AddCommand(burnCmd)

	burnCmd.Flags().Int("crf", 23, "x264 constant rate factor (lower is better quality)")
	burnCmd.Flags().String("preset", "veryfast", "x264 encoding preset")
	burnCmd.Flags().String("video-codec", "libx264", "Video encoder")
	burnCmd.Flags().String("audio-codec", "aac", "Audio encoder")
	burnCmd.Flags().String("audio-bitrate", "192k", "Audio bitrate")
}

func runBurn(cmd *cobra.Command, args []string) error {
	videoPath, subtitlePath := args[0], args[1]
	ctx := context.Background()

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = video.DefaultOutputPath(videoPath)
	}

	if err := video.ValidateInputs(videoPath, subtitlePath, outputPath); err != nil {
		return err
	}

	// ffmpeg reads other formats (ASS) itself; the ones we parse are checked
	// up front so a malformed file fails before the slow encode
	ext := strings.TrimPrefix(filepath.Ext(subtitlePath), ".")
	if _, ok := subtitle.ParseFormat(ext); ok {
		subs, err := subtitle.Open(subtitlePath)
		if err != nil {
			return fmt.Errorf("failed to parse subtitle file: %w", err)
		}
		logger.Debugw("Parsed subtitle file", "entries", len(subs.Segments))
	}

	opts := video.Options{
		VideoCodec:   stringFlag(cmd, "video-codec", cfg.Burn.VideoCodec),
		CRF:          intFlag(cmd, "crf", cfg.Burn.CRF),
		Preset:       stringFlag(cmd, "preset", cfg.Burn.Preset),
		AudioCodec:   stringFlag(cmd, "audio-codec", cfg.Burn.AudioCodec),
		AudioBitrate: stringFlag(cmd, "audio-bitrate", cfg.Burn.AudioBitrate),
	}

	logger.Infow("Burning subtitles",
		"video", videoPath,
		"subtitles", subtitlePath,
		"output", outputPath,
		"crf", opts.CRF,
		"preset", opts.Preset,
	)

	msg, err := burn(ctx, video.NewEncoder(opts), videoPath, subtitlePath, outputPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	fmt.Fprintf(cmd.OutOrStdout(), "  Output: %s\n", absOutput)
	return nil
}

// burn runs the encoder as a task. An encode rejected by ffmpeg comes back as
// an error carrying the encoder's message unchanged.
func burn(
	ctx context.Context,
	enc video.Encoder,
	videoPath, subtitlePath, outputPath string,
	progress io.Writer,
) (string, error) {
	runner := task.NewRunner[video.Result]()
	res, err := runTask(ctx, runner,
		func(ctx context.Context, report task.Reporter) (video.Result, error) {
			report(task.Indeterminate, "burning subtitles, this can take a while")
			return enc.Burn(ctx, videoPath, subtitlePath, outputPath)
		},
		progress,
	)
	if err != nil {
		return "", err
	}
	if !res.Success {
		return "", errors.New(res.Message)
	}
	return res.Message, nil
}
