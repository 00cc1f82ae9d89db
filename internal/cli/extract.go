package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/masubs/masubs/internal/audio"
)

var extractOpts = audio.RecognizerWAVOptions()

var extractCmd = &cobra.Command{
	Use:   "extract <media_file>",
	Short: "Pull the audio track out of a media file",
	Long: `Decode the audio of a video (or audio) file and write it as wav, mp3, aac or flac.

Without flags the result is 16 kHz mono WAV, ready for whisper.

Examples:
  masubs extract talk.mp4
  masubs extract talk.mp4 -f mp3 -b 128k -o talk-audio.mp3
  masubs extract talk.mkv -r 48000 -c 2`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	f := extractCmd.Flags()
	f.StringVarP(&extractOpts.Format, "format", "f", extractOpts.Format, "Audio format: wav, mp3, aac or flac")
	f.IntVarP(&extractOpts.SampleRate, "sample-rate", "r", extractOpts.SampleRate, "Sample rate in Hz")
	f.IntVarP(&extractOpts.Channels, "channels", "c", extractOpts.Channels, "Channel count (1 mono, 2 stereo)")
	f.StringVarP(&extractOpts.Bitrate, "bitrate", "b", "", "Bitrate for lossy formats, e.g. 128k")
}

func runExtract(cmd *cobra.Command, args []string) error {
	input := args[0]
	opts := extractOpts
	opts.Format = strings.ToLower(opts.Format)
	if !audio.ValidFormat(opts.Format) {
		return fmt.Errorf("unsupported audio format %q (use wav, mp3, aac or flac)", opts.Format)
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "." + opts.Format
	}
	if filepath.Clean(output) == filepath.Clean(input) {
		return fmt.Errorf("refusing to overwrite %s with its own audio", input)
	}

	logger.Debugw("extracting audio", "input", input, "output", output, "options", opts)
	if err := audio.Extract(context.Background(), input, output, opts); err != nil {
		return err
	}
	if opts.Format == "wav" {
		if d, err := audio.WAVDuration(output); err == nil {
			logger.Infow("audio extracted", "duration", d.Round(time.Millisecond).String())
		}
	}

	abs, _ := filepath.Abs(output)
	fmt.Fprintf(cmd.OutOrStdout(), "Audio written to %s\n", abs)
	return nil
}
