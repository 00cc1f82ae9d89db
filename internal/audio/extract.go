package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/masubs/masubs/internal/binaries"
)

// holds options for audio extraction
type ExtractOptions struct {
	Format     string // Output format (wav, mp3, aac, flac)
	SampleRate int    // Sample rate in Hz (e.g., 16000, 44100, 48000)
	Channels   int    // Number of channels (1 = mono, 2 = stereo)
	Bitrate    string // Bitrate for lossy formats (e.g., "128k", "320k")
}

// 16 kHz mono PCM, what local speech recognizers expect
func RecognizerWAVOptions() ExtractOptions {
	return ExtractOptions{
		Format:     "wav",
		SampleRate: 16000,
		Channels:   1,
	}
}

// small mono mp3 for uploading to hosted recognizers
func UploadOptions() ExtractOptions {
	return ExtractOptions{
		Format:     "mp3",
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "64k",
	}
}

// ValidFormat reports whether Extract can produce the given format.
func ValidFormat(format string) bool {
	switch format {
	case "wav", "mp3", "aac", "flac":
		return true
	default:
		return false
	}
}

// Extract decodes the audio track of any media file and re-encodes it.
func Extract(ctx context.Context, inputPath, outputPath string, opts ExtractOptions) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	ffmpegPath, err := binaries.FFmpegPath()
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var stderr bytes.Buffer
	err = ffmpeg.Input(inputPath).
		Output(outputPath, extractArgs(opts)).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		WithErrorOutput(&stderr).
		Run()
	if err != nil {
		return fmt.Errorf("extract audio from %s: %w: %s", filepath.Base(inputPath), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// audio codec per output format; anything else is written as 16-bit PCM
var codecs = map[string]string{
	"mp3":  "libmp3lame",
	"aac":  "aac",
	"flac": "flac",
}

func extractArgs(opts ExtractOptions) ffmpeg.KwArgs {
	args := ffmpeg.KwArgs{"vn": "", "acodec": "pcm_s16le"}
	if codec, ok := codecs[opts.Format]; ok {
		args["acodec"] = codec
	}
	if opts.SampleRate > 0 {
		args["ar"] = opts.SampleRate
	}
	if opts.Channels > 0 {
		args["ac"] = opts.Channels
	}
	// flac and pcm are lossless, a bitrate makes no sense there
	if opts.Bitrate != "" && (opts.Format == "mp3" || opts.Format == "aac") {
		args["b:a"] = opts.Bitrate
	}
	return args
}
