// Package video hardcodes subtitle text into the picture of a video.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/masubs/masubs/internal/binaries"
)

// outcome of an encode that ran to completion
type Result struct {
	Success bool
	Message string
}

// defines interface for burning subtitles into a video
type Encoder interface {
	// Burn renders subtitlePath into videoPath and writes outputPath.
	// Failures reported by the encoder itself come back as a Result with
	// Success false; a non-nil error means the encoder could not run.
	Burn(
		ctx context.Context,
		videoPath, subtitlePath, outputPath string,
	) (Result, error)
}

// holds encoder settings
type Options struct {
	VideoCodec   string
	CRF          int
	Preset       string
	AudioCodec   string
	AudioBitrate string
}

// libx264 at crf 23 with the veryfast preset, aac audio at 192k
func DefaultOptions() Options {
	return Options{
		VideoCodec:   "libx264",
		CRF:          23,
		Preset:       "veryfast",
		AudioCodec:   "aac",
		AudioBitrate: "192k",
	}
}

// encoder backed by the ffmpeg subtitles filter
type FFmpegEncoder struct {
	opts Options
	// resolves the ffmpeg executable; binaries.FFmpegPath by default
	locate func() (string, error)
}

func NewEncoder(opts Options) *FFmpegEncoder {
	return &FFmpegEncoder{
		opts:   opts,
		locate: binaries.FFmpegPath,
	}
}

// DefaultOutputPath suggests <dir>/<name>_hardsub<ext> for a source video.
func DefaultOutputPath(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + "_hardsub" + ext
}

// ValidateInputs checks the paths before any encoding starts.
func ValidateInputs(videoPath, subtitlePath, outputPath string) error {
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("video file not found: %s", videoPath)
	}
	if _, err := os.Stat(subtitlePath); err != nil {
		return fmt.Errorf("subtitle file not found: %s", subtitlePath)
	}
	if outputPath == "" {
		return errors.New("output path is required")
	}
	if samePath(videoPath, outputPath) {
		return fmt.Errorf("output path %s would overwrite the source video", outputPath)
	}
	if info, err := os.Stat(filepath.Dir(outputPath)); err != nil || !info.IsDir() {
		return fmt.Errorf("output directory does not exist: %s", filepath.Dir(outputPath))
	}
	return nil
}

func (e *FFmpegEncoder) Burn(
	ctx context.Context,
	videoPath, subtitlePath, outputPath string,
) (Result, error) {
	if err := ValidateInputs(videoPath, subtitlePath, outputPath); err != nil {
		return Result{}, err
	}

	ffmpegPath, err := e.locate()
	if err != nil {
		return Result{}, fmt.Errorf("locate ffmpeg: %w", err)
	}

	var stderr bytes.Buffer
	err = e.stream(videoPath, subtitlePath, outputPath).
		SetFfmpegPath(ffmpegPath).
		WithErrorOutput(&stderr).
		Run()

	return interpretRun(err, stderr.String(), outputPath)
}

// stream builds: input -> [v] subtitles filter, [a] passthrough -> output
func (e *FFmpegEncoder) stream(videoPath, subtitlePath, outputPath string) *ffmpeg.Stream {
	input := ffmpeg.Input(videoPath)

	withSubs := input.Video().Filter(
		"subtitles",
		ffmpeg.Args{},
		ffmpeg.KwArgs{"filename": FilterPath(subtitlePath)},
	)

	return ffmpeg.Output(
		[]*ffmpeg.Stream{withSubs, input.Audio()},
		outputPath,
		e.outputArgs(),
	).OverWriteOutput()
}

func (e *FFmpegEncoder) outputArgs() ffmpeg.KwArgs {
	o := e.opts
	d := DefaultOptions()
	if o.VideoCodec == "" {
		o.VideoCodec = d.VideoCodec
	}
	if o.Preset == "" {
		o.Preset = d.Preset
	}
	if o.AudioCodec == "" {
		o.AudioCodec = d.AudioCodec
	}
	if o.AudioBitrate == "" {
		o.AudioBitrate = d.AudioBitrate
	}

	return ffmpeg.KwArgs{
		"c:v":    o.VideoCodec,
		"crf":    o.CRF,
		"preset": o.Preset,
		"c:a":    o.AudioCodec,
		"b:a":    o.AudioBitrate,
	}
}

// interpretRun separates encoder rejections (ffmpeg ran and exited non-zero)
// from failures to run ffmpeg at all.
func interpretRun(err error, stderr, outputPath string) (Result, error) {
	if err == nil {
		return Result{
			Success: true,
			Message: fmt.Sprintf("video saved to %s", outputPath),
		}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		details := strings.TrimSpace(stderr)
		if details == "" {
			details = "ffmpeg reported no error details"
		}
		return Result{
			Success: false,
			Message: "ffmpeg error: " + details,
		}, nil
	}

	if details := strings.TrimSpace(stderr); details != "" {
		return Result{}, fmt.Errorf("run ffmpeg: %w\n%s", err, details)
	}
	return Result{}, fmt.Errorf("run ffmpeg: %w", err)
}

// FilterPath normalizes a subtitle path for the subtitles filter. Windows
// separators become forward slashes; ffmpeg-go escapes the remaining special
// characters when it renders the filtergraph.
func FilterPath(path string) string {
	return strings.ReplaceAll(path, `\`, "/")
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
