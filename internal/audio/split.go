package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"

	"github.com/masubs/masubs/internal/binaries"
)

const defaultSplitConcurrency = 4

// ChunkInfo is one window of a longer recording. StartTime is the offset to
// add to timestamps recognized inside the chunk.
type ChunkInfo struct {
	Path      string
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
}

func (c ChunkInfo) Length() time.Duration { return c.EndTime - c.StartTime }

// PlanChunks cuts [0, total) into consecutive windows of at most chunk.
func PlanChunks(total, chunk time.Duration) []ChunkInfo {
	if total <= 0 || chunk <= 0 {
		return nil
	}
	var chunks []ChunkInfo
	for start := time.Duration(0); start < total; start += chunk {
		chunks = append(chunks, ChunkInfo{
			Index:     len(chunks),
			StartTime: start,
			EndTime:   min(start+chunk, total),
		})
	}
	return chunks
}

// Split stream-copies an audio file into chunks of the given duration using
// at most concurrency ffmpeg processes. Chunks come back in playback order.
func Split(
	ctx context.Context,
	audioPath string,
	chunkDuration time.Duration,
	outputDir string,
	concurrency int,
) ([]ChunkInfo, error) {
	if chunkDuration <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", chunkDuration)
	}
	if concurrency <= 0 {
		concurrency = defaultSplitConcurrency
	}

	total, err := Duration(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	ffmpegPath, err := binaries.FFmpegPath()
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(audioPath)
	stem := strings.TrimSuffix(filepath.Base(audioPath), ext)
	chunks := PlanChunks(total, chunkDuration)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range chunks {
		c := &chunks[i]
		c.Path = filepath.Join(outputDir, fmt.Sprintf("%s_chunk_%03d%s", stem, c.Index, ext))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return cutChunk(ffmpegPath, audioPath, *c)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// cutChunk copies the chunk's window without re-encoding.
func cutChunk(ffmpegPath, src string, c ChunkInfo) error {
	var stderr bytes.Buffer
	err := ffmpeg.Input(src).
		Output(c.Path, ffmpeg.KwArgs{
			"ss": c.StartTime.Seconds(),
			"t":  c.Length().Seconds(),
			"c":  "copy",
		}).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		WithErrorOutput(&stderr).
		Run()
	if err != nil {
		return fmt.Errorf("cut chunk %d at %v: %w: %s", c.Index, c.StartTime, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
