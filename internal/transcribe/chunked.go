package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/masubs/masubs/internal/audio"
	"github.com/masubs/masubs/internal/subtitle"
)

const (
	defaultChunkDuration = 10 * time.Minute
	defaultConcurrency   = 3
)

// recognizes one uploaded audio file; segment times are relative to its start
type pieceFunc func(ctx context.Context, audioPath string) ([]subtitle.Segment, error)

// recognizeChunked prepares mediaPath for upload, splits it when it is longer
// than the chunk duration and recognizes the pieces with bounded concurrency.
func recognizeChunked(
	ctx context.Context,
	mediaPath string,
	opts Options,
	recognize pieceFunc,
) (*Result, error) {
	if _, err := os.Stat(mediaPath); err != nil {
		return nil, fmt.Errorf("media file not found: %s", mediaPath)
	}

	workDir, err := os.MkdirTemp("", "masubs-upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	upload := filepath.Join(workDir, "audio.mp3")
	if err := audio.Extract(ctx, mediaPath, upload, audio.UploadOptions()); err != nil {
		return nil, err
	}

	total, err := audio.Duration(ctx, upload)
	if err != nil {
		return nil, err
	}

	chunkDuration := opts.ChunkDuration
	if chunkDuration <= 0 {
		chunkDuration = defaultChunkDuration
	}

	var chunks []audio.ChunkInfo
	if total <= chunkDuration {
		chunks = []audio.ChunkInfo{{Path: upload, Index: 0, EndTime: total}}
	} else {
		chunks, err = audio.Split(ctx, upload, chunkDuration, workDir, opts.Concurrency)
		if err != nil {
			return nil, err
		}
	}

	segments, err := recognizeChunks(ctx, chunks, opts.Concurrency, recognize)
	if err != nil {
		return nil, err
	}

	return &Result{
		Segments: segments,
		Text:     joinText(segments),
		Language: opts.Language,
		Duration: total,
	}, nil
}

// recognizeChunks runs recognize over every chunk and merges the segments in
// chunk order, shifted onto each chunk's offset. The first failure cancels the
// remaining chunks.
func recognizeChunks(
	ctx context.Context,
	chunks []audio.ChunkInfo,
	concurrency int,
	recognize pieceFunc,
) ([]subtitle.Segment, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	perChunk := make([][]subtitle.Segment, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			segments, err := recognize(gctx, chunk.Path)
			if err != nil {
				return fmt.Errorf("chunk %d failed: %w", chunk.Index, err)
			}
			perChunk[i] = shiftSegments(segments, chunk.StartTime)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []subtitle.Segment
	for _, segments := range perChunk {
		merged = append(merged, segments...)
	}
	return merged, nil
}

func shiftSegments(segments []subtitle.Segment, offset time.Duration) []subtitle.Segment {
	shift := offset.Seconds()
	shifted := make([]subtitle.Segment, 0, len(segments))
	for _, seg := range segments {
		shifted = append(shifted, subtitle.Segment{
			Start: seg.Start + shift,
			End:   seg.End + shift,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return shifted
}
