package extract

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bereal_explorer/internal/archive"
	"bereal_explorer/internal/mediamap"
	"bereal_explorer/internal/model"
	"bereal_explorer/internal/paths"
	"bereal_explorer/internal/progress"
)

const (
	mediaStage = "media"

	// Media extraction owns the back part of the progress range.
	progressMediaStart = 60
	progressMediaSpan  = 40
)

// MediaPrefixes are the archive folders whose files become media map entries.
var MediaPrefixes = []string{"Photos/", "conversations/", "profile-pictures/"}

// EntryReader reads one archive entry.
type EntryReader interface {
	Read(path string) ([]byte, error)
}

type MediaOptions struct {
	Logger           *zap.Logger
	BatchSize        int
	Parallelism      int
	ProgressInterval int
	// Yield is the pause between batches; cancellation is observed during it.
	Yield time.Duration
}

type MediaStats struct {
	Total     int `json:"total"`
	Extracted int `json:"extracted"`
	Dropped   int `json:"dropped"`
}

type mediaResult struct {
	position int
	path     string
	data     []byte
	err      error
}

// MediaEntries keeps the non-directory entries under MediaPrefixes.
func MediaEntries(entries []archive.Entry) []archive.Entry {
	out := make([]archive.Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDirectory {
			continue
		}
		for _, prefix := range MediaPrefixes {
			if strings.HasPrefix(e.Path, prefix) {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// ExtractMedia reads entries in sequential batches, each batch read by a
// bounded worker pool. Workers only send results; this goroutine alone
// reports progress and writes the map, once per batch. A failed entry is
// dropped with a warning. On cancellation the map built so far is returned
// with the error so the caller can release it.
func ExtractMedia(ctx context.Context, src EntryReader, entries []archive.Entry, tracker *progress.Tracker, opts MediaOptions) (*mediamap.Map, MediaStats, []model.Warning, error) {
	opts = opts.withDefaults()
	logger := opts.Logger
	if tracker == nil {
		tracker = progress.NewTracker(nil)
	}

	media := mediamap.New()
	stats := MediaStats{Total: len(entries)}
	var warnings []model.Warning
	drop := func(entryPath, format string, args ...any) {
		stats.Dropped++
		warnings = append(warnings, model.Warning{Stage: mediaStage, Source: entryPath, Message: fmt.Sprintf(format, args...)})
		logger.Warn("media entry dropped", zap.String("path", entryPath), zap.String("reason", fmt.Sprintf(format, args...)))
	}

	completed := 0
	for start := 0; start < len(entries); start += opts.BatchSize {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return media, stats, warnings, ctxErr
		}
		if start > 0 {
			select {
			case <-ctx.Done():
				return media, stats, warnings, ctx.Err()
			case <-time.After(opts.Yield):
			}
		}
		end := min(start+opts.BatchSize, len(entries))
		batch := entries[start:end]

		results := make(chan mediaResult, len(batch))
		var workers errgroup.Group
		workers.SetLimit(opts.Parallelism)
		go func() {
			for position, e := range batch {
				position, e := position, e
				workers.Go(func() error {
					data, readErr := src.Read(e.Path)
					results <- mediaResult{position: position, path: e.Path, data: data, err: readErr}
					return nil
				})
			}
		}()

		pending := make([]mediaResult, len(batch))
		for received := 0; received < len(batch); received++ {
			result := <-results
			pending[result.position] = result
			completed++
			if completed%opts.ProgressInterval == 0 || completed == len(entries) {
				tracker.Advance(mediaProgress(completed, len(entries)), fmt.Sprintf("Extracting media %d/%d", completed, len(entries)))
			}
		}
		_ = workers.Wait()

		for _, result := range pending {
			if result.err != nil {
				drop(result.path, "read: %v", result.err)
				continue
			}
			key := paths.Normalize(result.path)
			if _, addErr := media.Add(key, paths.MIMEType(key), result.data); addErr != nil {
				drop(result.path, "%v", addErr)
				continue
			}
			stats.Extracted++
		}
		logger.Debug("media batch merged", zap.Int("batch_start", start), zap.Int("batch_size", len(batch)), zap.Int("stored", media.Len()))
	}

	logger.Info("media extracted",
		zap.Int("total", stats.Total),
		zap.Int("extracted", stats.Extracted),
		zap.Int("dropped", stats.Dropped),
	)
	return media, stats, warnings, nil
}

func mediaProgress(completed, total int) int {
	if total == 0 {
		return progressMediaStart + progressMediaSpan
	}
	return progressMediaStart + int(math.Round(float64(completed)/float64(total)*progressMediaSpan))
}

func (o MediaOptions) withDefaults() MediaOptions {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Parallelism <= 0 {
		o.Parallelism = o.BatchSize
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	if o.Yield <= 0 {
		o.Yield = time.Millisecond
	}
	return o
}
