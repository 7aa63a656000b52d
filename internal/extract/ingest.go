// Package extract runs one ingestion session: it validates and reads the
// export zip and event log, normalizes the JSON records, rebuilds
// conversations and fills the media map.
package extract

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bereal_explorer/internal/archive"
	"bereal_explorer/internal/conversations"
	"bereal_explorer/internal/eventlog"
	"bereal_explorer/internal/mediamap"
	"bereal_explorer/internal/model"
	"bereal_explorer/internal/normalize"
	"bereal_explorer/internal/progress"
)

const (
	DefaultMaxInputBytes    int64 = 500 << 20
	DefaultBatchSize              = 100
	DefaultProgressInterval       = 5
)

type Options struct {
	Logger   *zap.Logger
	Progress progress.Sink
	// MaxInputBytes applies to each input separately; 0 means the default,
	// negative disables the check.
	MaxInputBytes    int64
	BatchSize        int
	Parallelism      int
	ProgressInterval int
}

type Stats struct {
	Events        int           `json:"events"`
	Conversations int           `json:"conversations"`
	Media         MediaStats    `json:"media"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Result is everything one session produced. Media owns its blobs until
// Release.
type Result struct {
	Data     *model.BeRealData
	Media    *mediamap.Map
	Warnings []model.Warning
	Stats    Stats
}

// Release frees every media blob of the session at once.
func (r *Result) Release() int {
	if r == nil || r.Media == nil {
		return 0
	}
	return r.Media.Release()
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Progress == nil {
		o.Progress = progress.Discard
	}
	if o.MaxInputBytes == 0 {
		o.MaxInputBytes = DefaultMaxInputBytes
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	return o
}

// Ingest validates both inputs, then builds the aggregate and the media map.
// Fatal input errors and cancellation return no result; every tolerated
// failure is listed in Result.Warnings.
func Ingest(ctx context.Context, zipFile, logFile File, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	logger := opts.Logger
	tracker := progress.NewTracker(opts.Progress)
	started := time.Now()

	tracker.Advance(2, "Starting data parsing...")
	if zipFile.missing() || logFile.missing() {
		return nil, ErrMissingInput
	}
	if validateErr := validate(zipFile, zipInput, opts.MaxInputBytes); validateErr != nil {
		return nil, validateErr
	}
	if validateErr := validate(logFile, gzipInput, opts.MaxInputBytes); validateErr != nil {
		return nil, validateErr
	}

	tracker.Advance(5, "Reading files...")
	var zipBytes, logBytes []byte
	var readGroup errgroup.Group
	readGroup.Go(func() error {
		content, readErr := readAll(zipFile)
		zipBytes = content
		return readErr
	})
	readGroup.Go(func() error {
		content, readErr := readAll(logFile)
		logBytes = content
		return readErr
	})
	if readErr := readGroup.Wait(); readErr != nil {
		return nil, readErr
	}
	tracker.Advance(10, "Files read")
	logger.Info("inputs read",
		zap.String("zip", zipFile.Name), zap.Int("zip_bytes", len(zipBytes)),
		zap.String("log", logFile.Name), zap.Int("log_bytes", len(logBytes)),
	)

	arch, openErr := archive.Open(zipBytes)
	if openErr != nil {
		return nil, fmt.Errorf("open export zip %q: %w", zipFile.Name, openErr)
	}
	events, decodeErr := eventlog.Decode(logBytes)
	if decodeErr != nil {
		return nil, fmt.Errorf("decode event log %q: %w", logFile.Name, decodeErr)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	tracker.Advance(25, "Parsing JSON files...")
	data, warnings, normalizeErr := normalize.Normalize(ctx, arch, normalize.Options{Logger: logger})
	if normalizeErr != nil {
		return nil, normalizeErr
	}
	data.Analytics = events
	tracker.Advance(40, "Mapping data structures...")

	entries := arch.ListEntries()
	entryPaths := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDirectory {
			entryPaths = append(entryPaths, e.Path)
		}
	}
	mediaEntries := MediaEntries(entries)

	tracker.Advance(50, "Parsing conversations...")
	tracker.Advance(progressMediaStart, "Extracting media...")

	var (
		threads       []model.Conversation
		threadWarns   []model.Warning
		media         *mediamap.Map
		mediaStats    MediaStats
		mediaWarnings []model.Warning
	)
	stages, stageCtx := errgroup.WithContext(ctx)
	stages.Go(func() error {
		var convErr error
		threads, threadWarns, convErr = conversations.Extract(stageCtx, arch, entryPaths, conversations.Options{
			Logger:      logger,
			Parallelism: opts.Parallelism,
		})
		return convErr
	})
	stages.Go(func() error {
		var mediaErr error
		media, mediaStats, mediaWarnings, mediaErr = ExtractMedia(stageCtx, arch, mediaEntries, tracker, MediaOptions{
			Logger:           logger,
			BatchSize:        opts.BatchSize,
			Parallelism:      opts.Parallelism,
			ProgressInterval: opts.ProgressInterval,
		})
		return mediaErr
	})
	if stageErr := stages.Wait(); stageErr != nil {
		if media != nil {
			released := media.Release()
			logger.Info("ingestion aborted, media released", zap.Int("released", released), zap.Error(stageErr))
		}
		return nil, stageErr
	}
	data.Conversations = threads
	warnings = append(warnings, threadWarns...)
	warnings = append(warnings, mediaWarnings...)

	tracker.Advance(progress.Total, "Done!")
	result := &Result{
		Data:     data,
		Media:    media,
		Warnings: warnings,
		Stats: Stats{
			Events:        len(events),
			Conversations: len(threads),
			Media:         mediaStats,
			Elapsed:       time.Since(started),
		},
	}
	if result.Warnings == nil {
		result.Warnings = []model.Warning{}
	}
	logger.Info("ingestion complete",
		zap.String("session", media.Session()),
		zap.Int("posts", len(data.Posts)),
		zap.Int("memories", len(data.Memories)),
		zap.Int("conversations", len(threads)),
		zap.Int("media", mediaStats.Extracted),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("elapsed", result.Stats.Elapsed),
	)
	return result, nil
}
