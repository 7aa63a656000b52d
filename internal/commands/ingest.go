package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"bereal_explorer/internal/extract"
	"bereal_explorer/internal/progress"
)

const progressBuffer = 16

// ingest runs one session over the --file and --log inputs. Progress goes to
// errOut as a single rewritten line on a terminal and to the logger
// otherwise.
func (a *app) ingest(ctx context.Context, errOut io.Writer) (*extract.Result, error) {
	if inputErr := a.requireInputs(); inputErr != nil {
		return nil, inputErr
	}
	zipFile, zipErr := extract.FileFromPath(a.v.GetString(keyFile))
	if zipErr != nil {
		return nil, zipErr
	}
	logFile, logErr := extract.FileFromPath(a.v.GetString(keyLog))
	if logErr != nil {
		return nil, logErr
	}

	stream := progress.NewChannel(progressBuffer)
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		renderProgress(stream.Events(), errOut, isTerminal(errOut), a.logger)
	}()

	result, ingestErr := extract.Ingest(ctx, zipFile, logFile, extract.Options{
		Logger:           a.logger,
		Progress:         stream,
		MaxInputBytes:    a.cfg.Ingest.MaxInputBytes(),
		BatchSize:        a.cfg.Ingest.BatchSize,
		Parallelism:      a.cfg.Ingest.Parallelism,
		ProgressInterval: a.cfg.Ingest.ProgressInterval,
	})
	stream.Close()
	<-rendered
	if ingestErr != nil {
		return nil, ingestErr
	}

	for _, warning := range result.Warnings {
		a.logger.Warn("tolerated export problem",
			zap.String("stage", warning.Stage),
			zap.String("source", warning.Source),
			zap.String("message", warning.Message),
		)
	}
	a.logger.Info("export ingested",
		zap.String("session", result.Media.Session()),
		zap.Int("media", result.Stats.Media.Extracted),
		zap.Int("dropped", result.Stats.Media.Dropped),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("elapsed", result.Stats.Elapsed),
	)
	return result, nil
}

func renderProgress(events <-chan progress.Event, w io.Writer, interactive bool, logger *zap.Logger) {
	drew := false
	for event := range events {
		if !interactive {
			logger.Debug("progress", zap.Int("loaded", event.Loaded), zap.String("message", event.Message))
			continue
		}
		line := fmt.Sprintf("\r[%3d%%] %s", event.Loaded, event.Message)
		fmt.Fprint(w, line+strings.Repeat(" ", 8))
		drew = true
	}
	if drew {
		fmt.Fprintln(w)
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
