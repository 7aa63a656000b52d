package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bereal_explorer/internal/export"
	"bereal_explorer/internal/filters"
	"bereal_explorer/internal/utils"
)

const (
	keyExportIDs      = "export.ids"
	keyExportKinds    = "export.kinds"
	keyExportSince    = "export.since"
	keyExportUntil    = "export.until"
	keyExportPatterns = "export.patterns"
	keyExportVideo    = "export.video_only"
	keyExportMode     = "export.mode"
	keyExportName     = "export.name"
)

func (a *app) exportCriteria() (filters.Criteria, error) {
	criteria := filters.Criteria{
		IDs:          utils.SplitCSV(a.v.GetStringSlice(keyExportIDs)),
		Kinds:        utils.SplitCSV(a.v.GetStringSlice(keyExportKinds)),
		Patterns:     a.v.GetStringSlice(keyExportPatterns),
		RequireVideo: a.v.GetBool(keyExportVideo),
	}
	var parseErr error
	if criteria.Since, parseErr = parseBound(a.v.GetString(keyExportSince), "--since", a.cfg.Location); parseErr != nil {
		return filters.Criteria{}, parseErr
	}
	if criteria.Until, parseErr = parseBound(a.v.GetString(keyExportUntil), "--until", a.cfg.Location); parseErr != nil {
		return filters.Criteria{}, parseErr
	}
	return criteria, nil
}

// parseBound reads a date or timestamp; a bare date is taken in loc.
func parseBound(raw, flagName string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if day, dayErr := time.ParseInLocation(time.DateOnly, raw, loc); dayErr == nil {
		return day, nil
	}
	parsed, ok := utils.ParseTimestamp(raw)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid %s %q: want YYYY-MM-DD or an RFC 3339 timestamp", flagName, raw)
	}
	return parsed, nil
}

func (a *app) exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export -f <export.zip> -gz <events.gz> [--id a,b] [--kind post] [-p <pattern> ...] [--mode merged] -o <folder>",
		Short: "Export selected captures as a photo, a video, a picture-in-picture composite or a zip",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, modeErr := export.ParseMode(a.v.GetString(keyExportMode))
			if modeErr != nil {
				return modeErr
			}
			name := a.v.GetString(keyExportName)
			if name == "" {
				return errors.New("missing required flag: --name")
			}
			criteria, criteriaErr := a.exportCriteria()
			if criteriaErr != nil {
				return criteriaErr
			}
			outputRoot, absErr := filepath.Abs(a.v.GetString(keyOutput))
			if absErr != nil {
				return fmt.Errorf("resolve output folder: %w", absErr)
			}

			result, ingestErr := a.ingest(cmd.Context(), cmd.ErrOrStderr())
			if ingestErr != nil {
				return ingestErr
			}
			defer result.Release()

			items, selectErr := filters.Select(result.Data, criteria)
			if selectErr != nil {
				return selectErr
			}
			if len(items) == 0 {
				return filters.BuildNoMatchError(criteria)
			}

			artifact, downloadErr := export.Download(cmd.Context(), items, result.Media, mode, name, export.Options{
				Logger:   a.logger,
				Location: a.cfg.Location,
			})
			if downloadErr != nil {
				return downloadErr
			}
			if mkErr := utils.EnsureDir(outputRoot); mkErr != nil {
				return fmt.Errorf("create output folder %q: %w", outputRoot, mkErr)
			}
			targetPath := filepath.Join(outputRoot, artifact.Name)
			if writeErr := utils.WriteFile(targetPath, artifact.Data); writeErr != nil {
				return fmt.Errorf("write %q: %w", targetPath, writeErr)
			}
			if len(artifact.Skipped) > 0 {
				a.logger.Warn("captures skipped for missing media", zap.Strings("ids", artifact.Skipped))
			}
			fmt.Fprintln(cmd.OutOrStdout(), targetPath)
			return nil
		},
	}
	addInputFlags(cmd)
	flags := cmd.Flags()
	flags.StringSlice("id", nil, "Only these capture ids (comma-separated or repeated flag)")
	flags.StringSlice("kind", nil, "Only these kinds: post, memory")
	flags.String("since", "", "Only captures taken at or after this date or timestamp")
	flags.String("until", "", "Only captures taken at or before this date or timestamp")
	flags.StringSliceP("pattern", "p", nil, "Caption terms or raw regexes; repeat -p to AND multiple patterns")
	flags.Bool("video-only", false, "Only captures with a behind-the-scenes video")
	flags.String("mode", string(export.ModeMerged), "primary, secondary, both or merged")
	flags.String("name", "bereal", "Base name of the exported file")
	flags.StringP("output", "o", ".", "Output folder")

	bindKey(flags, "id", keyExportIDs)
	bindKey(flags, "kind", keyExportKinds)
	bindKey(flags, "since", keyExportSince)
	bindKey(flags, "until", keyExportUntil)
	bindKey(flags, "pattern", keyExportPatterns)
	bindKey(flags, "video-only", keyExportVideo)
	bindKey(flags, "mode", keyExportMode)
	bindKey(flags, "name", keyExportName)
	bindKey(flags, "output", keyOutput)
	return cmd
}
