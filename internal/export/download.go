// Package export turns captures and their media into downloadable files:
// a single photo, a pass-through video, a picture-in-picture composite or a
// zip with one folder per capture.
package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bereal_explorer/internal/archive"
	"bereal_explorer/internal/model"
	"bereal_explorer/internal/paths"
	"bereal_explorer/internal/utils"
)

var (
	ErrMissingMedia = errors.New("missing required media for download")
	ErrNoItems      = errors.New("no items to export")
	ErrUnknownMode  = errors.New("unknown download mode")
)

type Mode string

const (
	ModePrimary   Mode = "primary"
	ModeSecondary Mode = "secondary"
	ModeBoth      Mode = "both"
	ModeMerged    Mode = "merged"
)

// ParseMode accepts the mode names case-insensitively.
func ParseMode(raw string) (Mode, error) {
	mode := Mode(utils.ToLowerTrim(raw))
	switch mode {
	case ModePrimary, ModeSecondary, ModeBoth, ModeMerged:
		return mode, nil
	}
	return "", fmt.Errorf("%q: %w", raw, ErrUnknownMode)
}

// File names inside a batch folder.
const (
	videoFileName     = "video.mp4"
	primaryFileName   = "primary.jpg"
	secondaryFileName = "secondary.jpg"
	mergedFileName    = "merged.jpg"
)

// MediaSource resolves canonical paths to bytes; *mediamap.Map is one.
type MediaSource interface {
	Has(path string) bool
	Bytes(path string) ([]byte, error)
}

type Options struct {
	Logger *zap.Logger
	// Location formats batch folder names; nil means UTC.
	Location *time.Location
	// Modified stamps bundle entries; zero means now.
	Modified time.Time
}

// Artifact is one downloadable file.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
	// Skipped lists capture ids left out of a batch for missing media.
	Skipped []string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Modified.IsZero() {
		o.Modified = time.Now()
	}
	return o
}

// Download dispatches one item (except in "both" mode) to Single and
// everything else to Batch.
func Download(ctx context.Context, items []model.Capture, media MediaSource, mode Mode, name string, opts Options) (*Artifact, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if _, modeErr := ParseMode(string(mode)); modeErr != nil {
		return nil, modeErr
	}
	if len(items) == 1 && mode != ModeBoth {
		return Single(items[0], media, mode, name)
	}
	return Batch(ctx, items, media, mode, name, opts)
}

// Single returns one file for item. Missing primary or secondary media is
// an error here, unlike in Batch.
func Single(item model.Capture, media MediaSource, mode Mode, name string) (*Artifact, error) {
	primary, secondary, resolveErr := resolvePair(item, media)
	if resolveErr != nil {
		return nil, resolveErr
	}
	switch mode {
	case ModePrimary:
		return readArtifact(media, primary, name+"-primary.jpg")
	case ModeSecondary:
		return readArtifact(media, secondary, name+"-secondary.jpg")
	case ModeMerged:
		if video, ok := btsVideo(item, media); ok {
			return readArtifact(media, video, name+".mp4")
		}
		merged, mergeErr := mergePair(media, primary, secondary)
		if mergeErr != nil {
			return nil, fmt.Errorf("merge %s: %w", item.CaptureID(), mergeErr)
		}
		return &Artifact{Name: name + "-merged.jpg", ContentType: "image/jpeg", Data: merged}, nil
	case ModeBoth:
		return nil, fmt.Errorf("mode %q needs a bundle: %w", mode, ErrUnknownMode)
	}
	return nil, fmt.Errorf("%q: %w", mode, ErrUnknownMode)
}

// Batch writes one folder per item, named by its capture time, into a zip.
// Items missing primary or secondary media are skipped. Items with a bts
// video get video.mp4 and are never composited.
func Batch(ctx context.Context, items []model.Capture, media MediaSource, mode Mode, name string, opts Options) (*Artifact, error) {
	opts = opts.withDefaults()
	logger := opts.Logger
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	bundle := archive.NewBundle(opts.Modified)
	usedFolderNames := make(map[string]int)
	var skipped []string

	for _, item := range items {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		primary, secondary, resolveErr := resolvePair(item, media)
		if resolveErr != nil {
			logger.Warn("skip capture", zap.String("id", item.CaptureID()), zap.Error(resolveErr))
			skipped = append(skipped, item.CaptureID())
			continue
		}

		baseFolder := utils.FormatFolderStamp(item.TakenAt(), opts.Location)
		if usedFolderNames[baseFolder] > 0 {
			usedFolderNames[baseFolder]++
			baseFolder = fmt.Sprintf("%s_%d", baseFolder, usedFolderNames[baseFolder])
		} else {
			usedFolderNames[baseFolder] = 1
		}

		files := map[string]string{}
		video, hasVideo := btsVideo(item, media)
		if hasVideo {
			files[videoFileName] = video.Path
		}
		if mode == ModePrimary || mode == ModeBoth {
			files[primaryFileName] = primary.Path
		}
		if mode == ModeSecondary || mode == ModeBoth {
			files[secondaryFileName] = secondary.Path
		}
		for _, fileName := range []string{videoFileName, primaryFileName, secondaryFileName} {
			mediaPath, ok := files[fileName]
			if !ok {
				continue
			}
			content, bytesErr := media.Bytes(mediaPath)
			if bytesErr != nil {
				return nil, fmt.Errorf("read %s for %s: %w", mediaPath, item.CaptureID(), bytesErr)
			}
			if addErr := bundle.AddFile(baseFolder+"/"+fileName, content); addErr != nil {
				return nil, addErr
			}
		}

		if mode == ModeMerged && !hasVideo {
			merged, mergeErr := mergePair(media, primary, secondary)
			if mergeErr != nil {
				logger.Warn("skip merged image", zap.String("id", item.CaptureID()), zap.Error(mergeErr))
				continue
			}
			if addErr := bundle.AddFile(baseFolder+"/"+mergedFileName, merged); addErr != nil {
				return nil, addErr
			}
		}
	}

	content, bundleErr := bundle.Bytes()
	if bundleErr != nil {
		return nil, bundleErr
	}
	logger.Info("batch export built",
		zap.String("name", name),
		zap.String("mode", string(mode)),
		zap.Int("items", len(items)),
		zap.Int("skipped", len(skipped)),
		zap.Int("files", bundle.Len()),
	)
	return &Artifact{Name: name + ".zip", ContentType: "application/zip", Data: content, Skipped: skipped}, nil
}

func resolvePair(item model.Capture, media MediaSource) (model.Media, model.Media, error) {
	primary, secondary := item.Primary(), item.Secondary()
	var missing []string
	if primary.IsZero() || !media.Has(primary.Path) {
		missing = append(missing, "primary")
	}
	if secondary.IsZero() || !media.Has(secondary.Path) {
		missing = append(missing, "secondary")
	}
	if len(missing) > 0 {
		return model.Media{}, model.Media{}, fmt.Errorf("%s %s: %w", item.CaptureID(), strings.Join(missing, ", "), ErrMissingMedia)
	}
	return primary, secondary, nil
}

// btsVideo returns the behind-the-scenes media when it is a stored video.
func btsVideo(item model.Capture, media MediaSource) (model.Media, bool) {
	bts, ok := item.BTS()
	if !ok || !media.Has(bts.Path) {
		return model.Media{}, false
	}
	if !bts.IsVideo() && !paths.IsVideo(bts.Path) {
		return model.Media{}, false
	}
	return bts, true
}

func readArtifact(media MediaSource, m model.Media, fileName string) (*Artifact, error) {
	content, bytesErr := media.Bytes(m.Path)
	if bytesErr != nil {
		return nil, fmt.Errorf("read %s: %w", m.Path, bytesErr)
	}
	contentType := m.MIMEType
	if contentType == "" {
		contentType = paths.MIMEType(m.Path)
	}
	return &Artifact{Name: fileName, ContentType: contentType, Data: content}, nil
}

func mergePair(media MediaSource, primary, secondary model.Media) ([]byte, error) {
	primaryBytes, primaryErr := media.Bytes(primary.Path)
	if primaryErr != nil {
		return nil, primaryErr
	}
	secondaryBytes, secondaryErr := media.Bytes(secondary.Path)
	if secondaryErr != nil {
		return nil, secondaryErr
	}
	return Composite(primaryBytes, secondaryBytes)
}
