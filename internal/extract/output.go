package extract

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"bereal_explorer/internal/utils"
)

const (
	DataFileName     = "data.json"
	WarningsFileName = "warnings.json"
	MediaFolderName  = "media"
)

// WriteOutput materializes a session under outputRoot: the aggregate as
// data.json, the warnings list and every blob under media/<canonical path>.
// A blob that cannot be written is logged and skipped. It returns the number
// of blobs written.
func WriteOutput(result *Result, outputRoot string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	absoluteOutputRoot, absErr := filepath.Abs(outputRoot)
	if absErr != nil {
		return 0, fmt.Errorf("resolve output folder: %w", absErr)
	}
	if mkErr := utils.EnsureDir(absoluteOutputRoot); mkErr != nil {
		return 0, fmt.Errorf("create output folder %q: %w", absoluteOutputRoot, mkErr)
	}

	dataPath := filepath.Join(absoluteOutputRoot, DataFileName)
	if writeErr := utils.WritePrettyJSON(dataPath, result.Data); writeErr != nil {
		return 0, fmt.Errorf("write %s: %w", DataFileName, writeErr)
	}
	warningsPath := filepath.Join(absoluteOutputRoot, WarningsFileName)
	if writeErr := utils.WritePrettyJSON(warningsPath, result.Warnings); writeErr != nil {
		return 0, fmt.Errorf("write %s: %w", WarningsFileName, writeErr)
	}

	written := 0
	mediaRoot := filepath.Join(absoluteOutputRoot, MediaFolderName)
	for _, mediaPath := range result.Media.Paths() {
		content, bytesErr := result.Media.Bytes(mediaPath)
		if bytesErr != nil {
			return written, fmt.Errorf("media %q: %w", mediaPath, bytesErr)
		}
		targetPath := filepath.Join(mediaRoot, filepath.FromSlash(mediaPath))
		if !withinRoot(mediaRoot, targetPath) {
			logger.Warn("skip media outside output folder", zap.String("path", mediaPath))
			continue
		}
		if writeErr := utils.WriteFile(targetPath, content); writeErr != nil {
			logger.Error("write media file", zap.String("archivePath", mediaPath), zap.String("targetPath", targetPath), zap.Error(writeErr))
			continue
		}
		written++
	}
	utils.PrintLine(absoluteOutputRoot + string(filepath.Separator))
	return written, nil
}

func withinRoot(root, target string) bool {
	relative, relErr := filepath.Rel(root, target)
	if relErr != nil {
		return false
	}
	return relative != ".." && !filepath.IsAbs(relative) && !hasParentPrefix(relative)
}

func hasParentPrefix(relative string) bool {
	return len(relative) >= 3 && relative[:3] == ".."+string(filepath.Separator)
}
