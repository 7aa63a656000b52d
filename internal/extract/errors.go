package extract

import (
	"errors"

	"bereal_explorer/internal/archive"
	"bereal_explorer/internal/eventlog"
)

// Fatal input categories. Any of them aborts Ingest with no partial result.
var (
	ErrMissingInput    = errors.New("both zip and gz files are required")
	ErrFileTooLarge    = errors.New("file size exceeds limit")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrReadFailed      = errors.New("failed to read file")
)

// FriendlyMessage maps an Ingest error to text meant for the person who
// picked the files. Unknown errors pass through unchanged.
func FriendlyMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingInput):
		return "Please select both the BeReal ZIP export and the GZ event log."
	case errors.Is(err, ErrFileTooLarge):
		return "File is too large. Please use files smaller than 500MB."
	case errors.Is(err, ErrInvalidFileType):
		return "Invalid file format. Please select the correct BeReal export files."
	case errors.Is(err, ErrReadFailed):
		return "Failed to read the file. Please try again or select a different file."
	case errors.Is(err, archive.ErrArchiveCorrupt):
		return "The ZIP file appears to be corrupted or invalid. Please try again."
	case errors.Is(err, eventlog.ErrLogDecompression), errors.Is(err, eventlog.ErrMalformedEvent):
		return "The GZ event log appears to be corrupted or invalid. Please try again."
	default:
		return err.Error()
	}
}
