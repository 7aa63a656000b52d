// Package paths canonicalizes media paths found in export JSON and archive
// entry names so that both resolve to the same media map key.
package paths

import (
	"mime"
	"path"
	"regexp"
	"strings"
)

var reOpaqueSegment = regexp.MustCompile(`^[A-Za-z0-9]{20,}$`)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".m4v":  {},
	".webm": {},
}

// Normalize strips leading separators and removes the storage bucket
// identifier the exporter injects between the logical folder and the file
// name, e.g. "/Photos/AbCd...XyZ/post/x.webp" -> "Photos/post/x.webp".
// Normalize is idempotent.
func Normalize(rawPath string) string {
	cleaned := strings.TrimLeft(rawPath, "/")
	if cleaned == "" {
		return ""
	}
	segments := strings.Split(cleaned, "/")
	for len(segments) > 2 && reOpaqueSegment.MatchString(segments[1]) {
		segments = append(segments[:1], segments[2:]...)
	}
	return strings.Join(segments, "/")
}

// IsVideo reports whether the path carries a known video extension.
func IsVideo(mediaPath string) bool {
	_, ok := videoExtensions[strings.ToLower(path.Ext(mediaPath))]
	return ok
}

// MediaType infers "image" or "video" from the path extension.
func MediaType(mediaPath string) string {
	if IsVideo(mediaPath) {
		return "video"
	}
	return "image"
}

var knownMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".m4v":  "video/x-m4v",
	".webm": "video/webm",
	".json": "application/json",
}

// MIMEType returns the content type for the path extension, or
// application/octet-stream when none is known.
func MIMEType(mediaPath string) string {
	ext := strings.ToLower(path.Ext(mediaPath))
	if ct, ok := knownMIMETypes[ext]; ok {
		return ct
	}
	if ext != "" {
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
	}
	return "application/octet-stream"
}
