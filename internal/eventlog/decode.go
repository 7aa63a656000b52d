// Package eventlog decodes the gzip-compressed, newline-delimited JSON event
// log that accompanies a BeReal export.
package eventlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"bereal_explorer/internal/model"
)

var (
	// ErrLogDecompression is returned when the stream is not valid gzip.
	ErrLogDecompression = errors.New("event log decompression failed")
	// ErrMalformedEvent is returned for a line that is not a JSON document.
	// One bad line fails the whole log.
	ErrMalformedEvent = errors.New("malformed event log line")
)

// Decode decompresses data and parses one event per non-blank line.
func Decode(data []byte) ([]model.AnalyticsEvent, error) {
	return DecodeReader(bytes.NewReader(data))
}

// DecodeReader is Decode over a stream.
func DecodeReader(r io.Reader) ([]model.AnalyticsEvent, error) {
	gzReader, gzErr := gzip.NewReader(r)
	if gzErr != nil {
		return nil, fmt.Errorf("open gzip: %w: %w", ErrLogDecompression, gzErr)
	}
	defer gzReader.Close()

	events := make([]model.AnalyticsEvent, 0)
	lineReader := bufio.NewReader(gzReader)
	lineNumber := 0
	for {
		line, readErr := lineReader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("decompress line %d: %w: %w", lineNumber+1, ErrLogDecompression, readErr)
		}
		if len(line) > 0 {
			lineNumber++
			trimmed := bytes.TrimSpace(line)
			if len(trimmed) > 0 {
				var event model.AnalyticsEvent
				if unmarshalErr := json.Unmarshal(trimmed, &event); unmarshalErr != nil {
					return nil, fmt.Errorf("parse line %d: %w: %w", lineNumber, ErrMalformedEvent, unmarshalErr)
				}
				events = append(events, event)
			}
		}
		if readErr != nil {
			return events, nil
		}
	}
}
