// Package filters selects the captures an export should include.
package filters

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"bereal_explorer/internal/model"
	"bereal_explorer/internal/utils"
)

// Criteria are ANDed together; zero values match everything.
type Criteria struct {
	IDs   []string
	Kinds []string
	Since time.Time
	Until time.Time
	// Patterns must all match the caption; plain text is a case-insensitive
	// literal, anything regex-looking is compiled as is.
	Patterns     []string
	RequireVideo bool
}

// NormalizeKindName canonicalizes the kind names accepted on the command line.
func NormalizeKindName(name string) string {
	n := utils.ToLowerTrim(name)
	switch n {
	case "post", "posts", "bereal", "bereals":
		return string(model.KindPost)
	case "memory", "memories":
		return string(model.KindMemory)
	default:
		return n
	}
}

// HasAnyDesired returns true if any desired key is present in the found set.
func HasAnyDesired(found map[string]struct{}, desired []string, normalizer func(string) string) bool {
	if len(desired) == 0 {
		return true
	}
	for _, value := range desired {
		if _, ok := found[normalizer(value)]; ok {
			return true
		}
	}
	return false
}

// Select returns the captures of data matching c, posts first, in source order.
func Select(data *model.BeRealData, c Criteria) ([]model.Capture, error) {
	if data == nil {
		return nil, nil
	}
	compiled, compileErr := utils.CompileUserPatterns(c.Patterns)
	if compileErr != nil {
		return nil, fmt.Errorf("invalid pattern: %w", compileErr)
	}
	ids := make(map[string]struct{}, len(c.IDs))
	for _, id := range c.IDs {
		ids[strings.TrimSpace(id)] = struct{}{}
	}

	var selected []model.Capture
	for _, capture := range data.Captures() {
		if len(ids) > 0 {
			if _, ok := ids[capture.CaptureID()]; !ok {
				continue
			}
		}
		kind := map[string]struct{}{string(capture.Kind()): {}}
		if !HasAnyDesired(kind, c.Kinds, NormalizeKindName) {
			continue
		}
		if !inRange(capture.TakenAt(), c.Since, c.Until) {
			continue
		}
		if !matchesAll(compiled, capture.Caption()) {
			continue
		}
		if c.RequireVideo && !hasVideo(capture) {
			continue
		}
		selected = append(selected, capture)
	}
	return selected, nil
}

func inRange(taken, since, until time.Time) bool {
	if !since.IsZero() && taken.Before(since) {
		return false
	}
	if !until.IsZero() && taken.After(until) {
		return false
	}
	return true
}

func matchesAll(compiled []*regexp.Regexp, caption string) bool {
	for _, re := range compiled {
		if !re.MatchString(caption) {
			return false
		}
	}
	return true
}

func hasVideo(capture model.Capture) bool {
	bts, ok := capture.BTS()
	return ok && bts.IsVideo()
}

// BuildNoMatchError creates a precise error when nothing matched.
func BuildNoMatchError(c Criteria) error {
	var parts []string
	if len(c.IDs) > 0 {
		parts = append(parts, fmt.Sprintf("id(s) %q", strings.Join(c.IDs, ",")))
	}
	if len(c.Kinds) > 0 {
		parts = append(parts, fmt.Sprintf("kind(s) %q", strings.Join(c.Kinds, ",")))
	}
	if !c.Since.IsZero() {
		parts = append(parts, "taken since "+c.Since.Format(time.RFC3339))
	}
	if !c.Until.IsZero() {
		parts = append(parts, "taken until "+c.Until.Format(time.RFC3339))
	}
	if len(c.Patterns) > 0 {
		parts = append(parts, fmt.Sprintf("caption patterns [%s]", strings.Join(c.Patterns, ", ")))
	}
	if c.RequireVideo {
		parts = append(parts, "a behind-the-scenes video")
	}
	if len(parts) == 0 {
		return errors.New("no captures found in export")
	}
	return fmt.Errorf("no captures matched %s", strings.Join(parts, " with "))
}
