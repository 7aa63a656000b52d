package utils

import (
	"regexp"
	"strings"
)

func CompileUserPattern(user string) (*regexp.Regexp, error) {
	if looksLikeRegex(user) {
		return regexp.Compile(user)
	}
	// plain string => case-insensitive literal
	return regexp.Compile("(?i)" + regexp.QuoteMeta(user))
}

// CompileUserPatterns compiles every pattern, stopping at the first error.
func CompileUserPatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, patternText := range patterns {
		re, err := CompileUserPattern(patternText)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func looksLikeRegex(s string) bool {
	if strings.HasPrefix(s, "(?") {
		return true
	}
	if strings.ContainsAny(s, `[]()|+\^$\\`) {
		return true
	}
	if strings.Contains(s, "?=") || strings.Contains(s, "?<=") || strings.Contains(s, "?!") {
		return true
	}
	return false
}

func ToLowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SplitCSV flattens repeated and comma-separated flag values.
func SplitCSV(values []string) []string {
	out := make([]string, 0, len(values))
	for _, raw := range values {
		for _, piece := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(piece)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
