package utils

import "strings"

// NormalizeGZShorthand rewrites the two-letter "-gz" flag to "--log"; pflag
// only accepts single-character shorthands.
func NormalizeGZShorthand(args []string) []string {
	output := make([]string, 0, len(args))
	for _, original := range args {
		if original == "-gz" {
			output = append(output, "--log")
			continue
		}
		if strings.HasPrefix(original, "-gz=") {
			output = append(output, "--log="+original[len("-gz="):])
			continue
		}
		output = append(output, original)
	}
	return output
}
