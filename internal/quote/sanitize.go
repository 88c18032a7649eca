package quote

import "strings"

// SanitizeStandardOptions removes every "nan" substring from each entry,
// trims it, and drops entries left empty. Order and duplicates are kept.
//
// Unlike CleanDescription this is a substring rule, so "Coolant nan system"
// becomes "Coolant  system" (two spaces) and words containing "nan" lose it.
func SanitizeStandardOptions(opts []string) []string {
	cleaned := make([]string, 0, len(opts))
	for _, opt := range opts {
		text := strings.TrimSpace(strings.ReplaceAll(opt, "nan", ""))
		if text != "" {
			cleaned = append(cleaned, text)
		}
	}
	return cleaned
}
