package utils

import "strings"

// StringValue reads a string member from a decoded JSON object.
func StringValue(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// DedupeAndTrim removes duplicates and blanks from values, trimming whitespace.
// Order is preserved.
func DedupeAndTrim(values ...[]string) []string {
	seen := make(map[string]struct{})
	result := make([]string, 0)
	for _, list := range values {
		for _, v := range list {
			trimmed := strings.TrimSpace(v)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[trimmed]; !ok {
				seen[trimmed] = struct{}{}
				result = append(result, trimmed)
			}
		}
	}
	return result
}
