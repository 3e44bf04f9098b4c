// Package strings normalizes free-text lists entered by members.
package strings

import (
	"strings"
)

// DedupeFold trims each value, drops empties and removes case-insensitive
// duplicates. The first spelling of each value wins and order is preserved.
func DedupeFold(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// NormalizeList splits raw on commas, applies DedupeFold and joins the result
// with ", ".
//
//	NormalizeList(" chess,Go , chess,,  go") // "chess, Go"
func NormalizeList(raw string) string {
	return strings.Join(DedupeFold(strings.Split(raw, ",")), ", ")
}
