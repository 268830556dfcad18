package transform

import (
	"sort"
	"strings"
)

// NormalizeText collapses internal whitespace runs to single spaces and
// trims the ends. Normalization is part of stable-key input for sources
// that key on composite natural fields, so it must stay deterministic.
func NormalizeText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// NormalizeTags lowercases, normalizes, deduplicates, and sorts a tag
// list. Empty tags are discarded.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		normalized := strings.ToLower(NormalizeText(tag))
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	sort.Strings(out)
	return out
}
