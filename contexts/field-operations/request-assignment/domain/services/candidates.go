package services

import "strings"

// NormalizeCandidates trims, drops blanks and de-duplicates provider ids while
// keeping first-seen order.
func NormalizeCandidates(providerIDs []string) []string {
	seen := make(map[string]struct{}, len(providerIDs))
	result := make([]string, 0, len(providerIDs))
	for _, id := range providerIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// ExcludeCandidates returns candidates minus excluded, preserving order.
func ExcludeCandidates(candidates []string, excluded []string) []string {
	if len(excluded) == 0 {
		return append([]string(nil), candidates...)
	}
	blocked := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		blocked[id] = struct{}{}
	}
	result := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if _, ok := blocked[id]; ok {
			continue
		}
		result = append(result, id)
	}
	return result
}
