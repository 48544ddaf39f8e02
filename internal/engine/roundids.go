package engine

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// NormalizeRoundIDs returns the sorted, de-duplicated set of positive ids.
// The result is never nil.
func NormalizeRoundIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// ParseRoundIDs parses textual round ids. Each argument may hold several
// comma-separated ids; blank entries are skipped.
func ParseRoundIDs(args []string) ([]int64, error) {
	var ids []int64
	for _, arg := range args {
		for _, field := range strings.Split(arg, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			id, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid round id %q: %w", field, err)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// cacheKey renders a normalized id set as a stable map key.
func cacheKey(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
