// Package stitch merges artifact records that are fragments of one
// logical artifact split across conversation messages.
//
// Records sharing a group key (title and type, plus language for code)
// form a series. Code series are concatenated oldest first; non-code
// series keep only the most recent member, because concatenating
// markup is not generally safe. Stitching is idempotent: a list with
// no duplicate keys passes through unchanged.
package stitch

import (
	"sort"
	"strings"

	"github.com/koopa0/artivault/internal/artifact"
)

// seriesSeparator joins consecutive code fragments with one blank line.
const seriesSeparator = "\n\n"

// Stitch returns a new list in which every duplicate-key group has
// been merged into a single record. First-seen key order is preserved;
// singleton groups pass through verbatim. Input records are never
// mutated.
func Stitch(in []artifact.Artifact) []artifact.Artifact {
	if len(in) == 0 {
		return in
	}

	groups := make(map[artifact.Key][]artifact.Artifact, len(in))
	var order []artifact.Key
	for _, a := range in {
		k := a.GroupKey()
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], a)
	}

	// All keys distinct: return the input unchanged, same backing order
	// and content. This is what makes Stitch idempotent.
	if len(order) == len(in) {
		return in
	}

	out := make([]artifact.Artifact, 0, len(order))
	for _, k := range order {
		out = append(out, merge(groups[k]))
	}
	return out
}

// merge collapses one group into a single record.
func merge(group []artifact.Artifact) artifact.Artifact {
	if len(group) == 1 {
		return group[0]
	}

	// Ties keep extraction order: fragments in one batch share a stamp.
	sorted := make([]artifact.Artifact, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	if sorted[0].Type != artifact.TypeCode {
		// Conservative policy for markup types: keep the latest member.
		return sorted[len(sorted)-1]
	}

	parts := make([]string, len(sorted))
	for i, a := range sorted {
		parts[i] = a.Content
	}

	merged := sorted[0]
	merged.Content = strings.Join(parts, seriesSeparator)
	merged.Series = &artifact.SeriesInfo{
		PartOfSeries: true,
		Position:     1,
		Total:        len(sorted),
	}
	return merged
}
