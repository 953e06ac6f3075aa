package pdfdocx

import (
	"fmt"
	"math"
	"sort"
	"unicode"
)

// ReflowConfig controls reading-order reconstruction behavior.
type ReflowConfig struct {
	// LineTolerance is the vertical band, in points, within which fragments
	// are judged to lie on the same line. A value of 0 derives the tolerance
	// from the median fragment height of the page.
	LineTolerance float64

	// SpaceGapThreshold is the horizontal gap, in points, above which a
	// space is always inserted between adjacent fragments.
	SpaceGapThreshold float64
}

// DefaultReflowConfig returns the default reflow configuration.
func DefaultReflowConfig() ReflowConfig {
	return ReflowConfig{
		LineTolerance:     0, // derived per page
		SpaceGapThreshold: 1.0,
	}
}

// minJoinGap is the smallest positive gap, in points, still treated as a
// word-internal split. Gaps at or above it get a space when neither side
// already carries whitespace.
const minJoinGap = 0.3

// ReflowPage reconstructs reading order for the fragments of a single page:
// top-to-bottom lines, left-to-right fragments within each line, with
// inter-fragment spacing restored. It is a pure function of its inputs and
// its output is invariant under permutation of the fragment set.
//
// An empty fragment set yields an empty page, not an error. Fragments with
// NaN coordinates are placed on a trailing line and recorded as warnings
// rather than dropped.
func ReflowPage(fragments []TextFragment, config ReflowConfig) ReflowedPage {
	if len(fragments) == 0 {
		return ReflowedPage{}
	}

	var warnings []string
	valid := make([]TextFragment, 0, len(fragments))
	var malformed []TextFragment

	for _, frag := range fragments {
		if !frag.hasValidPosition() {
			malformed = append(malformed, frag)
			warnings = append(warnings, fmt.Sprintf("fragment %q has unusable coordinates, placed last", frag.Text))
			continue
		}
		if frag.Box.Width() <= 0 || frag.Box.Height() <= 0 {
			warnings = append(warnings, fmt.Sprintf("fragment %q has a degenerate bounding box", frag.Text))
		}
		valid = append(valid, frag)
	}

	tolerance := config.LineTolerance
	if tolerance <= 0 {
		tolerance = deriveLineTolerance(valid)
	}

	// Deterministic total order: y ascending (y grows down the page), then
	// x, then text. The text tie-break makes the result independent of the
	// input permutation even for coincident fragments.
	sorted := make([]TextFragment, len(valid))
	copy(sorted, valid)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Box.Y0 != sorted[j].Box.Y0 {
			return sorted[i].Box.Y0 < sorted[j].Box.Y0
		}
		if sorted[i].Box.X0 != sorted[j].Box.X0 {
			return sorted[i].Box.X0 < sorted[j].Box.X0
		}
		return sorted[i].Text < sorted[j].Text
	})

	// Single sweep: a fragment joins the current line while its y lies
	// within tolerance of the line's reference y, else it starts a new line.
	var lines []Line
	var current []TextFragment
	var refY float64
	var lineBox Rect

	flush := func() {
		if len(current) == 0 {
			return
		}
		sortLineFragments(current)
		lines = append(lines, Line{Fragments: current, Box: lineBox, RefY: refY})
		current = nil
	}

	for _, frag := range sorted {
		if len(current) == 0 {
			current = []TextFragment{frag}
			refY = frag.Box.Y0
			lineBox = frag.Box
			continue
		}
		if math.Abs(frag.Box.Y0-refY) <= tolerance {
			current = append(current, frag)
			lineBox.X0 = math.Min(lineBox.X0, frag.Box.X0)
			lineBox.Y0 = math.Min(lineBox.Y0, frag.Box.Y0)
			lineBox.X1 = math.Max(lineBox.X1, frag.Box.X1)
			lineBox.Y1 = math.Max(lineBox.Y1, frag.Box.Y1)
			continue
		}
		flush()
		current = []TextFragment{frag}
		refY = frag.Box.Y0
		lineBox = frag.Box
	}
	flush()

	if len(malformed) > 0 {
		// Best-effort placement: deterministic order, after all located text.
		sort.SliceStable(malformed, func(i, j int) bool {
			return malformed[i].Text < malformed[j].Text
		})
		lines = append(lines, Line{Fragments: malformed, RefY: math.Inf(1)})
	}

	return ReflowedPage{Lines: lines, Warnings: warnings}
}

// sortLineFragments orders fragments within a line left-to-right.
func sortLineFragments(fragments []TextFragment) {
	sort.SliceStable(fragments, func(i, j int) bool {
		if fragments[i].Box.X0 != fragments[j].Box.X0 {
			return fragments[i].Box.X0 < fragments[j].Box.X0
		}
		return fragments[i].Text < fragments[j].Text
	})
}

// needsSpace decides whether a space goes between two adjacent fragments on
// the same line. Overlapping fragments (negative gap) are sub-glyph pieces
// of one word and are never separated.
func needsSpace(prev, next TextFragment, threshold float64) bool {
	gap := next.Box.X0 - prev.Box.X1
	if math.IsNaN(gap) || gap < 0 {
		return false
	}
	if gap > threshold {
		return true
	}
	if endsWithSpace(prev.Text) || startsWithSpace(next.Text) {
		return false
	}
	return gap >= minJoinGap
}

func endsWithSpace(s string) bool {
	runes := []rune(s)
	return len(runes) > 0 && unicode.IsSpace(runes[len(runes)-1])
}

func startsWithSpace(s string) bool {
	runes := []rune(s)
	return len(runes) > 0 && unicode.IsSpace(runes[0])
}

// deriveLineTolerance picks a vertical tolerance from the page's typical
// line height: a quarter of the median fragment height, clamped to 1.5-4pt.
func deriveLineTolerance(fragments []TextFragment) float64 {
	if len(fragments) == 0 {
		return 2.5
	}
	heights := make([]float64, 0, len(fragments))
	for _, frag := range fragments {
		if h := frag.Box.Height(); h > 0 {
			heights = append(heights, h)
		}
	}
	if len(heights) == 0 {
		return 2.5
	}
	return clamp(calculateMedian(heights)*0.25, 1.5, 4.0)
}
