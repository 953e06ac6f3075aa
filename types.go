package pdfdocx

import (
	"math"
	"strings"
)

// Rect represents a bounding box in page coordinates.
// Y increases downward (origin top-left, after conversion from PDF coordinates).
type Rect struct {
	X0 float64 // Left
	Y0 float64 // Top
	X1 float64 // Right
	Y1 float64 // Bottom
}

// Width returns the width of the rectangle.
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the height of the rectangle.
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// CenterY returns the vertical center of the rectangle.
func (r Rect) CenterY() float64 {
	return (r.Y0 + r.Y1) / 2
}

// TextFragment is a contiguous run of text reported by the extraction layer,
// with its bounding box and font metadata. Fragments are immutable once
// produced and are consumed only by the reflow reconstructor.
type TextFragment struct {
	Text     string
	Box      Rect
	FontName string
	FontSize float64
}

// hasValidPosition reports whether the fragment carries usable coordinates.
// Fragments with NaN coordinates are still emitted, but placed last.
func (f TextFragment) hasValidPosition() bool {
	return !math.IsNaN(f.Box.X0) && !math.IsNaN(f.Box.Y0) &&
		!math.IsNaN(f.Box.X1) && !math.IsNaN(f.Box.Y1)
}

// Line is an ordered sequence of fragments judged to lie on the same
// horizontal band. Fragment order within a line is always left-to-right.
type Line struct {
	Fragments []TextFragment
	Box       Rect
	// RefY is the band's reference y-coordinate used during the sweep.
	RefY float64
}

// Text renders the line as a single string with spacing heuristics applied.
func (l Line) Text(gapThreshold float64) string {
	var b strings.Builder
	for i, frag := range l.Fragments {
		if i > 0 && needsSpace(l.Fragments[i-1], frag, gapThreshold) {
			b.WriteByte(' ')
		}
		b.WriteString(frag.Text)
	}
	return b.String()
}

// ReflowedPage is the reconstructor's output: lines in reading order plus
// any warnings recorded for malformed fragments. It carries no cross-page
// references, so pages can be processed independently.
type ReflowedPage struct {
	Lines    []Line
	Warnings []string
}

// Text renders the whole page, one reconstructed line per row.
func (p ReflowedPage) Text(gapThreshold float64) string {
	parts := make([]string, 0, len(p.Lines))
	for _, line := range p.Lines {
		parts = append(parts, line.Text(gapThreshold))
	}
	return strings.Join(parts, "\n")
}

// PageImage is an embedded image extracted from a page, re-encoded as PNG,
// with its page-relative bounds.
type PageImage struct {
	Name   string
	Data   []byte // PNG-encoded
	Box    Rect
	Width  int // pixels
	Height int // pixels
}

// PageContent is everything extracted from a single PDF page before reflow.
type PageContent struct {
	Number    int // 1-based page number
	Width     float64
	Height    float64
	Fragments []TextFragment
	Images    []PageImage
}

// Document represents the complete extracted document.
type Document struct {
	Pages []PageContent
}
