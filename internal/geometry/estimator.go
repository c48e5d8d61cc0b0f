// Package geometry estimates page-space bounding boxes for findings whose
// location carries no server-supplied box. Estimation is deterministic: the
// same finding at the same ordinal on the same page always yields the same box.
package geometry

import "policyproof/internal/finding"

// Layout constants in page-pixel units, top-left origin.
const (
	// Margin is the assumed printable margin on every edge (one inch at 72dpi).
	Margin = 72
	// RowHeight is the height of an estimated highlight row.
	RowHeight = 16
	// RowGap separates stacked highlights so overlapping estimates stay readable.
	RowGap = 24
	// CharWidth approximates the advance width of one character of body text.
	CharWidth = 7
)

// BoundingBoxFor returns the box to draw for f on its page. A box supplied by
// the analysis service always wins. Otherwise the box is estimated from the
// finding's ordinal position among the findings of that page: boxes stack
// downward from the top margin, and the width follows the quote length clamped
// to the printable width. The result is clamped to stay inside the page.
func BoundingBoxFor(f finding.Finding, ordinalOnPage int, pageWidth, pageHeight float64) finding.BoundingBox {
	if b := f.Location.BoundingBox; b != nil {
		return *b
	}

	y := float64(Margin + ordinalOnPage*(RowHeight+RowGap))
	if max := pageHeight - Margin - RowHeight; max > Margin && y > max {
		y = max
	}

	width := float64(len(f.Location.ExactQuote) * CharWidth)
	if maxWidth := pageWidth - 2*Margin; width > maxWidth {
		width = maxWidth
	}
	if width < CharWidth {
		width = CharWidth
	}

	return finding.BoundingBox{
		X:      Margin,
		Y:      y,
		Width:  width,
		Height: RowHeight,
	}
}
