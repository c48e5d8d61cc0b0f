package geometry

import (
	"testing"

	"policyproof/internal/finding"
)

func TestServerBoxWins(t *testing.T) {
	f := finding.Finding{Location: finding.Location{
		ExactQuote:  "some quoted text",
		BoundingBox: &finding.BoundingBox{X: 100, Y: 200, Width: 50, Height: 12},
	}}
	got := BoundingBoxFor(f, 3, 612, 792)
	if got.X != 100 || got.Y != 200 || got.Width != 50 || got.Height != 12 {
		t.Fatalf("server-supplied box not preserved: %+v", got)
	}
}

func TestEstimateIsDeterministic(t *testing.T) {
	f := finding.Finding{Location: finding.Location{ExactQuote: "data is retained indefinitely"}}
	a := BoundingBoxFor(f, 2, 612, 792)
	b := BoundingBoxFor(f, 2, 612, 792)
	if a != b {
		t.Fatalf("same inputs yielded different boxes: %+v vs %+v", a, b)
	}
}

func TestEstimateStacksByOrdinal(t *testing.T) {
	f := finding.Finding{Location: finding.Location{ExactQuote: "short"}}
	first := BoundingBoxFor(f, 0, 612, 792)
	second := BoundingBoxFor(f, 1, 612, 792)
	if first.Y != Margin {
		t.Fatalf("ordinal 0 should start at the margin, got y=%v", first.Y)
	}
	if want := first.Y + RowHeight + RowGap; second.Y != want {
		t.Fatalf("ordinal 1 y=%v, want %v", second.Y, want)
	}
}

func TestEstimateClampsWidthToPrintableArea(t *testing.T) {
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	f := finding.Finding{Location: finding.Location{ExactQuote: string(long)}}
	got := BoundingBoxFor(f, 0, 612, 792)
	if want := 612.0 - 2*Margin; got.Width != want {
		t.Fatalf("width=%v, want clamp to %v", got.Width, want)
	}
}

func TestEstimateClampsYToPage(t *testing.T) {
	f := finding.Finding{Location: finding.Location{ExactQuote: "deep on the page"}}
	got := BoundingBoxFor(f, 50, 612, 792)
	if got.Y+got.Height > 792-Margin {
		t.Fatalf("box escapes the bottom margin: y=%v h=%v", got.Y, got.Height)
	}
}

func TestEmptyQuoteStillVisible(t *testing.T) {
	f := finding.Finding{Location: finding.Location{ExactQuote: ""}}
	got := BoundingBoxFor(f, 0, 612, 792)
	if got.Width < CharWidth {
		t.Fatalf("empty quote produced invisible box: %+v", got)
	}
}
