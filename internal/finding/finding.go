// Package finding holds the immutable compliance findings produced by
// document analysis and a page-keyed store over the current set.
package finding

// Type classifies a finding as an error (red) or a confirmation (green).
type Type string

const (
	Violation  Type = "VIOLATION"
	Compliance Type = "COMPLIANCE"
)

// BoundingBox locates a highlight on a page, in page-pixel units with the
// origin at the top-left corner.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Location ties a finding to a page and the exact text it concerns. The
// bounding box is optional; the analysis service rarely supplies one.
type Location struct {
	PageNumber  int          `json:"page_number"`
	ExactQuote  string       `json:"exact_quote"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
}

// Finding is one compliance violation or confirmation. Findings are never
// mutated after creation; re-analysis replaces the whole set.
type Finding struct {
	Type            Type     `json:"type"`
	Title           string   `json:"title"`
	Section         string   `json:"section"`
	Message         string   `json:"message"`
	PolicyReference string   `json:"policy_reference,omitempty"`
	Location        Location `json:"location_metadata"`
}

// Counts tallies the current set for the findings panel header.
type Counts struct {
	Violations int
	Compliant  int
}
