package finding

// Store holds the findings for the active document. ReplaceAll is the only
// mutator; re-analysis swaps the whole set atomically. Queries never mutate
// and preserve the order the analysis service returned, which matters because
// the geometry estimator stacks findings by their ordinal position on a page.
type Store struct {
	findings []Finding
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// ReplaceAll swaps the current set for a copy of the given findings.
func (s *Store) ReplaceAll(findings []Finding) {
	s.findings = append([]Finding(nil), findings...)
}

// ByPage returns the findings located on the given 1-based page, in their
// original relative order.
func (s *Store) ByPage(pageNumber int) []Finding {
	var result []Finding
	for _, f := range s.findings {
		if f.Location.PageNumber == pageNumber {
			result = append(result, f)
		}
	}
	return result
}

// All returns a copy of the current set.
func (s *Store) All() []Finding {
	return append([]Finding(nil), s.findings...)
}

// Len reports the number of findings currently held.
func (s *Store) Len() int {
	return len(s.findings)
}

// Counts tallies violations and compliant findings in the current set.
func (s *Store) Counts() Counts {
	var c Counts
	for _, f := range s.findings {
		switch f.Type {
		case Violation:
			c.Violations++
		case Compliance:
			c.Compliant++
		}
	}
	return c
}
