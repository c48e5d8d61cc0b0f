package finding

import "testing"

func sample() []Finding {
	return []Finding{
		{Type: Violation, Title: "Missing retention clause", Location: Location{PageNumber: 2, ExactQuote: "data is kept indefinitely"}},
		{Type: Compliance, Title: "Erasure honored", Location: Location{PageNumber: 1, ExactQuote: "deleted within 30 days"}},
		{Type: Violation, Title: "No DPO contact", Location: Location{PageNumber: 2, ExactQuote: "contact us"}},
	}
}

func TestReplaceAllCopiesInput(t *testing.T) {
	s := NewStore()
	in := sample()
	s.ReplaceAll(in)
	in[0].Title = "mutated"
	if got := s.All()[0].Title; got != "Missing retention clause" {
		t.Fatalf("store aliased caller slice, got %q", got)
	}
}

func TestByPagePreservesOrder(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sample())
	page2 := s.ByPage(2)
	if len(page2) != 2 {
		t.Fatalf("expected 2 findings on page 2, got %d", len(page2))
	}
	if page2[0].Title != "Missing retention clause" || page2[1].Title != "No DPO contact" {
		t.Fatalf("page 2 order wrong: %q, %q", page2[0].Title, page2[1].Title)
	}
	if got := s.ByPage(5); got != nil {
		t.Fatalf("expected no findings on page 5, got %d", len(got))
	}
}

func TestReplaceAllSwapsWholeSet(t *testing.T) {
	s := NewStore()
	s.ReplaceAll(sample())
	s.ReplaceAll([]Finding{{Type: Compliance, Title: "only one", Location: Location{PageNumber: 3}}})
	if s.Len() != 1 {
		t.Fatalf("expected 1 finding after swap, got %d", s.Len())
	}
	if len(s.ByPage(2)) != 0 {
		t.Fatalf("old page index survived swap")
	}
	s.ReplaceAll(nil)
	if s.Len() != 0 {
		t.Fatalf("expected empty store after nil swap, got %d", s.Len())
	}
}

func TestCounts(t *testing.T) {
	s := NewStore()
	if c := s.Counts(); c.Violations != 0 || c.Compliant != 0 {
		t.Fatalf("empty store counts = %+v", c)
	}
	s.ReplaceAll(sample())
	c := s.Counts()
	if c.Violations != 2 || c.Compliant != 1 {
		t.Fatalf("counts = %+v, want 2 violations / 1 compliant", c)
	}
}
