package tui

import "testing"

func TestLayoutSplitsWindow(t *testing.T) {
	l := newPageLayout()
	l.Update(140, 45)

	if l.documentWidth < minViewportWidth {
		t.Fatalf("document width too small: %d", l.documentWidth)
	}
	if l.sideWidth < minViewportWidth {
		t.Fatalf("side width too small: %d", l.sideWidth)
	}
	if l.documentWidth <= l.sideWidth {
		t.Fatalf("document column should dominate: doc=%d side=%d", l.documentWidth, l.sideWidth)
	}
	total := l.findingsHeight + l.chatHeight + l.contextHeight
	if total > l.documentHeight {
		t.Fatalf("side stack %d taller than document column %d", total, l.documentHeight)
	}
}

func TestLayoutEnforcesMinimums(t *testing.T) {
	l := newPageLayout()
	l.Update(30, 10)

	if l.documentWidth < minViewportWidth || l.sideWidth < minViewportWidth {
		t.Fatalf("tiny window collapsed columns: doc=%d side=%d", l.documentWidth, l.sideWidth)
	}
	if l.findingsHeight < 6 || l.chatHeight < 5 || l.contextHeight < 4 {
		t.Fatalf("tiny window collapsed rows: %+v", l)
	}
}

func TestIndentMultiline(t *testing.T) {
	got := indentMultiline("a\nb", "  ")
	if got != "  a\n  b" {
		t.Fatalf("indentMultiline = %q", got)
	}
}

func TestJoinNonEmptySkipsBlank(t *testing.T) {
	got := joinNonEmpty([]string{"a", "   ", "", "b"})
	if got != "a\n\nb" {
		t.Fatalf("joinNonEmpty = %q", got)
	}
}
