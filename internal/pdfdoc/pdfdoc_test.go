package pdfdoc

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// minimalPDF builds a one-page PDF whose MediaBox lives on the page tree
// node, so PageSize has to walk the Parent chain. Offsets in the xref table
// are computed while writing, keeping the fixture valid byte-for-byte.
func minimalPDF(mediaBox string) []byte {
	var b strings.Builder
	offsets := make([]int, 4)

	b.WriteString("%PDF-1.4\n")

	writeObj := func(num int, body string) {
		offsets[num] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	pagesDict := "<< /Type /Pages /Kids [3 0 R] /Count 1"
	if mediaBox != "" {
		pagesDict += " /MediaBox " + mediaBox
	}
	pagesDict += " >>"

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, pagesDict)
	writeObj(3, "<< /Type /Page /Parent 2 0 R >>")

	xrefPos := b.Len()
	b.WriteString("xref\n0 4\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i < 4; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefPos)
	return []byte(b.String())
}

func TestOpenRejectsEmptyAndGarbage(t *testing.T) {
	if _, err := Open(nil, "empty.pdf"); err == nil {
		t.Fatalf("expected error for empty input")
	}
	if _, err := Open([]byte("this is not a pdf"), "garbage.pdf"); err == nil {
		t.Fatalf("expected error for non-PDF input")
	}
}

func TestOpenMinimalDocument(t *testing.T) {
	doc, err := Open(minimalPDF("[0 0 300 500]"), "mini.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if doc.Name() != "mini.pdf" {
		t.Fatalf("name = %q", doc.Name())
	}
	if doc.PageCount() != 1 {
		t.Fatalf("page count = %d", doc.PageCount())
	}
}

func TestPageSizeInheritedFromPageTree(t *testing.T) {
	doc, err := Open(minimalPDF("[0 0 300 500]"), "mini.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	w, h := doc.PageSize(1)
	if w != 300 || h != 500 {
		t.Fatalf("page size = %vx%v, want 300x500", w, h)
	}
}

func TestPageSizeDefaults(t *testing.T) {
	doc, err := Open(minimalPDF(""), "nomediabox.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if w, h := doc.PageSize(1); w != DefaultPageWidth || h != DefaultPageHeight {
		t.Fatalf("missing MediaBox should default to US-Letter, got %vx%v", w, h)
	}
	if w, h := doc.PageSize(99); w != DefaultPageWidth || h != DefaultPageHeight {
		t.Fatalf("out-of-range page should default to US-Letter, got %vx%v", w, h)
	}
}

func TestBytesRetainsInput(t *testing.T) {
	data := minimalPDF("[0 0 300 500]")
	doc, err := Open(data, "mini.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := doc.Bytes(); !bytes.Equal(got, data) {
		t.Fatalf("Bytes() does not match the opened input (%d vs %d bytes)", len(got), len(data))
	}
}

func TestPageTextOutOfRange(t *testing.T) {
	doc, err := Open(minimalPDF("[0 0 300 500]"), "mini.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := doc.PageText(0); err == nil {
		t.Fatalf("expected error for page 0")
	}
	if _, err := doc.PageText(2); err == nil {
		t.Fatalf("expected error for page past the end")
	}
}
