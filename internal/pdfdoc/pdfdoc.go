// Package pdfdoc extracts what the review needs from an uploaded PDF: the
// page count, per-page text for analysis, and page dimensions for overlay
// placement.
package pdfdoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// US-Letter dimensions in points, used when a page carries no MediaBox.
const (
	DefaultPageWidth  = 612.0
	DefaultPageHeight = 792.0
)

// Document is an opened PDF. Pages are numbered from 1.
type Document struct {
	name   string
	reader *pdf.Reader
	data   []byte
}

// Open parses the given bytes as a PDF.
func Open(data []byte, name string) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("open %q: empty file", name)
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", name, err)
	}
	if reader.NumPage() < 1 {
		return nil, fmt.Errorf("open %q: no pages", name)
	}
	return &Document{name: name, reader: reader, data: data}, nil
}

// Name returns the display name the document was opened under.
func (d *Document) Name() string {
	return d.name
}

// Bytes returns the raw file contents, retained for re-analysis.
func (d *Document) Bytes() []byte {
	return d.data
}

// PageCount reports the number of pages.
func (d *Document) PageCount() int {
	return d.reader.NumPage()
}

// PageText extracts the plain text of the 1-based page n. Pages whose text
// cannot be decoded yield an empty string rather than failing the document;
// scanned pages have no extractable text at all.
func (d *Document) PageText(n int) (string, error) {
	if n < 1 || n > d.reader.NumPage() {
		return "", fmt.Errorf("page %d out of range [1, %d]", n, d.reader.NumPage())
	}
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", nil
	}
	return strings.TrimSpace(text), nil
}

// Pages extracts the text of every page in order.
func (d *Document) Pages() ([]string, error) {
	pages := make([]string, d.reader.NumPage())
	for i := range pages {
		text, err := d.PageText(i + 1)
		if err != nil {
			return nil, err
		}
		pages[i] = text
	}
	return pages, nil
}

// PageSize returns the width and height of page n in points, read from the
// page's MediaBox or inherited from an ancestor. Pages without one report
// US-Letter.
func (d *Document) PageSize(n int) (width, height float64) {
	if n < 1 || n > d.reader.NumPage() {
		return DefaultPageWidth, DefaultPageHeight
	}
	node := d.reader.Page(n).V
	for !node.IsNull() {
		box := node.Key("MediaBox")
		if !box.IsNull() && box.Len() == 4 {
			w := box.Index(2).Float64() - box.Index(0).Float64()
			h := box.Index(3).Float64() - box.Index(1).Float64()
			if w > 0 && h > 0 {
				return w, h
			}
		}
		node = node.Key("Parent")
	}
	return DefaultPageWidth, DefaultPageHeight
}
