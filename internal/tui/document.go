package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"policyproof/internal/bus"
	"policyproof/internal/finding"
	"policyproof/internal/geometry"
	"policyproof/internal/pdfdoc"
	"policyproof/internal/session"
)

// documentPanel shows one page of the uploaded document with finding overlays
// rendered in the gutter. It never talks to the other panels directly; finding
// activations arrive over the bus.
type documentPanel struct {
	session  *session.Controller
	viewport viewport.Model

	page           int
	pageWidths     map[int]float64
	pageHeights    map[int]float64
	selected       *finding.Finding
	selectionEpoch int
	overlayCursor  int

	dirty   bool
	pending []tea.Cmd
}

func newDocumentPanel(sess *session.Controller, b *bus.Bus) *documentPanel {
	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true
	p := &documentPanel{
		session:     sess,
		viewport:    vp,
		page:        1,
		pageWidths:  map[int]float64{},
		pageHeights: map[int]float64{},
		dirty:       true,
	}
	b.Subscribe(func(msg bus.Message) {
		if scroll, ok := msg.(bus.ScrollToFinding); ok {
			p.showFinding(scroll)
		}
	})
	return p
}

func (p *documentPanel) resize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
	p.dirty = true
}

// reset reinitializes the panel for a freshly uploaded document.
func (p *documentPanel) reset() {
	p.page = 1
	p.pageWidths = map[int]float64{}
	p.pageHeights = map[int]float64{}
	p.selected = nil
	p.selectionEpoch++
	p.overlayCursor = 0
	p.viewport.SetYOffset(0)
	p.dirty = true
}

func (p *documentPanel) pageCount() int {
	if doc := p.session.Document(); doc != nil {
		return doc.PageCount
	}
	return 0
}

// stepPage moves the page cursor, clamped to the document bounds.
func (p *documentPanel) stepPage(delta int) {
	count := p.pageCount()
	if count == 0 {
		return
	}
	next := p.page + delta
	if next < 1 {
		next = 1
	}
	if next > count {
		next = count
	}
	p.setPage(next)
}

// jumpToPage rejects out-of-range targets instead of clamping; the page
// input reverts on rejection.
func (p *documentPanel) jumpToPage(n int) error {
	count := p.pageCount()
	if count == 0 {
		return fmt.Errorf("no document loaded")
	}
	if n < 1 || n > count {
		return fmt.Errorf("page %d out of range [1, %d]", n, count)
	}
	p.setPage(n)
	return nil
}

func (p *documentPanel) setPage(n int) {
	if n == p.page {
		return
	}
	p.page = n
	p.overlayCursor = 0
	p.viewport.SetYOffset(0)
	p.dirty = true
}

// showFinding handles a bus activation: show the finding's page and emphasize
// its overlay until the selection expires.
func (p *documentPanel) showFinding(msg bus.ScrollToFinding) {
	count := p.pageCount()
	if count == 0 || msg.PageNumber < 1 || msg.PageNumber > count {
		return
	}
	p.setPage(msg.PageNumber)
	f := msg.Finding
	p.selectFinding(&f)
}

// selectFinding replaces the current selection and re-arms the expiry timer.
// The epoch tag invalidates any timer armed for an earlier selection.
func (p *documentPanel) selectFinding(f *finding.Finding) {
	p.selected = f
	p.selectionEpoch++
	epoch := p.selectionEpoch
	p.dirty = true
	p.pending = append(p.pending, tea.Tick(selectionTTL, func(time.Time) tea.Msg {
		return selectionExpiredMsg{epoch: epoch}
	}))
}

// cycleOverlay selects the next finding on the current page without a bus
// round-trip.
func (p *documentPanel) cycleOverlay() {
	onPage := p.session.Findings().ByPage(p.page)
	if len(onPage) == 0 {
		return
	}
	if p.selected != nil {
		p.overlayCursor = (p.overlayCursor + 1) % len(onPage)
	} else {
		p.overlayCursor = 0
	}
	f := onPage[p.overlayCursor]
	p.selectFinding(&f)
}

func (p *documentPanel) expireSelection(epoch int) {
	if epoch != p.selectionEpoch || p.selected == nil {
		return
	}
	p.selected = nil
	p.dirty = true
}

func (p *documentPanel) setPageGeometry(msg pageGeometryMsg) {
	p.pageWidths[msg.page] = msg.width
	p.pageHeights[msg.page] = msg.height
	if msg.page == p.page {
		p.dirty = true
	}
}

func (p *documentPanel) pageSize(page int) (float64, float64) {
	w, okW := p.pageWidths[page]
	h, okH := p.pageHeights[page]
	if !okW || !okH {
		return pdfdoc.DefaultPageWidth, pdfdoc.DefaultPageHeight
	}
	return w, h
}

func (p *documentPanel) takePending() []tea.Cmd {
	cmds := p.pending
	p.pending = nil
	return cmds
}

type overlayMark struct {
	kind     finding.Type
	selected bool
}

// overlayRows maps viewport rows to gutter marks. Boxes are estimated in page
// space and scaled down to the wrapped line count of the rendered page.
func (p *documentPanel) overlayRows(lineCount int) map[int]overlayMark {
	marks := map[int]overlayMark{}
	if lineCount == 0 {
		return marks
	}
	pageW, pageH := p.pageSize(p.page)
	onPage := p.session.Findings().ByPage(p.page)
	for i, f := range onPage {
		box := geometry.BoundingBoxFor(f, i, pageW, pageH)
		start := int(box.Y / pageH * float64(lineCount))
		end := int((box.Y + box.Height) / pageH * float64(lineCount))
		if start < 0 {
			start = 0
		}
		if end >= lineCount {
			end = lineCount - 1
		}
		isSelected := p.selected != nil && *p.selected == f
		for row := start; row <= end; row++ {
			// A selected mark wins over an unselected one on the same row.
			if existing, ok := marks[row]; ok && existing.selected && !isSelected {
				continue
			}
			marks[row] = overlayMark{kind: f.Type, selected: isSelected}
		}
		if isSelected {
			p.scrollToRow(start, lineCount)
		}
	}
	return marks
}

func (p *documentPanel) scrollToRow(row, lineCount int) {
	target := row - p.viewport.Height/2
	if target < 0 {
		target = 0
	}
	if max := lineCount - p.viewport.Height; target > max {
		if max < 0 {
			max = 0
		}
		target = max
	}
	p.viewport.SetYOffset(target)
}

func (p *documentPanel) refreshIfDirty() {
	if !p.dirty {
		return
	}
	p.dirty = false
	doc := p.session.Document()
	if doc == nil {
		p.viewport.SetContent(helperStyle.Render("Press u and enter a PDF path to start a review."))
		return
	}
	text := ""
	if p.page >= 1 && p.page <= len(doc.Pages) {
		text = doc.Pages[p.page-1]
	}
	if strings.TrimSpace(text) == "" {
		text = "(no extractable text on this page)"
	}
	wrap := p.viewport.Width - viewportHorizontalPadding
	if wrap < minViewportWidth {
		wrap = minViewportWidth
	}
	lines := strings.Split(wordwrap.String(text, wrap), "\n")
	marks := p.overlayRows(len(lines))
	for i, line := range lines {
		mark, ok := marks[i]
		switch {
		case !ok:
			lines[i] = "  " + line
		case mark.selected:
			lines[i] = selectedMarkStyle.Render("▌ ") + selectedLineStyle.Render(line)
		case mark.kind == finding.Violation:
			lines[i] = violationMarkStyle.Render("▌ ") + line
		default:
			lines[i] = compliantMarkStyle.Render("▌ ") + line
		}
	}
	p.viewport.SetContent(strings.Join(lines, "\n"))
}

func (p *documentPanel) headerLine() string {
	doc := p.session.Document()
	if doc == nil {
		return sectionHeaderStyle.Render("Document")
	}
	label := fmt.Sprintf("%s — page %d/%d", doc.Name, p.page, doc.PageCount)
	return sectionHeaderStyle.Render(label)
}
