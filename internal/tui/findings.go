package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"policyproof/internal/bus"
	"policyproof/internal/config"
	"policyproof/internal/finding"
	"policyproof/internal/session"
)

// findingsPanel lists the analysis findings and owns the framework selector.
// Activating a finding publishes ScrollToFinding; the panel never reaches into
// the document panel.
type findingsPanel struct {
	session *session.Controller
	bus     *bus.Bus

	catalog  []config.Framework
	selected map[string]bool

	cursor         int
	offset         int
	height         int
	width          int
	frameworksMode bool
	fwCursor       int
}

func newFindingsPanel(sess *session.Controller, b *bus.Bus, catalog []config.Framework) *findingsPanel {
	selected := map[string]bool{}
	// GDPR starts selected, matching the reviewer's most common starting point.
	for _, f := range catalog {
		if f.ID == "gdpr" {
			selected[f.ID] = true
		}
	}
	return &findingsPanel{
		session:  sess,
		bus:      b,
		catalog:  catalog,
		selected: selected,
		height:   20,
		width:    40,
	}
}

func (p *findingsPanel) resize(width, height int) {
	p.width = width
	p.height = height
}

// selectedFrameworkIDs returns the selection in catalog order, which keeps
// analysis prompts stable across runs.
func (p *findingsPanel) selectedFrameworkIDs() []string {
	var ids []string
	for _, f := range p.catalog {
		if p.selected[f.ID] {
			ids = append(ids, f.ID)
		}
	}
	return ids
}

func (p *findingsPanel) selectedFrameworkNames() []string {
	var names []string
	for _, f := range p.catalog {
		if p.selected[f.ID] {
			names = append(names, f.Name)
		}
	}
	return names
}

// complianceScore is the percentage of checked rules across the selected
// frameworks, 0 when nothing is selected.
func (p *findingsPanel) complianceScore() int {
	cfg := config.Config{Frameworks: p.catalog}
	return cfg.Score(p.selectedFrameworkIDs())
}

func (p *findingsPanel) toggleFrameworksMode() {
	p.frameworksMode = !p.frameworksMode
	if p.fwCursor >= len(p.catalog) {
		p.fwCursor = 0
	}
}

func (p *findingsPanel) moveFrameworkCursor(delta int) {
	if len(p.catalog) == 0 {
		return
	}
	p.fwCursor += delta
	if p.fwCursor < 0 {
		p.fwCursor = 0
	}
	if p.fwCursor >= len(p.catalog) {
		p.fwCursor = len(p.catalog) - 1
	}
}

func (p *findingsPanel) toggleFrameworkAtCursor() {
	if p.fwCursor < 0 || p.fwCursor >= len(p.catalog) {
		return
	}
	id := p.catalog[p.fwCursor].ID
	p.selected[id] = !p.selected[id]
}

func (p *findingsPanel) moveCursor(delta int) {
	count := p.session.Findings().Len()
	if count == 0 {
		p.cursor = 0
		return
	}
	p.cursor += delta
	if p.cursor < 0 {
		p.cursor = 0
	}
	if p.cursor >= count {
		p.cursor = count - 1
	}
	p.ensureVisible()
}

func (p *findingsPanel) resetCursor() {
	p.cursor = 0
	p.offset = 0
}

func (p *findingsPanel) ensureVisible() {
	visible := p.visibleEntries()
	if visible < 1 {
		visible = 1
	}
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+visible {
		p.offset = p.cursor - visible + 1
	}
}

// visibleEntries approximates how many findings fit, each taking three lines.
func (p *findingsPanel) visibleEntries() int {
	return p.height / 3
}

// activate publishes the finding under the cursor for the document panel.
func (p *findingsPanel) activate() {
	all := p.session.Findings().All()
	if p.cursor < 0 || p.cursor >= len(all) {
		return
	}
	f := all[p.cursor]
	p.bus.Publish(bus.ScrollToFinding{PageNumber: f.Location.PageNumber, Finding: f})
}

func (p *findingsPanel) headerLine() string {
	counts := p.session.Findings().Counts()
	label := fmt.Sprintf("Document Analysis — %d violations · %d compliant",
		counts.Violations, counts.Compliant)
	return sectionHeaderStyle.Render(label)
}

func (p *findingsPanel) view() string {
	var b strings.Builder
	b.WriteString(p.headerLine())
	b.WriteRune('\n')

	if p.frameworksMode {
		p.writeFrameworks(&b)
		return b.String()
	}

	names := p.selectedFrameworkNames()
	selector := "Frameworks: none selected (press f)"
	if len(names) > 0 {
		selector = fmt.Sprintf("Frameworks: %s · score %d%%", strings.Join(names, ", "), p.complianceScore())
	}
	b.WriteString(helperStyle.Render(selector))
	b.WriteRune('\n')

	all := p.session.Findings().All()
	if len(all) == 0 {
		b.WriteString(helperStyle.Render("No findings yet. Upload a document to run the analysis."))
		return b.String()
	}

	wrap := p.width - 6
	if wrap < 20 {
		wrap = 20
	}
	visible := p.visibleEntries()
	end := p.offset + visible
	if end > len(all) {
		end = len(all)
	}
	for i := p.offset; i < end; i++ {
		f := all[i]
		marker := "  "
		if i == p.cursor {
			marker = "▸ "
		}
		title := f.Title
		if f.Type == finding.Violation {
			title = violationTitleStyle.Render(title)
		} else {
			title = compliantTitleStyle.Render(title)
		}
		b.WriteString(fmt.Sprintf("%s%s\n", marker, title))
		meta := fmt.Sprintf("   %s · page %d", f.Section, f.Location.PageNumber)
		if f.PolicyReference != "" {
			meta += " · " + f.PolicyReference
		}
		b.WriteString(helperStyle.Render(meta))
		b.WriteRune('\n')
		if i == p.cursor {
			b.WriteString(indentMultiline(wordwrap.String(f.Message, wrap), "   "))
			b.WriteRune('\n')
		}
	}
	if end < len(all) {
		b.WriteString(helperStyle.Render(fmt.Sprintf("   … %d more", len(all)-end)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (p *findingsPanel) writeFrameworks(b *strings.Builder) {
	b.WriteString(helperStyle.Render("Space toggles a framework, f returns to the findings."))
	b.WriteRune('\n')
	for i, f := range p.catalog {
		marker := "  "
		if i == p.fwCursor {
			marker = "▸ "
		}
		box := "[ ]"
		if p.selected[f.ID] {
			box = "[x]"
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", marker, box, f.Name))
		if i == p.fwCursor {
			for _, rule := range f.Rules {
				check := "·"
				if rule.Checked {
					check = "✓"
				}
				b.WriteString(helperStyle.Render(fmt.Sprintf("     %s %s", check, rule.Title)))
				b.WriteRune('\n')
			}
		}
	}
	fmt.Fprintf(b, "Compliance score: %d%%", p.complianceScore())
}
