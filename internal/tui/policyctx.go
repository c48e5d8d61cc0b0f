package tui

import (
	"strings"

	"policyproof/internal/bus"
)

// contextPanel mirrors the policy context of the conversation: the frameworks
// the assistant actually referenced and the articles it cited. Each update
// replaces the panel wholesale; stale citations never linger.
type contextPanel struct {
	frameworks []string
	articles   []bus.Article
	width      int
}

func newContextPanel(b *bus.Bus) *contextPanel {
	p := &contextPanel{width: 40}
	b.Subscribe(func(msg bus.Message) {
		if update, ok := msg.(bus.PolicyContextUpdate); ok {
			p.apply(update)
		}
	})
	return p
}

func (p *contextPanel) apply(update bus.PolicyContextUpdate) {
	p.frameworks = append([]string(nil), update.ReferencedFrameworks...)
	p.articles = append([]bus.Article(nil), update.RelevantArticles...)
}

func (p *contextPanel) resize(width int) {
	p.width = width
}

func (p *contextPanel) view() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Policy Context"))
	b.WriteRune('\n')
	if len(p.frameworks) == 0 && len(p.articles) == 0 {
		b.WriteString(helperStyle.Render("Framework references from the conversation appear here."))
		return b.String()
	}
	if len(p.frameworks) > 0 {
		b.WriteString(helperStyle.Render("Referenced Frameworks"))
		b.WriteRune('\n')
		for _, f := range p.frameworks {
			b.WriteString("  • " + f)
			b.WriteRune('\n')
		}
	}
	if len(p.articles) > 0 {
		b.WriteString(helperStyle.Render("Relevant Articles / Clauses"))
		b.WriteRune('\n')
		for _, a := range p.articles {
			b.WriteString("  " + a.Title)
			b.WriteRune('\n')
			if a.Source != "" {
				b.WriteString(helperStyle.Render("    " + a.Source))
				b.WriteRune('\n')
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
