package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/muesli/reflow/wordwrap"

	"policyproof/internal/ai"
	"policyproof/internal/bus"
)

// chatPanel holds the assistant transcript. The user message is appended
// optimistically when the question is sent; a failed request rolls it back
// and hands the draft back to the composer.
type chatPanel struct {
	bus      *bus.Bus
	viewport viewport.Model

	entries []chatEntry
	seq     int
	draft   string
	dirty   bool
}

func newChatPanel(b *bus.Bus) *chatPanel {
	vp := viewport.New(40, 10)
	return &chatPanel{bus: b, viewport: vp, dirty: true}
}

func (p *chatPanel) resize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
	p.dirty = true
}

// send appends the optimistic user entry and returns the sequence number the
// answer must carry. The draft is kept for restoration on failure.
func (p *chatPanel) send(message string) int {
	p.seq++
	p.draft = message
	p.entries = append(p.entries, chatEntry{
		Role:    roleUser,
		Content: message,
		Pending: true,
		SentAt:  time.Now(),
	})
	p.dirty = true
	return p.seq
}

// resolve applies a chat result. Answers to superseded questions are dropped.
// On failure the optimistic entry is rolled back and the draft returned so
// the composer can restore it.
func (p *chatPanel) resolve(msg chatResultMsg) (restoredDraft string, ok bool) {
	if msg.seq != p.seq {
		return "", false
	}
	last := len(p.entries) - 1
	if last < 0 || p.entries[last].Role != roleUser || !p.entries[last].Pending {
		return "", false
	}
	p.dirty = true
	if msg.err != nil {
		draft := p.draft
		p.entries = p.entries[:last]
		p.draft = ""
		return draft, true
	}
	p.entries[last].Pending = false
	p.entries = append(p.entries, chatEntry{
		Role:       roleAssistant,
		Content:    msg.answer.Text,
		References: referenceLabels(msg.answer),
		SentAt:     time.Now(),
	})
	p.draft = ""
	p.publishContext(msg.answer)
	return "", true
}

func (p *chatPanel) publishContext(answer ai.Answer) {
	update := bus.PolicyContextUpdate{
		ReferencedFrameworks: append([]string(nil), answer.ReferencedFrameworks...),
	}
	for _, a := range answer.RelevantArticles {
		update.RelevantArticles = append(update.RelevantArticles, bus.Article{Title: a.Title, Source: a.Source})
	}
	p.bus.Publish(update)
}

func referenceLabels(answer ai.Answer) []string {
	var refs []string
	for _, a := range answer.RelevantArticles {
		refs = append(refs, a.Title)
	}
	return refs
}

func (p *chatPanel) pendingQuestion() bool {
	last := len(p.entries) - 1
	return last >= 0 && p.entries[last].Role == roleUser && p.entries[last].Pending
}

func (p *chatPanel) refreshIfDirty() {
	if !p.dirty {
		return
	}
	p.dirty = false
	if len(p.entries) == 0 {
		p.viewport.SetContent(helperStyle.Render("Ask about retention limits, erasure rights, or access controls."))
		return
	}
	wrap := p.viewport.Width - viewportHorizontalPadding
	if wrap < 20 {
		wrap = 20
	}
	var b strings.Builder
	for i, entry := range p.entries {
		label := "You"
		if entry.Role == roleAssistant {
			label = "PolicyProof AI"
		}
		b.WriteString(helperStyle.Render(label))
		b.WriteRune('\n')
		b.WriteString(indentMultiline(wordwrap.String(entry.Content, wrap), "  "))
		b.WriteRune('\n')
		if entry.Pending {
			b.WriteString(helperStyle.Render("  …"))
			b.WriteRune('\n')
		}
		if len(entry.References) > 0 {
			b.WriteString(helperStyle.Render("  refs: " + strings.Join(entry.References, " · ")))
			b.WriteRune('\n')
		}
		if i < len(p.entries)-1 {
			b.WriteRune('\n')
		}
	}
	p.viewport.SetContent(b.String())
	p.viewport.GotoBottom()
}

func (p *chatPanel) headerLine() string {
	return sectionHeaderStyle.Render("PolicyProof AI — Compliance Intelligence Assistant")
}
