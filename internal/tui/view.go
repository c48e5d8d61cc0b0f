package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"policyproof/internal/session"
)

func (m *model) View() string {
	m.document.refreshIfDirty()
	m.chat.refreshIfDirty()

	parts := []string{
		m.heroView(),
		m.mainView(),
		m.composerPanel(),
	}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.busy() {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if m.helpVisible {
		parts = append(parts, m.helpView())
	}
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	title := titleStyle.Render("PolicyProof")
	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		taglineStyle.Render(heroTagline),
		m.statusLine(),
	)
}

func (m *model) statusLine() string {
	stats := []string{fmt.Sprintf("Phase %s", m.phaseLabel())}
	if doc := m.session.Document(); doc != nil {
		stats = append(stats, fmt.Sprintf("Page %d/%d", m.document.page, doc.PageCount))
	}
	counts := m.session.Findings().Counts()
	stats = append(stats, fmt.Sprintf("Findings %d/%d", counts.Violations, counts.Compliant))
	stats = append(stats, fmt.Sprintf("Score %d%%", m.findings.complianceScore()))
	if m.config.Assistant == nil {
		stats = append(stats, "AI off")
	}
	if badges := m.jobStatusBadges(); len(badges) > 0 {
		stats = append(stats, badges...)
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

func (m *model) phaseLabel() string {
	switch m.session.Phase() {
	case session.PhaseIdle:
		return "IDLE"
	case session.PhaseUploading:
		return "UPLOADING"
	case session.PhaseAnalyzing:
		return "ANALYZING"
	case session.PhaseComplete:
		return "COMPLETE"
	case session.PhaseFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

func (m *model) jobStatusBadges() []string {
	var badges []string
	for _, kind := range []jobKind{jobKindUpload, jobKindAnalyze, jobKindChat} {
		snap, ok := m.lastJobs[kind]
		if !ok || snap.Status != jobStatusRunning {
			continue
		}
		badges = append(badges, fmt.Sprintf("%s…", kind))
	}
	return badges
}

func (m *model) mainView() string {
	docPanel := m.framed(focusDocument, lipgloss.JoinVertical(lipgloss.Left,
		m.document.headerLine(),
		m.document.viewport.View(),
	))

	findingsPanel := m.framed(focusFindings, m.findings.view())
	chatPanel := m.framed(focusChat, lipgloss.JoinVertical(lipgloss.Left,
		m.chat.headerLine(),
		m.chat.viewport.View(),
	))
	contextPanel := panelStyle.Width(m.layout.sideWidth).Render(m.policy.view())

	side := lipgloss.JoinVertical(lipgloss.Left, findingsPanel, chatPanel, contextPanel)
	return lipgloss.JoinHorizontal(lipgloss.Top, docPanel, side)
}

func (m *model) framed(area focusArea, body string) string {
	width := m.layout.sideWidth
	if area == focusDocument {
		width = m.layout.documentWidth
	}
	style := panelStyle
	if m.focus == area {
		style = focusedPanelStyle
	}
	return style.Width(width).Render(body)
}

func (m *model) composerPanel() string {
	if !m.composer.Focused() {
		return helperStyle.Render(m.keyHintLine())
	}
	label := "Composer"
	switch m.composerMode {
	case composerModeUpload:
		label = "Upload"
	case composerModePage:
		label = "Go to page"
	case composerModeChat:
		label = "Ask PolicyProof AI"
	}
	return joinNonEmpty([]string{
		sectionHeaderStyle.Render(label),
		m.composer.View(),
		helperStyle.Render("Enter: submit • Esc: cancel"),
	})
}

func (m *model) keyHintLine() string {
	return "u: upload • a: ask • p: page • r: re-analyze • f: frameworks • o: overlays • tab: focus • ?: help • Esc: quit"
}

func (m *model) helpView() string {
	lines := []string{
		sectionHeaderStyle.Render("Keys"),
		helperStyle.Render("• u uploads a PDF by path; only .pdf files are accepted."),
		helperStyle.Render("• ←/→ step pages (clamped); p jumps to an exact page and rejects bad input."),
		helperStyle.Render("• tab cycles panel focus; ↑/↓ scroll the focused panel."),
		helperStyle.Render("• enter on a finding shows it in the document; the highlight clears after 3s."),
		helperStyle.Render("• o cycles the overlays on the current page without leaving the document."),
		helperStyle.Render("• f opens the framework selector; space toggles, r re-runs the analysis."),
		helperStyle.Render("• a asks the assistant; 1-4 insert quick prompts while the chat is focused."),
	}
	return strings.Join(lines, "\n")
}
