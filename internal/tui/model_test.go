package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"policyproof/internal/ai"
	"policyproof/internal/bus"
	"policyproof/internal/config"
	"policyproof/internal/finding"
	"policyproof/internal/session"
)

type fakeAssistant struct {
	findings []finding.Finding
	answer   ai.Answer
	err      error
}

func (f fakeAssistant) Analyze(context.Context, string, []string, []string) ([]finding.Finding, error) {
	return f.findings, f.err
}

func (f fakeAssistant) Ask(context.Context, string, []string) (ai.Answer, error) {
	return f.answer, f.err
}

func newTestModel(t *testing.T) *model {
	t.Helper()
	tm, err := New(Config{Assistant: fakeAssistant{}, Catalog: config.Default().Frameworks})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := tm.(*model)
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 45})
	// The upload composer starts focused; blur it so key tests reach the
	// keymap instead of the input.
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	return m
}

func testDocument() session.Document {
	return session.Document{
		Name:      "contract.pdf",
		Bytes:     []byte("%PDF-1.4 fixture"),
		PageCount: 3,
		Pages: []string{
			"definitions and scope of the agreement",
			"customer data may be retained indefinitely for analytics",
			"data subjects can exercise erasure rights",
		},
	}
}

func testFindings() []finding.Finding {
	return []finding.Finding{
		{
			Type: finding.Violation, Title: "Data Retention Error", Section: "Section 2",
			Message:  "Clause permits indefinite storage of customer data.",
			Location: finding.Location{PageNumber: 2, ExactQuote: "retained indefinitely"},
		},
		{
			Type: finding.Compliance, Title: "Erasure Rights Compliant", Section: "Section 4",
			Message:  "Erasure rights are honored.",
			Location: finding.Location{PageNumber: 3, ExactQuote: "erasure rights"},
		},
	}
}

func loadAnalyzedDocument(t *testing.T, m *model) {
	t.Helper()
	m.Update(uploadResultMsg{doc: testDocument()})
	if got := m.session.Phase(); got != session.PhaseAnalyzing {
		t.Fatalf("phase after upload = %v, want analyzing", got)
	}
	m.Update(analysisResultMsg{token: m.session.Token(), findings: testFindings()})
	if got := m.session.Phase(); got != session.PhaseComplete {
		t.Fatalf("phase after result = %v, want complete", got)
	}
}

func TestUploadResultStartsAnalysis(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(uploadResultMsg{doc: testDocument()})
	if cmd == nil {
		t.Fatal("upload should launch the analysis job")
	}
	if m.session.Phase() != session.PhaseAnalyzing {
		t.Fatalf("phase = %v, want analyzing", m.session.Phase())
	}
	if m.document.page != 1 {
		t.Fatalf("new documents should open on page 1, got %d", m.document.page)
	}
}

func TestUploadErrorKeepsIdle(t *testing.T) {
	m := newTestModel(t)
	m.Update(uploadResultMsg{err: errors.New("truncated file")})
	if m.session.Phase() != session.PhaseIdle {
		t.Fatalf("failed upload must not advance the lifecycle, got %v", m.session.Phase())
	}
	if m.errorMessage == "" {
		t.Fatal("upload failure should surface an error message")
	}
}

func TestAnalysisFailureRetainsDocument(t *testing.T) {
	m := newTestModel(t)
	m.Update(uploadResultMsg{doc: testDocument()})
	m.Update(analysisResultMsg{token: m.session.Token(), err: errors.New("model overloaded")})

	if m.session.Phase() != session.PhaseFailed {
		t.Fatalf("phase = %v, want failed", m.session.Phase())
	}
	if m.session.Document() == nil {
		t.Fatal("failure must retain the document for re-analysis")
	}
	if m.session.Findings().Len() != 0 {
		t.Fatal("failed run must leave the store empty")
	}

	// Re-analysis over the retained handle succeeds.
	_, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("reanalyze should launch a job")
	}
	if m.session.Phase() != session.PhaseAnalyzing {
		t.Fatalf("phase after reanalyze = %v, want analyzing", m.session.Phase())
	}
	m.Update(analysisResultMsg{token: m.session.Token(), findings: testFindings()})
	if m.session.Findings().Len() != 2 {
		t.Fatalf("findings after retry = %d, want 2", m.session.Findings().Len())
	}
}

func TestReanalyzeClearsPreviousFindings(t *testing.T) {
	m := newTestModel(t)
	loadAnalyzedDocument(t, m)

	_, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd == nil {
		t.Fatal("reanalyze should launch a job")
	}
	if m.session.Phase() != session.PhaseAnalyzing {
		t.Fatalf("phase = %v, want analyzing", m.session.Phase())
	}
	if m.session.Findings().Len() != 0 {
		t.Fatalf("old findings still visible during reanalysis: %d", m.session.Findings().Len())
	}
	if !m.document.dirty {
		t.Fatal("document panel should re-render without the old overlays")
	}
}

func TestStaleAnalysisResultIgnored(t *testing.T) {
	m := newTestModel(t)
	m.Update(uploadResultMsg{doc: testDocument()})
	staleToken := m.session.Token()
	m.Update(analysisResultMsg{token: staleToken, err: errors.New("first run failed")})
	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})

	m.Update(analysisResultMsg{token: staleToken, findings: testFindings()})
	if m.session.Phase() != session.PhaseAnalyzing {
		t.Fatalf("stale result changed the phase to %v", m.session.Phase())
	}
	if m.session.Findings().Len() != 0 {
		t.Fatal("stale findings were applied")
	}
}

func TestFindingActivationMovesDocument(t *testing.T) {
	m := newTestModel(t)
	loadAnalyzedDocument(t, m)

	m.focus = focusFindings
	m.findings.cursor = 0
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.document.page != 2 {
		t.Fatalf("document page = %d, want 2", m.document.page)
	}
	if m.document.selected == nil || m.document.selected.Title != "Data Retention Error" {
		t.Fatalf("selection not applied: %+v", m.document.selected)
	}
}

func TestSelectionExpiryHonorsEpoch(t *testing.T) {
	m := newTestModel(t)
	loadAnalyzedDocument(t, m)

	m.focus = focusFindings
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	firstEpoch := m.document.selectionEpoch

	// Re-selecting supersedes the first timer.
	m.findings.cursor = 1
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	m.Update(selectionExpiredMsg{epoch: firstEpoch})
	if m.document.selected == nil {
		t.Fatal("stale expiry cleared a fresh selection")
	}

	m.Update(selectionExpiredMsg{epoch: m.document.selectionEpoch})
	if m.document.selected != nil {
		t.Fatal("current expiry should clear the selection")
	}
}

func TestActivationOnInvalidPageIgnored(t *testing.T) {
	m := newTestModel(t)
	loadAnalyzedDocument(t, m)
	before := m.document.page

	m.bus.Publish(bus.ScrollToFinding{PageNumber: 99, Finding: testFindings()[0]})
	if m.document.page != before {
		t.Fatalf("invalid page moved the document to %d", m.document.page)
	}
	if m.document.selected != nil {
		t.Fatal("invalid activation must not select anything")
	}
}

func TestPageStepperClamps(t *testing.T) {
	m := newTestModel(t)
	loadAnalyzedDocument(t, m)

	m.document.stepPage(-5)
	if m.document.page != 1 {
		t.Fatalf("underflow page = %d, want 1", m.document.page)
	}
	m.document.stepPage(10)
	if m.document.page != 3 {
		t.Fatalf("overflow page = %d, want 3", m.document.page)
	}
}

func TestPageJumpRejectsAndReverts(t *testing.T) {
	m := newTestModel(t)
	loadAnalyzedDocument(t, m)
	m.document.setPage(2)

	m.setComposerMode(composerModePage)
	m.composer.SetValue("99")
	m.submitComposer()

	if m.document.page != 2 {
		t.Fatalf("rejected jump changed the page to %d", m.document.page)
	}
	if m.errorMessage == "" {
		t.Fatal("rejected jump should surface an error")
	}
	if got := m.composer.Value(); got != "2" {
		t.Fatalf("input should revert to the current page, got %q", got)
	}

	m.composer.SetValue("3")
	m.submitComposer()
	if m.document.page != 3 {
		t.Fatalf("valid jump ignored, page = %d", m.document.page)
	}
}

func TestOverlayCycleSelectsLocally(t *testing.T) {
	m := newTestModel(t)
	loadAnalyzedDocument(t, m)
	m.document.setPage(2)

	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	if m.document.selected == nil {
		t.Fatal("overlay cycle should select the first finding on the page")
	}
	if m.document.selected.Location.PageNumber != 2 {
		t.Fatalf("selected finding is on page %d, want 2", m.document.selected.Location.PageNumber)
	}
}

func TestChatOptimisticAppendAndRollback(t *testing.T) {
	m := newTestModel(t)

	m.setComposerMode(composerModeChat)
	m.composer.SetValue("Does GDPR allow indefinite storage?")
	m.submitComposer()

	if len(m.chat.entries) != 1 || !m.chat.entries[0].Pending {
		t.Fatalf("expected one pending user entry, got %+v", m.chat.entries)
	}
	seq := m.chat.seq

	m.Update(chatResultMsg{seq: seq, err: errors.New("timeout")})
	if len(m.chat.entries) != 0 {
		t.Fatalf("failed request should roll the entry back, got %d entries", len(m.chat.entries))
	}
	if got := m.composer.Value(); got != "Does GDPR allow indefinite storage?" {
		t.Fatalf("draft not restored, got %q", got)
	}
}

func TestChatAnswerUpdatesPolicyContext(t *testing.T) {
	m := newTestModel(t)

	m.setComposerMode(composerModeChat)
	m.composer.SetValue("retention limits?")
	m.submitComposer()

	answer := ai.Answer{
		Text:                 "Storage limitation applies.",
		ReferencedFrameworks: []string{"GDPR"},
		RelevantArticles:     []ai.Article{{Title: "GDPR Art. 5(1)(e)", Source: "GDPR"}},
	}
	m.Update(chatResultMsg{seq: m.chat.seq, answer: answer})

	if len(m.chat.entries) != 2 {
		t.Fatalf("expected user + assistant entries, got %d", len(m.chat.entries))
	}
	if len(m.policy.frameworks) != 1 || m.policy.frameworks[0] != "GDPR" {
		t.Fatalf("context frameworks = %v", m.policy.frameworks)
	}

	// The next answer replaces the context wholesale.
	m.setComposerMode(composerModeChat)
	m.composer.SetValue("access control?")
	m.submitComposer()
	m.Update(chatResultMsg{seq: m.chat.seq, answer: ai.Answer{
		Text:                 "A.9 covers access control.",
		ReferencedFrameworks: []string{"ISO 27001"},
	}})

	if len(m.policy.frameworks) != 1 || m.policy.frameworks[0] != "ISO 27001" {
		t.Fatalf("context not replaced: %v", m.policy.frameworks)
	}
	if len(m.policy.articles) != 0 {
		t.Fatalf("old articles should be gone, got %+v", m.policy.articles)
	}
}

func TestStaleChatAnswerDropped(t *testing.T) {
	m := newTestModel(t)
	m.setComposerMode(composerModeChat)
	m.composer.SetValue("first question")
	m.submitComposer()

	m.Update(chatResultMsg{seq: m.chat.seq - 1, answer: ai.Answer{Text: "old answer"}})
	if len(m.chat.entries) != 1 {
		t.Fatalf("stale answer was applied, entries = %d", len(m.chat.entries))
	}
}

func TestSubmitWhileAnalyzingRejected(t *testing.T) {
	m := newTestModel(t)
	m.Update(uploadResultMsg{doc: testDocument()})

	m.setComposerMode(composerModeUpload)
	m.composer.SetValue("/tmp/does-not-matter.pdf")
	m.submitComposer()
	if m.errorMessage == "" || !strings.Contains(m.errorMessage, "in flight") {
		t.Fatalf("expected in-flight rejection, got %q", m.errorMessage)
	}
}

func TestFrameworkToggleFeedsScore(t *testing.T) {
	m := newTestModel(t)
	if got := m.findings.selectedFrameworkIDs(); len(got) != 1 || got[0] != "gdpr" {
		t.Fatalf("initial selection = %v, want [gdpr]", got)
	}
	if got := m.findings.complianceScore(); got != 60 {
		t.Fatalf("gdpr score = %d, want 60", got)
	}

	m.findings.toggleFrameworksMode()
	m.findings.fwCursor = 1
	m.findings.toggleFrameworkAtCursor()

	if got := m.findings.selectedFrameworkIDs(); len(got) != 2 {
		t.Fatalf("selection after toggle = %v", got)
	}
	// gdpr + iso27001: 7 of 10 rules checked.
	if got := m.findings.complianceScore(); got != 70 {
		t.Fatalf("combined score = %d, want 70", got)
	}
}

func TestDisabledAssistantFailsAnalysisVisibly(t *testing.T) {
	tm, err := New(Config{Catalog: config.Default().Frameworks})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m := tm.(*model)
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 45})

	_, cmd := m.Update(uploadResultMsg{doc: testDocument()})
	if cmd == nil {
		t.Fatal("expected a command delivering the disabled-analysis failure")
	}
	m.Update(analysisResultMsg{token: m.session.Token(), err: errAnalysisDisabled})
	if m.session.Phase() != session.PhaseFailed {
		t.Fatalf("phase = %v, want failed", m.session.Phase())
	}
	if m.session.Document() == nil {
		t.Fatal("document should stay viewable without an assistant")
	}
}

func TestViewRendersWithoutDocument(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	if !strings.Contains(out, "PolicyProof") {
		t.Fatalf("view missing title:\n%s", out)
	}
}

func TestViewRendersFindings(t *testing.T) {
	m := newTestModel(t)
	loadAnalyzedDocument(t, m)
	out := m.View()
	if !strings.Contains(out, "1 violations") || !strings.Contains(out, "1 compliant") {
		t.Fatalf("findings header missing counts:\n%s", out)
	}
	if !strings.Contains(out, "contract.pdf") {
		t.Fatalf("document header missing:\n%s", out)
	}
}
