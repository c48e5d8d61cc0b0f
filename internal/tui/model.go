// Package tui renders the PolicyProof review surface: the document viewer,
// the findings list, the assistant chat, and the policy-context panel as
// sibling panels inside one program. Panels coordinate through the session
// controller and a typed event bus, never by reaching into each other.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"policyproof/internal/ai"
	"policyproof/internal/bus"
	"policyproof/internal/config"
	"policyproof/internal/pdfdoc"
	"policyproof/internal/session"
)

// errAnalysisDisabled routes documents through the normal failure path when
// no assistant is configured, so the retained-handle semantics still hold.
var errAnalysisDisabled = errors.New("analysis disabled: no API key configured")

// Config wires runtime options into the TUI program.
type Config struct {
	Assistant Assistant
	Catalog   []config.Framework
}

// New returns a tea.Model ready to be mounted into a Program.
func New(cfg Config) (tea.Model, error) {
	sess, err := session.NewController()
	if err != nil {
		return nil, err
	}

	composer := textinput.New()
	composer.Placeholder = composerUploadPlaceholder
	composer.CharLimit = 400
	composer.Width = 70
	composer.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	b := bus.New()
	m := &model{
		config:            cfg,
		session:           sess,
		bus:               b,
		jobs:              newJobBus(),
		layout:            newPageLayout(),
		composer:          composer,
		composerMode:      composerModeUpload,
		spinner:           spin,
		focus:             focusDocument,
		document:          newDocumentPanel(sess, b),
		findings:          newFindingsPanel(sess, b, cfg.Catalog),
		chat:              newChatPanel(b),
		policy:            newContextPanel(b),
		geometryRequested: map[int]bool{},
		lastJobs:          map[jobKind]jobSnapshot{},
		infoMessage:       "Press u and enter a PDF path to start a review.",
	}
	if cfg.Assistant == nil {
		m.infoMessage = "Analysis disabled: set an API key to enable findings and chat."
	}
	return m, nil
}

type model struct {
	config  Config
	session *session.Controller
	bus     *bus.Bus
	jobs    *jobBus
	layout  pageLayout

	composer     textinput.Model
	composerMode composerMode
	spinner      spinner.Model
	focus        focusArea

	document *documentPanel
	findings *findingsPanel
	chat     *chatPanel
	policy   *contextPanel

	renderer          *pdfdoc.Document
	geometryRequested map[int]bool

	infoMessage  string
	errorMessage string
	helpVisible  bool
	lastJobs     map[jobKind]jobSnapshot
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout.Update(msg.Width, msg.Height)
		m.document.resize(m.layout.documentWidth, m.layout.documentHeight)
		m.findings.resize(m.layout.sideWidth, m.layout.findingsHeight)
		m.chat.resize(m.layout.sideWidth, m.layout.chatHeight)
		m.policy.resize(m.layout.sideWidth)
		return m, nil

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.composer.Focused() {
			return m.handleComposerKey(msg)
		}
		return m.handleKey(msg)

	case tea.MouseMsg:
		if m.focus == focusDocument {
			var cmd tea.Cmd
			m.document.viewport, cmd = m.document.viewport.Update(msg)
			return m, cmd
		}
		return m, nil

	case jobSignalMsg:
		m.lastJobs[msg.Snapshot.Kind] = msg.Snapshot
		return m, nil

	case jobResultEnvelope:
		m.lastJobs[msg.Snapshot.Kind] = msg.Snapshot
		return m.Update(msg.Payload)

	case uploadResultMsg:
		return m.handleUploadResult(msg)

	case analysisResultMsg:
		return m.handleAnalysisResult(msg)

	case chatResultMsg:
		return m.handleChatResult(msg)

	case pageGeometryMsg:
		m.document.setPageGeometry(msg)
		return m, nil

	case selectionExpiredMsg:
		m.document.expireSelection(msg.epoch)
		return m, nil
	}
	return m, nil
}

func (m *model) busy() bool {
	phase := m.session.Phase()
	return phase == session.PhaseAnalyzing || m.chat.pendingQuestion()
}

func (m *model) handleUploadResult(msg uploadResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.errorMessage = "upload failed: " + msg.err.Error()
		m.infoMessage = "Check the path and try another file."
		return m, nil
	}
	if err := m.session.Submit(msg.doc); err != nil {
		m.errorMessage = err.Error()
		return m, nil
	}
	m.renderer = msg.renderer
	m.geometryRequested = map[int]bool{}
	m.document.reset()
	m.findings.resetCursor()
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Loaded %s (%d pages). Analyzing…", msg.doc.Name, msg.doc.PageCount)

	cmds := []tea.Cmd{m.startAnalysis(), m.ensureGeometry(1), m.spinner.Tick}
	return m, tea.Batch(cmds...)
}

// startAnalysis dispatches the lifecycle and launches the analyze job for
// the minted token. Without an assistant the run fails through the normal
// path so the document handle is retained.
func (m *model) startAnalysis() tea.Cmd {
	token, err := m.session.Dispatch()
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	doc := m.session.Document()
	if m.config.Assistant == nil {
		return func() tea.Msg {
			return analysisResultMsg{token: token, err: errAnalysisDisabled}
		}
	}
	return m.jobs.Start(jobKindAnalyze,
		analyzeJob(m.config.Assistant, token, *doc, m.findings.selectedFrameworkIDs()))
}

func (m *model) handleAnalysisResult(msg analysisResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if err := m.session.Fail(msg.token, msg.err); err != nil {
			// A result from a superseded run; nothing to show.
			return m, nil
		}
		if errors.Is(msg.err, ai.ErrQuotaExceeded) {
			m.errorMessage = "analysis failed: provider quota exceeded"
		} else {
			m.errorMessage = "analysis failed: " + msg.err.Error()
		}
		m.infoMessage = "Press r to re-run the analysis."
		return m, nil
	}
	if err := m.session.Complete(msg.token, msg.findings); err != nil {
		return m, nil
	}
	counts := m.session.Findings().Counts()
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Analysis complete: %d violations, %d compliant.",
		counts.Violations, counts.Compliant)
	m.findings.resetCursor()
	m.document.dirty = true
	return m, nil
}

func (m *model) reanalyze() tea.Cmd {
	token, err := m.session.Reanalyze()
	if err != nil {
		if errors.Is(err, session.ErrNoDocument) {
			m.errorMessage = "nothing to re-analyze: upload a document first"
		} else {
			m.errorMessage = err.Error()
		}
		return nil
	}
	doc := m.session.Document()
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Re-analyzing %s…", doc.Name)
	// The store was just emptied; drop any overlays rendered for the old run.
	m.findings.resetCursor()
	m.document.dirty = true
	if m.config.Assistant == nil {
		return func() tea.Msg {
			return analysisResultMsg{token: token, err: errAnalysisDisabled}
		}
	}
	return tea.Batch(
		m.jobs.Start(jobKindAnalyze,
			analyzeJob(m.config.Assistant, token, *doc, m.findings.selectedFrameworkIDs())),
		m.spinner.Tick,
	)
}

func (m *model) handleChatResult(msg chatResultMsg) (tea.Model, tea.Cmd) {
	draft, applied := m.chat.resolve(msg)
	if !applied {
		return m, nil
	}
	if msg.err != nil {
		if errors.Is(msg.err, ai.ErrQuotaExceeded) {
			m.errorMessage = "chat failed: provider quota exceeded"
		} else {
			m.errorMessage = "chat failed: " + msg.err.Error()
		}
		// Hand the draft back so the question can be resent untouched.
		m.setComposerMode(composerModeChat)
		m.composer.SetValue(draft)
		return m, nil
	}
	m.errorMessage = ""
	return m, m.drainPanels()
}

// drainPanels collects commands queued by bus handlers; handlers mutate panel
// state synchronously but cannot return commands themselves.
func (m *model) drainPanels() tea.Cmd {
	cmds := m.document.takePending()
	cmds = append(cmds, m.ensureGeometry(m.document.page))
	return tea.Batch(cmds...)
}

// ensureGeometry fetches page dimensions once per page per document.
func (m *model) ensureGeometry(page int) tea.Cmd {
	if m.renderer == nil || m.geometryRequested[page] {
		return nil
	}
	m.geometryRequested[page] = true
	return m.jobs.Start(jobKindGeometry, pageGeometryJob(m.renderer, page))
}

func (m *model) setComposerMode(mode composerMode) {
	m.composerMode = mode
	switch mode {
	case composerModeUpload:
		m.composer.Placeholder = composerUploadPlaceholder
	case composerModePage:
		m.composer.Placeholder = composerPagePlaceholder
	case composerModeChat:
		m.composer.Placeholder = composerChatPlaceholder
	}
	m.composer.SetValue("")
	m.composer.Focus()
}

func (m *model) handleComposerKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.composer.SetValue("")
		m.composer.Blur()
		m.composerMode = composerModeIdle
		return m, nil
	case tea.KeyEnter:
		return m.submitComposer()
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(key)
	return m, cmd
}

func (m *model) submitComposer() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.composer.Value())
	switch m.composerMode {
	case composerModeUpload:
		if m.session.Phase() == session.PhaseAnalyzing {
			m.errorMessage = session.ErrAnalysisInFlight.Error()
			return m, nil
		}
		if err := validateUploadPath(value); err != nil {
			m.errorMessage = "upload rejected: " + err.Error()
			return m, nil
		}
		m.composer.SetValue("")
		m.composer.Blur()
		m.composerMode = composerModeIdle
		m.errorMessage = ""
		m.infoMessage = "Reading document…"
		return m, tea.Batch(m.jobs.Start(jobKindUpload, uploadDocumentJob(value)), m.spinner.Tick)

	case composerModePage:
		n, err := strconv.Atoi(value)
		if err != nil {
			m.errorMessage = fmt.Sprintf("not a page number: %q", value)
			m.composer.SetValue(strconv.Itoa(m.document.page))
			return m, nil
		}
		if err := m.document.jumpToPage(n); err != nil {
			// Rejected jumps revert the input to the current page.
			m.errorMessage = err.Error()
			m.composer.SetValue(strconv.Itoa(m.document.page))
			return m, nil
		}
		m.errorMessage = ""
		m.composer.SetValue("")
		m.composer.Blur()
		m.composerMode = composerModeIdle
		return m, m.ensureGeometry(m.document.page)

	case composerModeChat:
		if value == "" {
			return m, nil
		}
		if m.config.Assistant == nil {
			m.errorMessage = "chat disabled: no API key configured"
			return m, nil
		}
		if m.chat.pendingQuestion() {
			m.infoMessage = "Waiting for the previous answer…"
			return m, nil
		}
		seq := m.chat.send(value)
		m.composer.SetValue("")
		m.composer.Blur()
		m.composerMode = composerModeIdle
		m.focus = focusChat
		m.errorMessage = ""
		return m, tea.Batch(
			m.jobs.Start(jobKindChat,
				chatJob(m.config.Assistant, seq, value, m.findings.selectedFrameworkIDs())),
			m.spinner.Tick,
		)
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		if m.errorMessage != "" {
			m.errorMessage = ""
			return m, nil
		}
		if m.helpVisible {
			m.helpVisible = false
			return m, nil
		}
		return m, tea.Quit
	case "tab":
		m.focus = (m.focus + 1) % 3
		return m, nil
	case "u":
		m.setComposerMode(composerModeUpload)
		return m, textinput.Blink
	case "a":
		m.setComposerMode(composerModeChat)
		return m, textinput.Blink
	case "p":
		if m.session.Document() == nil {
			m.errorMessage = "no document loaded"
			return m, nil
		}
		m.setComposerMode(composerModePage)
		return m, textinput.Blink
	case "r":
		return m, m.reanalyze()
	case "f":
		m.findings.toggleFrameworksMode()
		m.focus = focusFindings
		return m, nil
	case "o":
		m.document.cycleOverlay()
		return m, m.drainPanels()
	case "?":
		m.helpVisible = !m.helpVisible
		return m, nil
	case "left", "h":
		m.document.stepPage(-1)
		return m, m.ensureGeometry(m.document.page)
	case "right", "l":
		m.document.stepPage(1)
		return m, m.ensureGeometry(m.document.page)
	case "g":
		m.document.viewport.GotoTop()
		return m, nil
	case "G":
		m.document.viewport.GotoBottom()
		return m, nil
	case "enter":
		if m.focus == focusFindings && !m.findings.frameworksMode {
			m.findings.activate()
			return m, m.drainPanels()
		}
		return m, nil
	case " ":
		if m.focus == focusFindings && m.findings.frameworksMode {
			m.findings.toggleFrameworkAtCursor()
		}
		return m, nil
	case "up", "k":
		return m.scrollFocused(-1)
	case "down", "j":
		return m.scrollFocused(1)
	case "1", "2", "3", "4":
		if m.focus == focusChat {
			idx := int(key.String()[0] - '1')
			if idx < len(quickPrompts) {
				m.setComposerMode(composerModeChat)
				m.composer.SetValue(quickPrompts[idx])
			}
			return m, textinput.Blink
		}
		return m, nil
	}
	return m, nil
}

func (m *model) scrollFocused(delta int) (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusDocument:
		if delta < 0 {
			m.document.viewport.LineUp(1)
		} else {
			m.document.viewport.LineDown(1)
		}
	case focusFindings:
		if m.findings.frameworksMode {
			m.findings.moveFrameworkCursor(delta)
		} else {
			m.findings.moveCursor(delta)
		}
	case focusChat:
		if delta < 0 {
			m.chat.viewport.LineUp(1)
		} else {
			m.chat.viewport.LineDown(1)
		}
	}
	return m, nil
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	taglineStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true)
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)

	violationMarkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	compliantMarkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	selectedMarkStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	selectedLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("229"))
	violationTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	compliantTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))

	panelStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(0, 1)
	focusedPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("81")).Padding(0, 1)
)
