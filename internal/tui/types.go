package tui

import (
	"time"

	"github.com/google/uuid"

	"policyproof/internal/ai"
	"policyproof/internal/finding"
	"policyproof/internal/pdfdoc"
	"policyproof/internal/session"
)

type focusArea int

const (
	focusDocument focusArea = iota
	focusFindings
	focusChat
)

const heroTagline = "Audit policy documents with PolicyProof."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	selectionTTL              = 3 * time.Second
)

type composerMode int

const (
	composerModeIdle composerMode = iota
	composerModeUpload
	composerModePage
	composerModeChat
)

const (
	composerUploadPlaceholder = "Path to a PDF policy document…"
	composerPagePlaceholder   = "Jump to page…"
	composerChatPlaceholder   = "Ask about policy compliance…"
)

var quickPrompts = []string{
	"Data retention limits",
	"Employment bias policies",
	"ISO 27001 access control",
	"Right to erasure",
}

type chatRole int

const (
	roleUser chatRole = iota
	roleAssistant
)

type chatEntry struct {
	Role       chatRole
	Content    string
	References []string
	Pending    bool
	SentAt     time.Time
}

// uploadResultMsg carries a parsed document out of the upload job. The
// renderer handle stays alive for page geometry lookups.
type uploadResultMsg struct {
	doc      session.Document
	renderer *pdfdoc.Document
	err      error
}

// analysisResultMsg is tagged with the run token so results from superseded
// runs can be discarded.
type analysisResultMsg struct {
	token    uuid.UUID
	findings []finding.Finding
	err      error
}

// chatResultMsg is tagged with the request sequence number; only the answer
// to the newest question is applied.
type chatResultMsg struct {
	seq    int
	answer ai.Answer
	err    error
}

// pageGeometryMsg delivers page dimensions once the renderer has them.
type pageGeometryMsg struct {
	page   int
	width  float64
	height float64
}

// selectionExpiredMsg clears an overlay selection. A stale epoch means the
// selection was replaced after this timer was armed; it is ignored.
type selectionExpiredMsg struct {
	epoch int
}
