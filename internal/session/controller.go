// Package session owns the analysis lifecycle of the document under review.
// The lifecycle is a state machine: idle until a document is submitted,
// uploading while the document is being prepared, analyzing while a request
// is in flight, then complete or failed. A failed run keeps the document so
// the user can re-analyze without uploading again.
package session

import (
	"errors"
	"fmt"

	"github.com/anggasct/fluo"
	"github.com/google/uuid"

	"policyproof/internal/finding"
)

// Phase is the externally visible lifecycle state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseUploading Phase = "uploading"
	PhaseAnalyzing Phase = "analyzing"
	PhaseComplete  Phase = "complete"
	PhaseFailed    Phase = "failed"
)

const (
	eventSubmit    = "submit"
	eventDispatch  = "dispatch"
	eventComplete  = "complete"
	eventFail      = "fail"
	eventReanalyze = "reanalyze"
)

var (
	// ErrAnalysisInFlight rejects submit/reanalyze while a run is pending.
	ErrAnalysisInFlight = errors.New("analysis already in flight")
	// ErrNoDocument rejects operations that need a retained document.
	ErrNoDocument = errors.New("no document loaded")
	// ErrStaleResult marks a completion or failure whose token no longer
	// matches the current run. Stale results must be discarded, not applied.
	ErrStaleResult = errors.New("stale analysis result")
)

// Document is the retained upload: display name, raw bytes for re-analysis,
// and the extracted per-page text handed to the analysis service.
type Document struct {
	Name      string
	Bytes     []byte
	PageCount int
	Pages     []string
}

// Controller drives the lifecycle machine and owns the finding store. It is
// not safe for concurrent use; all calls happen on the update goroutine, and
// async work reports back through Complete/Fail with the token it was given.
type Controller struct {
	machine fluo.Machine
	store   *finding.Store

	doc   *Document
	token uuid.UUID
	err   error
}

// NewController returns a started controller in the idle phase.
func NewController() (*Controller, error) {
	c := &Controller{store: finding.NewStore()}
	c.machine = newLifecycle(c)
	if err := c.machine.Start(); err != nil {
		return nil, fmt.Errorf("start lifecycle: %w", err)
	}
	return c, nil
}

func newLifecycle(c *Controller) fluo.Machine {
	def := fluo.NewMachine().
		State(string(PhaseIdle)).Initial().
		To(string(PhaseUploading)).On(eventSubmit).When(c.eventCarriesDocument).
		State(string(PhaseUploading)).
		To(string(PhaseAnalyzing)).On(eventDispatch).
		State(string(PhaseAnalyzing)).
		To(string(PhaseComplete)).On(eventComplete).
		To(string(PhaseFailed)).On(eventFail).
		State(string(PhaseComplete)).
		To(string(PhaseAnalyzing)).On(eventReanalyze).When(c.documentRetained).
		To(string(PhaseUploading)).On(eventSubmit).When(c.eventCarriesDocument).
		State(string(PhaseFailed)).
		To(string(PhaseAnalyzing)).On(eventReanalyze).When(c.documentRetained).
		To(string(PhaseUploading)).On(eventSubmit).When(c.eventCarriesDocument).
		Build()
	return def.CreateInstance()
}

func (c *Controller) eventCarriesDocument(ctx fluo.Context) bool {
	doc, ok := ctx.GetEventData().(Document)
	return ok && len(doc.Bytes) > 0 && doc.PageCount > 0
}

func (c *Controller) documentRetained(fluo.Context) bool {
	return c.doc != nil
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	return Phase(c.machine.CurrentState())
}

// Document returns the retained document, nil before the first submit.
func (c *Controller) Document() *Document {
	return c.doc
}

// Findings returns the store the controller populates on completion.
func (c *Controller) Findings() *finding.Store {
	return c.store
}

// Err returns the cause of the last failure, nil outside the failed phase.
func (c *Controller) Err() error {
	return c.err
}

// Token identifies the in-flight run; uuid.Nil when nothing is pending.
func (c *Controller) Token() uuid.UUID {
	return c.token
}

// Submit loads a new document. Rejected while a run is in flight; any earlier
// findings and failure are cleared because they describe the old document.
func (c *Controller) Submit(doc Document) error {
	if len(doc.Bytes) == 0 || doc.PageCount == 0 {
		return fmt.Errorf("submit %q: %w", doc.Name, ErrNoDocument)
	}
	res := c.machine.SendEvent(eventSubmit, doc)
	if !res.Success() {
		return c.rejection(res, fmt.Errorf("submit rejected in phase %s", c.Phase()))
	}
	c.doc = &doc
	c.err = nil
	c.token = uuid.Nil
	c.store.ReplaceAll(nil)
	return nil
}

// Dispatch moves uploading into analyzing and mints the token the eventual
// Complete or Fail call must echo back.
func (c *Controller) Dispatch() (uuid.UUID, error) {
	res := c.machine.SendEvent(eventDispatch, nil)
	if !res.Success() {
		return uuid.Nil, c.rejection(res, fmt.Errorf("dispatch rejected in phase %s", c.Phase()))
	}
	c.token = uuid.New()
	return c.token, nil
}

// Reanalyze starts a fresh run over the retained document. Earlier findings
// are cleared immediately; they described a run that is no longer current.
func (c *Controller) Reanalyze() (uuid.UUID, error) {
	if c.doc == nil {
		return uuid.Nil, ErrNoDocument
	}
	res := c.machine.SendEvent(eventReanalyze, nil)
	if !res.Success() {
		return uuid.Nil, c.rejection(res, fmt.Errorf("reanalyze rejected in phase %s", c.Phase()))
	}
	c.token = uuid.New()
	c.store.ReplaceAll(nil)
	return c.token, nil
}

// Complete applies the results of the run identified by token. A token from a
// superseded run returns ErrStaleResult and changes nothing.
func (c *Controller) Complete(token uuid.UUID, findings []finding.Finding) error {
	if token == uuid.Nil || token != c.token {
		return ErrStaleResult
	}
	res := c.machine.SendEvent(eventComplete, nil)
	if !res.Success() {
		return c.rejection(res, fmt.Errorf("complete rejected in phase %s", c.Phase()))
	}
	c.store.ReplaceAll(findings)
	c.err = nil
	c.token = uuid.Nil
	return nil
}

// Fail records the cause of the run identified by token. The document is
// retained for re-analysis; the store is emptied because any findings on
// screen no longer correspond to a finished run.
func (c *Controller) Fail(token uuid.UUID, cause error) error {
	if token == uuid.Nil || token != c.token {
		return ErrStaleResult
	}
	res := c.machine.SendEvent(eventFail, nil)
	if !res.Success() {
		return c.rejection(res, fmt.Errorf("fail rejected in phase %s", c.Phase()))
	}
	c.err = cause
	c.token = uuid.Nil
	c.store.ReplaceAll(nil)
	return nil
}

func (c *Controller) rejection(res *fluo.EventResult, fallback error) error {
	if res.Error != nil {
		return res.Error
	}
	if c.Phase() == PhaseAnalyzing {
		return ErrAnalysisInFlight
	}
	return fallback
}
