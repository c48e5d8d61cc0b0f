package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policyproof/internal/finding"
)

func testDoc() Document {
	return Document{
		Name:      "policy.pdf",
		Bytes:     []byte("%PDF-1.4 fake"),
		PageCount: 2,
		Pages:     []string{"page one text", "page two text"},
	}
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c, err := NewController()
	require.NoError(t, err)
	return c
}

func TestStartsIdle(t *testing.T) {
	c := newTestController(t)
	assert.Equal(t, PhaseIdle, c.Phase())
	assert.Nil(t, c.Document())
	assert.Zero(t, c.Findings().Len())
}

func TestSubmitRequiresDocument(t *testing.T) {
	c := newTestController(t)
	err := c.Submit(Document{Name: "empty.pdf"})
	assert.ErrorIs(t, err, ErrNoDocument)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestHappyPath(t *testing.T) {
	c := newTestController(t)

	require.NoError(t, c.Submit(testDoc()))
	assert.Equal(t, PhaseUploading, c.Phase())

	token, err := c.Dispatch()
	require.NoError(t, err)
	assert.Equal(t, PhaseAnalyzing, c.Phase())

	results := []finding.Finding{{Type: finding.Violation, Title: "x", Location: finding.Location{PageNumber: 1}}}
	require.NoError(t, c.Complete(token, results))
	assert.Equal(t, PhaseComplete, c.Phase())
	assert.Equal(t, 1, c.Findings().Len())
	assert.NoError(t, c.Err())
}

func TestSubmitRejectedWhileAnalyzing(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.Submit(testDoc()))
	_, err := c.Dispatch()
	require.NoError(t, err)

	err = c.Submit(testDoc())
	assert.ErrorIs(t, err, ErrAnalysisInFlight)

	_, err = c.Reanalyze()
	assert.ErrorIs(t, err, ErrAnalysisInFlight)
}

func TestFailureRetainsDocument(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.Submit(testDoc()))
	token, err := c.Dispatch()
	require.NoError(t, err)

	cause := errors.New("model overloaded")
	require.NoError(t, c.Fail(token, cause))

	assert.Equal(t, PhaseFailed, c.Phase())
	assert.ErrorIs(t, c.Err(), cause)
	require.NotNil(t, c.Document())
	assert.Equal(t, "policy.pdf", c.Document().Name)
	assert.Zero(t, c.Findings().Len())
}

func TestReanalyzeAfterFailure(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.Submit(testDoc()))
	token, err := c.Dispatch()
	require.NoError(t, err)
	require.NoError(t, c.Fail(token, errors.New("boom")))

	token2, err := c.Reanalyze()
	require.NoError(t, err)
	assert.Equal(t, PhaseAnalyzing, c.Phase())
	assert.NotEqual(t, token, token2)

	require.NoError(t, c.Complete(token2, []finding.Finding{{Type: finding.Compliance}}))
	assert.Equal(t, PhaseComplete, c.Phase())
	assert.NoError(t, c.Err())
	assert.Equal(t, 1, c.Findings().Len())
}

func TestReanalyzeClearsFindings(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.Submit(testDoc()))
	token, err := c.Dispatch()
	require.NoError(t, err)
	require.NoError(t, c.Complete(token, []finding.Finding{{Title: "old"}}))

	token2, err := c.Reanalyze()
	require.NoError(t, err)
	assert.Equal(t, PhaseAnalyzing, c.Phase())
	assert.Zero(t, c.Findings().Len(), "old findings describe a superseded run")

	require.NoError(t, c.Complete(token2, []finding.Finding{{Title: "new"}}))
	assert.Equal(t, 1, c.Findings().Len())
	assert.Equal(t, "new", c.Findings().All()[0].Title)
}

func TestSubmitRejectedWhileUploading(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.Submit(testDoc()))
	require.Equal(t, PhaseUploading, c.Phase())

	err := c.Submit(testDoc())
	assert.Error(t, err)
	assert.Equal(t, PhaseUploading, c.Phase())
}

func TestStaleTokenDiscarded(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.Submit(testDoc()))
	staleToken, err := c.Dispatch()
	require.NoError(t, err)
	require.NoError(t, c.Fail(staleToken, errors.New("first run failed")))

	freshToken, err := c.Reanalyze()
	require.NoError(t, err)

	// The first run's late result must not win over the in-flight run.
	err = c.Complete(staleToken, []finding.Finding{{Title: "stale"}})
	assert.ErrorIs(t, err, ErrStaleResult)
	assert.Equal(t, PhaseAnalyzing, c.Phase())
	assert.Zero(t, c.Findings().Len())

	err = c.Fail(staleToken, errors.New("stale failure"))
	assert.ErrorIs(t, err, ErrStaleResult)

	require.NoError(t, c.Complete(freshToken, nil))
	assert.Equal(t, PhaseComplete, c.Phase())
}

func TestSubmitReplacesEverything(t *testing.T) {
	c := newTestController(t)
	require.NoError(t, c.Submit(testDoc()))
	token, err := c.Dispatch()
	require.NoError(t, err)
	require.NoError(t, c.Complete(token, []finding.Finding{{Title: "old"}}))

	next := testDoc()
	next.Name = "revised.pdf"
	require.NoError(t, c.Submit(next))

	assert.Equal(t, PhaseUploading, c.Phase())
	assert.Equal(t, "revised.pdf", c.Document().Name)
	assert.Zero(t, c.Findings().Len())

	// A result from the superseded run carries a dead token now.
	err = c.Complete(token, []finding.Finding{{Title: "late"}})
	assert.ErrorIs(t, err, ErrStaleResult)
}

func TestReanalyzeWithoutDocument(t *testing.T) {
	c := newTestController(t)
	_, err := c.Reanalyze()
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestCompleteWithoutRun(t *testing.T) {
	c := newTestController(t)
	err := c.Complete(c.Token(), nil)
	assert.ErrorIs(t, err, ErrStaleResult)
}
