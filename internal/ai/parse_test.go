package ai

import (
	"strings"
	"testing"

	"policyproof/internal/finding"
)

func TestParseFindingsObjectWrapper(t *testing.T) {
	raw := `{"findings":[
		{"type":"VIOLATION","title":"Indefinite retention","section":"3.2","message":"Data kept forever.","policy_reference":"GDPR Art. 17","location_metadata":{"page_number":2,"exact_quote":"retained indefinitely"}},
		{"type":"COMPLIANCE","title":"Erasure honored","section":"3.3","message":"Deletion on request.","location_metadata":{"page_number":1,"exact_quote":"deleted within 30 days"}}
	]}`
	findings, err := parseFindings(raw, 3)
	if err != nil {
		t.Fatalf("parseFindings: %v", err)
	}
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	f := findings[0]
	if f.Type != finding.Violation || f.Location.PageNumber != 2 || f.PolicyReference != "GDPR Art. 17" {
		t.Fatalf("first finding decoded wrong: %+v", f)
	}
}

func TestParseFindingsExtractsFromProse(t *testing.T) {
	raw := "Here is the report you asked for:\n" +
		`{"findings":[{"type":"VIOLATION","title":"x","section":"1","message":"m","location_metadata":{"page_number":1,"exact_quote":"q"}}]}` +
		"\nLet me know if you need more."
	findings, err := parseFindings(raw, 1)
	if err != nil {
		t.Fatalf("parseFindings: %v", err)
	}
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
}

func TestParseFindingsBareArray(t *testing.T) {
	raw := `[{"type":"COMPLIANCE","title":"ok","section":"2","message":"fine","location_metadata":{"page_number":1,"exact_quote":"q"}}]`
	findings, err := parseFindings(raw, 2)
	if err != nil {
		t.Fatalf("parseFindings: %v", err)
	}
	if len(findings) != 1 || findings[0].Type != finding.Compliance {
		t.Fatalf("bare array not accepted: %+v", findings)
	}
}

func TestParseFindingsDropsOutOfRangePages(t *testing.T) {
	raw := `{"findings":[
		{"type":"VIOLATION","title":"valid","message":"m","location_metadata":{"page_number":2,"exact_quote":"q"}},
		{"type":"VIOLATION","title":"page zero","message":"m","location_metadata":{"page_number":0,"exact_quote":"q"}},
		{"type":"VIOLATION","title":"beyond end","message":"m","location_metadata":{"page_number":9,"exact_quote":"q"}}
	]}`
	findings, err := parseFindings(raw, 2)
	if err != nil {
		t.Fatalf("parseFindings: %v", err)
	}
	if len(findings) != 1 || findings[0].Title != "valid" {
		t.Fatalf("out-of-range findings not dropped: %+v", findings)
	}
}

func TestParseFindingsDropsUnknownType(t *testing.T) {
	raw := `{"findings":[{"type":"WARNING","title":"odd","message":"m","location_metadata":{"page_number":1}}]}`
	findings, err := parseFindings(raw, 1)
	if err != nil {
		t.Fatalf("parseFindings: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("unknown type kept: %+v", findings)
	}
}

func TestParseFindingsCleanDocument(t *testing.T) {
	findings, err := parseFindings(`{"findings":[]}`, 4)
	if err != nil {
		t.Fatalf("parseFindings: %v", err)
	}
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %d", len(findings))
	}
}

func TestParseFindingsRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "not json at all"} {
		if _, err := parseFindings(raw, 3); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestParseFindingsKeepsServerBoundingBox(t *testing.T) {
	raw := `{"findings":[{"type":"VIOLATION","title":"boxed","message":"m",
		"location_metadata":{"page_number":1,"exact_quote":"q","bounding_box":{"x":10,"y":20,"width":30,"height":40}}}]}`
	findings, err := parseFindings(raw, 1)
	if err != nil {
		t.Fatalf("parseFindings: %v", err)
	}
	b := findings[0].Location.BoundingBox
	if b == nil || b.X != 10 || b.Height != 40 {
		t.Fatalf("bounding box lost: %+v", b)
	}
}

func TestParseAnswer(t *testing.T) {
	raw := `{"answer":"Art. 17 grants erasure rights.","referenced_frameworks":["gdpr"],"relevant_articles":[{"title":"GDPR Art. 17","source":"EUR-Lex"},{"title":"  ","source":"x"}]}`
	answer, err := parseAnswer(raw)
	if err != nil {
		t.Fatalf("parseAnswer: %v", err)
	}
	if answer.Text != "Art. 17 grants erasure rights." {
		t.Fatalf("text = %q", answer.Text)
	}
	if len(answer.ReferencedFrameworks) != 1 || answer.ReferencedFrameworks[0] != "gdpr" {
		t.Fatalf("frameworks = %v", answer.ReferencedFrameworks)
	}
	if len(answer.RelevantArticles) != 1 || answer.RelevantArticles[0].Title != "GDPR Art. 17" {
		t.Fatalf("articles not sanitized: %+v", answer.RelevantArticles)
	}
}

func TestParseAnswerPlainProseFallback(t *testing.T) {
	answer, err := parseAnswer("GDPR requires consent for processing.")
	if err != nil {
		t.Fatalf("parseAnswer: %v", err)
	}
	if !strings.Contains(answer.Text, "consent") {
		t.Fatalf("prose fallback lost the reply: %q", answer.Text)
	}
}

func TestParseAnswerEmpty(t *testing.T) {
	if _, err := parseAnswer("  "); err == nil {
		t.Fatalf("expected error for empty response")
	}
}
