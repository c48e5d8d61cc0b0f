package ai

import (
	"strings"
	"testing"
)

func TestBuildAnalysisPromptNumbersPages(t *testing.T) {
	prompt := buildAnalysisPrompt("policy.pdf", []string{"first page", "second page"}, nil)
	if !strings.Contains(prompt, "=== Page 1 ===\nfirst page") {
		t.Fatalf("missing page 1 block:\n%s", prompt)
	}
	if !strings.Contains(prompt, "=== Page 2 ===\nsecond page") {
		t.Fatalf("missing page 2 block:\n%s", prompt)
	}
	if !strings.Contains(prompt, `"policy.pdf"`) {
		t.Fatalf("document name missing")
	}
}

func TestBuildAnalysisPromptFrameworkClause(t *testing.T) {
	prompt := buildAnalysisPrompt("p.pdf", []string{"text"}, []string{"GDPR Article 17", "SOC 2 Type II"})
	if !strings.Contains(prompt, "against GDPR Article 17, SOC 2 Type II") {
		t.Fatalf("framework clause missing:\n%s", prompt)
	}

	bare := buildAnalysisPrompt("p.pdf", []string{"text"}, nil)
	if strings.Contains(bare, "against") {
		t.Fatalf("unexpected framework clause without selection")
	}
}

func TestJoinPagesClipsLongDocuments(t *testing.T) {
	huge := strings.Repeat("z", maxDocumentChars)
	joined := joinPages([]string{huge, "tail page"})
	if len(joined) > maxDocumentChars {
		t.Fatalf("joined length %d exceeds cap %d", len(joined), maxDocumentChars)
	}
}

func TestClipText(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"  hello  ", 100, "hello"},
		{"hello", 0, "hello"},
		{"hello", 3, "hel"},
	}
	for _, tc := range cases {
		if got := clipText(tc.in, tc.limit); got != tc.want {
			t.Fatalf("clipText(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestBuildChatPrompt(t *testing.T) {
	prompt := buildChatPrompt("  What does Art. 17 require?  ", []string{"gdpr"})
	if !strings.Contains(prompt, "Question: What does Art. 17 require?") {
		t.Fatalf("question not embedded:\n%s", prompt)
	}
	if !strings.Contains(prompt, "against gdpr") {
		t.Fatalf("framework clause missing")
	}
	if !strings.Contains(prompt, `"relevant_articles"`) {
		t.Fatalf("schema hint missing")
	}
}
