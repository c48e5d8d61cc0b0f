package ai

import (
	"fmt"
	"strings"
)

// Prompt budgets assume roughly 4 chars per token; page text beyond the cap
// is clipped rather than failing the whole run.
const maxDocumentChars = 200_000

const analysisSystemPrompt = "You are a compliance expert analyzing policy documents. " +
	"You respond with a single JSON object and nothing else."

const chatSystemPrompt = "You are a policy compliance assistant answering questions about " +
	"regulatory frameworks. You respond with a single JSON object and nothing else."

func clipText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

func joinPages(pages []string) string {
	var b strings.Builder
	for i, page := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "=== Page %d ===\n%s", i+1, strings.TrimSpace(page))
	}
	return clipText(b.String(), maxDocumentChars)
}

func frameworkClause(frameworks []string) string {
	if len(frameworks) == 0 {
		return ""
	}
	return " against " + strings.Join(frameworks, ", ")
}

func buildAnalysisPrompt(name string, pages []string, frameworks []string) string {
	if name == "" {
		name = "the document"
	}
	return fmt.Sprintf(`Analyze the policy document %q%s.

Review the following document and identify all violations and compliant sections. For each finding:
- Clearly state whether it's a VIOLATION or COMPLIANCE
- Provide a clear title
- Identify the specific section
- Explain the issue or compliance in detail
- Reference the specific policy/regulation
- Include the page number and exact quote from the document

Document to analyze:

%s

Return ONLY JSON matching:
{"findings":[{"type":"VIOLATION|COMPLIANCE","title":"","section":"","message":"","policy_reference":"","location_metadata":{"page_number":1,"exact_quote":""}}]}`,
		name, frameworkClause(frameworks), joinPages(pages))
}

func buildChatPrompt(message string, frameworks []string) string {
	return fmt.Sprintf(`Answer the user's policy compliance question%s.

Question: %s

Return ONLY JSON matching:
{"answer":"","referenced_frameworks":[""],"relevant_articles":[{"title":"","source":""}]}
Cite the frameworks you actually relied on; leave the arrays empty otherwise.`,
		frameworkClause(frameworks), strings.TrimSpace(message))
}
