package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"policyproof/internal/finding"
)

// parseFindings decodes the analysis payload. Models wrap the JSON in prose
// often enough that the extracted {...} / [...] substrings are tried after
// the raw text. Findings whose page falls outside [1, pageCount] are dropped.
func parseFindings(raw string, pageCount int) ([]finding.Finding, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty analysis response")
	}

	candidates := []string{raw}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}

	for _, candidate := range candidates {
		// Pointer detects key presence: a clean document legitimately
		// reports {"findings":[]} and must not read as a parse failure.
		var wrapper struct {
			Findings *[]finding.Finding `json:"findings"`
		}
		if err := json.Unmarshal([]byte(candidate), &wrapper); err == nil && wrapper.Findings != nil {
			return sanitizeFindings(*wrapper.Findings, pageCount), nil
		}
		var arr []finding.Finding
		if err := json.Unmarshal([]byte(candidate), &arr); err == nil && len(arr) > 0 {
			return sanitizeFindings(arr, pageCount), nil
		}
	}
	return nil, fmt.Errorf("unable to parse analysis payload")
}

func sanitizeFindings(in []finding.Finding, pageCount int) []finding.Finding {
	result := make([]finding.Finding, 0, len(in))
	for _, f := range in {
		f.Title = strings.TrimSpace(f.Title)
		f.Message = strings.TrimSpace(f.Message)
		if f.Title == "" && f.Message == "" {
			continue
		}
		if f.Type != finding.Violation && f.Type != finding.Compliance {
			continue
		}
		if f.Location.PageNumber < 1 || f.Location.PageNumber > pageCount {
			continue
		}
		result = append(result, f)
	}
	return result
}

func parseAnswer(raw string) (Answer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Answer{}, fmt.Errorf("empty chat response")
	}

	candidates := []string{raw}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}

	for _, candidate := range candidates {
		var answer Answer
		if err := json.Unmarshal([]byte(candidate), &answer); err == nil {
			answer.Text = strings.TrimSpace(answer.Text)
			if answer.Text != "" {
				answer.RelevantArticles = sanitizeArticles(answer.RelevantArticles)
				return answer, nil
			}
		}
	}

	// Plain-prose fallback: treat the whole reply as the answer text.
	if !strings.HasPrefix(raw, "{") {
		return Answer{Text: raw}, nil
	}
	return Answer{}, fmt.Errorf("unable to parse chat payload")
}

func sanitizeArticles(articles []Article) []Article {
	result := make([]Article, 0, len(articles))
	for _, a := range articles {
		a.Title = strings.TrimSpace(a.Title)
		a.Source = strings.TrimSpace(a.Source)
		if a.Title == "" {
			continue
		}
		result = append(result, a)
	}
	return result
}
