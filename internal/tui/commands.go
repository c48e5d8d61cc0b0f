package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"policyproof/internal/ai"
	"policyproof/internal/finding"
	"policyproof/internal/pdfdoc"
	"policyproof/internal/session"
)

// Assistant is the slice of the AI client the TUI needs. A nil assistant
// disables analysis and chat with a visible notice.
type Assistant interface {
	Analyze(ctx context.Context, name string, pages []string, frameworks []string) ([]finding.Finding, error)
	Ask(ctx context.Context, message string, frameworks []string) (ai.Answer, error)
}

// validateUploadPath rejects bad uploads before the lifecycle is touched.
func validateUploadPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("no file given")
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%s: only PDF documents are supported", filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", filepath.Base(path))
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", filepath.Base(path))
	}
	return nil
}

func uploadDocumentJob(path string) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return uploadResultMsg{err: err}, err
		}
		name := filepath.Base(path)
		renderer, err := pdfdoc.Open(data, name)
		if err != nil {
			return uploadResultMsg{err: err}, err
		}
		pages, err := renderer.Pages()
		if err != nil {
			return uploadResultMsg{err: err}, err
		}
		doc := session.Document{
			Name:      name,
			Bytes:     renderer.Bytes(),
			PageCount: renderer.PageCount(),
			Pages:     pages,
		}
		return uploadResultMsg{doc: doc, renderer: renderer}, nil
	}
}

func analyzeJob(assistant Assistant, token uuid.UUID, doc session.Document, frameworks []string) jobRunner {
	pages := append([]string(nil), doc.Pages...)
	selected := append([]string(nil), frameworks...)
	name := doc.Name
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 3*time.Minute)
		defer cancel()
		findings, err := assistant.Analyze(ctx, name, pages, selected)
		return analysisResultMsg{token: token, findings: findings, err: err}, err
	}
}

func chatJob(assistant Assistant, seq int, message string, frameworks []string) jobRunner {
	selected := append([]string(nil), frameworks...)
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
		defer cancel()
		answer, err := assistant.Ask(ctx, message, selected)
		return chatResultMsg{seq: seq, answer: answer, err: err}, err
	}
}

// pageGeometryJob reads the page dimensions off the renderer. Dimensions are
// only known after the document has been rendered, so they arrive as a
// message instead of being read synchronously at draw time.
func pageGeometryJob(renderer *pdfdoc.Document, page int) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		w, h := renderer.PageSize(page)
		return pageGeometryMsg{page: page, width: w, height: h}, nil
	}
}
