package tui

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateUploadPath(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "policy.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	empty := filepath.Join(dir, "empty.pdf")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cases := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid pdf", pdf, false},
		{"blank input", "   ", true},
		{"wrong extension", filepath.Join(dir, "notes.txt"), true},
		{"missing file", filepath.Join(dir, "gone.pdf"), true},
		{"directory", dir, true},
		{"empty file", empty, true},
	}
	for _, tc := range cases {
		err := validateUploadPath(tc.path)
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestValidateUploadPathExtensionCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "POLICY.PDF")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := validateUploadPath(pdf); err != nil {
		t.Fatalf("uppercase extension rejected: %v", err)
	}
}
