package main

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"policyproof/internal/tuitest"
)

func TestPolicyProofInitialScreen(t *testing.T) {
	t.Parallel()

	cmdDir := moduleDir(t)
	binary := buildBinary(t, cmdDir)

	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "-no-alt-screen"},
		Dir:     cmdDir,
		Env:     []string{"OPENAI_API_KEY="},
		Width:   140,
		Height:  45,
		Steps: []tuitest.Step{
			{Delay: time.Second},
			// The upload composer starts focused; Esc blurs it so the
			// following "?" reaches the keymap instead of the input.
			{Input: tuitest.KeyEsc},
			{Delay: 500 * time.Millisecond},
			{Input: []byte("?")},
			{Delay: time.Second},
			{Input: tuitest.KeyCtrlC},
		},
		Timeout:        8 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run CLI: %v", err)
	}

	frame, ok := rec.FinalFrame()
	if !ok {
		t.Fatalf("no frames captured")
	}
	for _, want := range []string{"PolicyProof", "Document Analysis", "AI off"} {
		if !rec.ContainsPlain(want) {
			t.Errorf("no frame contains %q\nfinal frame:\n%s", want, frame.Plain)
		}
	}
	if !rec.ContainsPlain("Keys") {
		t.Errorf("help overlay missing after ?\nfinal frame:\n%s", frame.Plain)
	}
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	tmp := t.TempDir()
	name := "policyproof-integration"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binPath := filepath.Join(tmp, name)
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = cmdDir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build CLI: %v\n%s", err, output)
	}
	return binPath
}
