package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	cfg := Default()
	if len(cfg.Frameworks) != 3 {
		t.Fatalf("expected 3 built-in frameworks, got %d", len(cfg.Frameworks))
	}
	gdpr, ok := cfg.FrameworkByID("gdpr")
	if !ok {
		t.Fatalf("gdpr missing from catalog")
	}
	if gdpr.Name != "GDPR Art. 17" || len(gdpr.Rules) != 5 {
		t.Fatalf("gdpr catalog wrong: %+v", gdpr)
	}
	if _, ok := cfg.FrameworkByID("hipaa"); ok {
		t.Fatalf("unknown framework resolved")
	}
}

func TestLoadOverridesAI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
ai:
  apiKey: sk-test
  baseURL: http://localhost:8080/v1
  model: local-model
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AI.APIKey != "sk-test" || cfg.AI.Model != "local-model" {
		t.Fatalf("ai section not loaded: %+v", cfg.AI)
	}
	if len(cfg.Frameworks) != 3 {
		t.Fatalf("default frameworks dropped when file omits them")
	}
}

func TestLoadCustomFrameworks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
frameworks:
  - id: hipaa
    name: HIPAA
    rules:
      - id: h1
        title: PHI encryption at rest
        checked: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Frameworks) != 1 || cfg.Frameworks[0].ID != "hipaa" {
		t.Fatalf("custom catalog not honored: %+v", cfg.Frameworks)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestScore(t *testing.T) {
	cfg := Default()
	cases := []struct {
		selected []string
		want     int
	}{
		{nil, 0},
		{[]string{"gdpr"}, 60},
		{[]string{"soc2"}, 75},
		{[]string{"gdpr", "iso27001", "soc2"}, 71},
		{[]string{"unknown"}, 0},
	}
	for _, tc := range cases {
		if got := cfg.Score(tc.selected); got != tc.want {
			t.Fatalf("Score(%v) = %d, want %d", tc.selected, got, tc.want)
		}
	}
}
