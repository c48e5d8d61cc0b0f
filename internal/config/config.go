// Package config loads the reviewer's settings: how to reach the analysis
// provider and which compliance frameworks the reviewer can select.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AI struct {
		APIKey  string `yaml:"apiKey"`
		BaseURL string `yaml:"baseURL"`
		Model   string `yaml:"model"`
	} `yaml:"ai"`

	Frameworks []Framework `yaml:"frameworks"`
}

// Framework is one selectable compliance framework and its rule checklist.
type Framework struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Rules []Rule `yaml:"rules"`
}

// Rule is one checklist item; Checked feeds the compliance score.
type Rule struct {
	ID      string `yaml:"id"`
	Title   string `yaml:"title"`
	Checked bool   `yaml:"checked"`
}

// Load reads the YAML config at path. Sections left out fall back to the
// defaults; an empty framework list gets the built-in catalog.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Frameworks) == 0 {
		cfg.Frameworks = defaultFrameworks()
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given. The API key
// still comes from flags or the environment.
func Default() *Config {
	cfg := &Config{}
	cfg.Frameworks = defaultFrameworks()
	return cfg
}

func defaultFrameworks() []Framework {
	return []Framework{
		{
			ID:   "gdpr",
			Name: "GDPR Art. 17",
			Rules: []Rule{
				{ID: "g1", Title: "Right to erasure implemented", Checked: true},
				{ID: "g2", Title: "Data retention policy defined"},
				{ID: "g3", Title: "User consent mechanism", Checked: true},
				{ID: "g4", Title: "Data portability support", Checked: true},
				{ID: "g5", Title: "Breach notification process"},
			},
		},
		{
			ID:   "iso27001",
			Name: "ISO 27001",
			Rules: []Rule{
				{ID: "i1", Title: "Access control policy", Checked: true},
				{ID: "i2", Title: "Information classification", Checked: true},
				{ID: "i3", Title: "Cryptographic controls"},
				{ID: "i4", Title: "Physical security", Checked: true},
				{ID: "i5", Title: "Incident management", Checked: true},
			},
		},
		{
			ID:   "soc2",
			Name: "SOC 2 Type II",
			Rules: []Rule{
				{ID: "s1", Title: "Security monitoring", Checked: true},
				{ID: "s2", Title: "Availability controls", Checked: true},
				{ID: "s3", Title: "Processing integrity"},
				{ID: "s4", Title: "Confidentiality measures", Checked: true},
			},
		},
	}
}

// FrameworkByID looks a framework up by its identifier.
func (c *Config) FrameworkByID(id string) (Framework, bool) {
	for _, f := range c.Frameworks {
		if f.ID == id {
			return f, true
		}
	}
	return Framework{}, false
}

// Score returns the percentage of checked rules across the frameworks with
// the given ids, rounded to the nearest integer. No selected rules scores 0.
func (c *Config) Score(selected []string) int {
	total, checked := 0, 0
	for _, id := range selected {
		f, ok := c.FrameworkByID(id)
		if !ok {
			continue
		}
		for _, r := range f.Rules {
			total++
			if r.Checked {
				checked++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return int(float64(checked)/float64(total)*100 + 0.5)
}
