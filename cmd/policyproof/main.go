package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"policyproof/internal/ai"
	"policyproof/internal/config"
	"policyproof/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	apiKey := flag.String("api-key", "", "analysis provider API key (defaults to OPENAI_API_KEY)")
	apiBase := flag.String("api-base", "", "custom provider base URL")
	model := flag.String("model", "", "override the default analysis model")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Println("failed to load config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *apiKey != "" {
		cfg.AI.APIKey = *apiKey
	}
	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if *apiBase != "" {
		cfg.AI.BaseURL = *apiBase
	}
	if *model != "" {
		cfg.AI.Model = *model
	}

	var assistant tui.Assistant
	if cfg.AI.APIKey != "" {
		assistant = ai.New(ai.Config{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
		})
	} else {
		fmt.Println("analysis disabled: no API key (use -api-key or set OPENAI_API_KEY)")
	}

	m, err := tui.New(tui.Config{
		Assistant: assistant,
		Catalog:   cfg.Frameworks,
	})
	if err != nil {
		fmt.Println("failed to initialize:", err)
		os.Exit(1)
	}

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(m, opts...)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}
