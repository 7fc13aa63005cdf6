package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/eschatch/eschatch/internal/config"
	"github.com/eschatch/eschatch/internal/secret"
)

// runInit walks the user through first-run setup and writes the config
// file. The API key goes to the OS keyring, never to disk.
func runInit(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		cfg = config.Default()
	}

	provider := cfg.LLM.Provider
	model := cfg.LLM.Model
	escapeKey := "ctrl+x"
	if len(cfg.General.EscapeKeys) > 0 {
		escapeKey = cfg.General.EscapeKeys[0]
	}
	var apiKey string
	preview := cfg.Safety.PreviewMode

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Options(
					huh.NewOption("Anthropic", "anthropic"),
					huh.NewOption("OpenAI-compatible", "openai"),
				).
				Value(&provider),

			huh.NewInput().
				Title("Model").
				Description("Model name, e.g. claude-sonnet-4-5 or gpt-4o").
				Value(&model),

			huh.NewInput().
				Title("API Key").
				Description("Stored in the OS keyring (leave empty to use the environment variable)").
				EchoMode(huh.EchoModePassword).
				Value(&apiKey),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Escape Key").
				Description("Key chord that opens the task prompt, e.g. ctrl+x or 'esc q'").
				Validate(validateEscapeKey).
				Value(&escapeKey),

			huh.NewConfirm().
				Title("Preview Mode").
				Description("Show generated commands and confirm before injecting").
				Value(&preview),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("setup form: %w", err)
	}

	cfg.LLM.Provider = provider
	cfg.LLM.Model = strings.TrimSpace(model)
	cfg.General.EscapeKeys = []string{strings.TrimSpace(escapeKey)}
	cfg.Safety.PreviewMode = preview
	if err := cfg.Validate(); err != nil {
		return err
	}

	if apiKey != "" {
		store := secret.NewStore()
		if err := store.SetAPIKey(provider, apiKey); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v; set %s instead\n", err, apiKeyEnv(cfg))
		} else {
			fmt.Println("API key stored in the system keyring.")
		}
	}

	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func validateEscapeKey(spec string) error {
	_, err := config.ParseEscapeKey(strings.TrimSpace(spec))
	return err
}
