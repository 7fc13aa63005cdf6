package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if got := cfg.General.EscapeKeys; len(got) != 1 || got[0] != "ctrl+x" {
		t.Errorf("default escape keys = %v", got)
	}
	if cfg.Context.MaxBytes != 2000 {
		t.Errorf("default context cap = %d, want 2000", cfg.Context.MaxBytes)
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("default provider = %q", cfg.LLM.Provider)
	}
	if cfg.Safety.PreviewMode {
		t.Error("preview_mode should default to false")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
general:
  escape_keys: ["ctrl+g", "esc q"]
context:
  max_bytes: 512
llm:
  provider: openai
  model: gpt-4o-mini
  timeout: 30s
safety:
  preview_mode: true
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if cfg.Context.MaxBytes != 512 {
		t.Errorf("max_bytes = %d, want 512", cfg.Context.MaxBytes)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm = %q/%q", cfg.LLM.Provider, cfg.LLM.Model)
	}
	if time.Duration(cfg.LLM.Timeout) != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.LLM.Timeout)
	}
	if !cfg.Safety.PreviewMode {
		t.Error("preview_mode not read from file")
	}

	seqs, err := cfg.EscapeSequences()
	if err != nil {
		t.Fatal(err)
	}
	if len(seqs) != 2 {
		t.Fatalf("got %d escape sequences, want 2", len(seqs))
	}
	if seqs[0][0] != 0x07 {
		t.Errorf("ctrl+g = %#x, want 0x07", seqs[0][0])
	}
	if string(seqs[1]) != "\x1bq" {
		t.Errorf("esc q = %q", seqs[1])
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Context.MaxBytes != 2000 {
		t.Errorf("missing file should yield defaults, got cap %d", cfg.Context.MaxBytes)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ESCHATCH_MODEL", "claude-haiku-4-5")
	t.Setenv("ESCHATCH_ESCAPE_KEY", "ctrl+g")
	t.Setenv("ESCHATCH_PREVIEW", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	if cfg.LLM.Model != "claude-haiku-4-5" {
		t.Errorf("model = %q", cfg.LLM.Model)
	}
	if got := cfg.General.EscapeKeys; len(got) != 1 || got[0] != "ctrl+g" {
		t.Errorf("escape keys = %v", got)
	}
	if !cfg.Safety.PreviewMode {
		t.Error("ESCHATCH_PREVIEW not applied")
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "delphi"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted unknown provider")
	}
}

func TestParseEscapeKey(t *testing.T) {
	tests := []struct {
		spec    string
		want    []byte
		wantErr bool
	}{
		{"ctrl+x", []byte{0x18}, false},
		{"ctrl+a", []byte{0x01}, false},
		{"CTRL+G", []byte{0x07}, false},
		{"esc", []byte{0x1b}, false},
		{"esc q", []byte{0x1b, 'q'}, false},
		{"0x1d", []byte{0x1d}, false},
		{"ctrl+x x", []byte{0x18, 'x'}, false},
		{"", nil, true},
		{"ctrl+", nil, true},
		{"ctrl+1", nil, true},
		{"0xzz", nil, true},
		{"meta+x", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseEscapeKey(tt.spec)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEscapeKey(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		if string(got) != string(tt.want) {
			t.Errorf("ParseEscapeKey(%q) = %v, want %v", tt.spec, got, tt.want)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := Default()
	cfg.LLM.Model = "gpt-4o"
	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.LLM.Model != "gpt-4o" {
		t.Errorf("round-tripped model = %q", loaded.LLM.Model)
	}
}
