package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eschatch/eschatch/internal/ring"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"color", "\x1b[32mgreen\x1b[0m text", "green text"},
		{"cursor", "a\x1b[2Jb\x1b[H", "ab"},
		{"osc title", "\x1b]0;my title\x07prompt$ ", "prompt$ "},
		{"bare escape", "a\x1bcb", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripANSI(tt.in); got != tt.want {
				t.Errorf("StripANSI(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTaskIncludesContext(t *testing.T) {
	b := NewBuilder(NewSource("system text"))
	events := []ring.Event{
		{Dir: ring.DirOutput, Data: []byte("$ ls\nfile.txt\n")},
		{Dir: ring.DirInput, Data: []byte("ls\r")},
	}

	got := b.Task("show hidden files", events, nil)

	for _, want := range []string{"$ ls", "file.txt", "ls\r", "show hidden files", "single line"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Previous conversation") {
		t.Error("prompt includes history section without history")
	}
}

func TestTaskHistoryTail(t *testing.T) {
	b := NewBuilder(NewSource("sys"))
	history := []Turn{
		{Task: "t1", Response: "r1"},
		{Task: "t2", Response: "r2"},
		{Task: "t3", Response: "r3"},
		{Task: "t4", Response: "r4"},
		{Task: "t5", Response: "r5"},
	}

	got := b.Task("next", nil, history)

	if strings.Contains(got, "user: t1") {
		t.Error("oldest turn should be dropped from history")
	}
	for _, want := range []string{"user: t2", "assistant: r5"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestExplainAndDebug(t *testing.T) {
	b := NewBuilder(NewSource("sys"))
	events := []ring.Event{
		{Dir: ring.DirOutput, Data: []byte("segfault at 0x0\n")},
	}

	if got := b.Explain(events); !strings.Contains(got, "segfault") || !strings.Contains(got, "Explain") {
		t.Errorf("Explain prompt malformed:\n%s", got)
	}
	if got := b.Debug(events); !strings.Contains(got, "segfault") || !strings.Contains(got, "fix") {
		t.Errorf("Debug prompt malformed:\n%s", got)
	}
}

func TestStaticSource(t *testing.T) {
	s := NewSource("inline prompt")
	if got := s.System(); got != "inline prompt" {
		t.Errorf("System() = %q, want %q", got, "inline prompt")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestFileSourceLoadsAndFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "system.txt")

	missing, err := NewFileSource(path, "fallback text")
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer missing.Close()
	if got := missing.System(); got != "fallback text" {
		t.Errorf("missing file: System() = %q, want fallback", got)
	}

	if err := os.WriteFile(path, []byte("from file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	loaded, err := NewFileSource(path, "fallback text")
	if err != nil {
		t.Fatalf("NewFileSource: %v", err)
	}
	defer loaded.Close()
	if got := loaded.System(); got != "from file" {
		t.Errorf("System() = %q, want %q", got, "from file")
	}
}
