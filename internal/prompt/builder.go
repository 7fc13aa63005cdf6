// Package prompt assembles the model prompt from the recorded terminal
// context: recent child output as a screen approximation, recent keystrokes,
// and in chat mode the prior conversation turns.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/eschatch/eschatch/internal/ring"
)

// ansiEscape matches CSI sequences, OSC sequences, and stray escapes so the
// model sees readable text rather than terminal control noise.
var ansiEscape = regexp.MustCompile(`\x1b(?:\[[0-9;?]*[a-zA-Z]|\][^\x07\x1b]*(?:\x07|\x1b\\)|.)`)

// StripANSI removes terminal escape sequences from s.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Turn is one prior (task, response) exchange.
type Turn struct {
	Task     string
	Response string
}

// Builder renders prompts for the dispatch, explain, and debug flows.
type Builder struct {
	source *Source
}

// NewBuilder creates a builder reading its system template from source.
func NewBuilder(source *Source) *Builder {
	return &Builder{source: source}
}

// System returns the current system prompt.
func (b *Builder) System() string {
	return b.source.System()
}

// Task renders the user prompt for a command-generation round.
func (b *Builder) Task(task string, events []ring.Event, history []Turn) string {
	var sb strings.Builder

	if len(history) > 0 {
		sb.WriteString("Previous conversation:\n----\n")
		for _, turn := range tail(history, 4) {
			fmt.Fprintf(&sb, "user: %s\nassistant: %s\n", turn.Task, turn.Response)
		}
		sb.WriteString("----\n\n")
	}

	output, input := contextText(events)
	fmt.Fprintf(&sb, "The screen scrape is:\n----\n%s\n----\n\n", output)
	fmt.Fprintf(&sb, "The recent input is: %s\n----\n\n", input)

	sb.WriteString("Pay attention to the prompt style and any banners in the " +
		"screen scrape: the user may be at a shell, a language REPL, a " +
		"debugger, or inside a full-screen program such as vim.\n\n")
	fmt.Fprintf(&sb, "Create a single line of input to accomplish the following task: %s\n\n", task)
	sb.WriteString("If part of the task is enclosed in parentheses, that is " +
		"what ought to be changed. Output only the command as a single line " +
		"of plain text, with no quotes, formatting, or commentary.")

	return sb.String()
}

// Explain renders the prompt for the /explain command.
func (b *Builder) Explain(events []ring.Event) string {
	output, input := contextText(events)
	return fmt.Sprintf("Explain what is happening in this terminal session:\n----\n%s\n----\nRecent input: %s", output, input)
}

// Debug renders the prompt for the /debug command.
func (b *Builder) Debug(events []ring.Event) string {
	output, input := contextText(events)
	return fmt.Sprintf("Analyze the last error or problem in this terminal session and suggest a fix:\n----\n%s\n----\nRecent input: %s", output, input)
}

// contextText splits a context snapshot into cleaned output and input text.
func contextText(events []ring.Event) (output, input string) {
	var out, in strings.Builder
	for _, ev := range events {
		switch ev.Dir {
		case ring.DirOutput:
			out.Write(ev.Data)
		case ring.DirInput:
			in.Write(ev.Data)
		}
	}
	return StripANSI(out.String()), StripANSI(in.String())
}

func tail(turns []Turn, n int) []Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
