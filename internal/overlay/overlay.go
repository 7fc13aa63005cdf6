// Package overlay implements the command prompt that replaces normal
// forwarding after the escape trigger fires. It runs a small state machine:
// awaiting-task (line-edited prompt), dispatching (model call with the
// context snapshot), injecting (safety-gated write to the child's input).
// In chat mode the machine stays in awaiting-task after each round until the
// user submits an empty line.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/muesli/termenv"

	"github.com/eschatch/eschatch/internal/llm"
	"github.com/eschatch/eschatch/internal/prompt"
	"github.com/eschatch/eschatch/internal/ring"
	"github.com/eschatch/eschatch/internal/safety"
)

// ErrSessionEnded reports that an input or output source closed while the
// overlay was active. The caller tears the session down.
var ErrSessionEnded = errors.New("session ended")

// errAborted is returned internally when the user cancels a round.
var errAborted = errors.New("aborted")

const (
	keyCtrlC     = 0x03
	keyBackspace = 0x08
	keyCtrlU     = 0x15
	keyEscape    = 0x1b
	keyDelete    = 0x7f
)

// Host is what the overlay needs from the multiplexer. The overlay never
// touches the pseudo-terminal or the ring directly; the multiplexer keeps
// sole ownership of both.
type Host interface {
	// Inject writes generated text to the child's input and records it.
	Inject(data []byte) error
	// HandleOutput records and displays child output that arrives while the
	// overlay is active. It is never scanned for the trigger.
	HandleOutput(data []byte)
	// RecordTask records a submitted task into the context window.
	RecordTask(task string)
	// Snapshot returns the current context window contents.
	Snapshot() []ring.Event
}

// Params configures an Overlay.
type Params struct {
	Screen      io.Writer
	Host        Host
	Provider    llm.Provider
	Builder     *prompt.Builder
	Filter      *safety.Filter
	Model       string
	MaxTokens   int
	Temperature *float64
	Preview     bool
}

// Overlay holds the state that persists across activations within one
// session: the chat-mode flag and the conversation history.
type Overlay struct {
	screen      io.Writer
	out         *termenv.Output
	host        Host
	provider    llm.Provider
	builder     *prompt.Builder
	filter      *safety.Filter
	model       string
	maxTokens   int
	temperature *float64
	preview     bool

	chatMode bool
	history  []prompt.Turn
	pending  []byte
}

// New creates an overlay with empty conversation state.
func New(p Params) *Overlay {
	return &Overlay{
		screen:      p.Screen,
		out:         termenv.NewOutput(p.Screen),
		host:        p.Host,
		provider:    p.Provider,
		builder:     p.Builder,
		filter:      p.Filter,
		model:       p.Model,
		maxTokens:   p.MaxTokens,
		temperature: p.Temperature,
		preview:     p.Preview,
	}
}

// ChatMode reports whether chat mode is currently enabled.
func (o *Overlay) ChatMode() bool { return o.chatMode }

// History returns the conversation turns accumulated in chat mode.
func (o *Overlay) History() []prompt.Turn { return o.history }

// Run drives one activation of the overlay. keys carries user keystroke
// chunks, output carries child output chunks; both are owned by the caller's
// reader goroutines. A nil return means resume normal forwarding;
// ErrSessionEnded means a source closed and the session is over.
func (o *Overlay) Run(ctx context.Context, keys, output <-chan []byte) error {
	// Unconsumed type-ahead is dropped on exit rather than forwarded, so a
	// half-typed task can never leak into the child.
	defer func() { o.pending = nil }()
	for {
		o.renderPrompt()
		line, err := o.readLine(ctx, keys, output)
		o.clearLine()
		if errors.Is(err, errAborted) {
			// Abort discards the pending task with no side effects.
			return nil
		}
		if err != nil {
			return err
		}

		task := strings.TrimSpace(line)
		if task == "" {
			if o.chatMode {
				o.chatMode = false
				o.status("chat mode exited")
			}
			return nil
		}

		if strings.HasPrefix(task, "/") {
			stay, err := o.runCommand(ctx, keys, output, task)
			if err != nil {
				return err
			}
			if stay && o.chatMode {
				continue
			}
			return nil
		}

		if err := o.round(ctx, keys, output, task); err != nil {
			return err
		}
		if !o.chatMode {
			return nil
		}
	}
}

// round runs one dispatch/inject cycle for a free-text task.
func (o *Overlay) round(ctx context.Context, keys, output <-chan []byte, task string) error {
	text := o.builder.Task(task, o.host.Snapshot(), o.chatHistory())
	resp, err := o.dispatch(ctx, keys, output, o.builder.System(), text)
	if errors.Is(err, errAborted) {
		o.status("cancelled")
		return nil
	}
	if err != nil {
		if errors.Is(err, ErrSessionEnded) || errors.Is(err, context.Canceled) {
			return err
		}
		slog.Warn("model request failed", slog.String("error", err.Error()))
		o.warn("request failed: " + err.Error())
		return nil
	}

	command := firstLine(resp.Text)
	if command == "" {
		o.warn("empty response, nothing to inject")
		return nil
	}

	o.host.RecordTask(task)
	if o.chatMode {
		o.history = append(o.history, prompt.Turn{Task: task, Response: command})
	}

	verdict, pattern := o.filter.Classify(command)
	if verdict == safety.Destructive {
		slog.Warn("destructive command detected",
			slog.String("command", command),
			slog.String("pattern", pattern),
		)
	}

	// Destructive text is always confirmed, independent of preview mode.
	if verdict == safety.Destructive || o.preview {
		if verdict == safety.Destructive {
			o.warn("destructive command detected: " + command)
		} else {
			o.status("command: " + command)
		}
		ok, err := o.confirm(ctx, keys, output)
		if err != nil {
			return err
		}
		if !ok {
			o.status("discarded")
			return nil
		}
	}

	if err := o.host.Inject(append([]byte(command), '\r')); err != nil {
		return fmt.Errorf("inject command: %w", err)
	}
	return nil
}

// runCommand handles a task starting with "/". It reports whether the
// overlay should stay active for another chat round.
func (o *Overlay) runCommand(ctx context.Context, keys, output <-chan []byte, task string) (stay bool, err error) {
	switch strings.ToLower(task) {
	case "/chat":
		o.chatMode = true
		o.status("chat mode enabled, empty line exits")
		return true, nil
	case "/explain":
		return true, o.synthesized(ctx, keys, output, o.builder.Explain(o.host.Snapshot()),
			"You are a helpful assistant that explains terminal sessions clearly and concisely.")
	case "/debug":
		return true, o.synthesized(ctx, keys, output, o.builder.Debug(o.host.Snapshot()),
			"You are an expert debugger that helps identify and fix terminal and command errors.")
	case "/clear":
		o.history = nil
		o.chatMode = false
		o.status("conversation history cleared")
		return false, nil
	case "/help":
		o.writeLines(helpText)
		return false, nil
	default:
		o.warn("unknown command: " + task)
		return true, nil
	}
}

// synthesized dispatches a task built from the context window and displays
// the response inline instead of injecting it.
func (o *Overlay) synthesized(ctx context.Context, keys, output <-chan []byte, text, system string) error {
	resp, err := o.dispatch(ctx, keys, output, system, text)
	if errors.Is(err, errAborted) {
		o.status("cancelled")
		return nil
	}
	if err != nil {
		if errors.Is(err, ErrSessionEnded) || errors.Is(err, context.Canceled) {
			return err
		}
		slog.Warn("model request failed", slog.String("error", err.Error()))
		o.warn("request failed: " + err.Error())
		return nil
	}
	o.writeLines("\r\n" + resp.Text + "\r\n")
	return nil
}

// dispatch runs the model call on its own goroutine so child output keeps
// flowing into the context window while the call is in flight. Ctrl-C
// cancels the call; a cancelled call can never inject a stale response
// because its result is discarded here.
func (o *Overlay) dispatch(ctx context.Context, keys, output <-chan []byte, system, text string) (*llm.Response, error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		resp *llm.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := o.provider.Complete(cctx, llm.Request{
			Model:       o.model,
			System:      system,
			Messages:    []llm.Message{{Role: llm.RoleUser, Content: text}},
			MaxTokens:   o.maxTokens,
			Temperature: o.temperature,
		})
		done <- result{resp, err}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-done:
			return res.resp, res.err
		case data, ok := <-output:
			if !ok {
				return nil, ErrSessionEnded
			}
			o.host.HandleOutput(data)
		case chunk, ok := <-keys:
			if !ok {
				return nil, ErrSessionEnded
			}
			for _, b := range chunk {
				if b == keyCtrlC {
					return nil, errAborted
				}
			}
			// Type-ahead while the call is in flight is kept for the
			// confirmation or the next chat round.
			o.pending = append(o.pending, chunk...)
		}
	}
}

// readLine consumes keystrokes into a line with minimal editing: backspace
// deletes, Ctrl-U clears, Enter submits, Ctrl-C or Esc aborts.
func (o *Overlay) readLine(ctx context.Context, keys, output <-chan []byte) (string, error) {
	var buf []byte
	for {
		b, err := o.nextByte(ctx, keys, output)
		if err != nil {
			return "", err
		}
		switch {
		case b == '\r' || b == '\n':
			return string(buf), nil
		case b == keyCtrlC || b == keyEscape:
			return "", errAborted
		case b == keyBackspace || b == keyDelete:
			if len(buf) > 0 {
				buf = buf[:len(buf)-1]
				fmt.Fprint(o.screen, "\b \b")
			}
		case b == keyCtrlU:
			buf = nil
			o.clearLine()
			o.renderPrompt()
		case b >= 0x20 && b < 0x7f:
			buf = append(buf, b)
			fmt.Fprint(o.screen, string(b))
		}
	}
}

// confirm waits for Enter (proceed) or Ctrl-C/Esc (discard).
func (o *Overlay) confirm(ctx context.Context, keys, output <-chan []byte) (bool, error) {
	fmt.Fprint(o.screen, o.out.String("press Enter to inject, Ctrl-C to discard ").Faint().String())
	for {
		b, err := o.nextByte(ctx, keys, output)
		if err != nil {
			return false, err
		}
		switch b {
		case '\r', '\n':
			o.clearLine()
			return true, nil
		case keyCtrlC, keyEscape:
			o.clearLine()
			return false, nil
		}
	}
}

// nextByte yields the next keystroke byte, handling child output that
// arrives in between.
func (o *Overlay) nextByte(ctx context.Context, keys, output <-chan []byte) (byte, error) {
	for {
		if len(o.pending) > 0 {
			b := o.pending[0]
			o.pending = o.pending[1:]
			return b, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case chunk, ok := <-keys:
			if !ok {
				return 0, ErrSessionEnded
			}
			o.pending = append(o.pending, chunk...)
		case data, ok := <-output:
			if !ok {
				return 0, ErrSessionEnded
			}
			o.host.HandleOutput(data)
		}
	}
}

func (o *Overlay) chatHistory() []prompt.Turn {
	if !o.chatMode {
		return nil
	}
	return o.history
}

func (o *Overlay) renderPrompt() {
	label := "[eschatch] Task: "
	if o.chatMode {
		label = "[eschatch] (chat) Task: "
	}
	fmt.Fprint(o.screen, o.out.String(label).Reverse().String())
}

// clearLine erases the prompt line so the child's screen content is not
// disturbed by overlay leftovers.
func (o *Overlay) clearLine() {
	fmt.Fprint(o.screen, "\x1b[2K\r")
}

func (o *Overlay) status(msg string) {
	fmt.Fprint(o.screen, o.out.String("[eschatch] "+msg).Foreground(termenv.ANSIGreen).String()+"\r\n")
}

func (o *Overlay) warn(msg string) {
	fmt.Fprint(o.screen, o.out.String("[eschatch] "+msg).Foreground(termenv.ANSIRed).String()+"\r\n")
}

func (o *Overlay) writeLines(text string) {
	fmt.Fprint(o.screen, strings.ReplaceAll(text, "\n", "\r\n"))
}

// firstLine reduces a model response to the single injectable line.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

const helpText = `
[eschatch] commands:
  /chat    - enable multi-turn conversation mode
  /explain - explain current terminal state
  /debug   - analyze errors and suggest fixes
  /clear   - clear conversation history
  /help    - show this help
`
