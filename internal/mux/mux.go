// Package mux implements the central event loop. One reader goroutine per
// source feeds chunk channels into a single select loop that forwards,
// records, scans for the escape trigger, and hands control to the overlay.
// The loop goroutine is the sole writer to the child and the sole mutator of
// the context window, so forwarding and injection can never interleave.
package mux

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/eschatch/eschatch/internal/overlay"
	"github.com/eschatch/eschatch/internal/ring"
	"github.com/eschatch/eschatch/internal/transcript"
	"github.com/eschatch/eschatch/internal/trigger"
)

const chunkSize = 4096

// Params configures a Mux.
type Params struct {
	// Term is the child side, usually the pseudo-terminal master.
	Term io.ReadWriter
	// Stdin is the user's keyboard, already in raw mode.
	Stdin io.Reader
	// Screen is the user's display.
	Screen io.Writer
	// Ring is the context window. The mux is its only writer.
	Ring    *ring.Ring
	Scanner *trigger.Scanner
	// Transcript, when set, receives a best-effort copy of every event.
	Transcript *transcript.Recorder
}

// Mux owns the forwarding loop for one session.
type Mux struct {
	term    io.ReadWriter
	stdin   io.Reader
	screen  io.Writer
	ring    *ring.Ring
	scanner *trigger.Scanner
	rec     *transcript.Recorder
	ov      *overlay.Overlay

	keys   chan []byte
	output chan []byte
}

// New creates a mux. The overlay is attached separately with SetOverlay
// because the overlay's host is the mux itself.
func New(p Params) *Mux {
	return &Mux{
		term:    p.Term,
		stdin:   p.Stdin,
		screen:  p.Screen,
		ring:    p.Ring,
		scanner: p.Scanner,
		rec:     p.Transcript,
	}
}

// SetOverlay attaches the overlay entered on trigger match. A nil overlay
// leaves triggers inert; their bytes are still consumed.
func (m *Mux) SetOverlay(ov *overlay.Overlay) { m.ov = ov }

// Run forwards until the child exits, stdin closes, the context is
// cancelled, or an I/O error ends the session. A nil return is a normal end
// of session; the caller collects the child's status via the session.
func (m *Mux) Run(ctx context.Context) error {
	m.keys = make(chan []byte, 8)
	m.output = make(chan []byte, 8)
	go readLoop(m.stdin, m.keys)
	go readLoop(m.term, m.output)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-m.keys:
			if !ok {
				// Keyboard gone. Release any withheld partial match so no
				// byte is lost, then end the session.
				if pending := m.scanner.Flush(); len(pending) > 0 {
					if err := m.forward(pending); err != nil {
						return err
					}
				}
				return nil
			}
			if err := m.handleInput(ctx, chunk); err != nil {
				if errors.Is(err, overlay.ErrSessionEnded) {
					return nil
				}
				return err
			}
		case data, ok := <-m.output:
			if !ok {
				return nil
			}
			m.HandleOutput(data)
		}
	}
}

// handleInput scans a keyboard chunk byte by byte, forwarding released
// bytes and entering the overlay on a trigger match.
func (m *Mux) handleInput(ctx context.Context, chunk []byte) error {
	for _, b := range chunk {
		adv := m.scanner.Feed(b)
		if len(adv.Forward) > 0 {
			if err := m.forward(adv.Forward); err != nil {
				return err
			}
		}
		if adv.Matched {
			slog.Debug("trigger matched", slog.String("binding", fmt.Sprintf("%q", adv.Trigger)))
			if m.ov == nil {
				continue
			}
			if err := m.ov.Run(ctx, m.keys, m.output); err != nil {
				return err
			}
		}
	}
	return nil
}

// forward records user input and writes it to the child.
func (m *Mux) forward(data []byte) error {
	m.ring.Record(ring.DirInput, data)
	if m.rec != nil {
		if err := m.rec.RecordInput(data); err != nil {
			slog.Warn("transcript write failed", slog.String("error", err.Error()))
		}
	}
	if _, err := m.term.Write(data); err != nil {
		return fmt.Errorf("write to child: %w", err)
	}
	return nil
}

// Inject implements overlay.Host. Generated text takes the same path as
// typed input, minus the trigger scan.
func (m *Mux) Inject(data []byte) error {
	return m.forward(data)
}

// HandleOutput implements overlay.Host: child output is recorded and
// displayed whether or not the overlay is active.
func (m *Mux) HandleOutput(data []byte) {
	m.ring.Record(ring.DirOutput, data)
	if m.rec != nil {
		if err := m.rec.RecordOutput(data); err != nil {
			slog.Warn("transcript write failed", slog.String("error", err.Error()))
		}
	}
	if _, err := m.screen.Write(data); err != nil {
		slog.Warn("write to screen failed", slog.String("error", err.Error()))
	}
}

// RecordTask implements overlay.Host.
func (m *Mux) RecordTask(task string) {
	m.ring.Record(ring.DirInput, []byte(task))
	if m.rec != nil {
		if err := m.rec.RecordInput([]byte(task)); err != nil {
			slog.Warn("transcript write failed", slog.String("error", err.Error()))
		}
	}
}

// Snapshot implements overlay.Host.
func (m *Mux) Snapshot() []ring.Event {
	return m.ring.Snapshot()
}

// readLoop reads bounded chunks into ch until the source fails. A read
// error on a pseudo-terminal master is how child exit presents itself, so
// every error just closes the channel.
func readLoop(r io.Reader, ch chan<- []byte) {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			ch <- chunk
		}
		if err != nil {
			close(ch)
			return
		}
	}
}
