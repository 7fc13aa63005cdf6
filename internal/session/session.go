// Package session owns the pseudo-terminal pair, the child process
// lifecycle, and raw-mode management for the controlling terminal.
package session

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Terminal is a session backend: the endpoint the multiplexer reads child
// output from and writes child input to. The local PTY and the SSH remote
// PTY both implement it.
type Terminal interface {
	io.ReadWriteCloser

	// Resize propagates a window size change so the child's view of the
	// terminal stays correct.
	Resize(rows, cols uint16) error

	// Wait blocks until the child terminates and returns its exit status.
	Wait() (int, error)
}

// Session binds a Terminal backend to the controlling terminal, holding the
// saved terminal mode for restoration. Teardown is idempotent and must run
// on every exit path; callers defer it immediately after Attach succeeds.
type Session struct {
	term  Terminal
	stdin *os.File
	saved *term.State
	once  sync.Once
}

// Attach puts the controlling terminal into raw mode and binds it to the
// backend. On failure the terminal is left untouched and the backend is
// closed; nothing needs tearing down.
func Attach(t Terminal, stdin *os.File) (*Session, error) {
	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		t.Close()
		return nil, fmt.Errorf("stdin is not a terminal")
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("enter raw mode: %w", err)
	}

	return &Session{term: t, stdin: stdin, saved: saved}, nil
}

// Terminal returns the session backend.
func (s *Session) Terminal() Terminal {
	return s.term
}

// ResizeToTerminal reads the controlling terminal's current size and
// propagates it to the backend. Called at startup and on SIGWINCH.
func (s *Session) ResizeToTerminal() error {
	cols, rows, err := term.GetSize(int(s.stdin.Fd()))
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	return s.term.Resize(uint16(rows), uint16(cols))
}

// Size returns the controlling terminal's current dimensions.
func (s *Session) Size() (rows, cols int, err error) {
	cols, rows, err = term.GetSize(int(s.stdin.Fd()))
	return rows, cols, err
}

// Wait blocks until the child terminates and returns its exit status.
func (s *Session) Wait() (int, error) {
	return s.term.Wait()
}

// Teardown restores the original terminal mode and closes the backend.
// Safe to call multiple times and from any exit path.
func (s *Session) Teardown() {
	s.once.Do(func() {
		term.Restore(int(s.stdin.Fd()), s.saved)
		// Reset attributes and re-show the cursor in case the child died
		// mid-escape-sequence.
		os.Stdout.WriteString("\x1b[0m\x1b[?25h")
		s.term.Close()
	})
}
