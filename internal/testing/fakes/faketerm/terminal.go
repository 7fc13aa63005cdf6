// Package faketerm provides a scripted terminal backend for testing the
// multiplexer without a real pseudo-terminal.
package faketerm

import (
	"bytes"
	"io"
	"sync"
)

// Terminal implements session.Terminal. Output chunks queued with Emit are
// returned one per Read; CloseOutput ends the stream like a child exiting.
// Everything written to the child is captured.
type Terminal struct {
	mu       sync.Mutex
	written  bytes.Buffer
	out      chan []byte
	closed   bool
	exitCode int
	resizes  [][2]uint16
}

// New creates a fake terminal.
func New() *Terminal {
	return &Terminal{out: make(chan []byte, 64)}
}

// Emit queues a chunk of child output.
func (t *Terminal) Emit(data string) *Terminal {
	t.out <- []byte(data)
	return t
}

// CloseOutput ends the output stream; subsequent Reads return io.EOF.
func (t *Terminal) CloseOutput() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.out)
	}
}

// SetExitCode sets the code Wait reports.
func (t *Terminal) SetExitCode(code int) *Terminal {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exitCode = code
	return t
}

// Written returns everything written to the child so far.
func (t *Terminal) Written() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]byte, t.written.Len())
	copy(out, t.written.Bytes())
	return out
}

// Resizes returns the recorded resize calls as {rows, cols} pairs.
func (t *Terminal) Resizes() [][2]uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][2]uint16, len(t.resizes))
	copy(out, t.resizes)
	return out
}

// Read returns the next queued output chunk, or io.EOF after CloseOutput.
func (t *Terminal) Read(p []byte) (int, error) {
	data, ok := <-t.out
	if !ok {
		return 0, io.EOF
	}
	n := copy(p, data)
	return n, nil
}

// Write captures bytes sent to the child.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written.Write(p)
}

// Resize records the requested size.
func (t *Terminal) Resize(rows, cols uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resizes = append(t.resizes, [2]uint16{rows, cols})
	return nil
}

// Wait returns the configured exit code.
func (t *Terminal) Wait() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitCode, nil
}

// Close ends the output stream.
func (t *Terminal) Close() error {
	t.CloseOutput()
	return nil
}
