package session

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// LocalTerminal runs the child in a local PTY pair.
type LocalTerminal struct {
	cmd  *exec.Cmd
	ptmx *os.File
}

// StartLocal spawns command attached to the slave side of a fresh PTY pair,
// sized to match the controlling terminal. The child inherits the current
// environment unchanged: the wrapper is transparent, so the child sees the
// same TERM and window size it would without eschatch in between.
func StartLocal(command string, args ...string) (*LocalTerminal, error) {
	cmd := exec.Command(command, args...)
	cmd.Env = os.Environ()

	size := &pty.Winsize{Rows: 24, Cols: 80}
	if cols, rows, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
		size = &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
	}

	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, fmt.Errorf("start %s in pty: %w", command, err)
	}

	return &LocalTerminal{cmd: cmd, ptmx: ptmx}, nil
}

// Read reads child output from the PTY master. Once the child exits the
// read fails (EIO on Linux); the multiplexer treats that as child exit.
func (t *LocalTerminal) Read(p []byte) (int, error) {
	return t.ptmx.Read(p)
}

// Write writes to the child's input.
func (t *LocalTerminal) Write(p []byte) (int, error) {
	return t.ptmx.Write(p)
}

// Resize sets the PTY window size.
func (t *LocalTerminal) Resize(rows, cols uint16) error {
	return pty.Setsize(t.ptmx, &pty.Winsize{Rows: rows, Cols: cols})
}

// Wait blocks until the child exits and returns its exit code.
func (t *LocalTerminal) Wait() (int, error) {
	err := t.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("wait for child: %w", err)
}

// Close closes the PTY master and kills the child if it is still running.
func (t *LocalTerminal) Close() error {
	err := t.ptmx.Close()
	if t.cmd.Process != nil {
		t.cmd.Process.Kill()
	}
	return err
}
