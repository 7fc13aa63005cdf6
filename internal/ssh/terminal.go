package ssh

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/ssh"
)

// RemoteTerminal is a PTY session on a remote host. It implements
// session.Terminal, so the multiplexer drives it exactly like a local child.
type RemoteTerminal struct {
	client  *Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader
}

// StartShell requests a remote PTY sized to the local terminal and starts
// the user's login shell on it. The remote TERM matches the local one so
// full-screen programs render correctly.
func (c *Client) StartShell(rows, cols uint16) (*RemoteTerminal, error) {
	sess, err := c.conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open ssh session: %w", err)
	}

	termType := os.Getenv("TERM")
	if termType == "" {
		termType = "xterm-256color"
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty(termType, int(rows), int(cols), modes); err != nil {
		sess.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	// With a PTY the server merges stderr into the PTY stream; no separate
	// stderr pipe is needed.

	if err := sess.Shell(); err != nil {
		sess.Close()
		return nil, fmt.Errorf("start remote shell: %w", err)
	}

	return &RemoteTerminal{client: c, session: sess, stdin: stdin, stdout: stdout}, nil
}

// Read reads remote shell output.
func (t *RemoteTerminal) Read(p []byte) (int, error) {
	return t.stdout.Read(p)
}

// Write writes to the remote shell's input.
func (t *RemoteTerminal) Write(p []byte) (int, error) {
	return t.stdin.Write(p)
}

// Resize propagates a window size change to the remote PTY.
func (t *RemoteTerminal) Resize(rows, cols uint16) error {
	return t.session.WindowChange(int(rows), int(cols))
}

// Wait blocks until the remote shell exits and returns its exit status.
func (t *RemoteTerminal) Wait() (int, error) {
	err := t.session.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return -1, fmt.Errorf("wait for remote shell: %w", err)
}

// Close closes the session and the underlying connection.
func (t *RemoteTerminal) Close() error {
	t.session.Close()
	return t.client.Close()
}
