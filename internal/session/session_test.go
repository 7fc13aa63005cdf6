package session

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func TestStartLocal_EchoChild(t *testing.T) {
	lt, err := StartLocal("/bin/echo", "hello from child")
	if err != nil {
		t.Fatal(err)
	}
	defer lt.Close()

	var out bytes.Buffer
	buf := make([]byte, 1024)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		n, err := lt.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if err != nil {
			// PTY master read fails once the child is gone; that is the
			// normal end-of-session signal, not a failure.
			break
		}
	}

	if !strings.Contains(out.String(), "hello from child") {
		t.Errorf("child output = %q, want it to contain greeting", out.String())
	}

	code, err := lt.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestStartLocal_ExitCode(t *testing.T) {
	lt, err := StartLocal("/bin/sh", "-c", "exit 3")
	if err != nil {
		t.Fatal(err)
	}
	defer lt.Close()

	buf := make([]byte, 256)
	for {
		if _, err := lt.Read(buf); err != nil {
			break
		}
	}

	code, err := lt.Wait()
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
}

func TestStartLocal_WriteReachesChild(t *testing.T) {
	lt, err := StartLocal("/bin/cat")
	if err != nil {
		t.Fatal(err)
	}
	defer lt.Close()

	if _, err := lt.Write([]byte("ping\r")); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	buf := make([]byte, 256)
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(out.String(), "ping") {
		n, err := lt.Read(buf)
		if n > 0 {
			out.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}

	if !strings.Contains(out.String(), "ping") {
		t.Errorf("echo through pty = %q, want to see %q", out.String(), "ping")
	}
}

func TestStartLocal_Resize(t *testing.T) {
	lt, err := StartLocal("/bin/cat")
	if err != nil {
		t.Fatal(err)
	}
	defer lt.Close()

	if err := lt.Resize(40, 132); err != nil {
		t.Errorf("Resize() error = %v", err)
	}
}

func TestStartLocal_MissingCommand(t *testing.T) {
	if _, err := StartLocal("/no/such/binary"); err == nil {
		t.Error("StartLocal() with missing binary should fail")
	}
}

func TestAttach_RejectsNonTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	lt, err := StartLocal("/bin/cat")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Attach(lt, r); err == nil {
		t.Error("Attach() on a pipe should fail")
	}
	// Attach closes the backend on failure.
	if _, err := lt.ptmx.Write([]byte("x")); err == nil {
		t.Error("backend left open after failed Attach")
	}
}

var _ io.ReadWriteCloser = (*LocalTerminal)(nil)
