// Package transcript records session I/O in asciicast v2 format so a
// session can be replayed with asciinema. One recorder exists per session;
// the multiplexer feeds it the same byte stream it forwards.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Header is the asciicast v2 header line.
// See: https://docs.asciinema.org/manual/asciicast/v2/
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp"`
	Title     string            `json:"title,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// event is an asciicast v2 event line [time, type, data].
type event struct {
	Time float64
	Type string
	Data string
}

func (e event) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{e.Time, e.Type, e.Data})
}

// Recorder writes one asciicast file for one session.
type Recorder struct {
	mu        sync.Mutex
	file      *os.File
	startTime time.Time
	closed    bool
	now       func() time.Time
}

// NewRecorder creates a recorder writing to dir. The filename combines a
// fresh session ID with a timestamp. command becomes the cast title.
func NewRecorder(dir, command string, width, height int) (*Recorder, error) {
	return newRecorder(dir, command, width, height, time.Now)
}

func newRecorder(dir, command string, width, height int, now func() time.Time) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	sessionID := uuid.NewString()
	start := now()
	name := fmt.Sprintf("%s_%s.cast", start.Format("20060102_150405"), sessionID)
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create transcript file: %w", err)
	}

	r := &Recorder{file: file, startTime: start, now: now}

	header := Header{
		Version:   2,
		Width:     width,
		Height:    height,
		Timestamp: start.Unix(),
		Title:     command,
		Env: map[string]string{
			"SHELL": os.Getenv("SHELL"),
			"TERM":  os.Getenv("TERM"),
		},
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("marshal transcript header: %w", err)
	}
	if _, err := file.Write(append(headerJSON, '\n')); err != nil {
		file.Close()
		return nil, fmt.Errorf("write transcript header: %w", err)
	}

	return r, nil
}

// RecordOutput records child output.
func (r *Recorder) RecordOutput(data []byte) error {
	return r.record("o", string(data))
}

// RecordInput records bytes sent to the child, whether typed or injected.
func (r *Recorder) RecordInput(data []byte) error {
	return r.record("i", string(data))
}

func (r *Recorder) record(eventType, data string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	ev := event{
		Time: r.now().Sub(r.startTime).Seconds(),
		Type: eventType,
		Data: data,
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal transcript event: %w", err)
	}
	if _, err := r.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write transcript event: %w", err)
	}
	return nil
}

// Path returns the transcript file path.
func (r *Recorder) Path() string {
	if r.file == nil {
		return ""
	}
	return r.file.Name()
}

// Close flushes and closes the transcript file. Safe to call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
