// Package ring provides a bounded, ordered record of terminal I/O events.
//
// The ring approximates "what is on screen" (recent child output) and "what
// the user has been doing" (recent keystrokes) without emulating a terminal.
// Snapshots of it are the situational context handed to the language model.
package ring

import "fmt"

// Direction indicates which side of the session produced an event.
type Direction uint8

const (
	// DirInput is data typed by the user (or injected on their behalf).
	DirInput Direction = iota
	// DirOutput is data emitted by the child program.
	DirOutput
)

// String returns the asciicast-style event code for the direction.
func (d Direction) String() string {
	switch d {
	case DirInput:
		return "i"
	case DirOutput:
		return "o"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Event is one recorded chunk of session I/O. Events are immutable once
// recorded; Data is always a private copy.
type Event struct {
	Dir  Direction
	Data []byte
	Seq  uint64
}

// Ring is a byte-capped FIFO of events. Oldest events are evicted whole once
// the total recorded byte count exceeds the cap; a single event larger than
// the cap is head-truncated so the invariant holds.
//
// Ring is not safe for concurrent use. The multiplexer is the only writer,
// and overlay mode reads it only while forwarding is suspended, so no
// locking is needed.
type Ring struct {
	cap    int
	events []Event
	size   int
	seq    uint64
}

// New creates a ring holding at most maxBytes of recorded data.
func New(maxBytes int) *Ring {
	if maxBytes <= 0 {
		maxBytes = 1
	}
	return &Ring{cap: maxBytes}
}

// Record appends an event, evicting oldest events until the total byte count
// is back within the cap. Empty chunks are ignored.
func (r *Ring) Record(dir Direction, data []byte) {
	if len(data) == 0 {
		return
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	// An oversized chunk can never fit whole; keep its tail, which is the
	// most recent part of the stream.
	if len(buf) > r.cap {
		buf = buf[len(buf)-r.cap:]
	}

	r.events = append(r.events, Event{Dir: dir, Data: buf, Seq: r.seq})
	r.seq++
	r.size += len(buf)

	for r.size > r.cap {
		r.size -= len(r.events[0].Data)
		r.events[0] = Event{}
		r.events = r.events[1:]
	}
}

// Snapshot returns a point-in-time copy of the recorded events, oldest first.
// The returned slice and its payloads are independent of the ring.
func (r *Ring) Snapshot() []Event {
	out := make([]Event, len(r.events))
	for i, ev := range r.events {
		data := make([]byte, len(ev.Data))
		copy(data, ev.Data)
		out[i] = Event{Dir: ev.Dir, Data: data, Seq: ev.Seq}
	}
	return out
}

// Size returns the total number of recorded bytes currently held.
func (r *Ring) Size() int {
	return r.size
}

// Len returns the number of events currently held.
func (r *Ring) Len() int {
	return len(r.events)
}

// Text concatenates the payloads of all events in the given direction,
// oldest first. Used when building model prompts.
func (r *Ring) Text(dir Direction) string {
	var n int
	for _, ev := range r.events {
		if ev.Dir == dir {
			n += len(ev.Data)
		}
	}
	buf := make([]byte, 0, n)
	for _, ev := range r.events {
		if ev.Dir == dir {
			buf = append(buf, ev.Data...)
		}
	}
	return string(buf)
}
