// Package trigger detects the configured escape sequence inside a live
// byte stream.
//
// The stream arrives in arbitrary chunks, so a multi-byte sequence may be
// split across reads. The scanner holds bytes that could still become a
// trigger ("pending") and releases them for forwarding the moment they are
// confirmed not to be part of one. A byte that breaks a partial match is
// re-evaluated as a fresh potential start, so overlapping prefixes are
// handled without byte loss.
package trigger

import (
	"bytes"
	"fmt"
)

// Advance is the scanner's verdict for one fed byte.
type Advance struct {
	// Matched is true when a complete trigger sequence was just seen.
	Matched bool

	// Trigger is the binding that matched. Nil unless Matched.
	Trigger []byte

	// Forward holds bytes that are confirmed not to belong to any trigger
	// and must be passed to the child in their original order. May be
	// non-empty even on a match: bytes that preceded the trigger inside the
	// pending window are released first.
	Forward []byte
}

// Scanner matches one or more trigger bindings against a byte stream.
// Multiple bindings are evaluated independently; the first to complete wins.
type Scanner struct {
	bindings [][]byte
	pending  []byte
}

// NewScanner creates a scanner for the given bindings. At least one
// non-empty binding is required.
func NewScanner(bindings ...[]byte) (*Scanner, error) {
	if len(bindings) == 0 {
		return nil, fmt.Errorf("no trigger bindings configured")
	}
	own := make([][]byte, 0, len(bindings))
	for i, b := range bindings {
		if len(b) == 0 {
			return nil, fmt.Errorf("trigger binding %d is empty", i)
		}
		c := make([]byte, len(b))
		copy(c, b)
		own = append(own, c)
	}
	return &Scanner{bindings: own}, nil
}

// Feed advances the scanner by one byte.
func (s *Scanner) Feed(b byte) Advance {
	s.pending = append(s.pending, b)

	// A binding matches when it equals a suffix of the pending window.
	// Everything before that suffix was withheld speculatively and is
	// released for forwarding.
	for _, binding := range s.bindings {
		if n := len(binding); len(s.pending) >= n && bytes.Equal(s.pending[len(s.pending)-n:], binding) {
			forward := s.pending[:len(s.pending)-n]
			s.pending = nil
			return Advance{Matched: true, Trigger: binding, Forward: forward}
		}
	}

	// Keep the longest suffix of pending that is still a proper prefix of
	// some binding; everything before it can no longer become a trigger.
	keep := 0
	for _, binding := range s.bindings {
		max := len(binding) - 1
		if max > len(s.pending) {
			max = len(s.pending)
		}
		for n := max; n > keep; n-- {
			if bytes.Equal(s.pending[len(s.pending)-n:], binding[:n]) {
				keep = n
				break
			}
		}
	}

	forward := s.pending[:len(s.pending)-keep]
	if keep == 0 {
		s.pending = nil
	} else {
		held := make([]byte, keep)
		copy(held, s.pending[len(s.pending)-keep:])
		s.pending = held
	}
	return Advance{Forward: forward}
}

// Partial reports whether the scanner is currently withholding bytes in the
// middle of a potential match.
func (s *Scanner) Partial() bool {
	return len(s.pending) > 0
}

// Flush releases any withheld bytes and resets the match state. Called on
// session teardown so a trailing partial match is not silently dropped.
func (s *Scanner) Flush() []byte {
	out := s.pending
	s.pending = nil
	return out
}
