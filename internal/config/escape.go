package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseEscapeKey converts a key chord description into the byte sequence the
// trigger scanner watches for. Accepted forms, space-separated and combined
// in order:
//
//	ctrl+x      control character (0x01..0x1a)
//	esc         the escape byte 0x1b
//	0x18        a raw byte in hex
//	q           a literal printable character
//
// Examples: "ctrl+x" -> {0x18}, "esc q" -> {0x1b, 'q'}.
func ParseEscapeKey(spec string) ([]byte, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("empty escape key")
	}

	var seq []byte
	for _, part := range strings.Fields(spec) {
		b, err := parseKeyPart(part)
		if err != nil {
			return nil, fmt.Errorf("escape key %q: %w", spec, err)
		}
		seq = append(seq, b)
	}
	return seq, nil
}

func parseKeyPart(part string) (byte, error) {
	lower := strings.ToLower(part)

	switch {
	case strings.HasPrefix(lower, "ctrl+") || strings.HasPrefix(lower, "ctrl-"):
		rest := lower[len("ctrl+"):]
		if len(rest) != 1 || rest[0] < 'a' || rest[0] > 'z' {
			return 0, fmt.Errorf("invalid control key %q", part)
		}
		return rest[0] - 'a' + 1, nil

	case lower == "esc" || lower == "escape":
		return 0x1b, nil

	case lower == "tab":
		return '\t', nil

	case lower == "space":
		return ' ', nil

	case strings.HasPrefix(lower, "0x"):
		v, err := strconv.ParseUint(lower[2:], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hex byte %q", part)
		}
		return byte(v), nil

	case len(part) == 1 && part[0] >= 0x20 && part[0] < 0x7f:
		return part[0], nil
	}

	return 0, fmt.Errorf("unrecognized key %q", part)
}
