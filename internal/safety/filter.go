// Package safety classifies generated command text before injection.
package safety

import (
	"fmt"
	"regexp"
)

// Verdict is the result of classifying a command.
type Verdict int

const (
	// Safe commands may be injected subject only to preview mode.
	Safe Verdict = iota
	// Destructive commands always require explicit confirmation,
	// regardless of preview mode.
	Destructive
)

// Filter matches command text against a fixed set of destructive patterns.
type Filter struct {
	patterns []*regexp.Regexp
}

// DefaultPatterns returns the built-in destructive command shapes:
// filesystem-wide deletion, raw disk writes, filesystem formatting,
// fork bombs, and recursive permission blowouts.
func DefaultPatterns() []string {
	return []string{
		`rm\s+(-[a-z]*[rf][a-z]*\s+)+/\s*$`, // rm -rf /
		`rm\s+(-[a-z]*[rf][a-z]*\s+)+/\*`,   // rm -rf /*
		`rm\s+-rf\s+~`,                      // rm -rf ~/...
		`dd\s+.*of=/dev/[sh]d`,              // dd onto a raw device
		`mkfs(\.|\s)`,                       // mkfs anything
		`:\s*\(\s*\)\s*\{\s*:\s*\|`,         // fork bomb
		`>\s*/dev/[sh]d`,                    // redirect onto a raw device
		`chmod\s+-R\s+777\s+/`,              // world-writable root
	}
}

// New compiles a filter from the default patterns plus any extra patterns
// from configuration. Patterns are matched case-insensitively.
func New(extra []string) (*Filter, error) {
	f := &Filter{}
	for _, pattern := range append(DefaultPatterns(), extra...) {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid destructive pattern %q: %w", pattern, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Classify returns the verdict for a command and, for destructive commands,
// the pattern that matched.
func (f *Filter) Classify(command string) (Verdict, string) {
	for _, re := range f.patterns {
		if re.MatchString(command) {
			return Destructive, re.String()
		}
	}
	return Safe, ""
}
