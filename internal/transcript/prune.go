package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Prune deletes the oldest transcripts in dir, keeping the keep most recent.
// keep <= 0 disables pruning. The timestamped filenames sort
// chronologically, so no stat calls are needed.
func Prune(dir string, keep int) error {
	if keep <= 0 {
		return nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), "*.cast")
	if err != nil {
		return fmt.Errorf("list transcripts: %w", err)
	}
	if len(matches) <= keep {
		return nil
	}

	sort.Strings(matches)
	for _, name := range matches[:len(matches)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("prune transcript %s: %w", name, err)
		}
	}
	return nil
}
