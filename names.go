package imagesweep

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// duplicateSuffix matches stems already renamed by ModeRename.
var duplicateSuffix = regexp.MustCompile(`_duplicate_\d+$`)

// IsFlagged reports whether name was produced by a duplicate rename.
func IsFlagged(name string) bool {
	base := filepath.Base(name)
	return duplicateSuffix.MatchString(strings.TrimSuffix(base, filepath.Ext(base)))
}

// namer hands out <stem>_duplicate_<n><ext> names. Counters are per stem and
// start at 1 for every run.
type namer struct {
	counters map[string]int
}

func newNamer() *namer {
	return &namer{counters: make(map[string]int)}
}

// next returns the first free duplicate name for path.
func (n *namer) next(path string) (string, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	key := filepath.Join(dir, stem)

	for {
		n.counters[key]++
		candidate := filepath.Join(dir, fmt.Sprintf("%s_duplicate_%d%s", stem, n.counters[key], ext))
		_, err := os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
	}
}

// numberedPath returns dir/<stem><ext> for n == 0, else dir/<stem>.<n><ext>.
func numberedPath(dir, stem, ext string, n int) string {
	if n == 0 {
		return filepath.Join(dir, stem+ext)
	}
	return filepath.Join(dir, fmt.Sprintf("%s.%d%s", stem, n, ext))
}
