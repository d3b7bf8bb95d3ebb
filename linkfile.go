package imagesweep

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// FolderBatch is a folder name and the URLs to download into it.
type FolderBatch struct {
	Folder string
	URLs   []string
}

func isLinkSeparator(r rune) bool {
	return unicode.IsSpace(r) || r == ',' || r == ';'
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ParseLinkFile reads a links file. A line that is not a URL starts a new
// folder named by its first token, or first two tokens when the second is
// not a URL; remaining URL tokens on that line and every following URL line
// belong to the folder. URL lines before the first folder and folders
// without URLs are dropped. Folder names are sanitized with SafeFolderName.
func ParseLinkFile(r io.Reader) ([]FolderBatch, error) {
	var (
		batches []FolderBatch
		cur     *FolderBatch
	)
	flush := func() {
		if cur != nil && len(cur.URLs) > 0 {
			batches = append(batches, *cur)
		}
		cur = nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if isHTTPURL(line) {
			if cur != nil {
				cur.URLs = append(cur.URLs, line)
			}
			continue
		}

		parts := strings.FieldsFunc(line, isLinkSeparator)
		if len(parts) == 0 {
			continue
		}
		flush()
		name := parts[0]
		rest := parts[1:]
		if len(parts) > 1 && !isHTTPURL(parts[1]) {
			name = parts[0] + " " + parts[1]
			rest = parts[2:]
		}
		cur = &FolderBatch{Folder: SafeFolderName(name)}
		for _, p := range rest {
			if isHTTPURL(p) {
				cur.URLs = append(cur.URLs, p)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read links: %w", err)
	}
	flush()
	return batches, nil
}

// SafeFolderName strips path separators and parent references so the name
// stays a single directory component.
func SafeFolderName(name string) string {
	name = strings.NewReplacer("/", "_", `\`, "_", "\x00", "").Replace(name)
	name = strings.TrimSpace(strings.ReplaceAll(name, "..", "_"))
	if name == "" || name == "." {
		return "_"
	}
	return name
}
