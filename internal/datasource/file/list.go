package file

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadList reads one input per line from r: file paths or URLs. Blank lines
// and lines starting with '#' are skipped; order is preserved.
func ReadList(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read list: %w", err)
	}
	return out, nil
}

// ReadListFile is ReadList over the file at path.
func ReadListFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list %s: %w", path, err)
	}
	defer f.Close()
	return ReadList(f)
}
