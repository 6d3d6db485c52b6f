package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadPriority parses a priority list: one point id per line. Blank lines
// and text after '#' are ignored. Ids are returned in file order.
func ReadPriority(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read priority list: %w", err)
	}
	return ids, nil
}

// ReadPriorityFile reads a priority list from path. An empty path yields an
// empty list.
func ReadPriorityFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open priority file: %w", err)
	}
	defer f.Close()
	return ReadPriority(f)
}
