package clams

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const subjectIDField = "Subject ID"

// ExtractSubjectID scans a raw export for the "Subject ID" line and returns
// its second comma-separated field, trimmed.
func ExtractSubjectID(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, subjectIDField) {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			break
		}
		id := strings.Trim(strings.TrimSpace(parts[1]), `"`)
		if id == "" {
			break
		}
		return id, nil
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("scan metadata: %w", err)
	}
	return "", &MissingFieldError{Fields: []string{subjectIDField}}
}
