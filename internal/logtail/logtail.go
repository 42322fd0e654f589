package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Severity is the coarse level of a log line.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

var (
	errorMarkers = []string{"failed", "error", "panic"}
	warnMarkers  = []string{"timed out", "warning", "retry", "cancel"}
)

// Classify guesses the severity of a line written through the standard
// logger, which carries no explicit level.
func Classify(line string) Severity {
	lower := strings.ToLower(line)
	for _, m := range errorMarkers {
		if strings.Contains(lower, m) {
			return SeverityError
		}
	}
	for _, m := range warnMarkers {
		if strings.Contains(lower, m) {
			return SeverityWarn
		}
	}
	return SeverityInfo
}

// Read returns the last maxLines lines of the file at path, or every line
// when maxLines is not positive. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count, next := 0, 0
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count < maxLines {
		copy(lines, ring[:count])
		return lines, nil
	}
	for i := range lines {
		lines[i] = ring[(next+i)%maxLines]
	}
	return lines, nil
}
