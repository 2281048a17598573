package infrastructure

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

const (
	maxLineBytes    = 1024 * 1024
	maxPrintedLines = 64
)

var downloadPercentRe = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

// scanLinesOrCR splits on '\n' or '\r' so carriage-return progress redraws
// arrive as separate lines. "\r\n" is one terminator; a lone '\r' at the end
// of the buffer waits for the next read to tell which it is.
func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func newLineScanner(r interface{ Read([]byte) (int, error) }) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	sc.Split(scanLinesOrCR)
	return sc
}

// parseDownloadPercent extracts the percentage from a "[download]  42.3% of ..." line.
func parseDownloadPercent(line string) (float64, bool) {
	m := downloadPercentRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// printCollector keeps the stdout lines produced by the --print flags. yt-dlp
// prefixes its own status lines with "[...]", so anything else is ours.
type printCollector struct {
	mu    sync.Mutex
	lines []string
}

func (c *printCollector) observe(line string) {
	if strings.HasPrefix(line, "[") || strings.TrimSpace(line) == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) >= maxPrintedLines {
		c.lines = c.lines[1:]
	}
	c.lines = append(c.lines, line)
}

// resolve returns the title, the final file path and its size. The file
// path is the last printed line naming an existing regular file; the title
// is the first printed line that is not such a path.
func (c *printCollector) resolve(fs afero.Fs) (title, filename string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	isPath := make([]bool, len(c.lines))
	for i, line := range c.lines {
		if info, err := fs.Stat(line); err == nil && !info.IsDir() {
			isPath[i] = true
			filename, size = line, info.Size()
		}
	}
	for i, line := range c.lines {
		if !isPath[i] {
			title = line
			break
		}
	}
	return title, filename, size
}
