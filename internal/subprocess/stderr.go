package subprocess

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// maxStderrBufferSize caps the stderr kept for error reports. Lines past the
// cap still reach the callback.
const maxStderrBufferSize = 10 * 1024 * 1024 // 10MB

type stderrBuffer struct {
	mu       sync.Mutex
	buf      strings.Builder
	callback func(string)
}

func newStderrBuffer(callback func(string)) *stderrBuffer {
	return &stderrBuffer{callback: callback}
}

// drain reads r line by line until EOF. The process exiting (or being killed)
// closes the pipe and ends the loop.
func (b *stderrBuffer) drain(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()

		b.mu.Lock()
		if b.buf.Len() < maxStderrBufferSize {
			if b.buf.Len() > 0 {
				b.buf.WriteByte('\n')
			}

			b.buf.WriteString(line)
		}
		b.mu.Unlock()

		if b.callback != nil {
			b.callback(line)
		}
	}

	// A scanner error stops buffering but the rest must still be consumed
	// so the child never blocks on a full pipe.
	if scanner.Err() != nil {
		_, _ = io.Copy(io.Discard, r)
	}
}

func (b *stderrBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// cleanStderr drops the minified source excerpts the CLI's runtime prints
// around stack traces ("1234 | <code>") and trims the rest.
func cleanStderr(stderr string) string {
	if stderr == "" {
		return ""
	}

	var cleaned strings.Builder

	for line := range strings.SplitSeq(stderr, "\n") {
		if isSourceContextLine(strings.TrimSpace(line)) {
			continue
		}

		if cleaned.Len() > 0 {
			cleaned.WriteString("\n")
		}

		cleaned.WriteString(line)
	}

	return strings.TrimSpace(cleaned.String())
}

// isSourceContextLine reports whether line has the form "<digits> | ...".
func isSourceContextLine(line string) bool {
	prefix, _, found := strings.Cut(line, "|")
	if !found {
		return false
	}

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return false
	}

	for _, ch := range prefix {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	return true
}
