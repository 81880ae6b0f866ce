package meter

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/cheluen/new-api-workers/internal/domain"
)

// StreamScanner accumulates usage figures from an event stream as it is
// forwarded. It implements io.Writer so it can sit on the side of an
// io.TeeReader without gating the forwarding path: Write never fails and
// never blocks on anything but the scan itself.
//
// Providers emit usage in a final summary event, so the last usage object
// observed wins.
// maxPendingLine caps the buffered partial line. SSE usage events are a few
// hundred bytes; a line past this cap is discarded rather than held.
const maxPendingLine = 256 * 1024

type StreamScanner struct {
	pending   []byte
	oversized bool
	usage     domain.Usage
	found     bool
}

// NewStreamScanner creates a scanner for one response stream.
func NewStreamScanner() *StreamScanner {
	return &StreamScanner{pending: make([]byte, 0, 1024)}
}

// Write consumes a copy of a forwarded chunk. It always reports the full
// length written.
func (s *StreamScanner) Write(chunk []byte) (int, error) {
	n := len(chunk)
	if s.oversized {
		// Still inside a discarded line; wait for its terminator.
		idx := bytes.IndexByte(chunk, '\n')
		if idx < 0 {
			return n, nil
		}
		s.oversized = false
		chunk = chunk[idx+1:]
	}
	s.pending = append(s.pending, chunk...)
	for {
		idx := bytes.IndexByte(s.pending, '\n')
		if idx < 0 {
			if len(s.pending) > maxPendingLine {
				s.pending = s.pending[:0]
				s.oversized = true
			}
			return n, nil
		}
		line := strings.TrimSpace(string(s.pending[:idx]))
		s.pending = s.pending[idx+1:]
		s.scanLine(line)
	}
}

func (s *StreamScanner) scanLine(line string) {
	if !strings.HasPrefix(line, "data:") {
		return
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "" || data == "[DONE]" {
		return
	}
	var event struct {
		Usage json.RawMessage `json:"usage"`
	}
	if err := json.Unmarshal([]byte(data), &event); err != nil || len(event.Usage) == 0 {
		return
	}
	if u, ok := parseUsageObject(event.Usage); ok {
		s.usage = u
		s.found = true
	}
}

// Usage returns the figures captured so far.
func (s *StreamScanner) Usage() domain.Usage {
	return s.usage
}

// Found reports whether any usage object was observed in the stream.
func (s *StreamScanner) Found() bool {
	return s.found
}
