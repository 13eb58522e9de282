// Package logging wires zerolog for structured output and keeps a bounded,
// ANSI-stripped ring of recent lines for the admin log-tail facade.
package logging

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MaxLines bounds the in-memory ring buffer.
const MaxLines = 2000

// DefaultLimit is applied to Get when the caller doesn't ask for a specific
// number of lines.
const DefaultLimit = 200

var (
	ringMu sync.Mutex
	ring   = make([]string, 0, MaxLines)
)

// Init configures the global zerolog logger to write to stderr and to the
// in-memory ring buffer simultaneously.
func Init(level zerolog.Level) zerolog.Logger {
	zerolog.SetGlobalLevel(level)
	writer := io.MultiWriter(os.Stderr, ringWriter{})
	logger := zerolog.New(writer).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	return logger
}

// Get returns the most recent lines currently buffered, most-recent last.
// limit is clamped to [0, MaxLines]; a limit <= 0 uses DefaultLimit.
func Get(limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLines {
		limit = MaxLines
	}

	ringMu.Lock()
	defer ringMu.Unlock()

	total := len(ring)
	start := total - limit
	if start < 0 {
		start = 0
	}
	out := make([]string, total-start)
	copy(out, ring[start:])
	return out
}

type ringWriter struct{}

func (ringWriter) Write(p []byte) (int, error) {
	n := len(p)
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		pushLine(stripANSI(line))
	}
	return n, nil
}

func pushLine(line string) {
	if line == "" {
		return
	}
	ringMu.Lock()
	defer ringMu.Unlock()
	if len(ring) >= MaxLines {
		ring = ring[1:]
	}
	ring = append(ring, line)
}

// stripANSI removes CSI escape sequences (ESC '[' ... final-byte) from line.
func stripANSI(line []byte) string {
	out := make([]byte, 0, len(line))
	for i := 0; i < len(line); i++ {
		if line[i] != 0x1b {
			out = append(out, line[i])
			continue
		}
		i++
		if i < len(line) && line[i] == '[' {
			i++
			for i < len(line) && !(line[i] >= '@' && line[i] <= '~') {
				i++
			}
			continue
		}
		if i < len(line) {
			out = append(out, line[i])
		}
	}
	return string(out)
}
