package pdfstream

import (
	"strings"
	"sync"

	"github.com/tsawler/pdfstream/internal/filters"
)

// Warning describes a recoverable problem met while decoding, such as a
// missing end-of-data marker or invalid padding. The data is still returned
// but may be incomplete.
type Warning = filters.Warning

// FormatWarnings joins warnings into a single line, separated by "; ".
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.String()
	}
	return strings.Join(parts, "; ")
}

// warningLog collects the warnings of one stream. Stages report from the
// goroutine reading the stream; Warnings may be called from another.
type warningLog struct {
	mu   sync.Mutex
	list []Warning
}

func (l *warningLog) add(w Warning) {
	l.mu.Lock()
	l.list = append(l.list, w)
	l.mu.Unlock()
}

func (l *warningLog) snapshot() []Warning {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Warning(nil), l.list...)
}
