package transport

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrLineTooLong = errors.New("line exceeds maximum length")

// LineFramer splits decoded text into newline-delimited records. A trailing
// partial line is carried into the next Push. It is not safe for concurrent
// use; one read loop owns one framer.
type LineFramer struct {
	maxPending int
	pending    string
}

func NewLineFramer(maxPending int) *LineFramer {
	return &LineFramer{maxPending: maxPending}
}

// Push appends chunk and returns every completed, trimmed, non-empty record in
// arrival order. When the undelimited remainder grows past the limit it is
// dropped and ErrLineTooLong is returned along with the records completed
// before it.
func (f *LineFramer) Push(chunk string) ([]string, error) {
	data := f.pending + chunk
	f.pending = ""

	var records []string
	for {
		idx := strings.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		if record := trimRecord(data[:idx]); record != "" {
			records = append(records, record)
		}
		data = data[idx+1:]
	}

	if f.maxPending > 0 && len(data) > f.maxPending {
		return records, fmt.Errorf("%w: %d bytes without newline (limit %d)", ErrLineTooLong, len(data), f.maxPending)
	}
	f.pending = strings.Clone(data)

	return records, nil
}

// Pending reports how many bytes are buffered without a delimiter.
func (f *LineFramer) Pending() int {
	return len(f.pending)
}

func (f *LineFramer) Reset() {
	f.pending = ""
}

func trimRecord(s string) string {
	return strings.TrimFunc(s, isRecordSpace)
}

// The byte order mark is trimmed along with Unicode white space because
// device firmware occasionally emits one at boot. NEL (U+0085) is not line
// white space for the browser console and is kept.
func isRecordSpace(r rune) bool {
	if r == '\u0085' {
		return false
	}

	return unicode.IsSpace(r) || r == '\uFEFF'
}
