package monitor

import (
	"bytes"

	"github.com/idlewatch/idlewatch/pkg/interfaces"
)

// Focus reporting escape sequences (sent by the terminal once
// reporting is enabled with \033[?1004h).
var (
	focusInSequence  = []byte("\033[I")
	focusOutSequence = []byte("\033[O")
)

// EnableFocusReporting returns the escape sequence that asks the
// terminal to emit focus events.
func EnableFocusReporting() []byte {
	return []byte("\033[?1004h")
}

// DisableFocusReporting returns the escape sequence that turns focus
// events off again.
func DisableFocusReporting() []byte {
	return []byte("\033[?1004l")
}

// FocusDetector detects focus reporting sequences in output data.
type FocusDetector struct {
	// Buffer to handle sequences that might be split across data chunks
	buffer []byte
}

// NewFocusDetector creates a new focus sequence detector
func NewFocusDetector() *FocusDetector {
	return &FocusDetector{
		buffer: make([]byte, 0, 64),
	}
}

// FocusFilter removes focus report sequences from a byte stream. The
// wrapper enables focus reporting for itself, so the reports must not
// leak into the wrapped command's stdin as stray typed input.
type FocusFilter struct {
	// Holds a trailing partial sequence until the next chunk decides it
	pending []byte
}

// NewFocusFilter creates a new focus sequence filter
func NewFocusFilter() *FocusFilter {
	return &FocusFilter{}
}

// Filter returns data with all focus report sequences removed. A
// trailing prefix of a sequence is withheld and resolved against the
// next chunk.
func (f *FocusFilter) Filter(data []byte) []byte {
	buf := append(f.pending, data...)
	f.pending = nil

	buf = bytes.ReplaceAll(buf, focusInSequence, nil)
	buf = bytes.ReplaceAll(buf, focusOutSequence, nil)

	// Withhold a trailing "\033[" until the next byte decides whether
	// it starts a focus report. A lone trailing ESC passes through
	// untouched: that is almost always a real ESC keypress, and
	// delaying it would be felt in every modal editor.
	if tail := []byte("\033["); bytes.HasSuffix(buf, tail) {
		cut := len(buf) - len(tail)
		f.pending = append([]byte(nil), buf[cut:]...)
		buf = buf[:cut]
	}
	return buf
}

// DetectSequences analyzes data for focus sequences and calls the
// handler for each occurrence, in order.
func (d *FocusDetector) DetectSequences(data []byte, handler interfaces.FocusEventHandler) {
	if handler == nil {
		return
	}

	d.buffer = append(d.buffer, data...)

	for {
		in := bytes.Index(d.buffer, focusInSequence)
		out := bytes.Index(d.buffer, focusOutSequence)

		switch {
		case in >= 0 && (out < 0 || in < out):
			handler.HandleFocusIn()
			d.buffer = d.buffer[in+len(focusInSequence):]
		case out >= 0:
			handler.HandleFocusOut()
			d.buffer = d.buffer[out+len(focusOutSequence):]
		default:
			// Keep only a short tail that could hold the start of a
			// sequence split across chunks.
			if len(d.buffer) > 8 {
				d.buffer = d.buffer[len(d.buffer)-8:]
			}
			return
		}
	}
}
