package codegen

import "strings"

// LineOrientedBuffer accumulates generator output a character run at a
// time, with one escape hatch a naive append-only writer lacks:
// InsertLinePrev lets a visit method that discovers, mid-statement, that
// an earlier statement needs a supporting line (e.g. a hoisted call)
// splice it in before the line just completed, rather than needing to
// buffer and re-order the whole function body itself.
type LineOrientedBuffer struct {
	lines []string
	cur   strings.Builder
}

// NewLineOrientedBuffer returns an empty buffer.
func NewLineOrientedBuffer() *LineOrientedBuffer {
	return &LineOrientedBuffer{}
}

// WriteString appends s to the line currently being built.
func (b *LineOrientedBuffer) WriteString(s string) {
	b.cur.WriteString(s)
}

// NewLine terminates the in-progress line and starts a new one.
func (b *LineOrientedBuffer) NewLine() {
	b.lines = append(b.lines, b.cur.String())
	b.cur.Reset()
}

// InsertLinePrev splices line in immediately before the most recently
// completed line, leaving the in-progress line (if any) untouched.
func (b *LineOrientedBuffer) InsertLinePrev(line string) {
	if len(b.lines) == 0 {
		b.lines = []string{line}
		return
	}
	idx := len(b.lines) - 1
	b.lines = append(b.lines[:idx], append([]string{line}, b.lines[idx:]...)...)
}

// String flushes the buffer to a single newline-joined string, including
// whatever line is still in progress.
func (b *LineOrientedBuffer) String() string {
	all := b.lines
	if b.cur.Len() > 0 {
		all = append(append([]string{}, b.lines...), b.cur.String())
	}
	return strings.Join(all, "\n")
}
