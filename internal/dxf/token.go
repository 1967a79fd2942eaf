package dxf

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
)

// Tag is one group-code/value pair from an ASCII DXF stream. The code
// selects the meaning of the value (0 = record type, 8 = layer, 10/20/30 =
// x/y/z of the primary point, and so on).
type Tag struct {
	Code  int
	Value string
	Line  int // line number of the code, for error reporting
}

// Float parses the tag value as a float, returning 0 on malformed input.
// DXF writers are sloppy about numeric formatting, so a bad number is
// treated as absent rather than fatal.
func (t Tag) Float() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(t.Value), 64)
	if err != nil {
		return 0
	}
	return v
}

// Int parses the tag value as an integer, returning 0 on malformed input.
func (t Tag) Int() int {
	v, err := strconv.Atoi(strings.TrimSpace(t.Value))
	if err != nil {
		return 0
	}
	return v
}

// tagReader iterates group-code pairs over the raw document with a
// one-tag pushback, which the section and entity parsers use to stop at
// the next "0" tag without consuming it.
type tagReader struct {
	scanner *bufio.Scanner
	line    int
	pushed  *Tag
}

func newTagReader(buf []byte) *tagReader {
	scanner := bufio.NewScanner(bytes.NewReader(buf))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	return &tagReader{scanner: scanner}
}

// next returns the next tag. A false second return means end of input or a
// malformed trailing half-pair.
func (r *tagReader) next() (Tag, bool, error) {
	if r.pushed != nil {
		tag := *r.pushed
		r.pushed = nil
		return tag, true, nil
	}

	if !r.scanner.Scan() {
		return Tag{}, false, r.scanner.Err()
	}
	r.line++
	codeLine := strings.TrimSpace(r.scanner.Text())
	codeAt := r.line

	code, err := strconv.Atoi(codeLine)
	if err != nil {
		return Tag{}, false, &ErrDocument{Line: codeAt, Reason: "expected group code, got " + strconv.Quote(codeLine)}
	}

	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return Tag{}, false, err
		}
		return Tag{}, false, &ErrDocument{Line: codeAt, Reason: "group code without a value line"}
	}
	r.line++
	// Values keep interior whitespace; only the line ending is stripped.
	value := strings.TrimRight(r.scanner.Text(), "\r")
	return Tag{Code: code, Value: value, Line: codeAt}, true, nil
}

// unread pushes tag back so the next call to next returns it again.
func (r *tagReader) unread(tag Tag) {
	r.pushed = &tag
}
