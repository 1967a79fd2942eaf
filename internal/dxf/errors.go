package dxf

import "fmt"

// ErrMissingSection indicates a required section is absent from the
// document. Only ENTITIES is required; HEADER, TABLES, and BLOCKS are
// optional.
type ErrMissingSection struct {
	Section string
}

func (e *ErrMissingSection) Error() string {
	return fmt.Sprintf("dxf: missing %s section", e.Section)
}

// ErrDocument indicates the buffer is not a readable DXF document.
type ErrDocument struct {
	Line   int
	Reason string
}

func (e *ErrDocument) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("dxf: line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("dxf: %s", e.Reason)
}
