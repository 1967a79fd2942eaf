package shapefile

import "fmt"

// ErrInvalidHeader indicates a malformed main file header (bad magic number,
// unsupported version, or a buffer too small to hold the 100-byte header).
type ErrInvalidHeader struct {
	Reason string
	Got    int
	Want   int
}

func (e *ErrInvalidHeader) Error() string {
	if e.Want != 0 || e.Got != 0 {
		return fmt.Sprintf("invalid shapefile header: %s (got %d, want %d)", e.Reason, e.Got, e.Want)
	}
	return fmt.Sprintf("invalid shapefile header: %s", e.Reason)
}

// ErrComponent indicates missing or mismatched companion files. Fatal:
// geometry and attributes cannot be joined.
type ErrComponent struct {
	Reason string
}

func (e *ErrComponent) Error() string {
	return fmt.Sprintf("shapefile component error: %s", e.Reason)
}

// ErrGeometry indicates an unparseable coordinate block for one record.
// The record is skipped and parsing continues.
type ErrGeometry struct {
	RecordNumber int
	Reason       string
}

func (e *ErrGeometry) Error() string {
	return fmt.Sprintf("record %d: unparseable geometry: %s", e.RecordNumber, e.Reason)
}

// ErrIndexOutOfBounds indicates an SHX record lookup past the end of the index.
type ErrIndexOutOfBounds struct {
	Index       int
	RecordCount int
}

func (e *ErrIndexOutOfBounds) Error() string {
	return fmt.Sprintf("shx index %d out of bounds (%d records)", e.Index, e.RecordCount)
}

// ErrSizeLimit indicates a file exceeding the configured memory ceiling.
// Checked up front, before any record parsing.
type ErrSizeLimit struct {
	Size  int64
	Limit int64
}

func (e *ErrSizeLimit) Error() string {
	return fmt.Sprintf("shapefile size %d exceeds configured limit %d", e.Size, e.Limit)
}
