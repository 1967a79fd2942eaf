package shapefile

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// DBF (dBase III/IV) attribute table reader.
//
// Layout:
//
//	Byte  0: version
//	Bytes 1-3: last update date (YY MM DD)
//	Bytes 4-7: record count (uint32 LE)
//	Bytes 8-9: header length (uint16 LE)
//	Bytes 10-11: record length (uint16 LE)
//	Byte 29: language driver ID (code page)
//	Byte 32+: 32-byte field descriptors, terminated by 0x0D
//
// Each data record starts with a deletion flag byte (0x20 active, 0x2A
// deleted) followed by the fixed-width field values.

// FieldType is the dBase field type code.
type FieldType byte

const (
	FieldCharacter FieldType = 'C'
	FieldNumeric   FieldType = 'N'
	FieldFloat     FieldType = 'F'
	FieldLogical   FieldType = 'L'
	FieldDate      FieldType = 'D'
)

// Field describes one DBF column.
type Field struct {
	Name         string
	Type         FieldType
	Length       int
	DecimalCount int
}

// Row is one record of typed attribute values keyed by field name. Values
// are string, float64, bool, or nil (unparseable / empty).
type Row map[string]any

// Table is a fully decoded DBF file.
//
// Rows are kept in physical order, deleted rows included, so the Nth row
// lines up with the Nth geometry record; Records() filters deleted rows
// out for callers that only want attribute data.
type Table struct {
	RecordCount int // count declared in the header, deleted rows included
	Fields      []Field
	LanguageID  byte

	rows    []Row
	deleted []bool
}

// Records returns the active (non-deleted) rows.
func (t *Table) Records() []Row {
	out := make([]Row, 0, len(t.rows))
	for i, row := range t.rows {
		if !t.deleted[i] {
			out = append(out, row)
		}
	}
	return out
}

// RowAt returns the row at physical index i and whether it is active.
// Deleted rows return (nil, false).
func (t *Table) RowAt(i int) (Row, bool) {
	if i < 0 || i >= len(t.rows) {
		return nil, false
	}
	if t.deleted[i] {
		return nil, false
	}
	return t.rows[i], true
}

// PhysicalCount returns the number of rows actually present in the buffer,
// deleted rows included.
func (t *Table) PhysicalCount() int { return len(t.rows) }

// DeletedCount returns the number of rows flagged deleted.
func (t *Table) DeletedCount() int {
	n := 0
	for _, d := range t.deleted {
		if d {
			n++
		}
	}
	return n
}

// ReadDBF decodes a DBF buffer. Records flagged deleted are retained in
// physical order (for geometry alignment) but excluded from Records().
// Character values are decoded through the code page named by the language
// driver byte.
func ReadDBF(buf []byte) (*Table, error) {
	if len(buf) < 32 {
		return nil, &ErrComponent{Reason: fmt.Sprintf("dbf buffer too small: %d bytes", len(buf))}
	}

	table := &Table{
		RecordCount: int(binary.LittleEndian.Uint32(buf[4:8])),
		LanguageID:  buf[29],
	}
	headerLen := int(binary.LittleEndian.Uint16(buf[8:10]))
	recordLen := int(binary.LittleEndian.Uint16(buf[10:12]))

	if headerLen < 33 || headerLen > len(buf) {
		return nil, &ErrComponent{Reason: fmt.Sprintf("dbf header length %d out of range", headerLen)}
	}
	if recordLen < 1 {
		return nil, &ErrComponent{Reason: fmt.Sprintf("dbf record length %d out of range", recordLen)}
	}

	// Field descriptors: 32 bytes each from byte 32 up to the 0x0D terminator.
	fieldsWidth := 1 // deletion flag byte
	for pos := 32; pos < headerLen; pos += 32 {
		if buf[pos] == 0x0D {
			break
		}
		if pos+32 > len(buf) {
			return nil, &ErrComponent{Reason: "dbf field descriptors truncated"}
		}
		name := strings.TrimRight(string(buf[pos:pos+11]), "\x00 ")
		field := Field{
			Name:         name,
			Type:         FieldType(buf[pos+11]),
			Length:       int(buf[pos+16]),
			DecimalCount: int(buf[pos+17]),
		}
		table.Fields = append(table.Fields, field)
		fieldsWidth += field.Length
	}

	if fieldsWidth > recordLen {
		return nil, &ErrComponent{
			Reason: fmt.Sprintf("dbf field widths (%d) exceed record length (%d)", fieldsWidth, recordLen),
		}
	}

	decoder := codePageDecoder(table.LanguageID)

	// Data records. Stop at buffer end or the 0x1A end-of-file marker; a
	// declared count larger than the actual data is tolerated.
	pos := headerLen
	for i := 0; i < table.RecordCount; i++ {
		if pos >= len(buf) || buf[pos] == 0x1A {
			break
		}
		if pos+recordLen > len(buf) {
			break // truncated trailing record
		}

		raw := buf[pos : pos+recordLen]
		pos += recordLen

		if raw[0] == 0x2A {
			table.rows = append(table.rows, nil)
			table.deleted = append(table.deleted, true)
			continue
		}

		row := make(Row, len(table.Fields))
		fieldPos := 1
		for _, field := range table.Fields {
			value := raw[fieldPos : fieldPos+field.Length]
			fieldPos += field.Length
			row[field.Name] = coerceValue(field, value, decoder)
		}
		table.rows = append(table.rows, row)
		table.deleted = append(table.deleted, false)
	}

	return table, nil
}

// coerceValue applies the per-type coercion rules. Parse failures yield nil,
// never an error: one unreadable cell must not discard the row.
func coerceValue(field Field, raw []byte, decoder func([]byte) string) any {
	text := strings.TrimSpace(string(raw))

	switch field.Type {
	case FieldNumeric, FieldFloat:
		if text == "" {
			return nil
		}
		// dBase pads with '*' on overflow; strconv rejects those anyway.
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil
		}
		return f

	case FieldLogical:
		switch text {
		case "T", "t", "Y", "y":
			return true
		case "F", "f", "N", "n":
			return false
		default:
			return nil // '?' or blank means uninitialized
		}

	case FieldDate:
		// Stored as YYYYMMDD; emitted as ISO 8601 date.
		if len(text) != 8 {
			return nil
		}
		if _, err := strconv.Atoi(text); err != nil {
			return nil
		}
		return text[0:4] + "-" + text[4:6] + "-" + text[6:8]

	default: // Character and any unknown type
		if decoder != nil {
			return strings.TrimSpace(decoder(raw))
		}
		return text
	}
}

// codePageDecoder maps the DBF language driver ID to a character decoder.
// Unknown IDs fall back to passing bytes through unchanged (ASCII/UTF-8).
func codePageDecoder(languageID byte) func([]byte) string {
	var cm *charmap.Charmap
	switch languageID {
	case 0x01:
		cm = charmap.CodePage437 // DOS USA
	case 0x02:
		cm = charmap.CodePage850 // DOS multilingual
	case 0x03, 0x57, 0x58, 0x59:
		cm = charmap.Windows1252 // Windows ANSI, Western Europe
	case 0x64:
		cm = charmap.CodePage852 // DOS Central Europe
	case 0x65:
		cm = charmap.CodePage866 // DOS Cyrillic
	case 0xC8:
		cm = charmap.Windows1250 // Windows Central Europe
	case 0xC9:
		cm = charmap.Windows1251 // Windows Cyrillic
	default:
		return nil
	}
	decoder := cm.NewDecoder()
	return func(raw []byte) string {
		decoded, err := decoder.Bytes(raw)
		if err != nil {
			return string(raw)
		}
		return string(decoded)
	}
}
