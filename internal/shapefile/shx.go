package shapefile

import "encoding/binary"

// SHX index file: the 100-byte main header followed by one 8-byte entry per
// record. Each entry is a pair of big-endian int32s giving the record's
// offset and content length in 16-bit words.

// IndexEntry locates one geometry record inside the .shp file, in bytes.
type IndexEntry struct {
	OffsetBytes int64
	LengthBytes int64
}

// RecordCount derives the record count from the index size:
// (fileLength - 100) / 8.
func RecordCount(buf []byte) (int, error) {
	if _, err := ReadHeader(buf); err != nil {
		return 0, err
	}
	return (len(buf) - headerLength) / 8, nil
}

// ReadOffsets decodes every index entry, converting word offsets and lengths
// to bytes. Consumes complete 8-byte pairs from byte 100 to the buffer end;
// a trailing partial entry is ignored.
func ReadOffsets(buf []byte) ([]IndexEntry, error) {
	if _, err := ReadHeader(buf); err != nil {
		return nil, err
	}

	count := (len(buf) - headerLength) / 8
	entries := make([]IndexEntry, 0, count)
	for pos := headerLength; pos+8 <= len(buf); pos += 8 {
		offsetWords := int32(binary.BigEndian.Uint32(buf[pos : pos+4]))
		lengthWords := int32(binary.BigEndian.Uint32(buf[pos+4 : pos+8]))
		entries = append(entries, IndexEntry{
			OffsetBytes: int64(offsetWords) * 2,
			LengthBytes: int64(lengthWords) * 2,
		})
	}
	return entries, nil
}

// RecordLocation is the constant-time equivalent of ReadOffsets for a single
// record index.
func RecordLocation(buf []byte, index int) (IndexEntry, error) {
	if _, err := ReadHeader(buf); err != nil {
		return IndexEntry{}, err
	}
	count := (len(buf) - headerLength) / 8
	pos := headerLength + index*8
	if index < 0 || pos+8 > len(buf) {
		return IndexEntry{}, &ErrIndexOutOfBounds{Index: index, RecordCount: count}
	}
	offsetWords := int32(binary.BigEndian.Uint32(buf[pos : pos+4]))
	lengthWords := int32(binary.BigEndian.Uint32(buf[pos+4 : pos+8]))
	return IndexEntry{
		OffsetBytes: int64(offsetWords) * 2,
		LengthBytes: int64(lengthWords) * 2,
	}, nil
}
