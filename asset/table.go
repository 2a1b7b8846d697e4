package asset

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const offsetSize = 4

// OffsetTable is the contents of a .tab file: the byte offset of each frame
// or template within its companion data file. It implements the
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler interfaces.
type OffsetTable []uint32

// Len returns the number of entries in the table
func (t OffsetTable) Len() int {
	return len(t)
}

// Span returns the byte range [start, end) of entry i within a data file of
// size bytes. The last entry runs to the end of the file.
func (t OffsetTable) Span(i, size int) (int, int, error) {
	if i < 0 || i >= len(t) {
		return 0, 0, fmt.Errorf("%w: index %d, table has %d entries", ErrIndexOutOfRange, i, len(t))
	}

	start := int(t[i])
	end := size
	if i+1 < len(t) {
		end = int(t[i+1])
	}

	switch {
	case start > size:
		return 0, 0, fmt.Errorf("%w: offset %d of entry %d is beyond end of data (%d bytes)", ErrMalformed, start, i, size)
	case end > size:
		return 0, 0, fmt.Errorf("%w: offset %d of entry %d is beyond end of data (%d bytes)", ErrMalformed, end, i+1, size)
	case end < start:
		return 0, 0, fmt.Errorf("%w: offsets of entries %d and %d are out of order", ErrMalformed, i, i+1)
	}

	return start, end, nil
}

// MarshalBinary encodes the table as little-endian 32-bit offsets
func (t OffsetTable) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, []uint32(t)); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// UnmarshalBinary decodes the table from binary form
func (t *OffsetTable) UnmarshalBinary(b []byte) error {
	if len(b)%offsetSize != 0 {
		return fmt.Errorf("%w: offset table is %d bytes, not a multiple of %d", ErrTruncated, len(b), offsetSize)
	}

	table := make(OffsetTable, len(b)/offsetSize)
	for i := range table {
		table[i] = binary.LittleEndian.Uint32(b[i*offsetSize:])
	}
	*t = table

	return nil
}
