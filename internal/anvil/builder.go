package anvil

import "bytes"

// RegionBuilder constructs well-formed (or deliberately truncated) region-file bytes in
// memory, for driving Region Directory tests without shipping binary fixtures.
type RegionBuilder struct {
	buf bytes.Buffer
}

// NewRegionBuilder starts an empty builder. Calls to Location append directory entries in
// slot order starting at slot 0; callers wanting a specific (x, z) slot must pad with
// enough zero-value locations first (see Location's doc comment).
func NewRegionBuilder() *RegionBuilder {
	return &RegionBuilder{}
}

// Location appends one 4-byte location record: a 24-bit big-endian sector offset (the low
// 3 bytes of offset) followed by the sector count byte. The Nth call to Location fills slot
// N-1; Build pads the remainder of the header (and the timestamps table) with zeros.
func (b *RegionBuilder) Location(offset uint32, sectors uint8) *RegionBuilder {
	b.buf.WriteByte(byte(offset >> 16))
	b.buf.WriteByte(byte(offset >> 8))
	b.buf.WriteByte(byte(offset))
	b.buf.WriteByte(sectors)
	return b
}

// Build zero-pads the accumulated bytes out to a whole sector (at minimum the full 8 KiB
// header) and returns them wrapped as a seekable reader, ready for Open.
func (b *RegionBuilder) Build() *bytes.Reader {
	raw := append([]byte(nil), b.buf.Bytes()...)
	paddedSectors := len(raw)/sectorSize + 1
	padded := make([]byte, paddedSectors*sectorSize)
	copy(padded, raw)
	if len(padded) < headerSize {
		padded = append(padded, make([]byte, headerSize-len(padded))...)
	}
	return bytes.NewReader(padded)
}

// BuildUnpadded returns exactly the bytes accumulated so far, with no padding at all. Used
// to exercise the truncated-header failure path.
func (b *RegionBuilder) BuildUnpadded() *bytes.Reader {
	raw := append([]byte(nil), b.buf.Bytes()...)
	return bytes.NewReader(raw)
}
