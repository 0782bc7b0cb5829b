// Package anvil decodes the Anvil region container: a sector-indexed file that packs up to
// 1024 chunk payloads, each independently compressed, behind a directory of (offset,
// length) pairs. It reads only; region files are never mutated by this package.
package anvil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/cobaltcrest/anvilctl/internal/byteio"
	"github.com/cobaltcrest/anvilctl/internal/compress"
	"github.com/cobaltcrest/anvilctl/internal/nbt"
)

const (
	sectorSize  = 4096
	headerSize  = 2 * sectorSize
	regionWidth = 32
)

// ChunkLocation identifies where a chunk's sectors live within a region file.
type ChunkLocation struct {
	BeginSector uint32
	SectorCount uint8
	X, Z        int
}

// present reports whether this location refers to an actual chunk, per the region format's
// invariant that an absent slot has both fields zero.
func (l ChunkLocation) present() bool {
	return l.BeginSector != 0 || l.SectorCount != 0
}

// InvalidOffsetError reports chunk coordinates outside the 32x32 region grid.
type InvalidOffsetError struct {
	X, Z int
}

func (e *InvalidOffsetError) Error() string {
	return fmt.Sprintf("anvil: invalid chunk offset (%d, %d)", e.X, e.Z)
}

var (
	// ErrChunkNotFound is returned when a requested chunk slot is empty.
	ErrChunkNotFound = errors.New("anvil: chunk not found")
	// ErrInsufficientData is returned when a chunk frame header is shorter than 5 bytes.
	ErrInsufficientData = errors.New("anvil: insufficient data for chunk frame header")
	// ErrInvalidChunkMeta is returned when a chunk frame's compression scheme byte is
	// neither gzip (1) nor zlib (2).
	ErrInvalidChunkMeta = errors.New("anvil: invalid chunk compression scheme")
)

// Region is an open Anvil region file: its directory of chunk locations and timestamps has
// already been decoded from the 8 KiB header. A Region exclusively owns its underlying
// source and is not safe for concurrent use.
type Region struct {
	src        io.ReadSeeker
	locations  [1024]ChunkLocation
	timestamps [1024]uint32
	warnings   []string
}

// slotIndex computes the directory slot for chunk coordinates already known valid.
func slotIndex(x, z int) int {
	return (x % regionWidth) + regionWidth*(z%regionWidth)
}

// Open reads the 8 KiB header from src, decodes all 1024 location records and timestamps,
// and runs the presence/timestamp consistency pass described by the format: a present chunk
// must carry a non-zero timestamp and an absent chunk a zero one. Mismatches are corrected
// in memory (never written back) and recorded as warnings retrievable via Warnings.
func Open(src io.ReadSeeker) (*Region, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	r := byteio.New(src)

	header, err := r.ReadExact(headerSize)
	if err != nil {
		if err == io.EOF {
			return nil, &byteio.UnexpectedEOFError{Want: headerSize, Got: 0}
		}
		return nil, err
	}

	reg := &Region{src: src}
	for i := 0; i < 1024; i++ {
		b := header[i*4 : i*4+4]
		offset := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
		count := b[3]
		reg.locations[i] = ChunkLocation{BeginSector: offset, SectorCount: count}
	}
	for i := 0; i < 1024; i++ {
		b := header[sectorSize+i*4 : sectorSize+i*4+4]
		reg.timestamps[i] = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	}

	for i := 0; i < 1024; i++ {
		present := reg.locations[i].present()
		switch {
		case present && reg.timestamps[i] == 0:
			reg.timestamps[i] = 1
			reg.warnings = append(reg.warnings, fmt.Sprintf("slot %d: present chunk had zero timestamp, forced to 1", i))
		case !present && reg.timestamps[i] != 0:
			reg.timestamps[i] = 0
			reg.warnings = append(reg.warnings, fmt.Sprintf("slot %d: absent chunk had non-zero timestamp, forced to 0", i))
		}
	}

	return reg, nil
}

// Warnings returns the diagnostic messages recorded while self-correcting
// presence/timestamp mismatches during Open. Empty for a well-formed header.
func (reg *Region) Warnings() []string {
	return reg.warnings
}

// ChunkLocation maps chunk coordinates (each 0..31) to their directory entry. It fails with
// *InvalidOffsetError for coordinates outside the grid and ErrChunkNotFound for an empty slot.
func (reg *Region) ChunkLocation(x, z int) (ChunkLocation, error) {
	if x < 0 || x >= regionWidth || z < 0 || z >= regionWidth {
		return ChunkLocation{}, &InvalidOffsetError{X: x, Z: z}
	}
	loc := reg.locations[slotIndex(x, z)]
	if !loc.present() {
		return ChunkLocation{}, ErrChunkNotFound
	}
	loc.X, loc.Z = x, z
	return loc, nil
}

// LoadChunk reads the raw (still-compressed, still-framed) bytes of the sectors a location
// points to.
func (reg *Region) LoadChunk(loc ChunkLocation) ([]byte, error) {
	if _, err := reg.src.Seek(int64(loc.BeginSector)*sectorSize, io.SeekStart); err != nil {
		return nil, err
	}
	r := byteio.New(reg.src)
	return r.ReadExact(int(loc.SectorCount) * sectorSize)
}

// LoadChunkAt composes ChunkLocation and LoadChunk, failing with ErrChunkNotFound when the
// slot is empty.
func (reg *Region) LoadChunkAt(x, z int) ([]byte, error) {
	loc, err := reg.ChunkLocation(x, z)
	if err != nil {
		return nil, err
	}
	if !loc.present() {
		return nil, ErrChunkNotFound
	}
	return reg.LoadChunk(loc)
}

// decodeFrame splits a chunk's raw sector bytes into its compression scheme and its
// compressed payload slice, whose size is taken from the declared length in the 5-byte
// frame header.
func decodeFrame(raw []byte) (scheme byte, payload []byte, err error) {
	if len(raw) < 5 {
		return 0, nil, ErrInsufficientData
	}
	length := uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
	scheme = raw[4]
	if scheme != byte(compress.SchemeGzip) && scheme != byte(compress.SchemeZlib) {
		return 0, nil, ErrInvalidChunkMeta
	}
	bodyLen := int(length) - 1
	if bodyLen < 0 || 5+bodyLen > len(raw) {
		return 0, nil, ErrInsufficientData
	}
	return scheme, raw[5 : 5+bodyLen], nil
}

// LoadChunkNBTAt loads, unframes, and decompresses the chunk at (x, z), returning the raw
// NBT bytes ready to be handed to nbt.NewParser.
func (reg *Region) LoadChunkNBTAt(x, z int) ([]byte, error) {
	raw, err := reg.LoadChunkAt(x, z)
	if err != nil {
		return nil, err
	}
	scheme, payload, err := decodeFrame(raw)
	if err != nil {
		return nil, err
	}
	return compress.Decompress(scheme, bytes.NewReader(payload))
}

// ChunkVisitor is called once per present chunk during ForEachChunk.
type ChunkVisitor func(x, z int, decompressed []byte) error

// ForEachChunk enumerates every present chunk, ordered by ascending begin sector so file
// access stays sequential. For each it loads the raw bytes, decompresses them, and invokes
// fn. A read error from any one chunk stops the walk and is returned to the caller.
func (reg *Region) ForEachChunk(fn ChunkVisitor) error {
	var present []regionSlot
	for i, loc := range reg.locations {
		if loc.present() {
			present = append(present, regionSlot{index: i, loc: loc})
		}
	}
	sort.Slice(present, func(i, j int) bool {
		return present[i].loc.BeginSector < present[j].loc.BeginSector
	})

	for _, s := range present {
		x := s.index % regionWidth
		z := s.index / regionWidth
		raw, err := reg.LoadChunk(s.loc)
		if err != nil {
			return fmt.Errorf("anvil: loading chunk (%d, %d): %w", x, z, err)
		}
		scheme, payload, err := decodeFrame(raw)
		if err != nil {
			return fmt.Errorf("anvil: decoding frame for chunk (%d, %d): %w", x, z, err)
		}
		decompressed, err := compress.Decompress(scheme, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("anvil: decompressing chunk (%d, %d): %w", x, z, err)
		}
		if err := fn(x, z, decompressed); err != nil {
			return err
		}
	}
	return nil
}

type regionSlot struct {
	index int
	loc   ChunkLocation
}

// ChunkParser loads and decompresses the chunk at (x, z) and returns a parser positioned
// before the chunk's root compound, for callers that want the nbt navigation helpers
// without handling the decompressed bytes themselves.
func (reg *Region) ChunkParser(x, z int) (*nbt.Parser, error) {
	data, err := reg.LoadChunkNBTAt(x, z)
	if err != nil {
		return nil, err
	}
	return nbt.NewParser(bytes.NewReader(data)), nil
}

// PresentChunkCount returns how many of the 1024 directory slots hold a chunk.
func (reg *Region) PresentChunkCount() int {
	n := 0
	for _, loc := range reg.locations {
		if loc.present() {
			n++
		}
	}
	return n
}

// ChunkPresence reports one directory slot's occupancy, for callers (e.g. the scan index)
// that want per-chunk detail rather than just an aggregate count.
type ChunkPresence struct {
	X, Z      int
	Present   bool
	Timestamp uint32
}

// AllChunkPresence returns the presence/timestamp of every one of the 1024 directory slots,
// in slot order.
func (reg *Region) AllChunkPresence() []ChunkPresence {
	out := make([]ChunkPresence, 1024)
	for i := range reg.locations {
		out[i] = ChunkPresence{
			X:         i % regionWidth,
			Z:         i / regionWidth,
			Present:   reg.locations[i].present(),
			Timestamp: reg.timestamps[i],
		}
	}
	return out
}
