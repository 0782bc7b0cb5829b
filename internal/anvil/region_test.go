package anvil

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/cobaltcrest/anvilctl/internal/byteio"
	"github.com/cobaltcrest/anvilctl/internal/compress"
)

func TestInvalidOffset(t *testing.T) {
	src := NewRegionBuilder().Location(2, 1).Build()
	reg, err := Open(src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	cases := []struct{ x, z int }{
		{32, 32},
		{32, 0},
		{0, 32},
	}
	for _, c := range cases {
		_, err := reg.ChunkLocation(c.x, c.z)
		var offErr *InvalidOffsetError
		if !errors.As(err, &offErr) || offErr.X != c.x || offErr.Z != c.z {
			t.Fatalf("ChunkLocation(%d, %d): expected InvalidOffsetError{%d,%d}, got %v", c.x, c.z, c.x, c.z, err)
		}
	}
}

func TestTruncatedHeader(t *testing.T) {
	src := NewRegionBuilder().Location(2, 1).BuildUnpadded()
	_, err := Open(src)
	var eofErr *byteio.UnexpectedEOFError
	if !errors.As(err, &eofErr) {
		t.Fatalf("expected *byteio.UnexpectedEOFError, got %v", err)
	}
}

func TestFirstLocation(t *testing.T) {
	src := NewRegionBuilder().Location(2, 1).Build()
	reg, err := Open(src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	loc, err := reg.ChunkLocation(0, 0)
	if err != nil {
		t.Fatalf("ChunkLocation(0,0): %v", err)
	}
	want := ChunkLocation{BeginSector: 2, SectorCount: 1, X: 0, Z: 0}
	if loc != want {
		t.Fatalf("got %+v want %+v", loc, want)
	}
}

func TestAbsentSlotIsChunkNotFound(t *testing.T) {
	src := NewRegionBuilder().Location(2, 1).Build()
	reg, err := Open(src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = reg.LoadChunkAt(1, 0)
	if !errors.Is(err, ErrChunkNotFound) {
		t.Fatalf("expected ErrChunkNotFound, got %v", err)
	}
}

// buildRegionWithChunk assembles a full region: one chunk at slot (0,0) occupying sector
// 2, framed and compressed with the given scheme, followed by the matching timestamp.
func buildRegionWithChunk(t *testing.T, scheme byte, body []byte) *bytes.Reader {
	t.Helper()
	var compressed bytes.Buffer
	w, err := compress.NewWriter(scheme, &compressed)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(body); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	frame := make([]byte, 5)
	length := uint32(compressed.Len() + 1)
	frame[0] = byte(length >> 24)
	frame[1] = byte(length >> 16)
	frame[2] = byte(length >> 8)
	frame[3] = byte(length)
	frame[4] = scheme
	frame = append(frame, compressed.Bytes()...)

	sectors := (len(frame) + sectorSize - 1) / sectorSize
	if sectors == 0 {
		sectors = 1
	}
	padded := make([]byte, sectors*sectorSize)
	copy(padded, frame)

	header := make([]byte, headerSize)
	// slot (0,0) is index 0: offset = 2 sectors in (after the header's own 2 sectors).
	header[0], header[1], header[2], header[3] = 0, 0, 2, byte(sectors)
	// timestamp for slot 0, non-zero to match a present chunk.
	header[sectorSize+3] = 1

	full := append(header, padded...)
	return bytes.NewReader(full)
}

func TestLoadChunkNBTAtGzipAndZlib(t *testing.T) {
	for _, scheme := range []byte{byte(compress.SchemeGzip), byte(compress.SchemeZlib)} {
		src := buildRegionWithChunk(t, scheme, []byte("hello chunk"))
		reg, err := Open(src)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		got, err := reg.LoadChunkNBTAt(0, 0)
		if err != nil {
			t.Fatalf("LoadChunkNBTAt scheme %d: %v", scheme, err)
		}
		if string(got) != "hello chunk" {
			t.Fatalf("scheme %d: got %q", scheme, got)
		}
	}
}

func TestUnknownSchemeIsInvalidChunkMeta(t *testing.T) {
	raw := []byte{0, 0, 0, 1, 3} // len=1, scheme=3
	_, _, err := decodeFrame(raw)
	if !errors.Is(err, ErrInvalidChunkMeta) {
		t.Fatalf("expected ErrInvalidChunkMeta, got %v", err)
	}
}

func TestInsufficientFrameData(t *testing.T) {
	_, _, err := decodeFrame([]byte{0, 0, 0, 1})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestForEachChunkOrdersBySector(t *testing.T) {
	src := NewRegionBuilder().
		Location(10, 1).
		Location(2, 1).
		Build()
	reg, err := Open(src)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// Both slots point past the end of available data, so no chunk is visited. The walk
	// starts at the lowest begin sector (slot 1 at sector 2, before slot 0 at sector 10),
	// so the read that fails is the one for chunk (1, 0).
	var visited []int
	err = reg.ForEachChunk(func(x, z int, _ []byte) error {
		visited = append(visited, x+z*32)
		return nil
	})
	if err == nil {
		t.Fatalf("expected a read error since no chunk sectors are backed by real data")
	}
	if len(visited) != 0 {
		t.Fatalf("expected no successful visits, got %v", visited)
	}
	if !strings.Contains(err.Error(), "chunk (1, 0)") {
		t.Fatalf("expected the walk to start at chunk (1, 0) (lowest begin sector), got %v", err)
	}
}
