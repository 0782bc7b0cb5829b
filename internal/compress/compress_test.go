package compress

import (
	"bytes"
	"io"
	"testing"
)

func roundTrip(t *testing.T, scheme byte) {
	t.Helper()
	want := []byte("the quick brown fox jumps over the lazy dog, repeated a bit to compress")

	var buf bytes.Buffer
	w, err := NewWriter(scheme, &buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := Decompress(scheme, &buf)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %q want %q", got, want)
	}
}

func TestGzipRoundTrip(t *testing.T) { roundTrip(t, byte(SchemeGzip)) }
func TestZlibRoundTrip(t *testing.T) { roundTrip(t, byte(SchemeZlib)) }

func TestInvalidScheme(t *testing.T) {
	_, err := NewReader(127, bytes.NewReader(nil))
	var se *InvalidSchemeError
	if err == nil {
		t.Fatalf("expected error for scheme 127")
	}
	if e, ok := err.(*InvalidSchemeError); !ok || e.Scheme != 127 {
		t.Fatalf("expected *InvalidSchemeError{127}, got %v", err)
	}
	_ = se
}

func TestDecompressPropagatesShortRead(t *testing.T) {
	_, err := Decompress(byte(SchemeZlib), bytes.NewReader([]byte{0x01, 0x02}))
	if err == nil || err == io.EOF {
		t.Fatalf("expected a zlib header error, got %v", err)
	}
}
