package bytewords

import (
	"bytes"
	"testing"
)

func TestStandardRoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0x7f, 0xff, 0xab}
	enc := Encode(data, Standard)
	dec, err := Decode(enc, Standard)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Errorf("round trip = %x, want %x", dec, data)
	}
}

func TestMinimalRoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0x7f, 0xff, 0xab, 0x42}
	enc := Encode(data, Minimal)
	dec, err := Decode(enc, Minimal)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(dec, data) {
		t.Errorf("round trip = %x, want %x", dec, data)
	}
}

func TestAllBytesRoundTrip(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	for _, style := range []Style{Standard, Minimal} {
		enc := Encode(data, style)
		dec, err := Decode(enc, style)
		if err != nil {
			t.Fatalf("style %v: Decode: %v", style, err)
		}
		if !bytes.Equal(dec, data) {
			t.Errorf("style %v: round trip mismatch", style)
		}
	}
}

func TestEmptyMessage(t *testing.T) {
	if enc := Encode(nil, Standard); enc != "" {
		t.Errorf("Encode(nil, Standard) = %q, want empty", enc)
	}
	if enc := Encode(nil, Minimal); enc != "" {
		t.Errorf("Encode(nil, Minimal) = %q, want empty", enc)
	}
}

func TestDecodeCorruptWord(t *testing.T) {
	if _, err := Decode("zzzz", Standard); err == nil {
		t.Error("expected error decoding invalid word")
	}
}

func TestBytemojiIdentifierDistinct(t *testing.T) {
	a := BytemojiFor(0x00)
	b := BytemojiFor(0x01)
	if a == b {
		t.Error("expected distinct bytemoji for distinct bytes")
	}
}
