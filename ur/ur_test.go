package ur

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeProvenanceRoundTrip(t *testing.T) {
	message := []byte{0x01, 0x02, 0x03, 0xff, 0x00, 0xab}
	s, err := EncodeProvenance(2, message)
	if err != nil {
		t.Fatalf("EncodeProvenance: %v", err)
	}
	if got, want := s[:15], "ur:provenance/"; got[:len(want)] != want {
		t.Errorf("prefix = %q, want %q", got[:len(want)], want)
	}

	res, msg, err := DecodeProvenance(s)
	if err != nil {
		t.Fatalf("DecodeProvenance: %v", err)
	}
	if res != 2 {
		t.Errorf("resolution = %d, want 2", res)
	}
	if !bytes.Equal(msg, message) {
		t.Errorf("message = %x, want %x", msg, message)
	}
}

func TestDecodeProvenanceWrongType(t *testing.T) {
	if _, _, err := DecodeProvenance("ur:seed/aaaa"); err == nil {
		t.Error("expected error decoding UR with wrong type")
	}
}

func TestParseMissingPrefix(t *testing.T) {
	if _, err := Parse("provenance/aaaa"); err == nil {
		t.Error("expected error for missing ur: prefix")
	}
}

func TestParseMissingSeparator(t *testing.T) {
	if _, err := Parse("ur:provenance"); err == nil {
		t.Error("expected error for missing type separator")
	}
}
