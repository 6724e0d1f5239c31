// Package ur implements the "uniform resource" text envelope used to
// transport a provenance mark: a CBOR array of [resolution, message bytes],
// rendered as minimal-style bytewords prefixed with a type tag
// ("ur:provenance/..."). Multi-part URs are out of scope: every mark this
// engine produces is small enough to fit in a single part.
package ur

import (
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/smythg4/provenance-mark/bytewords"
)

// Type is the UR type string used for provenance marks.
const Type = "provenance"

// Error reports a malformed UR string.
type Error struct {
	Message string
}

func (e *Error) Error() string { return "ur: " + e.Message }

// UR is a parsed uniform resource: a type tag plus its CBOR-encoded body.
type UR struct {
	Type string
	CBOR []byte
}

// String renders the UR in "ur:<type>/<minimal-bytewords>" form.
func (u UR) String() string {
	return "ur:" + u.Type + "/" + bytewords.Encode(u.CBOR, bytewords.Minimal)
}

// Parse decodes a "ur:<type>/<minimal-bytewords>" string.
func Parse(s string) (UR, error) {
	const prefix = "ur:"
	if !strings.HasPrefix(s, prefix) {
		return UR{}, &Error{Message: fmt.Sprintf("missing %q prefix: %q", prefix, s)}
	}
	rest := s[len(prefix):]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return UR{}, &Error{Message: fmt.Sprintf("missing type separator: %q", s)}
	}
	typ := rest[:slash]
	body := rest[slash+1:]

	data, err := bytewords.Decode(body, bytewords.Minimal)
	if err != nil {
		return UR{}, fmt.Errorf("ur: %w", err)
	}
	return UR{Type: typ, CBOR: data}, nil
}

// EncodeProvenance CBOR-encodes the 2-element array [resolution, message]
// and wraps it as a "provenance"-typed UR string.
func EncodeProvenance(resolution uint8, message []byte) (string, error) {
	body, err := cbor.Marshal([2]any{resolution, message})
	if err != nil {
		return "", fmt.Errorf("ur: %w", err)
	}
	u := UR{Type: Type, CBOR: body}
	return u.String(), nil
}

// DecodeProvenance parses a "provenance"-typed UR string and returns its
// resolution and message bytes.
func DecodeProvenance(s string) (resolution uint8, message []byte, err error) {
	u, err := Parse(s)
	if err != nil {
		return 0, nil, err
	}
	if u.Type != Type {
		return 0, nil, &Error{Message: fmt.Sprintf("unexpected UR type: %q", u.Type)}
	}

	var fields [2]cbor.RawMessage
	if err := cbor.Unmarshal(u.CBOR, &fields); err != nil {
		return 0, nil, fmt.Errorf("ur: %w", err)
	}
	if err := cbor.Unmarshal(fields[0], &resolution); err != nil {
		return 0, nil, fmt.Errorf("ur: %w", err)
	}
	if err := cbor.Unmarshal(fields[1], &message); err != nil {
		return 0, nil, fmt.Errorf("ur: %w", err)
	}
	return resolution, message, nil
}
