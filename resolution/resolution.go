// Package resolution defines the four provenance mark resolutions and the
// field widths, byte ranges, and sequence/date codecs each one implies.
package resolution

import (
	"fmt"
	"time"

	"github.com/smythg4/provenance-mark/pmdate"
)

// Resolution selects the binary widths of a mark's links (key, next key,
// chain ID, hash), sequence number, and date.
type Resolution uint8

const (
	Low Resolution = iota
	Medium
	Quartile
	High
)

// Error reports a resolution-level codec failure: wrong slice length, or a
// sequence number too large for the resolution's width.
type Error struct {
	Message string
}

func (e *Error) Error() string { return "resolution error: " + e.Message }

// FromUint8 validates a raw resolution byte, as appears in the CBOR tagged
// form (spec §4.G: tag([res, message])).
func FromUint8(v uint8) (Resolution, error) {
	switch Resolution(v) {
	case Low, Medium, Quartile, High:
		return Resolution(v), nil
	default:
		return 0, &Error{Message: fmt.Sprintf("invalid provenance mark resolution value: %d", v)}
	}
}

func (r Resolution) String() string {
	switch r {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case Quartile:
		return "quartile"
	case High:
		return "high"
	default:
		return fmt.Sprintf("Resolution(%d)", uint8(r))
	}
}

// LinkLength is the byte width L of key, next_key, chain_id, and hash.
func (r Resolution) LinkLength() int {
	switch r {
	case Low:
		return 4
	case Medium:
		return 8
	case Quartile:
		return 16
	case High:
		return 32
	default:
		panic(fmt.Sprintf("invalid resolution %d", r))
	}
}

// SeqBytesLength is the byte width of the encoded sequence number.
func (r Resolution) SeqBytesLength() int {
	if r == Low {
		return 2
	}
	return 4
}

// DateBytesLength is the byte width of the encoded date.
func (r Resolution) DateBytesLength() int {
	switch r {
	case Low:
		return 2
	case Medium:
		return 4
	default:
		return 6
	}
}

// FixedLength is the minimum byte length of a mark's wire message (key
// followed by the payload): 3*L + seq width + date width (excludes any
// variable-length info bytes).
func (r Resolution) FixedLength() int {
	return 3*r.LinkLength() + r.SeqBytesLength() + r.DateBytesLength()
}

// KeyRange is the byte range of key within the wire message; the key is
// not part of the payload.
func (r Resolution) KeyRange() (int, int) { return 0, r.LinkLength() }

// ChainIDRange is the byte range of chain_id within the plaintext payload.
func (r Resolution) ChainIDRange() (int, int) { return 0, r.LinkLength() }

// HashRange is the byte range of hash within the plaintext payload.
func (r Resolution) HashRange() (int, int) {
	_, end := r.ChainIDRange()
	return end, end + r.LinkLength()
}

// SeqBytesRange is the byte range of seq_bytes within the plaintext payload.
func (r Resolution) SeqBytesRange() (int, int) {
	_, end := r.HashRange()
	return end, end + r.SeqBytesLength()
}

// DateBytesRange is the byte range of date_bytes within the plaintext payload.
func (r Resolution) DateBytesRange() (int, int) {
	_, end := r.SeqBytesRange()
	return end, end + r.DateBytesLength()
}

// InfoStart is the offset at which info_bytes begins and continues to the
// end of the plaintext payload.
func (r Resolution) InfoStart() int {
	_, end := r.DateBytesRange()
	return end
}

// SerializeSeq encodes seq as a big-endian integer of SeqBytesLength bytes.
func (r Resolution) SerializeSeq(seq uint32) ([]byte, error) {
	switch r.SeqBytesLength() {
	case 2:
		if seq > 0xffff {
			return nil, &Error{Message: fmt.Sprintf("sequence number %d out of range for 2-byte format (max 65535)", seq)}
		}
		return []byte{byte(seq >> 8), byte(seq)}, nil
	case 4:
		return []byte{byte(seq >> 24), byte(seq >> 16), byte(seq >> 8), byte(seq)}, nil
	default:
		panic("unreachable")
	}
}

// DeserializeSeq decodes a big-endian sequence number.
func (r Resolution) DeserializeSeq(data []byte) (uint32, error) {
	switch r.SeqBytesLength() {
	case 2:
		if len(data) != 2 {
			return 0, &Error{Message: fmt.Sprintf("invalid sequence number length: expected 2 bytes, got %d", len(data))}
		}
		return uint32(data[0])<<8 | uint32(data[1]), nil
	case 4:
		if len(data) != 4 {
			return 0, &Error{Message: fmt.Sprintf("invalid sequence number length: expected 4 bytes, got %d", len(data))}
		}
		return uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]), nil
	default:
		panic("unreachable")
	}
}

// SerializeDate encodes date per the resolution's compact date width.
func (r Resolution) SerializeDate(date time.Time) ([]byte, error) {
	switch r.DateBytesLength() {
	case 2:
		b, err := pmdate.Encode2(date)
		if err != nil {
			return nil, err
		}
		return b[:], nil
	case 4:
		b, err := pmdate.Encode4(date)
		if err != nil {
			return nil, err
		}
		return b[:], nil
	default:
		b, err := pmdate.Encode6(date)
		if err != nil {
			return nil, err
		}
		return b[:], nil
	}
}

// DeserializeDate decodes date per the resolution's compact date width.
func (r Resolution) DeserializeDate(data []byte) (time.Time, error) {
	switch r.DateBytesLength() {
	case 2:
		if len(data) != 2 {
			return time.Time{}, &Error{Message: fmt.Sprintf("invalid date length: expected 2 bytes, got %d", len(data))}
		}
		return pmdate.Decode2([2]byte{data[0], data[1]})
	case 4:
		if len(data) != 4 {
			return time.Time{}, &Error{Message: fmt.Sprintf("invalid date length: expected 4 bytes, got %d", len(data))}
		}
		return pmdate.Decode4([4]byte{data[0], data[1], data[2], data[3]})
	default:
		if len(data) != 6 {
			return time.Time{}, &Error{Message: fmt.Sprintf("invalid date length: expected 6 bytes, got %d", len(data))}
		}
		var arr [6]byte
		copy(arr[:], data)
		return pmdate.Decode6(arr)
	}
}
