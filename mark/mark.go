// Package mark implements the provenance mark itself: construction from a
// key/next-key pair, the obfuscated wire message, the hash commitment that
// links one mark to the next, and the external-format adapters (bytewords,
// URL, CBOR tagged form, fingerprint) built on top of it.
package mark

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/smythg4/provenance-mark/bytewords"
	"github.com/smythg4/provenance-mark/internal/pmcrypto"
	"github.com/smythg4/provenance-mark/resolution"
	"github.com/smythg4/provenance-mark/ur"
)

// TagProvenanceMark is the CBOR tag number for a tagged provenance mark,
// [resolution, message], per the Blockchain Commons tag registry.
const TagProvenanceMark = 40000

// Error reports a mark construction or decoding failure.
type Error struct {
	Message string
}

func (e *Error) Error() string { return "mark: " + e.Message }

// LengthError reports that a byte slice passed to New didn't match the
// length its resolution requires.
type LengthError struct {
	Field    string
	Expected int
	Actual   int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("mark: invalid %s length: expected %d, got %d", e.Field, e.Expected, e.Actual)
}

// Issue is a chain-succession defect reported by PrecedesOpt and, in turn,
// by the validate package's sequence segmentation.
//
// IssueKeyMismatch, IssueNonGenesisAtZero and IssueInvalidGenesisKey are
// sentinel values since they carry no data; the rest carry the mismatched
// fields.
var (
	// IssueKeyMismatch: a generic link-failure value for callers that need
	// one. PrecedesOpt never returns it; a failing hash commitment is
	// reported as *IssueHashMismatch.
	IssueKeyMismatch error = &issueSentinel{"key mismatch: current hash was not generated from next key"}
	// IssueNonGenesisAtZero: a non-genesis mark (key != chain_id) sits at
	// sequence zero, where only a genesis mark may appear.
	IssueNonGenesisAtZero error = &issueSentinel{"non-genesis mark at sequence 0"}
	// IssueInvalidGenesisKey: a mark past sequence zero has a key equal to
	// its chain ID, which only a genesis mark may have.
	IssueInvalidGenesisKey error = &issueSentinel{"genesis mark must have key equal to chain_id"}
)

type issueSentinel struct{ message string }

func (i *issueSentinel) Error() string { return i.message }

// IssueSequenceGap reports a missing sequence number between two marks.
type IssueSequenceGap struct {
	Expected, Actual uint32
}

func (i *IssueSequenceGap) Error() string {
	return fmt.Sprintf("sequence number gap: expected %d, got %d", i.Expected, i.Actual)
}

// IssueDateOrdering reports a successor whose date precedes its
// predecessor's.
type IssueDateOrdering struct {
	Previous, Next time.Time
}

func (i *IssueDateOrdering) Error() string {
	return fmt.Sprintf("date must be equal or later: previous is %s, next is %s", i.Previous, i.Next)
}

// IssueHashMismatch reports that a mark's hash does not commit to its
// successor's key.
type IssueHashMismatch struct {
	Expected, Actual []byte
}

func (i *IssueHashMismatch) Error() string {
	return fmt.Sprintf("hash mismatch: expected %x, got %x", i.Expected, i.Actual)
}

// Mark is a single link in a provenance chain.
type Mark struct {
	res       resolution.Resolution
	key       []byte
	hash      []byte
	chainID   []byte
	seqBytes  []byte
	dateBytes []byte
	infoBytes []byte

	seq  uint32
	date time.Time
}

// Resolution returns the mark's resolution.
func (m Mark) Resolution() resolution.Resolution { return m.res }

// Key returns the mark's own obfuscation key.
func (m Mark) Key() []byte { return append([]byte(nil), m.key...) }

// Hash returns the mark's hash commitment to its successor's key.
func (m Mark) Hash() []byte { return append([]byte(nil), m.hash...) }

// ChainID returns the mark's chain identifier.
func (m Mark) ChainID() []byte { return append([]byte(nil), m.chainID...) }

// Seq returns the mark's sequence number.
func (m Mark) Seq() uint32 { return m.seq }

// Date returns the mark's timestamp, truncated to the resolution's
// compact date codec's precision.
func (m Mark) Date() time.Time { return m.date }

// Info returns the mark's raw CBOR info bytes, or nil if absent.
func (m Mark) Info() []byte {
	if len(m.infoBytes) == 0 {
		return nil
	}
	return append([]byte(nil), m.infoBytes...)
}

// New constructs a mark, computing its hash commitment to nextKey.
// info may be nil; if non-nil it is CBOR-encoded and carried as info_bytes.
func New(res resolution.Resolution, key, nextKey, chainID []byte, seq uint32, date time.Time, info any) (Mark, error) {
	l := res.LinkLength()
	if len(key) != l {
		return Mark{}, &LengthError{Field: "key", Expected: l, Actual: len(key)}
	}
	if len(nextKey) != l {
		return Mark{}, &LengthError{Field: "next key", Expected: l, Actual: len(nextKey)}
	}
	if len(chainID) != l {
		return Mark{}, &LengthError{Field: "chain ID", Expected: l, Actual: len(chainID)}
	}

	dateBytes, err := res.SerializeDate(date)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	seqBytes, err := res.SerializeSeq(seq)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	// Re-decode the date so the stored value reflects the codec's precision.
	canonicalDate, err := res.DeserializeDate(dateBytes)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}

	var infoBytes []byte
	if info != nil {
		infoBytes, err = cbor.Marshal(info)
		if err != nil {
			return Mark{}, fmt.Errorf("mark: encoding info: %w", err)
		}
	}

	hash := makeHash(res, key, nextKey, chainID, seqBytes, dateBytes, infoBytes)

	return Mark{
		res:       res,
		key:       append([]byte(nil), key...),
		hash:      hash,
		chainID:   append([]byte(nil), chainID...),
		seqBytes:  seqBytes,
		dateBytes: dateBytes,
		infoBytes: infoBytes,
		seq:       seq,
		date:      canonicalDate,
	}, nil
}

// FromMessage parses a mark from its wire message: key followed by a
// ChaCha20-obfuscated payload of chain_id, hash, seq_bytes, date_bytes, and
// info_bytes.
func FromMessage(res resolution.Resolution, message []byte) (Mark, error) {
	if len(message) < res.FixedLength() {
		return Mark{}, &Error{Message: fmt.Sprintf("invalid message length: expected at least %d, got %d", res.FixedLength(), len(message))}
	}

	ks, ke := res.KeyRange()
	key := message[ks:ke]
	payload := pmcrypto.Obfuscate(key, message[res.LinkLength():])

	hs, he := res.HashRange()
	cs, ce := res.ChainIDRange()
	ss, se := res.SeqBytesRange()
	ds, de := res.DateBytesRange()

	hash := payload[hs:he]
	chainID := payload[cs:ce]
	seqBytes := payload[ss:se]
	dateBytes := payload[ds:de]
	infoBytes := payload[res.InfoStart():]

	seq, err := res.DeserializeSeq(seqBytes)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	date, err := res.DeserializeDate(dateBytes)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	if len(infoBytes) > 0 {
		var discard cbor.RawMessage
		if err := cbor.Unmarshal(infoBytes, &discard); err != nil {
			return Mark{}, &Error{Message: "invalid CBOR data in info field"}
		}
	}

	return Mark{
		res:       res,
		key:       append([]byte(nil), key...),
		hash:      append([]byte(nil), hash...),
		chainID:   append([]byte(nil), chainID...),
		seqBytes:  append([]byte(nil), seqBytes...),
		dateBytes: append([]byte(nil), dateBytes...),
		infoBytes: append([]byte(nil), infoBytes...),
		seq:       seq,
		date:      date,
	}, nil
}

func makeHash(res resolution.Resolution, key, nextKey, chainID, seqBytes, dateBytes, infoBytes []byte) []byte {
	buf := make([]byte, 0, len(key)+len(nextKey)+len(chainID)+len(seqBytes)+len(dateBytes)+len(infoBytes))
	buf = append(buf, key...)
	buf = append(buf, nextKey...)
	buf = append(buf, chainID...)
	buf = append(buf, seqBytes...)
	buf = append(buf, dateBytes...)
	buf = append(buf, infoBytes...)
	return pmcrypto.SHA256Prefix(buf, res.LinkLength())
}

// Message renders the mark's wire form: key followed by the obfuscated
// payload.
func (m Mark) Message() []byte {
	payload := make([]byte, 0, len(m.chainID)+len(m.hash)+len(m.seqBytes)+len(m.dateBytes)+len(m.infoBytes))
	payload = append(payload, m.chainID...)
	payload = append(payload, m.hash...)
	payload = append(payload, m.seqBytes...)
	payload = append(payload, m.dateBytes...)
	payload = append(payload, m.infoBytes...)

	out := make([]byte, 0, len(m.key)+len(payload))
	out = append(out, m.key...)
	out = append(out, pmcrypto.Obfuscate(m.key, payload)...)
	return out
}

// Equal reports whether two marks share a resolution and wire message.
func (m Mark) Equal(other Mark) bool {
	return m.res == other.res && bytes.Equal(m.Message(), other.Message())
}

// IsGenesis reports whether the mark is the first in its chain: sequence
// zero with a key equal to the chain ID.
func (m Mark) IsGenesis() bool {
	return m.seq == 0 && bytes.Equal(m.key, m.chainID)
}

// Precedes reports whether m is the immediate predecessor of next in the
// same chain: next's sequence is m's plus one, next's date is not earlier
// than m's, and m's hash commits to next's key.
func (m Mark) Precedes(next Mark) bool {
	return m.PrecedesOpt(next) == nil
}

// PrecedesOpt is the diagnostic form of Precedes: it returns nil if m
// precedes next, or the specific Issue that breaks the chain otherwise.
func (m Mark) PrecedesOpt(next Mark) error {
	if next.seq == 0 && !next.IsGenesis() {
		return IssueNonGenesisAtZero
	}
	if m.seq+1 != next.seq {
		return &IssueSequenceGap{Expected: m.seq + 1, Actual: next.seq}
	}
	if next.seq > 0 && bytes.Equal(next.key, next.chainID) {
		return IssueInvalidGenesisKey
	}
	if next.date.Before(m.date) {
		return &IssueDateOrdering{Previous: m.date, Next: next.date}
	}
	expected := makeHash(m.res, m.key, next.key, m.chainID, m.seqBytes, m.dateBytes, m.infoBytes)
	if !bytes.Equal(m.hash, expected) {
		return &IssueHashMismatch{Expected: m.hash, Actual: expected}
	}
	return nil
}

// IsSequenceValid reports whether marks form a single unbroken chain: at
// least two marks, the first at sequence zero as a genesis mark, and every
// consecutive pair linked by Precedes.
func IsSequenceValid(marks []Mark) bool {
	if len(marks) < 2 {
		return false
	}
	if !marks[0].IsGenesis() {
		return false
	}
	for i := 1; i < len(marks); i++ {
		if !marks[i-1].Precedes(marks[i]) {
			return false
		}
	}
	return true
}

// Identifier renders the first four bytes of the hash as lowercase hex.
func (m Mark) Identifier() string {
	n := min(4, len(m.hash))
	return hex.EncodeToString(m.hash[:n])
}

// BytewordsIdentifier renders the first four bytes of the hash as
// upper-cased standard-style bytewords.
func (m Mark) BytewordsIdentifier() string {
	n := min(4, len(m.hash))
	return bytewords.Identifier(m.hash[:n])
}

// BytemojiIdentifier renders the first four bytes of the hash as
// space-separated bytemoji pictographs.
func (m Mark) BytemojiIdentifier() string {
	n := min(4, len(m.hash))
	return bytewords.BytemojiIdentifier(m.hash[:n])
}

// Fingerprint returns the SHA-256 hash of the mark's CBOR tagged form, a
// stable identity usable as a map key or equality check independent of
// message framing.
func (m Mark) Fingerprint() ([32]byte, error) {
	data, err := m.MarshalTaggedCBOR()
	if err != nil {
		return [32]byte{}, err
	}
	return pmcrypto.SHA256(data), nil
}

// ToBytewords renders the mark's wire message as standard-style bytewords.
func (m Mark) ToBytewords() string {
	return bytewords.Encode(m.Message(), bytewords.Standard)
}

// FromBytewords parses a mark from standard-style bytewords text.
func FromBytewords(res resolution.Resolution, text string) (Mark, error) {
	message, err := bytewords.Decode(text, bytewords.Standard)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	return FromMessage(res, message)
}

type taggedForm struct {
	_       struct{} `cbor:",toarray"`
	Res     uint8
	Message []byte
}

// MarshalTaggedCBOR renders the mark as a CBOR tag(40000, [res, message]).
func (m Mark) MarshalTaggedCBOR() ([]byte, error) {
	raw, err := cbor.Marshal(taggedForm{Res: uint8(m.res), Message: m.Message()})
	if err != nil {
		return nil, fmt.Errorf("mark: %w", err)
	}
	return cbor.Marshal(cbor.RawTag{Number: TagProvenanceMark, Content: raw})
}

// UnmarshalTaggedCBOR parses a CBOR tag(40000, [res, message]).
func UnmarshalTaggedCBOR(data []byte) (Mark, error) {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(data, &tag); err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	if tag.Number != TagProvenanceMark {
		return Mark{}, &Error{Message: fmt.Sprintf("unexpected CBOR tag: %d", tag.Number)}
	}
	var form taggedForm
	if err := cbor.Unmarshal(tag.Content, &form); err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	res, err := resolution.FromUint8(form.Res)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	return FromMessage(res, form.Message)
}

// ToURL returns base with a "provenance" query parameter carrying the
// mark's CBOR tagged form as minimal-style bytewords.
func (m Mark) ToURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("mark: %w", err)
	}
	data, err := m.MarshalTaggedCBOR()
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("provenance", bytewords.Encode(data, bytewords.Minimal))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FromURL extracts and decodes the "provenance" query parameter from a URL
// produced by ToURL.
func FromURL(rawURL string) (Mark, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	value := u.Query().Get("provenance")
	if value == "" {
		return Mark{}, &Error{Message: "missing required URL parameter: provenance"}
	}
	data, err := bytewords.Decode(value, bytewords.Minimal)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	return UnmarshalTaggedCBOR(data)
}

// URString renders the mark as a "ur:provenance/..." string.
func (m Mark) URString() (string, error) {
	return ur.EncodeProvenance(uint8(m.res), m.Message())
}

// FromURString parses a mark from a "ur:provenance/..." string.
func FromURString(s string) (Mark, error) {
	resVal, message, err := ur.DecodeProvenance(s)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	res, err := resolution.FromUint8(resVal)
	if err != nil {
		return Mark{}, fmt.Errorf("mark: %w", err)
	}
	return FromMessage(res, message)
}

// jsonMark is the JSON wire shape, matching the reference implementation's
// field names. []byte fields are base64 via encoding/json's default codec.
type jsonMark struct {
	Res     uint8           `json:"res"`
	Key     []byte          `json:"key"`
	Hash    []byte          `json:"hash"`
	ChainID []byte          `json:"chainID"`
	Info    cbor.RawMessage `json:"info,omitempty"`
	Seq     uint32          `json:"seq"`
	Date    time.Time       `json:"date"`
}

// MarshalJSON renders the mark in the reference JSON shape: base64 byte
// fields, an ISO-8601 date, and info_bytes omitted when empty.
func (m Mark) MarshalJSON() ([]byte, error) {
	j := jsonMark{
		Res:     uint8(m.res),
		Key:     m.key,
		Hash:    m.hash,
		ChainID: m.chainID,
		Seq:     m.seq,
		Date:    m.date,
	}
	if len(m.infoBytes) > 0 {
		j.Info = cbor.RawMessage(m.infoBytes)
	}
	return json.Marshal(j)
}

// UnmarshalJSON parses the reference JSON shape back into a mark, without
// recomputing the hash (the next key isn't part of this representation).
func (m *Mark) UnmarshalJSON(data []byte) error {
	var j jsonMark
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("mark: %w", err)
	}
	res, err := resolution.FromUint8(j.Res)
	if err != nil {
		return fmt.Errorf("mark: %w", err)
	}
	seqBytes, err := res.SerializeSeq(j.Seq)
	if err != nil {
		return fmt.Errorf("mark: %w", err)
	}
	dateBytes, err := res.SerializeDate(j.Date)
	if err != nil {
		return fmt.Errorf("mark: %w", err)
	}
	*m = Mark{
		res:       res,
		key:       j.Key,
		hash:      j.Hash,
		chainID:   j.ChainID,
		seqBytes:  seqBytes,
		dateBytes: dateBytes,
		infoBytes: []byte(j.Info),
		seq:       j.Seq,
		date:      j.Date,
	}
	return nil
}

func (m Mark) String() string {
	return fmt.Sprintf("Mark(%s)", m.Identifier())
}
