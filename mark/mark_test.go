package mark

import (
	"bytes"
	"testing"
	"time"

	"github.com/smythg4/provenance-mark/resolution"
)

func fixedDate(daysAfter int) time.Time {
	base := time.Date(2023, time.June, 20, 12, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, daysAfter)
}

func genesisChain(t *testing.T, n int) []Mark {
	t.Helper()
	res := resolution.Low
	l := res.LinkLength()
	chainID := bytes.Repeat([]byte{0x11}, l)

	keys := make([][]byte, n+1)
	for i := range keys {
		k := make([]byte, l)
		for j := range k {
			k[j] = byte(i*7 + j)
		}
		keys[i] = k
	}
	keys[0] = chainID // genesis key == chain_id

	marks := make([]Mark, n)
	for i := 0; i < n; i++ {
		m, err := New(res, keys[i], keys[i+1], chainID, uint32(i), fixedDate(i), nil)
		if err != nil {
			t.Fatalf("New(%d): %v", i, err)
		}
		marks[i] = m
	}
	return marks
}

func TestNewRejectsWrongLength(t *testing.T) {
	res := resolution.Low
	short := []byte{0x01, 0x02}
	full := bytes.Repeat([]byte{0x01}, res.LinkLength())
	_, err := New(res, short, full, full, 0, fixedDate(0), nil)
	if err == nil {
		t.Fatal("expected error for short key")
	}
	var lengthErr *LengthError
	if !asIssue(err, &lengthErr) {
		t.Fatalf("expected *LengthError, got %T: %v", err, err)
	}
	if lengthErr.Field != "key" || lengthErr.Expected != res.LinkLength() || lengthErr.Actual != len(short) {
		t.Errorf("unexpected LengthError fields: %+v", lengthErr)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	marks := genesisChain(t, 1)
	m := marks[0]
	msg := m.Message()
	got, err := FromMessage(resolution.Low, msg)
	if err != nil {
		t.Fatalf("FromMessage: %v", err)
	}
	if !m.Equal(got) {
		t.Errorf("round trip mark differs: %s vs %s", m, got)
	}
	if got.Seq() != 0 || !got.IsGenesis() {
		t.Errorf("round trip lost genesis invariant")
	}
}

func TestIsGenesis(t *testing.T) {
	marks := genesisChain(t, 2)
	if !marks[0].IsGenesis() {
		t.Error("first mark should be genesis")
	}
	if marks[1].IsGenesis() {
		t.Error("second mark should not be genesis")
	}
}

func TestPrecedesValidChain(t *testing.T) {
	marks := genesisChain(t, 4)
	for i := 1; i < len(marks); i++ {
		if !marks[i-1].Precedes(marks[i]) {
			t.Errorf("mark %d should precede mark %d", i-1, i)
		}
	}
	if !IsSequenceValid(marks) {
		t.Error("expected valid sequence")
	}
}

func TestPrecedesOptSequenceGap(t *testing.T) {
	marks := genesisChain(t, 3)
	err := marks[0].PrecedesOpt(marks[2])
	var gap *IssueSequenceGap
	if err == nil {
		t.Fatal("expected sequence gap issue")
	}
	if !asIssue(err, &gap) {
		t.Errorf("expected *IssueSequenceGap, got %T: %v", err, err)
	}
}

func TestPrecedesOptHashMismatch(t *testing.T) {
	marks := genesisChain(t, 2)
	res := resolution.Low
	tamperedNext, err := New(res, bytes.Repeat([]byte{0x99}, res.LinkLength()), bytes.Repeat([]byte{0x98}, res.LinkLength()), marks[0].ChainID(), 1, fixedDate(1), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = marks[0].PrecedesOpt(tamperedNext)
	var mismatch *IssueHashMismatch
	if !asIssue(err, &mismatch) {
		t.Errorf("expected *IssueHashMismatch, got %T: %v", err, err)
	}
}

func TestPrecedesOptDateOrdering(t *testing.T) {
	res := resolution.Low
	l := res.LinkLength()
	chainID := bytes.Repeat([]byte{0x11}, l)
	k0 := chainID
	k1 := bytes.Repeat([]byte{0x22}, l)

	m0, err := New(res, k0, k1, chainID, 0, fixedDate(5), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m1, err := New(res, k1, bytes.Repeat([]byte{0x33}, l), chainID, 1, fixedDate(0), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = m0.PrecedesOpt(m1)
	var ordering *IssueDateOrdering
	if !asIssue(err, &ordering) {
		t.Errorf("expected *IssueDateOrdering, got %T: %v", err, err)
	}
}

func TestIsSequenceValidRejectsShort(t *testing.T) {
	marks := genesisChain(t, 1)
	if IsSequenceValid(marks) {
		t.Error("a single mark is never a valid sequence")
	}
}

func TestBytewordsRoundTrip(t *testing.T) {
	marks := genesisChain(t, 1)
	m := marks[0]
	text := m.ToBytewords()
	got, err := FromBytewords(resolution.Low, text)
	if err != nil {
		t.Fatalf("FromBytewords: %v", err)
	}
	if !m.Equal(got) {
		t.Error("bytewords round trip mismatch")
	}
}

func TestURStringRoundTrip(t *testing.T) {
	marks := genesisChain(t, 1)
	m := marks[0]
	s, err := m.URString()
	if err != nil {
		t.Fatalf("URString: %v", err)
	}
	got, err := FromURString(s)
	if err != nil {
		t.Fatalf("FromURString: %v", err)
	}
	if !m.Equal(got) {
		t.Error("UR round trip mismatch")
	}
}

func TestURLRoundTrip(t *testing.T) {
	marks := genesisChain(t, 1)
	m := marks[0]
	u, err := m.ToURL("https://example.com/validate")
	if err != nil {
		t.Fatalf("ToURL: %v", err)
	}
	got, err := FromURL(u)
	if err != nil {
		t.Fatalf("FromURL: %v", err)
	}
	if !m.Equal(got) {
		t.Error("URL round trip mismatch")
	}
}

func TestTaggedCBORRoundTrip(t *testing.T) {
	marks := genesisChain(t, 1)
	m := marks[0]
	data, err := m.MarshalTaggedCBOR()
	if err != nil {
		t.Fatalf("MarshalTaggedCBOR: %v", err)
	}
	got, err := UnmarshalTaggedCBOR(data)
	if err != nil {
		t.Fatalf("UnmarshalTaggedCBOR: %v", err)
	}
	if !m.Equal(got) {
		t.Error("CBOR tagged round trip mismatch")
	}
}

func TestFingerprintStable(t *testing.T) {
	marks := genesisChain(t, 1)
	m := marks[0]
	a, err := m.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, err := m.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if a != b {
		t.Error("fingerprint should be stable across calls")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	marks := genesisChain(t, 1)
	m := marks[0]
	data, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var got Mark
	if err := got.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if !m.Equal(got) {
		t.Error("JSON round trip mismatch")
	}
}

func TestIdentifiersAreFourBytes(t *testing.T) {
	marks := genesisChain(t, 1)
	m := marks[0]
	if len(m.Identifier()) != 8 { // 4 bytes hex-encoded
		t.Errorf("Identifier() length = %d, want 8", len(m.Identifier()))
	}
	if m.BytewordsIdentifier() == "" {
		t.Error("BytewordsIdentifier should not be empty")
	}
	if m.BytemojiIdentifier() == "" {
		t.Error("BytemojiIdentifier should not be empty")
	}
}

func TestMessageRoundTripWithInfo(t *testing.T) {
	res := resolution.Low
	l := res.LinkLength()
	chainID := bytes.Repeat([]byte{0x44}, l)
	key := chainID
	nextKey := bytes.Repeat([]byte{0x55}, l)

	info := map[string]any{"note": "genesis", "count": 3}
	m, err := New(res, key, nextKey, chainID, 0, fixedDate(0), info)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(m.Info()) == 0 {
		t.Fatal("expected non-empty info bytes")
	}

	got, err := FromMessage(res, m.Message())
	if err != nil {
		t.Fatalf("FromMessage: %v", err)
	}
	if !m.Equal(got) {
		t.Error("round trip mark with info differs")
	}
	if !bytes.Equal(m.Info(), got.Info()) {
		t.Error("round trip lost info bytes")
	}
}

func TestFromMessageRejectsMalformedInfoCBOR(t *testing.T) {
	marks := genesisChain(t, 1)
	msg := marks[0].Message()

	// Append three bytes to the obfuscated payload. FromMessage
	// de-obfuscates them before parsing, and for this mark's key they
	// come out as a truncated CBOR item rather than well-formed CBOR.
	res := resolution.Low
	corrupted := append(append([]byte(nil), msg...), 0xff, 0xff, 0xff)

	if _, err := FromMessage(res, corrupted); err == nil {
		t.Error("expected an error for malformed CBOR in the info field")
	}
}

// asIssue is a small helper so tests can assert on the concrete Issue type
// returned by PrecedesOpt without importing errors.As boilerplate per case.
func asIssue[T any](err error, target *T) bool {
	v, ok := err.(T)
	if ok {
		*target = v
	}
	return ok
}
