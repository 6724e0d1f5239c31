package resolution

import "testing"

func TestFixedLengths(t *testing.T) {
	cases := []struct {
		res  Resolution
		want int
	}{
		{Low, 16},
		{Medium, 32},
		{Quartile, 58},
		{High, 106},
	}
	for _, c := range cases {
		if got := c.res.FixedLength(); got != c.want {
			t.Errorf("%s.FixedLength() = %d, want %d", c.res, got, c.want)
		}
	}
}

func TestLinkLengths(t *testing.T) {
	cases := []struct {
		res  Resolution
		want int
	}{
		{Low, 4}, {Medium, 8}, {Quartile, 16}, {High, 32},
	}
	for _, c := range cases {
		if got := c.res.LinkLength(); got != c.want {
			t.Errorf("%s.LinkLength() = %d, want %d", c.res, got, c.want)
		}
	}
}

func TestSeqRoundTrip(t *testing.T) {
	for _, r := range []Resolution{Low, Medium, Quartile, High} {
		seq := uint32(42)
		enc, err := r.SerializeSeq(seq)
		if err != nil {
			t.Fatalf("%s: SerializeSeq: %v", r, err)
		}
		dec, err := r.DeserializeSeq(enc)
		if err != nil {
			t.Fatalf("%s: DeserializeSeq: %v", r, err)
		}
		if dec != seq {
			t.Errorf("%s: round trip = %d, want %d", r, dec, seq)
		}
	}
}

func TestSeqOverflowAtLow(t *testing.T) {
	if _, err := Low.SerializeSeq(0x10000); err == nil {
		t.Error("expected error for sequence number exceeding 2^16-1 at Low resolution")
	}
}

func TestFromUint8Invalid(t *testing.T) {
	if _, err := FromUint8(4); err == nil {
		t.Error("expected error for out-of-range resolution value")
	}
}

func TestRanges(t *testing.T) {
	r := Quartile
	ks, ke := r.KeyRange()
	if ks != 0 || ke != 16 {
		t.Errorf("KeyRange = %d..%d, want 0..16", ks, ke)
	}
	hs, he := r.HashRange()
	if hs != 16 || he != 32 {
		t.Errorf("HashRange = %d..%d, want 16..32", hs, he)
	}
	ss, se := r.SeqBytesRange()
	if ss != 32 || se != 36 {
		t.Errorf("SeqBytesRange = %d..%d, want 32..36", ss, se)
	}
	ds, de := r.DateBytesRange()
	if ds != 36 || de != 42 {
		t.Errorf("DateBytesRange = %d..%d, want 36..42", ds, de)
	}
	if r.InfoStart() != 42 {
		t.Errorf("InfoStart = %d, want 42", r.InfoStart())
	}
}
