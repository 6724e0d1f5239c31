// Package generator implements the provenance mark generator: a seeded,
// stateful chain producer that draws successor keys from a xoshiro256**
// stream and emits one mark per call to Next, persisting enough state to
// resume the chain exactly where it left off.
package generator

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smythg4/provenance-mark/internal/pmcrypto"
	"github.com/smythg4/provenance-mark/internal/xoshiro"
	"github.com/smythg4/provenance-mark/mark"
	"github.com/smythg4/provenance-mark/resolution"
)

// Error reports a generator construction or state-restoration failure.
type Error struct {
	Message string
}

func (e *Error) Error() string { return "generator: " + e.Message }

// epoch is the reference "no marks yet" date: 2001-01-01T00:00:00Z, the
// same origin the 4- and 6-byte date codecs count from.
var epoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// state is the generator's persisted 7-tuple: everything needed to resume
// emitting marks for a chain without access to the marks already emitted.
type state struct {
	Res      resolution.Resolution
	Seed     [32]byte
	ChainID  []byte
	NextSeq  uint32
	LastDate time.Time
	RNGState [32]byte
	NextKey  []byte
}

// Generator produces a deterministic sequence of linked marks for a single
// chain. A Generator has exclusive-write semantics: concurrent calls to
// Next on the same instance must be serialized by the caller.
type Generator struct {
	s state
}

// New constructs a generator with a fresh, cryptographically random seed.
func New(res resolution.Resolution) (*Generator, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	return NewFromSeed(res, seed)
}

// NewWithPassphrase derives a seed from a passphrase via HKDF-SHA-256 and
// constructs a generator from it. Identical passphrases always derive the
// same chain.
func NewWithPassphrase(res resolution.Resolution, passphrase string) (*Generator, error) {
	seed := pmcrypto.ExtendKey([]byte(passphrase))
	return NewFromSeed(res, seed)
}

// NewFromSeed derives a chain's identity (chain_id and the key the first
// emitted mark will use) from a 32-byte seed: the PRNG is initialized to
// sha256(seed) and the first two L-byte draws become chain_id and next_key.
func NewFromSeed(res resolution.Resolution, seed [32]byte) (*Generator, error) {
	digest := pmcrypto.SHA256(seed[:])
	rng := xoshiro.FromState(digest)

	l := res.LinkLength()
	chainID := rng.NextBytes(l)
	nextKey := rng.NextBytes(l)

	return &Generator{s: state{
		Res:      res,
		Seed:     seed,
		ChainID:  chainID,
		NextSeq:  0,
		LastDate: epoch,
		RNGState: rng.State(),
		NextKey:  nextKey,
	}}, nil
}

// Restore reconstructs a generator from its previously persisted 7-tuple,
// without re-deriving chain_id or next_key from the seed.
func Restore(res resolution.Resolution, seed [32]byte, chainID []byte, nextSeq uint32, lastDate time.Time, rngState [32]byte, nextKey []byte) (*Generator, error) {
	l := res.LinkLength()
	if len(chainID) != l {
		return nil, &Error{Message: fmt.Sprintf("invalid chain ID length: expected %d, got %d", l, len(chainID))}
	}
	if len(nextKey) != l {
		return nil, &Error{Message: fmt.Sprintf("invalid next key length: expected %d, got %d", l, len(nextKey))}
	}
	return &Generator{s: state{
		Res:      res,
		Seed:     seed,
		ChainID:  append([]byte(nil), chainID...),
		NextSeq:  nextSeq,
		LastDate: lastDate,
		RNGState: rngState,
		NextKey:  append([]byte(nil), nextKey...),
	}}, nil
}

// Resolution returns the generator's fixed resolution.
func (g *Generator) Resolution() resolution.Resolution { return g.s.Res }

// ChainID returns the generator's fixed chain identifier.
func (g *Generator) ChainID() []byte { return append([]byte(nil), g.s.ChainID...) }

// NextSeq returns the sequence number the next emitted mark will carry.
func (g *Generator) NextSeq() uint32 { return g.s.NextSeq }

// LastDate returns the date most recently accepted by Next.
func (g *Generator) LastDate() time.Time { return g.s.LastDate }

// Next draws the successor key, constructs the next mark in the chain, and
// persists the advanced state. The engine does not reorder or reject an
// out-of-order date; date monotonicity is enforced downstream by
// mark.Precedes and the validate package, not here.
//
// Mark construction is attempted against a throwaway copy of the PRNG
// state; the generator's persisted state only advances once construction
// succeeds, so a failed call leaves the generator unchanged.
func (g *Generator) Next(date time.Time, info any) (mark.Mark, error) {
	rng := xoshiro.FromState(g.s.RNGState)
	drawnKey := rng.NextBytes(g.s.Res.LinkLength())

	var keyNow []byte
	if g.s.NextSeq == 0 {
		keyNow = g.s.ChainID
	} else {
		keyNow = g.s.NextKey
	}

	m, err := mark.New(g.s.Res, keyNow, drawnKey, g.s.ChainID, g.s.NextSeq, date, info)
	if err != nil {
		return mark.Mark{}, err
	}

	g.s.NextSeq++
	g.s.LastDate = date
	g.s.RNGState = rng.State()
	g.s.NextKey = drawnKey

	return m, nil
}

// jsonState is the persisted-state JSON wire shape.
type jsonState struct {
	Res      uint8     `json:"res"`
	Seed     []byte    `json:"seed"`
	ChainID  []byte    `json:"chainID"`
	NextSeq  uint32    `json:"nextSeq"`
	LastDate time.Time `json:"lastDate"`
	RNGState []byte    `json:"rngState"`
	NextKey  []byte    `json:"nextKey"`
}

// MarshalJSON renders the generator's persisted state. The seed is
// included: unlike a mark, the generator state is meant to be kept private
// by its owner, not published.
func (g *Generator) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonState{
		Res:      uint8(g.s.Res),
		Seed:     g.s.Seed[:],
		ChainID:  g.s.ChainID,
		NextSeq:  g.s.NextSeq,
		LastDate: g.s.LastDate,
		RNGState: g.s.RNGState[:],
		NextKey:  g.s.NextKey,
	})
}

// UnmarshalJSON restores a generator's persisted state in place.
func (g *Generator) UnmarshalJSON(data []byte) error {
	var j jsonState
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	res, err := resolution.FromUint8(j.Res)
	if err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	if len(j.Seed) != 32 {
		return &Error{Message: fmt.Sprintf("invalid seed length: expected 32, got %d", len(j.Seed))}
	}
	if len(j.RNGState) != 32 {
		return &Error{Message: fmt.Sprintf("invalid rng state length: expected 32, got %d", len(j.RNGState))}
	}
	var seed, rngState [32]byte
	copy(seed[:], j.Seed)
	copy(rngState[:], j.RNGState)

	restored, err := Restore(res, seed, j.ChainID, j.NextSeq, j.LastDate, rngState, j.NextKey)
	if err != nil {
		return err
	}
	*g = *restored
	return nil
}
