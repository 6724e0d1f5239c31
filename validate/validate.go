// Package validate analyzes a collection of provenance marks: deduplicates
// exact repeats, bins by chain ID, and segments each chain's marks (sorted
// by sequence number) into maximal runs where every consecutive pair
// satisfies mark.Precedes, flagging the specific Issue that breaks each
// new run.
package validate

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/smythg4/provenance-mark/mark"
)

// FlaggedMark pairs a mark with the issues detected when it was appended to
// a sequence (empty if it continued the sequence cleanly).
type FlaggedMark struct {
	Mark   mark.Mark
	Issues []error
}

// jsonFlaggedMark is FlaggedMark's JSON wire shape: issues rendered as their
// error strings, since error values themselves carry no exported fields.
type jsonFlaggedMark struct {
	Mark   mark.Mark `json:"mark"`
	Issues []string  `json:"issues,omitempty"`
}

// MarshalJSON renders the flagged mark with its issues as error strings.
func (f FlaggedMark) MarshalJSON() ([]byte, error) {
	issues := make([]string, len(f.Issues))
	for i, err := range f.Issues {
		issues[i] = err.Error()
	}
	return json.Marshal(jsonFlaggedMark{Mark: f.Mark, Issues: issues})
}

// SequenceReport describes one maximal contiguous run of marks within a
// chain.
type SequenceReport struct {
	StartSeq uint32
	EndSeq   uint32
	Marks    []FlaggedMark
}

// ChainReport describes all marks sharing one chain ID.
type ChainReport struct {
	ChainID    []byte
	HasGenesis bool
	Marks      []mark.Mark
	Sequences  []SequenceReport
}

// jsonChainReport is ChainReport's JSON wire shape: chain_id rendered as hex,
// matching the reference implementation's serde(with = "hex") field.
type jsonChainReport struct {
	ChainID    string           `json:"chainID"`
	HasGenesis bool             `json:"hasGenesis"`
	Marks      []mark.Mark      `json:"marks"`
	Sequences  []SequenceReport `json:"sequences"`
}

// MarshalJSON renders the chain report with chain_id as a hex string.
func (c ChainReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonChainReport{
		ChainID:    hex.EncodeToString(c.ChainID),
		HasGenesis: c.HasGenesis,
		Marks:      c.Marks,
		Sequences:  c.Sequences,
	})
}

// Report is the complete result of validating a collection of marks.
type Report struct {
	OriginalMarks     []mark.Mark
	DeduplicatedMarks []mark.Mark
	Chains            []ChainReport
}

// Validate analyzes marks and produces a Report: deduplication, binning by
// chain ID, genesis detection, and segmentation into contiguous sequences.
func Validate(marks []mark.Mark) Report {
	deduped := dedupe(marks)

	bins := make(map[string][]mark.Mark)
	var order []string
	for _, m := range deduped {
		key := string(m.ChainID())
		if _, ok := bins[key]; !ok {
			order = append(order, key)
		}
		bins[key] = append(bins[key], m)
	}

	chains := make([]ChainReport, 0, len(order))
	for _, key := range order {
		chainMarks := append([]mark.Mark(nil), bins[key]...)
		sort.Slice(chainMarks, func(i, j int) bool {
			return chainMarks[i].Seq() < chainMarks[j].Seq()
		})

		hasGenesis := len(chainMarks) > 0 && chainMarks[0].Seq() == 0 && chainMarks[0].IsGenesis()

		chains = append(chains, ChainReport{
			ChainID:    []byte(key),
			HasGenesis: hasGenesis,
			Marks:      chainMarks,
			Sequences:  buildSequenceBins(chainMarks),
		})
	}

	sort.Slice(chains, func(i, j int) bool {
		return bytes.Compare(chains[i].ChainID, chains[j].ChainID) < 0
	})

	return Report{
		OriginalMarks:     marks,
		DeduplicatedMarks: deduped,
		Chains:            chains,
	}
}

func dedupe(marks []mark.Mark) []mark.Mark {
	seen := make(map[string]bool)
	out := make([]mark.Mark, 0, len(marks))
	for _, m := range marks {
		key := strconv.Itoa(int(m.Resolution())) + string(m.Message())
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

func buildSequenceBins(marks []mark.Mark) []SequenceReport {
	var sequences []SequenceReport
	var current []FlaggedMark

	for i, m := range marks {
		if i == 0 {
			current = append(current, FlaggedMark{Mark: m})
			continue
		}
		prev := marks[i-1]
		if err := prev.PrecedesOpt(m); err == nil {
			current = append(current, FlaggedMark{Mark: m})
			continue
		} else {
			if len(current) > 0 {
				sequences = append(sequences, sequenceReportFrom(current))
			}
			current = []FlaggedMark{{Mark: m, Issues: []error{err}}}
		}
	}
	if len(current) > 0 {
		sequences = append(sequences, sequenceReportFrom(current))
	}
	return sequences
}

func sequenceReportFrom(marks []FlaggedMark) SequenceReport {
	start := marks[0].Mark.Seq()
	end := marks[len(marks)-1].Mark.Seq()
	return SequenceReport{StartSeq: start, EndSeq: end, Marks: marks}
}

// Interesting reports whether the report is worth surfacing to a human: any
// chain carries an issue, is missing its genesis mark, there is more than
// one chain, or any chain was split into more than one sequence.
func (r Report) Interesting() bool {
	if len(r.Chains) > 1 {
		return true
	}
	for _, c := range r.Chains {
		if !c.HasGenesis {
			return true
		}
		if len(c.Sequences) > 1 {
			return true
		}
		for _, seq := range c.Sequences {
			for _, fm := range seq.Marks {
				if len(fm.Issues) > 0 {
					return true
				}
			}
		}
	}
	return false
}

// String renders a human-readable summary of the report: mark counts, then
// one line per chain and per sequence, with every flagged issue spelled out.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d mark(s), %d after deduplication, %d chain(s)\n",
		len(r.OriginalMarks), len(r.DeduplicatedMarks), len(r.Chains))
	for _, c := range r.Chains {
		fmt.Fprintf(&b, "chain %x: genesis=%t, %d mark(s), %d sequence(s)\n",
			c.ChainID, c.HasGenesis, len(c.Marks), len(c.Sequences))
		for _, seq := range c.Sequences {
			fmt.Fprintf(&b, "  sequence [%d, %d]\n", seq.StartSeq, seq.EndSeq)
			for _, fm := range seq.Marks {
				for _, issue := range fm.Issues {
					fmt.Fprintf(&b, "    seq %d: %s\n", fm.Mark.Seq(), issue)
				}
			}
		}
	}
	return b.String()
}

// JSON renders the report as indented JSON, suitable for machine
// consumption; chain_id fields are hex-encoded and issues are rendered as
// their error strings.
func (r Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
