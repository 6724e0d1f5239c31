// Package markinfo bundles a mark together with its text-format
// renderings — UR, bytewords identifier, bytemoji identifier — and an
// optional human comment, and renders the bundle as a short markdown
// summary suitable for changelogs or commit messages.
package markinfo

import (
	"fmt"
	"strings"

	"github.com/smythg4/provenance-mark/mark"
)

// bullet prefixes the bytewords/bytemoji identifiers, distinguishing a
// provenance mark's identifier from other bytewords/bytemoji text a reader
// might encounter.
const bullet = "\U0001F17F" // 🅟

// Info bundles a mark with its precomputed text renderings and an
// optional free-form comment.
type Info struct {
	Mark      mark.Mark
	UR        string
	Bytewords string
	Bytemoji  string
	Comment   string
}

// New builds an Info from a mark and an optional comment, precomputing the
// UR string and prefixed bytewords/bytemoji identifiers.
func New(m mark.Mark, comment string) (Info, error) {
	u, err := m.URString()
	if err != nil {
		return Info{}, fmt.Errorf("markinfo: %w", err)
	}
	return Info{
		Mark:      m,
		UR:        u,
		Bytewords: bullet + " " + m.BytewordsIdentifier(),
		Bytemoji:  bullet + " " + m.BytemojiIdentifier(),
		Comment:   comment,
	}, nil
}

// MarkdownSummary renders the bundle as a short markdown block: the
// mark's date, its UR as a heading, its bytewords identifier as a code
// span, its bytemoji identifier, and the comment if present.
func (i Info) MarkdownSummary() string {
	var lines []string
	lines = append(lines, "---", "")
	lines = append(lines, i.Mark.Date().Format("2006-01-02T15:04:05Z"))
	lines = append(lines, "")
	lines = append(lines, "#### "+i.UR)
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("#### `%s`", i.Bytewords))
	lines = append(lines, "")
	lines = append(lines, i.Bytemoji)
	lines = append(lines, "")
	if i.Comment != "" {
		lines = append(lines, i.Comment, "")
	}
	return strings.Join(lines, "\n")
}
