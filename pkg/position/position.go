package position

import (
	"fmt"
	"sort"
	"unicode/utf16"
	"unicode/utf8"
)

// Place is a zero-based LSP position. Character counts UTF-16 code units.
type Place struct {
	Line      uint32
	Character uint32
}

type Range struct {
	Start Place
	End   Place
}

// RawPosition represents a position in the source text
type RawPosition struct {
	// Offset is the byte offset in the source text
	Offset int
	// Text is the actual text at this position
	Text string
}

func NewBasicPosition(text string, offset int) RawPosition {
	return RawPosition{Text: text, Offset: offset}
}

// Length returns the length in bytes of the text at this position
func (p RawPosition) Length() int {
	return len(p.Text)
}

func (p RawPosition) GetEndPosition() RawPosition {
	return RawPosition{
		Text:   "",
		Offset: p.Offset + p.Length(),
	}
}

func (p RawPosition) HasRangeOverlapWith(start RawPosition) bool {
	startOffset := start.Offset
	endOffset := startOffset + start.Length()

	posOffset := p.Offset
	posEndOffset := posOffset + p.Length()

	// A zero-length position overlaps if it falls within the other range
	if p.Length() == 0 {
		return posOffset >= startOffset && posOffset <= endOffset
	}
	if start.Length() == 0 {
		return startOffset >= posOffset && startOffset <= posEndOffset
	}

	return startOffset < posEndOffset && endOffset > posOffset
}

func (p RawPosition) String() string {
	return fmt.Sprintf("%s@%d", p.Text, p.Offset)
}

// Index maps byte offsets of one document to LSP places.
type Index struct {
	content string
	starts  []int
}

func NewIndex(content string) *Index {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Index{content: content, starts: starts}
}

// Place converts a byte offset. Offsets past the end clamp to the end.
func (ix *Index) Place(offset int) Place {
	offset = min(max(offset, 0), len(ix.content))
	l := sort.Search(len(ix.starts), func(i int) bool { return ix.starts[i] > offset }) - 1
	return Place{Line: uint32(l), Character: UTF16Len(ix.content[ix.starts[l]:offset])}
}

// Range converts the byte span of p.
func (ix *Index) Range(p RawPosition) Range {
	return Range{
		Start: ix.Place(p.Offset),
		End:   ix.Place(p.GetEndPosition().Offset),
	}
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) uint32 {
	var n uint32
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		n += uint32(utf16.RuneLen(r))
		s = s[size:]
	}
	return n
}
