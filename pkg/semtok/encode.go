package semtok

import (
	"sort"
	"strings"

	"github.com/walteh/semdelta/pkg/position"
)

// span is a single-line piece of a token.
type span struct {
	line, char, length uint32
	tok                Token
}

// Encode converts absolute tokens into the LSP relative encoding:
//
//	[deltaLine, deltaStartChar, length, tokenType, tokenModifiers]
//
// Tokens crossing line breaks are split into one record per line, and the
// output is ordered by position as the protocol requires.
func Encode(tokens []Token, content string) []uint32 {
	ix := position.NewIndex(content)

	spans := make([]span, 0, len(tokens))
	for _, tok := range tokens {
		offset := tok.Offset
		for _, part := range strings.SplitAfter(tok.Text, "\n") {
			text := strings.TrimRight(part, "\r\n")
			if text != "" {
				r := ix.Range(position.NewBasicPosition(text, offset))
				spans = append(spans, span{line: r.Start.Line, char: r.Start.Character, length: r.End.Character - r.Start.Character, tok: tok})
			}
			offset += len(part)
		}
	}

	// LSP requires tokens to be sorted by line and character
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].line != spans[j].line {
			return spans[i].line < spans[j].line
		}
		return spans[i].char < spans[j].char
	})

	data := make([]uint32, 0, len(spans)*RecordWidth)
	var prevLine, prevChar uint32
	for _, s := range spans {
		deltaLine := s.line - prevLine
		deltaChar := s.char
		if deltaLine == 0 {
			deltaChar = s.char - prevChar
		}

		data = append(data, deltaLine, deltaChar, s.length, uint32(s.tok.Type), uint32(s.tok.Modifier))

		prevLine = s.line
		prevChar = s.char
	}

	return data
}

// Decoded is a record resolved back to absolute coordinates.
type Decoded struct {
	Line, Character, Length uint32
	Type                    TokenType
	Modifier                TokenModifier
}

// Decode resolves a relative stream back to absolute positions.
func Decode(records Stream) []Decoded {
	out := make([]Decoded, 0, len(records))
	var line, char uint32
	for _, r := range records {
		if r.DeltaLine > 0 {
			line += r.DeltaLine
			char = r.DeltaStartChar
		} else {
			char += r.DeltaStartChar
		}
		out = append(out, Decoded{
			Line:      line,
			Character: char,
			Length:    r.Length,
			Type:      TokenType(r.TokenType),
			Modifier:  TokenModifier(r.TokenModifiers),
		})
	}
	return out
}
