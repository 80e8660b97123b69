/*
Package semtok provides semantic token support for Go templates.

Core Functions:
-------------

	       Input
	         |
	         v
	  +------------+
	  | Template   |
	  | Text       |
	  +------------+
	         |
	  Parse & Visit
	         |
	         v
	  +------------+
	  | Tokens     |  absolute byte ranges
	  +------------+
	         |
	      Encode
	         |
	         v
	  +------------+
	  | []uint32   |  5 values per Record
	  +------------+
*/
package semtok

import (
	"context"
	"sort"
	"text/template/parse"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/semdelta/pkg/position"
)

// GetTokensForText returns semantic tokens for the given template text, ordered by offset.
//
//	Example:
//	   tokens, err := GetTokensForText(ctx, []byte("{{ .Name }}"))
//	   if err != nil {
//	       return err
//	   }
//	   // Use tokens...
func GetTokensForText(ctx context.Context, content []byte) ([]Token, error) {
	text := string(content)

	tree := parse.New("document")
	tree.Mode = parse.ParseComments | parse.SkipFuncCheck
	treeSet := map[string]*parse.Tree{}
	if _, err := tree.Parse(text, "", "", treeSet); err != nil {
		return nil, errors.Errorf("parsing template: %w", err)
	}

	names := make([]string, 0, len(treeSet))
	for name := range treeSet {
		names = append(names, name)
	}
	sort.Strings(names)

	v := newVisitor(text)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		v.visitList(treeSet[name].Root)
	}

	v.scanActions()

	tokens := v.getTokens()
	sort.SliceStable(tokens, func(i, j int) bool {
		return tokens[i].Offset < tokens[j].Offset
	})
	tokens = dropOverlaps(ctx, tokens)

	zerolog.Ctx(ctx).Trace().Int("tokens", len(tokens)).Int("templates", len(names)).Msg("collected semantic tokens")

	return tokens, nil
}

// dropOverlaps keeps the first of any tokens sharing source bytes; clients
// reject overlapping tokens. tokens must be ordered by offset.
func dropOverlaps(ctx context.Context, tokens []Token) []Token {
	kept := tokens[:0]
	var last position.RawPosition
	for _, tok := range tokens {
		pos := position.NewBasicPosition(tok.Text, tok.Offset)
		if len(kept) > 0 && last.HasRangeOverlapWith(pos) {
			zerolog.Ctx(ctx).Trace().Stringer("token", pos).Stringer("kept", last).Msg("dropping overlapping token")
			continue
		}
		kept = append(kept, tok)
		last = pos
	}
	return kept
}

// Tokenize returns the wire encoding of the semantic tokens in content.
func Tokenize(ctx context.Context, content []byte) ([]uint32, error) {
	tokens, err := GetTokensForText(ctx, content)
	if err != nil {
		return nil, err
	}
	return Encode(tokens, string(content)), nil
}
