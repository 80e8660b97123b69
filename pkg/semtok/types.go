/*
Token Types and Modifiers:
------------------------
This file defines the legend shared by the tokenizer and the LSP layer.

	+-------------+     +-------------------+
	| TokenType   | --> | legend index      |
	+-------------+     +-------------------+
	      |                      |
	      v                      v
	[variable,             tokenType field of
	 function,             the encoded Record
	 keyword, ...]

Modifiers are bit flags; a Record's tokenModifiers field is their OR.
*/
package semtok

// TokenType is the semantic meaning of a token. Its value is the index into Legend().TokenTypes.
type TokenType uint32

const (
	// TokenVariable represents a template variable or field (e.g., .Name, $x)
	TokenVariable TokenType = iota

	// TokenFunction represents a template function (e.g., printf)
	TokenFunction

	// TokenKeyword represents a template keyword (e.g., if, range)
	TokenKeyword

	// TokenString represents a string literal
	TokenString

	// TokenNumber represents a numeric literal (e.g., 0, 1.5)
	TokenNumber

	// TokenComment represents a template comment
	TokenComment

	// TokenOperator represents a pipe or assignment operator (|, :=, =)
	TokenOperator
)

// TokenModifier is a bit flag describing additional characteristics of a token.
type TokenModifier uint32

const (
	// ModifierNone indicates no special characteristics
	ModifierNone TokenModifier = 0

	// ModifierDeclaration marks the declaring occurrence of a variable
	ModifierDeclaration TokenModifier = 1 << (iota - 1)

	// ModifierDefinition marks the name in a define or block header
	ModifierDefinition

	// ModifierReadonly marks constants such as nil, true and false
	ModifierReadonly

	// ModifierDefaultLibrary marks builtin template functions
	ModifierDefaultLibrary
)

var tokenTypeNames = []string{
	TokenVariable: "variable",
	TokenFunction: "function",
	TokenKeyword:  "keyword",
	TokenString:   "string",
	TokenNumber:   "number",
	TokenComment:  "comment",
	TokenOperator: "operator",
}

var tokenModifierNames = []string{
	"declaration",
	"definition",
	"readonly",
	"defaultLibrary",
}

// Legend is the token type and modifier legend advertised to clients.
type Legend struct {
	TokenTypes     []string
	TokenModifiers []string
}

// DefaultLegend returns the legend matching TokenType and TokenModifier values.
func DefaultLegend() Legend {
	return Legend{
		TokenTypes:     append([]string(nil), tokenTypeNames...),
		TokenModifiers: append([]string(nil), tokenModifierNames...),
	}
}

// String returns a human-readable representation of the token type
func (t TokenType) String() string {
	if int(t) < len(tokenTypeNames) {
		return tokenTypeNames[t]
	}
	return "unknown"
}

// String returns a human-readable representation of the token modifier
func (m TokenModifier) String() string {
	switch m {
	case ModifierNone:
		return "none"
	case ModifierDeclaration:
		return "declaration"
	case ModifierDefinition:
		return "definition"
	case ModifierReadonly:
		return "readonly"
	case ModifierDefaultLibrary:
		return "defaultLibrary"
	default:
		return "unknown"
	}
}

// Token is a semantic token at an absolute byte range of the source text.
type Token struct {
	// Type indicates the semantic meaning of the token
	Type TokenType

	// Modifier indicates any special characteristics
	Modifier TokenModifier

	// Offset is the byte offset of the token in the source
	Offset int

	// Text is the source text covered by the token
	Text string
}
