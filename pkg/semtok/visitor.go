/*
AST Visitor for Token Generation:
------------------------------

The visitor walks every tree produced by text/template/parse and converts
nodes to semantic tokens:

	AST Tree                 Token
	--------                 -----
	Template
	   |
	   +-> Action Node
	   |      |
	   |      +-> Field      variable
	   |      +-> Variable   variable (declaration when assigned)
	   |      +-> Ident      function
	   |      +-> String     string
	   |      +-> Number     number
	   |
	   +-> If/Range/With     keyword
	   +-> Template          keyword, string
	   +-> Comment           comment
	   +-> | := =            operator

The parser keeps no node for else, end or the define/block headers, so those
are read from the action text itself (see scanActions).

Node positions are byte offsets; chained fields report the position of their
last segment, so the visitor resolves the start of each token against the
source text.
*/
package semtok

import (
	"strconv"
	"strings"
	"text/template/parse"
)

var builtinFuncs = map[string]bool{
	"and": true, "call": true, "html": true, "index": true, "slice": true,
	"js": true, "len": true, "not": true, "or": true, "print": true,
	"printf": true, "println": true, "urlquery": true,
	"eq": true, "ge": true, "gt": true, "le": true, "lt": true, "ne": true,
}

// tokenVisitor collects semantic tokens while walking the AST
type tokenVisitor struct {
	// tokens collects the semantic tokens found during traversal
	tokens []Token

	// content is the original template text
	content string
}

func newVisitor(content string) *tokenVisitor {
	return &tokenVisitor{
		tokens:  make([]Token, 0),
		content: content,
	}
}

// locate finds where text starts given a node position that points somewhere inside it.
func (v *tokenVisitor) locate(pos parse.Pos, text string) (int, bool) {
	p := int(pos)
	if p < 0 || p > len(v.content) || text == "" {
		return 0, false
	}
	end := min(len(v.content), p+len(text))
	idx := strings.LastIndex(v.content[:end], text)
	if idx < 0 || idx > p {
		return 0, false
	}
	return idx, true
}

func (v *tokenVisitor) add(typ TokenType, mod TokenModifier, pos parse.Pos, text string) {
	offset, ok := v.locate(pos, text)
	if !ok {
		return
	}
	v.tokens = append(v.tokens, Token{Type: typ, Modifier: mod, Offset: offset, Text: text})
}

// addKeyword records the keyword that precedes the node at pos, e.g. the "if" in {{ if .X }}.
func (v *tokenVisitor) addKeyword(keyword string, pos parse.Pos) {
	p := min(int(pos), len(v.content))
	if p < 0 {
		return
	}
	idx := strings.LastIndex(v.content[:p], keyword)
	if idx < 0 {
		return
	}
	v.tokens = append(v.tokens, Token{Type: TokenKeyword, Modifier: ModifierNone, Offset: idx, Text: keyword})
}

// visitNode dispatches to the appropriate visit method based on node type
func (v *tokenVisitor) visitNode(node parse.Node) {
	switch n := node.(type) {
	case *parse.ListNode:
		v.visitList(n)
	case *parse.ActionNode:
		v.visitPipe(n.Pipe)
	case *parse.PipeNode:
		v.visitPipe(n)
	case *parse.CommandNode:
		for _, arg := range n.Args {
			v.visitNode(arg)
		}
	case *parse.FieldNode:
		v.add(TokenVariable, ModifierNone, n.Pos, n.String())
	case *parse.VariableNode:
		v.add(TokenVariable, ModifierNone, n.Pos, n.String())
	case *parse.ChainNode:
		v.visitNode(n.Node)
	case *parse.IdentifierNode:
		mod := ModifierNone
		if builtinFuncs[n.Ident] {
			mod = ModifierDefaultLibrary
		}
		v.add(TokenFunction, mod, n.Pos, n.Ident)
	case *parse.StringNode:
		v.add(TokenString, ModifierNone, n.Pos, n.Quoted)
	case *parse.NumberNode:
		v.add(TokenNumber, ModifierNone, n.Pos, n.Text)
	case *parse.BoolNode:
		v.add(TokenVariable, ModifierReadonly, n.Pos, n.String())
	case *parse.NilNode:
		v.add(TokenVariable, ModifierReadonly, n.Pos, "nil")
	case *parse.DotNode:
		v.add(TokenVariable, ModifierNone, n.Pos, ".")
	case *parse.CommentNode:
		v.add(TokenComment, ModifierNone, n.Pos, n.Text)
	case *parse.IfNode:
		v.visitBranch("if", &n.BranchNode)
	case *parse.RangeNode:
		v.visitBranch("range", &n.BranchNode)
	case *parse.WithNode:
		v.visitBranch("with", &n.BranchNode)
	case *parse.TemplateNode:
		// a block header parses into a TemplateNode too; scanActions covers it
		if !v.precededBy(n.Pos, "block") {
			v.addKeyword("template", n.Pos)
			v.add(TokenString, ModifierNone, n.Pos, `"`+n.Name+`"`)
		}
		if n.Pipe != nil {
			v.visitPipe(n.Pipe)
		}
	case *parse.BreakNode:
		v.add(TokenKeyword, ModifierNone, n.Pos, "break")
	case *parse.ContinueNode:
		v.add(TokenKeyword, ModifierNone, n.Pos, "continue")
	default:
		// text nodes are left to the client's own highlighting
	}
}

func (v *tokenVisitor) visitList(node *parse.ListNode) {
	if node == nil {
		return
	}
	for _, n := range node.Nodes {
		v.visitNode(n)
	}
}

// visitPipe processes a pipe node (e.g., $x := .Name | printf)
func (v *tokenVisitor) visitPipe(node *parse.PipeNode) {
	if node == nil {
		return
	}
	for _, decl := range node.Decl {
		mod := ModifierDeclaration
		if node.IsAssign {
			mod = ModifierNone
		}
		v.add(TokenVariable, mod, decl.Pos, decl.String())
	}
	if len(node.Decl) > 0 && len(node.Cmds) > 0 {
		v.addAssignOperator(node.Cmds[0].Pos)
	}
	for i, cmd := range node.Cmds {
		if i > 0 {
			v.addOperator("|", cmd.Pos)
		}
		v.visitNode(cmd)
	}
}

// addOperator records op when only whitespace separates it from pos.
func (v *tokenVisitor) addOperator(op string, pos parse.Pos) {
	p := min(int(pos), len(v.content))
	if p < 0 {
		return
	}
	idx := strings.LastIndex(v.content[:p], op)
	if idx < 0 || strings.TrimSpace(v.content[idx+len(op):p]) != "" {
		return
	}
	v.tokens = append(v.tokens, Token{Type: TokenOperator, Modifier: ModifierNone, Offset: idx, Text: op})
}

// addAssignOperator records the := or = between declared variables and the pipeline at pos.
func (v *tokenVisitor) addAssignOperator(pos parse.Pos) {
	p := min(int(pos), len(v.content))
	if p < 0 {
		return
	}
	idx := strings.LastIndex(v.content[:p], "=")
	if idx < 0 || strings.TrimSpace(v.content[idx+1:p]) != "" {
		return
	}
	op := "="
	if idx > 0 && v.content[idx-1] == ':' {
		idx--
		op = ":="
	}
	v.tokens = append(v.tokens, Token{Type: TokenOperator, Modifier: ModifierNone, Offset: idx, Text: op})
}

func (v *tokenVisitor) precededBy(pos parse.Pos, word string) bool {
	p := min(int(pos), len(v.content))
	if p < 0 {
		return false
	}
	return strings.HasSuffix(strings.TrimRight(v.content[:p], " \t\r\n"), word)
}

// scanActions tokenizes else, end and the define/block headers. A match
// inside a string or comment overlaps the token the parser produced for it
// and is dropped with the other overlaps.
func (v *tokenVisitor) scanActions() {
	rest := 0
	for {
		open := strings.Index(v.content[rest:], "{{")
		if open < 0 {
			return
		}
		start := rest + open + 2
		closing := strings.Index(v.content[start:], "}}")
		if closing < 0 {
			return
		}
		v.scanAction(start, start+closing)
		rest = start + closing + 2
	}
}

func (v *tokenVisitor) scanAction(start, end int) {
	inner := v.content[start:end]
	// trim markers: "{{- " and " -}}"
	if len(inner) >= 2 && inner[0] == '-' && isSpace(inner[1]) {
		inner = inner[1:]
		start++
	}
	if n := len(inner); n >= 2 && inner[n-1] == '-' && isSpace(inner[n-2]) {
		inner = inner[:n-1]
	}

	trimmed := strings.TrimLeft(inner, " \t\r\n")
	offset := start + len(inner) - len(trimmed)
	trimmed = strings.TrimRight(trimmed, " \t\r\n")

	keyword, rest := trimmed, ""
	if i := strings.IndexAny(trimmed, " \t\r\n"); i >= 0 {
		keyword, rest = trimmed[:i], trimmed[i:]
	}

	switch keyword {
	case "end":
		if rest == "" {
			v.tokens = append(v.tokens, Token{Type: TokenKeyword, Modifier: ModifierNone, Offset: offset, Text: keyword})
		}
	case "else":
		// the if/with of an else-if chain is tokenized by its own node
		v.tokens = append(v.tokens, Token{Type: TokenKeyword, Modifier: ModifierNone, Offset: offset, Text: keyword})
	case "define", "block":
		name := strings.TrimLeft(rest, " \t\r\n")
		quoted, err := strconv.QuotedPrefix(name)
		if err != nil {
			return
		}
		v.tokens = append(v.tokens, Token{Type: TokenKeyword, Modifier: ModifierNone, Offset: offset, Text: keyword})
		nameOffset := offset + len(trimmed) - len(name)
		v.tokens = append(v.tokens, Token{Type: TokenString, Modifier: ModifierDefinition, Offset: nameOffset, Text: quoted})
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// visitBranch processes if/range/with nodes, whose position is that of their pipeline.
func (v *tokenVisitor) visitBranch(keyword string, node *parse.BranchNode) {
	v.addKeyword(keyword, node.Pos)
	v.visitPipe(node.Pipe)
	v.visitList(node.List)
	v.visitList(node.ElseList)
}

// getTokens returns the collected tokens
func (v *tokenVisitor) getTokens() []Token {
	return v.tokens
}
