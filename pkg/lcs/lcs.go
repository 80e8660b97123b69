// Package lcs aligns two sequences with a longest-common-subsequence dynamic
// program and reports the alignment as an ordered edit script.
package lcs

import (
	"znkr.io/diff"
)

// EditKind is the kind of a SequenceEdit.
type EditKind int

const (
	Match EditKind = iota
	Delete
	Insert
)

func (k EditKind) String() string {
	switch k {
	case Match:
		return "match"
	case Delete:
		return "delete"
	case Insert:
		return "insert"
	default:
		return "unknown"
	}
}

// SequenceEdit is one step of an alignment between old and new.
//
//   - Match: old[OldIndex] == new[NewIndex].
//   - Delete: old[OldIndex] is removed; NewIndex is the new position it precedes.
//   - Insert: new[NewIndex] is added; OldIndex is the old position it precedes.
type SequenceEdit struct {
	Kind     EditKind
	OldIndex int
	NewIndex int
}

// DefaultMaxCells bounds the dynamic-programming table (about 64MiB of int32).
const DefaultMaxCells = 1 << 24

type config struct {
	maxCells int
}

// Option configures Align.
type Option func(*config)

// WithMaxCells bounds the size of the LCS table. Inputs that would need a larger
// table are aligned with Myers' algorithm instead, which yields the same number
// of edits without the quadratic memory.
func WithMaxCells(n int) Option {
	return func(c *config) {
		c.maxCells = n
	}
}

// Align returns the edit script that transforms old into new. Every element of
// both inputs appears in exactly one edit, in ascending index order.
func Align[T comparable](old, new []T, opts ...Option) []SequenceEdit {
	cfg := config{maxCells: DefaultMaxCells}
	for _, opt := range opts {
		opt(&cfg)
	}

	eq := func(a, b T) bool { return a == b }
	return align(old, new, eq, cfg, func(x, y []T) []SequenceEdit {
		return fromMyers(diff.Edits(x, y, diff.Minimal()))
	})
}

// AlignFunc is Align with a custom equality predicate.
func AlignFunc[T any](old, new []T, eq func(a, b T) bool, opts ...Option) []SequenceEdit {
	cfg := config{maxCells: DefaultMaxCells}
	for _, opt := range opts {
		opt(&cfg)
	}

	return align(old, new, eq, cfg, func(x, y []T) []SequenceEdit {
		return fromMyers(diff.EditsFunc(x, y, eq, diff.Minimal()))
	})
}

func align[T any](old, new []T, eq func(a, b T) bool, cfg config, fallback func(x, y []T) []SequenceEdit) []SequenceEdit {
	n, m := len(old), len(new)

	prefix := 0
	for prefix < n && prefix < m && eq(old[prefix], new[prefix]) {
		prefix++
	}
	suffix := 0
	for suffix < n-prefix && suffix < m-prefix && eq(old[n-1-suffix], new[m-1-suffix]) {
		suffix++
	}

	edits := make([]SequenceEdit, 0, max(n, m))
	for i := 0; i < prefix; i++ {
		edits = append(edits, SequenceEdit{Kind: Match, OldIndex: i, NewIndex: i})
	}

	x, y := old[prefix:n-suffix], new[prefix:m-suffix]

	var core []SequenceEdit
	if (len(x)+1)*(len(y)+1) > cfg.maxCells {
		core = fallback(x, y)
	} else {
		core = table(x, y, eq)
	}
	for _, e := range core {
		e.OldIndex += prefix
		e.NewIndex += prefix
		edits = append(edits, e)
	}

	for i := 0; i < suffix; i++ {
		edits = append(edits, SequenceEdit{Kind: Match, OldIndex: n - suffix + i, NewIndex: m - suffix + i})
	}

	return edits
}

// table runs the classic LCS recurrence over suffixes:
//
//	L[i][j] = L[i+1][j+1] + 1            if x[i] == y[j]
//	L[i][j] = max(L[i+1][j], L[i][j+1])  otherwise
//
// and walks it forward. On a tie the walk deletes before it inserts.
func table[T any](x, y []T, eq func(a, b T) bool) []SequenceEdit {
	n, m := len(x), len(y)
	w := m + 1
	l := make([]int32, (n+1)*w)

	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if eq(x[i], y[j]) {
				l[i*w+j] = l[(i+1)*w+j+1] + 1
			} else {
				l[i*w+j] = max(l[(i+1)*w+j], l[i*w+j+1])
			}
		}
	}

	edits := make([]SequenceEdit, 0, n+m)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case eq(x[i], y[j]):
			edits = append(edits, SequenceEdit{Kind: Match, OldIndex: i, NewIndex: j})
			i++
			j++
		case l[(i+1)*w+j] >= l[i*w+j+1]:
			edits = append(edits, SequenceEdit{Kind: Delete, OldIndex: i, NewIndex: j})
			i++
		default:
			edits = append(edits, SequenceEdit{Kind: Insert, OldIndex: i, NewIndex: j})
			j++
		}
	}
	for ; i < n; i++ {
		edits = append(edits, SequenceEdit{Kind: Delete, OldIndex: i, NewIndex: j})
	}
	for ; j < m; j++ {
		edits = append(edits, SequenceEdit{Kind: Insert, OldIndex: i, NewIndex: j})
	}

	return edits
}

func fromMyers[T any](in []diff.Edit[T]) []SequenceEdit {
	edits := make([]SequenceEdit, 0, len(in))
	i, j := 0, 0
	for _, e := range in {
		switch e.Op {
		case diff.Match:
			edits = append(edits, SequenceEdit{Kind: Match, OldIndex: i, NewIndex: j})
			i++
			j++
		case diff.Delete:
			edits = append(edits, SequenceEdit{Kind: Delete, OldIndex: i, NewIndex: j})
			i++
		case diff.Insert:
			edits = append(edits, SequenceEdit{Kind: Insert, OldIndex: i, NewIndex: j})
			j++
		}
	}
	return edits
}

// Changes drops Match edits.
func Changes(edits []SequenceEdit) []SequenceEdit {
	out := make([]SequenceEdit, 0, len(edits))
	for _, e := range edits {
		if e.Kind != Match {
			out = append(out, e)
		}
	}
	return out
}
