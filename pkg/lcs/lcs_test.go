package lcs_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
	"znkr.io/diff"

	"github.com/walteh/semdelta/pkg/lcs"
)

func TestAlign(t *testing.T) {
	tests := []struct {
		name     string
		old      string
		new      string
		expected []lcs.SequenceEdit
	}{
		{
			name:     "test_both_empty",
			old:      "",
			new:      "",
			expected: []lcs.SequenceEdit{},
		},
		{
			name: "test_identical",
			old:  "ab",
			new:  "ab",
			expected: []lcs.SequenceEdit{
				{Kind: lcs.Match, OldIndex: 0, NewIndex: 0},
				{Kind: lcs.Match, OldIndex: 1, NewIndex: 1},
			},
		},
		{
			name: "test_append",
			old:  "ab",
			new:  "abc",
			expected: []lcs.SequenceEdit{
				{Kind: lcs.Match, OldIndex: 0, NewIndex: 0},
				{Kind: lcs.Match, OldIndex: 1, NewIndex: 1},
				{Kind: lcs.Insert, OldIndex: 2, NewIndex: 2},
			},
		},
		{
			name: "test_replace_last",
			old:  "ab",
			new:  "ac",
			expected: []lcs.SequenceEdit{
				{Kind: lcs.Match, OldIndex: 0, NewIndex: 0},
				{Kind: lcs.Delete, OldIndex: 1, NewIndex: 1},
				{Kind: lcs.Insert, OldIndex: 2, NewIndex: 1},
			},
		},
		{
			name: "test_swap_prefers_delete_on_tie",
			old:  "ab",
			new:  "ba",
			expected: []lcs.SequenceEdit{
				{Kind: lcs.Delete, OldIndex: 0, NewIndex: 0},
				{Kind: lcs.Match, OldIndex: 1, NewIndex: 0},
				{Kind: lcs.Insert, OldIndex: 2, NewIndex: 1},
			},
		},
		{
			name: "test_insert_front",
			old:  "b",
			new:  "ab",
			expected: []lcs.SequenceEdit{
				{Kind: lcs.Insert, OldIndex: 0, NewIndex: 0},
				{Kind: lcs.Match, OldIndex: 0, NewIndex: 1},
			},
		},
		{
			name: "test_delete_all",
			old:  "ab",
			new:  "",
			expected: []lcs.SequenceEdit{
				{Kind: lcs.Delete, OldIndex: 0, NewIndex: 0},
				{Kind: lcs.Delete, OldIndex: 1, NewIndex: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edits := lcs.Align([]byte(tt.old), []byte(tt.new))
			assert.Equal(t, tt.expected, edits, "edits should match expected")
		})
	}
}

func TestChanges(t *testing.T) {
	edits := lcs.Align([]byte("abc"), []byte("axc"))
	assert.Equal(t, []lcs.SequenceEdit{
		{Kind: lcs.Delete, OldIndex: 1, NewIndex: 1},
		{Kind: lcs.Insert, OldIndex: 2, NewIndex: 1},
	}, lcs.Changes(edits))
}

func TestEditKindString(t *testing.T) {
	assert.Equal(t, "match", lcs.Match.String())
	assert.Equal(t, "delete", lcs.Delete.String())
	assert.Equal(t, "insert", lcs.Insert.String())
	assert.Equal(t, "unknown", lcs.EditKind(42).String())
}

// replay rebuilds new from old using an alignment and checks that every index is visited in order.
func replay(t require.TestingT, old, new []byte, edits []lcs.SequenceEdit) []byte {
	out := make([]byte, 0, len(new))
	i, j := 0, 0
	for _, e := range edits {
		require.Equal(t, i, e.OldIndex, "old index out of order")
		require.Equal(t, j, e.NewIndex, "new index out of order")
		switch e.Kind {
		case lcs.Match:
			require.Equal(t, old[i], new[j], "match must pair equal elements")
			out = append(out, old[i])
			i++
			j++
		case lcs.Delete:
			i++
		case lcs.Insert:
			out = append(out, new[j])
			j++
		}
	}
	require.Equal(t, len(old), i, "all old elements must be consumed")
	require.Equal(t, len(new), j, "all new elements must be consumed")
	return out
}

func countChanges(edits []lcs.SequenceEdit) int {
	return len(lcs.Changes(edits))
}

func optimalChanges(old, new []byte) int {
	n := 0
	for _, e := range diff.Edits(old, new, diff.Minimal()) {
		if e.Op != diff.Match {
			n++
		}
	}
	return n
}

func TestAlignProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		alphabet := rapid.SliceOfN(rapid.ByteRange('a', 'd'), 0, 30)
		old := alphabet.Draw(t, "old")
		new := alphabet.Draw(t, "new")

		edits := lcs.Align(old, new)
		require.Equal(t, new, append([]byte{}, replay(t, old, new, edits)...))
		require.Equal(t, optimalChanges(old, new), countChanges(edits), "alignment should be minimal")

		fallback := lcs.Align(old, new, lcs.WithMaxCells(0))
		require.Equal(t, new, append([]byte{}, replay(t, old, new, fallback)...))
		require.Equal(t, countChanges(edits), countChanges(fallback), "fallback should be minimal too")
	})
}

func TestAlignFunc(t *testing.T) {
	old := []string{"A", "b", "C"}
	new := []string{"a", "B", "d"}

	edits := lcs.AlignFunc(old, new, strings.EqualFold)

	assert.Equal(t, []lcs.SequenceEdit{
		{Kind: lcs.Match, OldIndex: 0, NewIndex: 0},
		{Kind: lcs.Match, OldIndex: 1, NewIndex: 1},
		{Kind: lcs.Delete, OldIndex: 2, NewIndex: 2},
		{Kind: lcs.Insert, OldIndex: 3, NewIndex: 2},
	}, edits)
}
