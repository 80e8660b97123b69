package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walteh/semdelta/pkg/position"
)

func TestIndexPlace(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		offset int
		want   position.Place
	}{
		{
			name:   "test_empty_text",
			text:   "",
			offset: 0,
			want:   position.Place{Line: 0, Character: 0},
		},
		{
			name:   "test_single_line",
			text:   "Hello, World! ",
			offset: 2,
			want:   position.Place{Line: 0, Character: 2},
		},
		{
			name:   "test_second_line",
			text:   "Hello\nWorld\nTest zzz",
			offset: 8,
			want:   position.Place{Line: 1, Character: 2},
		},
		{
			name:   "test_varying_lengths",
			text:   "Hello, World!\nThis is a test\nShort\nLonger line here zzz",
			offset: 16,
			want:   position.Place{Line: 1, Character: 2},
		},
		{
			name:   "test_template_field",
			text:   "{{- /*gotype: test.Person*/ -}}\nAddress:\n  Street: {{.Address.Street}}",
			offset: 61,
			want:   position.Place{Line: 2, Character: 20},
		},
		{
			name:   "test_surrogate_pair_and_accent",
			text:   "😀é\nx",
			offset: 6,
			want:   position.Place{Line: 0, Character: 3},
		},
		{
			name:   "test_after_multibyte_line",
			text:   "😀é\nx",
			offset: 7,
			want:   position.Place{Line: 1, Character: 0},
		},
		{
			name:   "test_offset_past_end",
			text:   "ab",
			offset: 10,
			want:   position.Place{Line: 0, Character: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, position.NewIndex(tt.text).Place(tt.offset))
		})
	}
}

func TestIndexRange(t *testing.T) {
	ix := position.NewIndex("{{ .A }}\n{{ .Bé }}")
	assert.Equal(t, position.Range{
		Start: position.Place{Line: 1, Character: 3},
		End:   position.Place{Line: 1, Character: 6},
	}, ix.Range(position.NewBasicPosition(".Bé", 12)))
}

func TestHasRangeOverlapWith(t *testing.T) {
	tests := []struct {
		name string
		a, b position.RawPosition
		want bool
	}{
		{"test_disjoint", position.NewBasicPosition("ab", 0), position.NewBasicPosition("cd", 2), false},
		{"test_overlapping", position.NewBasicPosition("abc", 0), position.NewBasicPosition("cd", 2), true},
		{"test_contained", position.NewBasicPosition("abcdef", 0), position.NewBasicPosition("cd", 2), true},
		{"test_zero_length_inside", position.NewBasicPosition("", 1), position.NewBasicPosition("abc", 0), true},
		{"test_zero_length_outside", position.NewBasicPosition("abc", 0), position.NewBasicPosition("", 5), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.HasRangeOverlapWith(tt.b))
			assert.Equal(t, tt.want, tt.b.HasRangeOverlapWith(tt.a))
		})
	}
	assert.Equal(t, "ab@3", position.NewBasicPosition("ab", 3).String())
}
