package answerkey

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestNormalize_Letters(t *testing.T) {
	for _, letter := range []string{"a", "b", "c", "d", "e"} {
		for _, raw := range []string{letter, strings.ToUpper(letter), " " + letter + " "} {
			opt, ok := NormalizeString(raw)
			assert.True(t, ok, raw)
			assert.Equal(t, Option(strings.ToUpper(letter)), opt, raw)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    *string
		want   Option
		wantOK bool
	}{
		{"nil token", nil, "", false},
		{"empty", strPtr(""), "", false},
		{"blank", strPtr("   "), "", false},
		{"verdadeiro", strPtr("verdadeiro"), OptionTrue, true},
		{"true", strPtr("True"), OptionTrue, true},
		{"v lower", strPtr("v"), OptionTrue, true},
		{"falso", strPtr("Falso"), OptionFalse, true},
		{"false", strPtr("FALSE"), OptionFalse, true},
		{"f lower", strPtr("f"), OptionFalse, true},
		{"other token", strPtr("x"), Option("X"), true},
		{"other word", strPtr("Talvez"), Option("TALVEZ"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveOptionSet(t *testing.T) {
	tests := []struct {
		name    string
		answers []Option
		want    OptionSet
	}{
		{"empty falls back to letters", nil, OptionSet{"A", "B", "C", "D", "E"}},
		{"single true", []Option{"V"}, OptionSet{"V"}},
		{"true and false", []Option{"V", "F"}, OptionSet{"V", "F"}},
		{"false before true keeps V first", []Option{"F", "V"}, OptionSet{"V", "F"}},
		{"only false", []Option{"F", "F"}, OptionSet{"F"}},
		{"letter expands to all letters", []Option{"C"}, OptionSet{"A", "B", "C", "D", "E"}},
		{"letter and true", []Option{"A", "V"}, OptionSet{"A", "B", "C", "D", "E", "V"}},
		{"others in first-seen order", []Option{"X", "B", "Y", "X"}, OptionSet{"A", "B", "C", "D", "E", "X", "Y"}},
		{"only others", []Option{"Z"}, OptionSet{"Z"}},
		{"blank entries ignored", []Option{""}, OptionSet{"A", "B", "C", "D", "E"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveOptionSet(tt.answers))
		})
	}
}

func TestDefaultOptionSet_ReturnsCopy(t *testing.T) {
	set := DefaultOptionSet()
	set[0] = "Z"
	assert.Equal(t, OptionA, LetterOptions[0])
}

func TestOptionSet_Equal(t *testing.T) {
	assert.True(t, OptionSet{"A", "B"}.Equal(OptionSet{"A", "B"}))
	assert.False(t, OptionSet{"A", "B"}.Equal(OptionSet{"B", "A"}))
	assert.False(t, OptionSet{"A"}.Equal(OptionSet{"A", "B"}))
}
