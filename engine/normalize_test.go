package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeGroupCode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "half-width parentheses",
			raw:  "(01)",
			want: "01",
		},
		{
			name: "full-width parentheses",
			raw:  "（01）",
			want: "01",
		},
		{
			name: "mixed parentheses",
			raw:  "（01)",
			want: "01",
		},
		{
			name: "interior whitespace",
			raw:  "0 1",
			want: "01",
		},
		{
			name: "full-width space",
			raw:  "01　",
			want: "01",
		},
		{
			name: "surrounding whitespace",
			raw:  "  01\t",
			want: "01",
		},
		{
			name: "already canonical",
			raw:  "01",
			want: "01",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
		{
			name: "only punctuation",
			raw:  "（ ）",
			want: "",
		},
		{
			name: "letters survive",
			raw:  "A（1）",
			want: "A1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeGroupCode(tt.raw))
		})
	}
}

func TestNormalizeGroupCodeIdempotent(t *testing.T) {
	inputs := []string{
		"", "01", "(01)", "（01）", " 0 1 ", "（(01)）", "A（1）B", "　（99）　",
		"no-parens-here", "组（甲）", "(  )",
	}
	for _, raw := range inputs {
		once := NormalizeGroupCode(raw)
		assert.Equal(t, once, NormalizeGroupCode(once), "input %q", raw)
	}
}
