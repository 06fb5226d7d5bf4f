package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEntityList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "json array",
			raw:  `["Dr. Eva Rostova", "Zurich Institute of Technology"]`,
			want: []string{"Dr. Eva Rostova", "Zurich Institute of Technology"},
		},
		{
			name: "json array in code fence",
			raw:  "```json\n[\"Paris\", \"UN\"]\n```",
			want: []string{"Paris", "UN"},
		},
		{
			name: "wrapped in an object",
			raw:  `{"entities": ["Paris", "UN"]}`,
			want: []string{"Paris", "UN"},
		},
		{
			name: "comma separated fallback",
			raw:  "Paris, UN, Climate Summit",
			want: []string{"Paris", "UN", "Climate Summit"},
		},
		{
			name: "bulleted fallback",
			raw:  "- Paris\n- UN",
			want: []string{"Paris", "UN"},
		},
		{
			name: "empty answer",
			raw:  "",
			want: []string{},
		},
		{
			name: "empty json array",
			raw:  "[]",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseEntityList(tt.raw))
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `["a"]`, stripCodeFence("```json\n[\"a\"]\n```"))
	assert.Equal(t, `["a"]`, stripCodeFence("```\n[\"a\"]\n```"))
	assert.Equal(t, `plain`, stripCodeFence("plain"))
}
