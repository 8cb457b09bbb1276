package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{
			name:     "bare object",
			response: `{"a": 1}`,
			want:     `{"a": 1}`,
		},
		{
			name:     "object in markdown fence",
			response: "Here you go:\n```json\n{\"a\": 1}\n```\nLet me know!",
			want:     `{"a": 1}`,
		},
		{
			name:     "object with surrounding prose",
			response: `The answer is {"core_question": "revenue"} as requested.`,
			want:     `{"core_question": "revenue"}`,
		},
		{
			name:     "nested braces",
			response: `{"outer": {"inner": [1, 2]}}`,
			want:     `{"outer": {"inner": [1, 2]}}`,
		},
		{
			name:     "braces inside string literal",
			response: `{"text": "a } inside"}`,
			want:     `{"text": "a } inside"}`,
		},
		{
			name:     "array",
			response: `prefix [1, 2, 3] suffix`,
			want:     `[1, 2, 3]`,
		},
		{
			name:     "no json",
			response: "sorry, I cannot help with that",
			wantErr:  true,
		},
		{
			name:     "unbalanced",
			response: `{"a": 1`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.response)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSON(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	got, err := ParseJSON[payload]("```json\n{\"name\": \"orders\", \"count\": 3}\n```")
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "orders", Count: 3}, got)

	_, err = ParseJSON[payload]("not json at all")
	require.Error(t, err)
}
