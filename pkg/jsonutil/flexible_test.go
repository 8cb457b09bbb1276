package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{"string value", json.RawMessage(`"hello"`), "hello"},
		{"integer value", json.RawMessage(`42`), "42"},
		{"float value", json.RawMessage(`3.14`), "3.14"},
		{"boolean", json.RawMessage(`true`), "true"},
		{"null value", json.RawMessage(`null`), ""},
		{"nil raw message", nil, ""},
		{"large integer preserves precision", json.RawMessage(`9007199254740992`), "9007199254740992"},
		{"object falls back to raw string", json.RawMessage(`{"key":"value"}`), `{"key":"value"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleStringValue(tt.input))
		})
	}
}

func TestFlexibleStringSlice(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  []string
	}{
		{"string array", json.RawMessage(`["orders", "customers"]`), []string{"orders", "customers"}},
		{"mixed scalar array", json.RawMessage(`["orders", 42, true]`), []string{"orders", "42", "true"}},
		{"single string", json.RawMessage(`"orders"`), []string{"orders"}},
		{"comma-separated string", json.RawMessage(`"orders, customers , products"`), []string{"orders", "customers", "products"}},
		{"array with blanks dropped", json.RawMessage(`["orders", "", "  "]`), []string{"orders"}},
		{"null", json.RawMessage(`null`), nil},
		{"empty array", json.RawMessage(`[]`), []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleStringSlice(tt.input))
		})
	}
}
