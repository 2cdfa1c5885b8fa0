package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

const sample = "data: {\"token\":\"Hé\"}\n\n" +
	": keep-alive comment\n" +
	"data: {\"token\":\"llo 世界\"}\r\n\r\n" +
	"event: message\n" +
	"data: {\"token\":\" \\\"quoted\\\"\"}\n\n" +
	"data: [DONE]\n\n" +
	"data: {\"token\":\"tail\"}"

func decodeAll(chunks ...[]byte) []string {
	var d Decoder
	var out []string
	for _, c := range chunks {
		out = append(out, d.Feed(c)...)
	}
	return append(out, d.Flush()...)
}

func TestDecoder_WholeInput(t *testing.T) {
	got := decodeAll([]byte(sample))

	assert.Equal(t, []string{
		`{"token":"Hé"}`,
		`{"token":"llo 世界"}`,
		`{"token":" \"quoted\""}`,
		`[DONE]`,
		`{"token":"tail"}`,
	}, got)
}

func TestDecoder_ChunkBoundaryInvariance(t *testing.T) {
	input := []byte(sample)
	want := decodeAll(input)

	for i := 0; i <= len(input); i++ {
		for j := i; j <= len(input); j++ {
			got := decodeAll(input[:i], input[i:j], input[j:])
			require.Equal(t, want, got, "split at %d and %d", i, j)
		}
	}
}

func TestDecoder_ByteAtATime(t *testing.T) {
	input := []byte(sample)
	chunks := make([][]byte, 0, len(input))
	for i := range input {
		chunks = append(chunks, input[i:i+1])
	}

	assert.Equal(t, decodeAll(input), decodeAll(chunks...))
}

func TestDecoder_KeepsUnterminatedLine(t *testing.T) {
	var d Decoder

	assert.Empty(t, d.Feed([]byte("data: {\"tok")))
	assert.Equal(t, len("data: {\"tok"), d.Buffered())

	got := d.Feed([]byte("en\":\"x\"}\n"))
	assert.Equal(t, []string{`{"token":"x"}`}, got)
	assert.Zero(t, d.Buffered())
	assert.Empty(t, d.Flush())
}

func TestDecoder_IgnoresOtherLines(t *testing.T) {
	got := decodeAll([]byte("id: 7\nretry: 100\ndata:{\"token\":\"no space\"}\n\n"))

	assert.Empty(t, got)
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    domain.Frame
		ok      bool
	}{
		{"done", "[DONE]", domain.DoneFrame(), true},
		{"done with spaces", "  [DONE] ", domain.DoneFrame(), true},
		{"token", `{"token":"abc"}`, domain.TokenFrame("abc"), true},
		{"error", `{"error":"boom"}`, domain.ErrorFrame("boom"), true},
		{"error wins over token", `{"token":"abc","error":"boom"}`, domain.ErrorFrame("boom"), true},
		{"empty token", `{"token":""}`, domain.Frame{}, false},
		{"empty error falls through to token", `{"token":"t","error":""}`, domain.TokenFrame("t"), true},
		{"empty object", `{}`, domain.Frame{}, false},
		{"malformed", `{"token":`, domain.Frame{}, false},
		{"not json", `hello`, domain.Frame{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFrame(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
