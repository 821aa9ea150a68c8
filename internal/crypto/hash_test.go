package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashValue(t *testing.T) {
	tests := []struct {
		value   any
		name    string
		wantErr bool
	}{
		{name: "object", value: map[string]any{"title": "Original", "count": 0}},
		{name: "nested object", value: map[string]any{"meta": map[string]any{"tags": []any{"a", "b"}}}},
		{name: "nil value", value: nil},
		{name: "unsupported type", value: map[string]any{"ch": make(chan int)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashValue(tt.value)

			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, hash)
				return
			}

			require.NoError(t, err)
			assert.Len(t, hash, 64, "BLAKE2b-256 hex should be 64 characters")
		})
	}
}

func TestHashValue_Deterministic(t *testing.T) {
	a := map[string]any{"title": "x", "count": 5, "pinned": true}
	b := map[string]any{"pinned": true, "count": 5, "title": "x"}

	hashA, err := HashValue(a)
	require.NoError(t, err)
	hashB, err := HashValue(b)
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB, "Key order must not affect hash")

	// int и float64 с одинаковым значением сериализуются одинаково
	hashC, err := HashValue(map[string]any{"title": "x", "count": float64(5), "pinned": true})
	require.NoError(t, err)
	assert.Equal(t, hashA, hashC)
}

func TestHashValue_DifferentValues(t *testing.T) {
	hash1, err := HashValue(map[string]any{"title": "a"})
	require.NoError(t, err)
	hash2, err := HashValue(map[string]any{"title": "b"})
	require.NoError(t, err)

	assert.NotEqual(t, hash1, hash2)
}

func TestVerifyHash(t *testing.T) {
	value := map[string]any{"title": "x"}
	hash, err := HashValue(value)
	require.NoError(t, err)

	tests := []struct {
		value    any
		name     string
		expected string
		errMsg   string
		wantErr  bool
	}{
		{name: "matching hash", value: value, expected: hash},
		{name: "empty expected", value: value, expected: "", wantErr: true, errMsg: "expected hash cannot be empty"},
		{name: "mismatch", value: map[string]any{"title": "y"}, expected: hash, wantErr: true, errMsg: "hash mismatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyHash(tt.value, tt.expected)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
		})
	}
}
