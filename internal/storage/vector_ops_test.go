package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 0, 3.75, 1e-6}
	blob := SerializeVector(vec)
	require.Len(t, blob, len(vec)*4)
	assert.Equal(t, vec, DeserializeVector(blob))
}

func TestVectorEmpty(t *testing.T) {
	assert.Empty(t, DeserializeVector(SerializeVector(nil)))
	assert.Empty(t, DeserializeVector(nil))
}

func TestVectorTruncatedBlob(t *testing.T) {
	blob := SerializeVector([]float32{1, 2, 3})
	// A trailing partial float is dropped rather than misread
	got := DeserializeVector(blob[:len(blob)-2])
	assert.Equal(t, []float32{1, 2}, got)
}
