package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(dim int, fill float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestValidateChunkInputs(t *testing.T) {
	valid := []ChunkInput{
		{Content: "a", ChunkIndex: 0, Embedding: vec(4, 0.1)},
		{Content: "b", ChunkIndex: 1},
		{Content: "c", ChunkIndex: 2, Embedding: vec(4, 0.2)},
	}
	require.NoError(t, ValidateChunkInputs(valid, 4))

	tests := []struct {
		name    string
		chunks  []ChunkInput
		wantErr error
	}{
		{
			name:    "duplicate index",
			chunks:  []ChunkInput{{Content: "a", ChunkIndex: 0}, {Content: "b", ChunkIndex: 0}},
			wantErr: ErrValidation,
		},
		{
			name:    "gap leaves index out of range",
			chunks:  []ChunkInput{{Content: "a", ChunkIndex: 0}, {Content: "b", ChunkIndex: 2}},
			wantErr: ErrValidation,
		},
		{
			name:    "negative index",
			chunks:  []ChunkInput{{Content: "a", ChunkIndex: -1}},
			wantErr: ErrValidation,
		},
		{
			name:    "empty content",
			chunks:  []ChunkInput{{Content: "", ChunkIndex: 0}},
			wantErr: ErrValidation,
		},
		{
			name:    "wrong embedding dimension",
			chunks:  []ChunkInput{{Content: "a", ChunkIndex: 0, Embedding: vec(3, 0.1)}},
			wantErr: ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkInputs(tt.chunks, 4)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateChunkInputsEmptySet(t *testing.T) {
	// Replacing with zero chunks is legal: it clears the document.
	assert.NoError(t, ValidateChunkInputs(nil, 4))
}

func TestDocumentValidate(t *testing.T) {
	doc := Document{
		Title:          "Pump maintenance procedure",
		DocumentTypeID: "dt-1",
		IssuingUnitID:  "ou-1",
		SiteID:         "site-1",
		Status:         StatusActive,
	}
	require.NoError(t, doc.Validate())

	missing := doc
	missing.SiteID = ""
	assert.Error(t, missing.Validate())

	badStatus := doc
	badStatus.Status = "draft"
	assert.Error(t, badStatus.Validate())
}
