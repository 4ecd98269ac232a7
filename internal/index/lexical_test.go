package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archipel-labs/docvault-mcp/pkg/types"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"lowercase and split", "Pump MAINTENANCE schedule!", []string{"pump", "maintenance", "schedule"}},
		{"stopwords dropped", "the pump is on the skid", []string{"pump", "skid"}},
		{"plural stripped", "pumps valves fittings", []string{"pump", "valve", "fitting"}},
		{"inflection stripped", "jumping jumps jump", []string{"jump", "jump", "jump"}},
		{"short words kept whole", "gas grid", []string{"gas", "grid"}},
		{"numbers kept", "pump P-101 rev 2", []string{"pump", "p", "101", "rev", "2"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLexicalSearchMatchingOnly(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add("c1", "d1", "the quick brown fox jumps over the lazy dog")
	ix.Add("c2", "d1", "quarterly finance report for the board")
	ix.Add("c3", "d2", "fox hunting season regulations")

	matches, err := ix.Search("fox", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	// Non-matching chunks are excluded, not scored zero
	for _, m := range matches {
		assert.NotEqual(t, "c2", m.ChunkID)
		assert.Positive(t, m.Score)
	}
}

func TestLexicalSearchCoverage(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add("both", "d1", "fox dog")
	ix.Add("one", "d1", "fox cat")

	matches, err := ix.Search("fox dog", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	// Matching both query terms outranks matching one of them
	assert.Equal(t, "both", matches[0].ChunkID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestLexicalSearchProximity(t *testing.T) {
	ix := NewLexicalIndex()
	// Same terms, same length; only the distance between matches differs
	ix.Add("near", "d1", "pump seal alpha beta gamma")
	ix.Add("far", "d1", "pump alpha beta gamma seal")

	matches, err := ix.Search("pump seal", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "near", matches[0].ChunkID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestLexicalSearchLengthPenalty(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add("short", "d1", "pump overhaul checklist")
	ix.Add("long", "d1", "pump overhaul checklist plus many additional unrelated "+
		"tokens covering everything else imaginable about plant operations "+
		"procedures safety logistics scheduling planning budgeting reporting")

	matches, err := ix.Search("pump overhaul", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "short", matches[0].ChunkID)
}

func TestLexicalSearchTieBreak(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add("c-b", "d1", "identical content")
	ix.Add("c-a", "d1", "identical content")

	matches, err := ix.Search("identical", 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "c-a", matches[0].ChunkID)
	assert.Equal(t, "c-b", matches[1].ChunkID)
}

func TestLexicalSearchValidation(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add("c1", "d1", "content")

	_, err := ix.Search("   ", 10)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	_, err = ix.Search("content", 0)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	// All-stopword query matches nothing but is not an error
	matches, err := ix.Search("the of and", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLexicalSearchLimit(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add("c1", "d1", "pump one")
	ix.Add("c2", "d1", "pump two")
	ix.Add("c3", "d1", "pump three")

	matches, err := ix.Search("pump", 2)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestLexicalRemoveDocument(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add("c1", "d1", "pump manual")
	ix.Add("c2", "d2", "pump datasheet")

	ix.RemoveDocument("d1")
	assert.Equal(t, 1, ix.Len())

	matches, err := ix.Search("pump", 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "c2", matches[0].ChunkID)
}

func TestLexicalAddReplacesChunk(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add("c1", "d1", "pump manual")
	ix.Add("c1", "d1", "valve datasheet")
	assert.Equal(t, 1, ix.Len())

	matches, err := ix.Search("pump", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = ix.Search("valve", 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
