package retrieval

import (
	"testing"

	"github.com/jonathan/autosurvey/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docs(ids ...string) []types.ReferenceDocument {
	out := make([]types.ReferenceDocument, len(ids))
	for i, id := range ids {
		out[i] = types.ReferenceDocument{ID: id, Title: "doc " + id}
	}
	return out
}

func TestFuse_WeightsAndDedup(t *testing.T) {
	params := types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 3}

	fused := Fuse(docs("a", "b"), docs("b", "c"), params, 3)

	require.Len(t, fused, 3)
	// b appears in both lists
	assert.Equal(t, "b", fused[0].ID)
	assert.InDelta(t, 0.3/62+0.7/61, fused[0].Score, 1e-12)
	// c: dense rank 2 (0.7/62) beats a: lexical rank 1 (0.3/61)
	assert.Equal(t, "c", fused[1].ID)
	assert.Equal(t, "a", fused[2].ID)
}

func TestFuse_Limit(t *testing.T) {
	params := types.RetrievalParams{SparseWeight: 0.5, DenseWeight: 0.5, ResultCount: 1}

	fused := Fuse(docs("a", "b", "c"), nil, params, 1)

	require.Len(t, fused, 1)
	assert.Equal(t, "a", fused[0].ID)
}

func TestFuse_TiesKeepFirstSeenOrder(t *testing.T) {
	params := types.RetrievalParams{SparseWeight: 0.5, DenseWeight: 0.5, ResultCount: 2}

	fused := Fuse(docs("a"), docs("z"), params, 2)

	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].ID)
	assert.Equal(t, "z", fused[1].ID)
}

func TestFuse_Empty(t *testing.T) {
	assert.Empty(t, Fuse(nil, nil, types.RetrievalParams{ResultCount: 2}, 2))
}
