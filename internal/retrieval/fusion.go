package retrieval

import (
	"sort"

	"github.com/jonathan/autosurvey/internal/types"
)

// rrfConstant dampens the contribution of top ranks in reciprocal rank fusion.
const rrfConstant = 60

// ScoredDocument is a fused search hit.
type ScoredDocument struct {
	types.ReferenceDocument
	Score float64
}

// Fuse merges lexical and dense hit lists by weighted reciprocal rank:
// score = sum(weight / (rrfConstant + rank)), rank starting at 1. Documents
// are de-duplicated by ID; ties keep first-seen order. At most limit
// documents are returned.
func Fuse(lexical, dense []types.ReferenceDocument, params types.RetrievalParams, limit int) []ScoredDocument {
	byID := make(map[string]*ScoredDocument)
	var order []string

	add := func(docs []types.ReferenceDocument, weight float64) {
		for i, doc := range docs {
			contribution := weight / float64(rrfConstant+i+1)
			if existing, ok := byID[doc.ID]; ok {
				existing.Score += contribution
				continue
			}
			byID[doc.ID] = &ScoredDocument{ReferenceDocument: doc, Score: contribution}
			order = append(order, doc.ID)
		}
	}
	add(lexical, params.SparseWeight)
	add(dense, params.DenseWeight)

	fused := make([]ScoredDocument, 0, len(order))
	for _, id := range order {
		fused = append(fused, *byID[id])
	}
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].Score > fused[j].Score
	})

	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}
