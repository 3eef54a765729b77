package retrieval

import (
	"sort"

	"github.com/memoria-ai/memoria-go/pkg/embedder"
	"github.com/memoria-ai/memoria-go/pkg/storage"
)

// Scored pairs a record with its similarity to a query vector.
type Scored struct {
	Record     *storage.Record
	Similarity float64
}

// TopK returns up to k candidates ranked by descending cosine similarity to
// the query vector.
//
// Ties break toward the more recently created record, then toward the higher
// id, so the ranking is fully deterministic: calling TopK twice on the same
// inputs yields the same ordered output.
func TopK(query []float64, candidates []*storage.Record, k int) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, record := range candidates {
		scored = append(scored, Scored{
			Record:     record,
			Similarity: embedder.CosineSimilarity(query, record.Embedding),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		if !scored[i].Record.CreatedAt.Equal(scored[j].Record.CreatedAt) {
			return scored[i].Record.CreatedAt.After(scored[j].Record.CreatedAt)
		}
		return scored[i].Record.ID > scored[j].Record.ID
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}

	return scored
}

// MostRecent returns up to k candidates ordered by descending creation time,
// regardless of similarity. Ties break toward the higher id.
func MostRecent(candidates []*storage.Record, k int) []*storage.Record {
	out := append([]*storage.Record(nil), candidates...)

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if k > 0 && len(out) > k {
		out = out[:k]
	}

	return out
}
