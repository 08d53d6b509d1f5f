// Package vecindex provides a flat in-memory similarity index: a list of
// entries parallel to a matrix of embedding rows, searched by cosine
// similarity. It backs both the per-axis retrieval indices and the
// fixed-representative cluster stores.
package vecindex

import (
	"math"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/model"
)

var (
	ErrEmptyEmbedding = goerr.New("empty embedding")
)

// Entry is one indexed record: a display payload plus the memory ids that
// contributed it. The embedding lives in the parallel row matrix.
type Entry struct {
	Payload   string           `json:"payload"`
	MemoryIDs []model.MemoryID `json:"memory_ids"`
}

// Index holds entries and their embedding rows in lockstep. Row i always
// belongs to entry i; Add is the only mutation path so the two can never
// diverge.
type Index struct {
	entries []Entry
	rows    [][]float64
}

func New() *Index {
	return &Index{}
}

// Load restores an index from persisted entries and rows
func Load(entries []Entry, rows [][]float64) (*Index, error) {
	if len(entries) != len(rows) {
		return nil, goerr.New("entry and row counts mismatch",
			goerr.Value("entries", len(entries)), goerr.Value("rows", len(rows)))
	}
	return &Index{entries: entries, rows: rows}, nil
}

// Len returns the number of indexed entries
func (x *Index) Len() int {
	return len(x.entries)
}

// Entries returns the entry list in insertion order
func (x *Index) Entries() []Entry {
	return x.entries
}

// Rows returns the embedding matrix in insertion order
func (x *Index) Rows() [][]float64 {
	return x.rows
}

// Entry returns the i-th entry
func (x *Index) Entry(i int) Entry {
	return x.entries[i]
}

// Add appends a new entry with its embedding row
func (x *Index) Add(embedding []float64, payload string, ids ...model.MemoryID) error {
	if len(embedding) == 0 {
		return ErrEmptyEmbedding
	}
	x.entries = append(x.entries, Entry{Payload: payload, MemoryIDs: ids})
	x.rows = append(x.rows, embedding)
	return nil
}

// AddMemoryID merges a memory id into the i-th entry's member set. The
// entry's embedding and payload are left untouched.
func (x *Index) AddMemoryID(i int, id model.MemoryID) {
	for _, existing := range x.entries[i].MemoryIDs {
		if existing == id {
			return
		}
	}
	x.entries[i].MemoryIDs = append(x.entries[i].MemoryIDs, id)
}

// Hit is one search result
type Hit struct {
	Index      int
	Similarity float64
	Entry      Entry
}

// Search returns up to k entries ordered by descending cosine similarity.
// Ties keep insertion order. An empty index yields an empty result.
func (x *Index) Search(embedding []float64, k int) []Hit {
	if len(x.rows) == 0 || len(embedding) == 0 || k <= 0 {
		return nil
	}

	hits := make([]Hit, 0, len(x.rows))
	for i, row := range x.rows {
		hits = append(hits, Hit{
			Index:      i,
			Similarity: Cosine(row, embedding),
			Entry:      x.entries[i],
		})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Similarity > hits[b].Similarity
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// Best returns the index and similarity of the nearest row, or ok=false when
// the index is empty.
func (x *Index) Best(embedding []float64) (idx int, sim float64, ok bool) {
	hits := x.Search(embedding, 1)
	if len(hits) == 0 {
		return 0, 0, false
	}
	return hits[0].Index, hits[0].Similarity, true
}

// Cosine computes the cosine similarity of two vectors. Mismatched lengths
// and zero-norm vectors yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
