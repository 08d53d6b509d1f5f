package cluster

import (
	"context"

	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/vecindex"
	"github.com/m-mizutani/memoir/pkg/utils/logging"
)

// AtomicThreshold is the strict lower bound for joining an existing atomic
// entity cluster.
const AtomicThreshold = 0.8

// AtomicStore clusters atomic entity descriptions (objects, people,
// activities, locations) by best matching representative. Each cluster keeps
// exactly one embedding row: the one it was created with. Later observations
// only extend the member-id set, so the similarity matrix stays one row per
// distinct concept at the cost of representative drift.
type AtomicStore struct {
	category string
	index    *vecindex.Index
}

func NewAtomicStore(category string) *AtomicStore {
	return &AtomicStore{category: category, index: vecindex.New()}
}

// LoadAtomicStore restores a store from a persisted index
func LoadAtomicStore(category string, index *vecindex.Index) *AtomicStore {
	return &AtomicStore{category: category, index: index}
}

// Category returns the semantic axis this store clusters
func (s *AtomicStore) Category() string {
	return s.category
}

// Index exposes the backing index for similarity search and persistence
func (s *AtomicStore) Index() *vecindex.Index {
	return s.index
}

// Observe assigns one description observation to a cluster. The embedding is
// compared against every cluster representative; if the best similarity is
// strictly above AtomicThreshold the memory id joins that cluster, otherwise
// a new cluster is created with this embedding as its frozen representative.
// A nil embedding drops the observation with a logged skip.
func (s *AtomicStore) Observe(ctx context.Context, embedding []float64, label string, memoryID model.MemoryID) {
	if len(embedding) == 0 {
		logging.From(ctx).Debug("skipping observation without embedding",
			"category", s.category, "label", label, "memory_id", memoryID)
		return
	}

	if idx, sim, ok := s.index.Best(embedding); ok && sim > AtomicThreshold {
		s.index.AddMemoryID(idx, memoryID)
		return
	}

	// Add cannot fail here: the embedding is known to be non-empty
	_ = s.index.Add(embedding, label, memoryID)
}
