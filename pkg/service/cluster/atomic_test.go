package cluster_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/cluster"
)

func TestAtomicStoreObserve(t *testing.T) {
	ctx := context.Background()

	t.Run("first observation creates a cluster", func(t *testing.T) {
		s := cluster.NewAtomicStore("objects")
		s.Observe(ctx, []float64{1, 0, 0}, "coffee cup", "m1")
		gt.V(t, s.Index().Len()).Equal(1)
		gt.V(t, s.Index().Entry(0).Payload).Equal("coffee cup")
	})

	t.Run("close observation joins best cluster", func(t *testing.T) {
		s := cluster.NewAtomicStore("objects")
		s.Observe(ctx, []float64{1, 0, 0}, "coffee cup", "m1")
		s.Observe(ctx, []float64{0.99, 0.01, 0}, "mug", "m2")
		gt.V(t, s.Index().Len()).Equal(1)
		gt.A(t, s.Index().Entry(0).MemoryIDs).Equal([]model.MemoryID{"m1", "m2"})
	})

	t.Run("distant observation creates a new cluster", func(t *testing.T) {
		s := cluster.NewAtomicStore("objects")
		s.Observe(ctx, []float64{1, 0, 0}, "coffee cup", "m1")
		s.Observe(ctx, []float64{0, 1, 0}, "bicycle", "m2")
		gt.V(t, s.Index().Len()).Equal(2)
	})

	t.Run("similarity exactly at threshold does not join", func(t *testing.T) {
		s := cluster.NewAtomicStore("objects")
		s.Observe(ctx, []float64{1, 0}, "a", "m1")
		// cos((1,0),(0.8,0.6)) == 0.8 exactly
		s.Observe(ctx, []float64{0.8, 0.6}, "b", "m2")
		gt.V(t, s.Index().Len()).Equal(2)
	})

	t.Run("representative stays frozen", func(t *testing.T) {
		s := cluster.NewAtomicStore("objects")
		s.Observe(ctx, []float64{1, 0, 0}, "coffee cup", "m1")
		s.Observe(ctx, []float64{0.97, 0.24, 0}, "espresso cup", "m2")
		gt.V(t, s.Index().Len()).Equal(1)

		// would clear the bar against the second observation, but is
		// compared against the founding representative only
		s.Observe(ctx, []float64{0.7, 0.71, 0}, "cup on a desk", "m3")
		gt.V(t, s.Index().Len()).Equal(2)
	})

	t.Run("joins the best cluster, not the first acceptable", func(t *testing.T) {
		s := cluster.NewAtomicStore("objects")
		s.Observe(ctx, []float64{1, 0}, "a", "m1")
		s.Observe(ctx, []float64{0.766, 0.643}, "b", "m2")
		gt.V(t, s.Index().Len()).Equal(2)

		// above threshold for both, closer to the second
		s.Observe(ctx, []float64{0.906, 0.423}, "c", "m3")
		gt.V(t, s.Index().Len()).Equal(2)
		gt.A(t, s.Index().Entry(1).MemoryIDs).Equal([]model.MemoryID{"m2", "m3"})
	})

	t.Run("empty embedding is dropped", func(t *testing.T) {
		s := cluster.NewAtomicStore("objects")
		s.Observe(ctx, nil, "ghost", "m1")
		gt.V(t, s.Index().Len()).Equal(0)
	})
}
