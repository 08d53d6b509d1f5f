package cluster_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/cluster"
)

func TestFaceGrouperObserve(t *testing.T) {
	ctx := context.Background()

	t.Run("first observation creates Person_0", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		c := g.Observe(ctx, []float64{1, 0, 0}, "f1", "m1")
		gt.NotNil(t, c)
		gt.V(t, c.Name).Equal("Person_0")
		gt.A(t, g.Clusters()).Length(1)
	})

	t.Run("similar face joins existing cluster", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0, 0}, "f1", "m1")
		c := g.Observe(ctx, []float64{0.95, 0.05, 0}, "f2", "m2")
		gt.V(t, c.Name).Equal("Person_0")
		gt.A(t, g.Clusters()).Length(1)
		gt.A(t, c.Faces).Length(2)
		gt.A(t, c.MemoryIDs).Equal([]model.MemoryID{"m1", "m2"})
	})

	t.Run("dissimilar face creates new cluster", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0, 0}, "f1", "m1")
		c := g.Observe(ctx, []float64{0, 1, 0}, "f2", "m2")
		gt.V(t, c.Name).Equal("Person_1")
		gt.A(t, g.Clusters()).Length(2)
	})

	t.Run("similarity exactly at threshold does not join", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0}, "f1", "m1")
		// cos((1,0),(0.6,0.8)) == 0.6 exactly
		c := g.Observe(ctx, []float64{0.6, 0.8}, "f2", "m2")
		gt.V(t, c.Name).Equal("Person_1")
	})

	t.Run("first accepting cluster wins over a better later one", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0.5, 0}, "f1", "m1")
		g.Observe(ctx, []float64{0, 1, 0.2}, "f2", "m2")
		// closer to the second cluster, but the first already clears the bar
		c := g.Observe(ctx, []float64{0.5, 1, 0.1}, "f3", "m3")
		gt.V(t, c.Name).Equal("Person_0")
	})

	t.Run("matches any member embedding, not only the first", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0, 0}, "f1", "m1")
		g.Observe(ctx, []float64{0.8, 0.6, 0}, "f2", "m2")
		// far from the founding embedding, close to the second member
		c := g.Observe(ctx, []float64{0.3, 0.95, 0}, "f3", "m3")
		gt.V(t, c.Name).Equal("Person_0")
	})

	t.Run("empty embedding is dropped", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		gt.Nil(t, g.Observe(ctx, nil, "f1", "m1"))
		gt.A(t, g.Clusters()).Length(0)
	})

	t.Run("repeated memory id stored once", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0}, "f1", "m1")
		c := g.Observe(ctx, []float64{0.99, 0.01}, "f2", "m1")
		gt.A(t, c.MemoryIDs).Length(1)
	})
}

func TestLoadFaceGrouper(t *testing.T) {
	t.Run("counter resumes past highest default name", func(t *testing.T) {
		g := cluster.LoadFaceGrouper([]*cluster.FaceCluster{
			{Name: "Person_0"},
			{Name: "Alice"},
			{Name: "Person_7"},
		})
		c := g.Observe(context.Background(), []float64{1, 0}, "f1", "m1")
		gt.V(t, c.Name).Equal("Person_8")
	})
}

func TestFaceGrouperRename(t *testing.T) {
	ctx := context.Background()

	t.Run("simple rename", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0}, "f1", "m1")
		gt.NoError(t, g.Rename("Person_0", "Alice"))
		c, err := g.Get("Alice")
		gt.NoError(t, err)
		gt.V(t, c.Name).Equal("Alice")
	})

	t.Run("rename onto existing cluster merges", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0, 0}, "f1", "m1")
		g.Observe(ctx, []float64{0, 1, 0}, "f2", "m2")
		gt.NoError(t, g.Rename("Person_0", "Alice"))
		gt.NoError(t, g.Rename("Person_1", "Alice"))

		gt.A(t, g.Clusters()).Length(1)
		c, err := g.Get("Alice")
		gt.NoError(t, err)
		gt.A(t, c.Faces).Length(2)
		gt.A(t, c.Embeddings).Length(2)
		gt.A(t, c.MemoryIDs).Equal([]model.MemoryID{"m1", "m2"})
	})

	t.Run("merge unions memory ids", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0, 0}, "f1", "m1")
		g.Observe(ctx, []float64{0, 1, 0}, "f2", "m1")
		gt.NoError(t, g.Rename("Person_1", "Person_0"))
		c, err := g.Get("Person_0")
		gt.NoError(t, err)
		gt.A(t, c.MemoryIDs).Length(1)
	})

	t.Run("rename to own name is a no-op", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0}, "f1", "m1")
		gt.NoError(t, g.Rename("Person_0", "Person_0"))
		gt.A(t, g.Clusters()).Length(1)
	})

	t.Run("unknown cluster fails", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		gt.Error(t, g.Rename("Person_9", "Alice"))
	})
}

func TestFaceGrouperDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes cluster", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		g.Observe(ctx, []float64{1, 0}, "f1", "m1")
		gt.NoError(t, g.Delete("Person_0"))
		gt.A(t, g.Clusters()).Length(0)
	})

	t.Run("unknown cluster fails", func(t *testing.T) {
		g := cluster.NewFaceGrouper()
		gt.Error(t, g.Delete("Person_0"))
	})
}
