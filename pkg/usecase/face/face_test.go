package face_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/repository"
	"github.com/m-mizutani/memoir/pkg/service/cluster"
	"github.com/m-mizutani/memoir/pkg/usecase/face"
)

func seedRepo(t *testing.T) repository.Repository {
	t.Helper()
	ctx := context.Background()
	repo := repository.New(t.TempDir())

	gt.NoError(t, repo.SaveMemories(ctx, []*model.Memory{
		{
			ID:      "a.jpg",
			Content: model.Content{FaceTags: []string{"Person_0"}},
		},
		{
			ID:      "b.jpg",
			Content: model.Content{FaceTags: []string{"Person_0", "Person_1"}},
		},
		{
			ID: "c.jpg",
		},
	}))

	gt.NoError(t, repo.SaveFaceClusters(ctx, []*cluster.FaceCluster{
		{Name: "Person_0", Faces: []string{"f1"}, Embeddings: [][]float64{{1, 0}}, MemoryIDs: []model.MemoryID{"a.jpg", "b.jpg"}},
		{Name: "Person_1", Faces: []string{"f2"}, Embeddings: [][]float64{{0, 1}}, MemoryIDs: []model.MemoryID{"b.jpg"}},
	}))
	return repo
}

func TestList(t *testing.T) {
	repo := seedRepo(t)
	clusters, err := face.New(repo).List(context.Background())
	gt.NoError(t, err)
	gt.A(t, clusters).Length(2)
	gt.V(t, clusters[0].Name).Equal("Person_0")
}

func TestRename(t *testing.T) {
	ctx := context.Background()

	t.Run("updates cluster and memory tags", func(t *testing.T) {
		repo := seedRepo(t)
		gt.NoError(t, face.New(repo).Rename(ctx, "Person_0", "Alice"))

		clusters, err := repo.LoadFaceClusters(ctx)
		gt.NoError(t, err)
		gt.V(t, clusters[0].Name).Equal("Alice")

		memories, err := repo.LoadMemories(ctx)
		gt.NoError(t, err)
		gt.A(t, memories[0].Content.FaceTags).Equal([]string{"Alice"})
		gt.A(t, memories[1].Content.FaceTags).Equal([]string{"Person_1", "Alice"})
		gt.A(t, memories[2].Content.FaceTags).Length(0)
	})

	t.Run("rename onto existing cluster merges tags", func(t *testing.T) {
		repo := seedRepo(t)
		gt.NoError(t, face.New(repo).Rename(ctx, "Person_1", "Person_0"))

		clusters, err := repo.LoadFaceClusters(ctx)
		gt.NoError(t, err)
		gt.A(t, clusters).Length(1)
		gt.A(t, clusters[0].MemoryIDs).Equal([]model.MemoryID{"a.jpg", "b.jpg"})

		memories, err := repo.LoadMemories(ctx)
		gt.NoError(t, err)
		gt.A(t, memories[1].Content.FaceTags).Equal([]string{"Person_0"})
	})

	t.Run("unknown cluster fails", func(t *testing.T) {
		repo := seedRepo(t)
		gt.Error(t, face.New(repo).Rename(ctx, "Person_9", "Alice"))
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes cluster and strips tags", func(t *testing.T) {
		repo := seedRepo(t)
		gt.NoError(t, face.New(repo).Delete(ctx, "Person_0"))

		clusters, err := repo.LoadFaceClusters(ctx)
		gt.NoError(t, err)
		gt.A(t, clusters).Length(1)
		gt.V(t, clusters[0].Name).Equal("Person_1")

		memories, err := repo.LoadMemories(ctx)
		gt.NoError(t, err)
		gt.A(t, memories[0].Content.FaceTags).Length(0)
		gt.A(t, memories[1].Content.FaceTags).Equal([]string{"Person_1"})
	})

	t.Run("unknown cluster fails", func(t *testing.T) {
		repo := seedRepo(t)
		gt.Error(t, face.New(repo).Delete(ctx, "Person_9"))
	})
}
