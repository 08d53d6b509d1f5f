// Package face manages the identity clusters of a collection: listing,
// renaming (which merges on collision), and deleting. Cluster changes
// propagate to the face tags stored on memories.
package face

import (
	"context"

	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/repository"
	"github.com/m-mizutani/memoir/pkg/service/cluster"
	"github.com/m-mizutani/memoir/pkg/utils/logging"
)

type UseCase struct {
	repo repository.Repository
}

func New(repo repository.Repository) *UseCase {
	return &UseCase{repo: repo}
}

// List returns every face cluster in creation order
func (u *UseCase) List(ctx context.Context) ([]*cluster.FaceCluster, error) {
	return u.repo.LoadFaceClusters(ctx)
}

// Rename assigns a new name to a cluster and rewrites the matching face tags
// on every memory. Renaming onto an existing name merges the clusters.
func (u *UseCase) Rename(ctx context.Context, oldName, newName string) error {
	grouper, err := u.loadGrouper(ctx)
	if err != nil {
		return err
	}
	if err := grouper.Rename(oldName, newName); err != nil {
		return err
	}

	if err := u.updateMemories(ctx, func(m *model.Memory) bool {
		return m.RenameFaceTag(oldName, newName)
	}); err != nil {
		return err
	}

	logging.From(ctx).Info("renamed face cluster", "old", oldName, "new", newName)
	return u.repo.SaveFaceClusters(ctx, grouper.Clusters())
}

// Delete removes a cluster and strips its face tag from every memory
func (u *UseCase) Delete(ctx context.Context, name string) error {
	grouper, err := u.loadGrouper(ctx)
	if err != nil {
		return err
	}
	if err := grouper.Delete(name); err != nil {
		return err
	}

	if err := u.updateMemories(ctx, func(m *model.Memory) bool {
		return m.RemoveFaceTag(name)
	}); err != nil {
		return err
	}

	logging.From(ctx).Info("deleted face cluster", "name", name)
	return u.repo.SaveFaceClusters(ctx, grouper.Clusters())
}

func (u *UseCase) loadGrouper(ctx context.Context) (*cluster.FaceGrouper, error) {
	clusters, err := u.repo.LoadFaceClusters(ctx)
	if err != nil {
		return nil, err
	}
	return cluster.LoadFaceGrouper(clusters), nil
}

// updateMemories applies a mutation to every memory and saves only when at
// least one changed
func (u *UseCase) updateMemories(ctx context.Context, mutate func(*model.Memory) bool) error {
	memories, err := u.repo.LoadMemories(ctx)
	if err != nil {
		return err
	}

	changed := false
	for _, m := range memories {
		if mutate(m) {
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return u.repo.SaveMemories(ctx, memories)
}
