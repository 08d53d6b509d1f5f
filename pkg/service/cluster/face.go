// Package cluster implements incremental assignment of observations to
// clusters. Two policies coexist on purpose: face identities scan every
// member embedding of every cluster and join the first one that accepts,
// while atomic entities compare against a single frozen representative per
// cluster and join the best match. Unifying them would change retrieval
// results.
package cluster

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/vecindex"
	"github.com/m-mizutani/memoir/pkg/utils/logging"
)

var (
	ErrClusterNotFound = goerr.New("cluster not found")
)

// FaceThreshold is lower than the atomic threshold: face embeddings are
// noisier and tolerate more intra-cluster variance.
const FaceThreshold = 0.6

// FaceCluster is one face identity: all member embeddings are kept so that a
// future face may match any of them.
type FaceCluster struct {
	Name       string           `json:"name"`
	Faces      []string         `json:"faces"`
	Embeddings [][]float64      `json:"embeddings"`
	MemoryIDs  []model.MemoryID `json:"memory_ids"`
}

func (c *FaceCluster) addMemoryID(id model.MemoryID) {
	for _, existing := range c.MemoryIDs {
		if existing == id {
			return
		}
	}
	c.MemoryIDs = append(c.MemoryIDs, id)
}

// FaceGrouper assigns face observations to identity clusters using the
// first-accepting-cluster policy.
type FaceGrouper struct {
	clusters []*FaceCluster
	counter  int
}

func NewFaceGrouper() *FaceGrouper {
	return &FaceGrouper{}
}

// LoadFaceGrouper restores a grouper from persisted clusters. The counter
// resumes past the highest default name so new clusters never collide.
func LoadFaceGrouper(clusters []*FaceCluster) *FaceGrouper {
	g := &FaceGrouper{clusters: clusters}
	for _, c := range clusters {
		var n int
		if _, err := fmt.Sscanf(c.Name, "Person_%d", &n); err == nil && n >= g.counter {
			g.counter = n + 1
		}
	}
	return g
}

// Clusters returns all clusters in creation order
func (g *FaceGrouper) Clusters() []*FaceCluster {
	return g.clusters
}

// Get returns the cluster with the given name
func (g *FaceGrouper) Get(name string) (*FaceCluster, error) {
	for _, c := range g.clusters {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, goerr.Wrap(ErrClusterNotFound, "no such face cluster", goerr.Value("name", name))
}

// Observe assigns one face observation to a cluster. Clusters are scanned in
// creation order and every member embedding in insertion order; the first
// individual embedding with similarity strictly above FaceThreshold wins,
// even if a later cluster would match better. A nil embedding drops the
// observation with a logged skip.
func (g *FaceGrouper) Observe(ctx context.Context, embedding []float64, faceID string, memoryID model.MemoryID) *FaceCluster {
	if len(embedding) == 0 {
		logging.From(ctx).Debug("skipping face observation without embedding",
			"face", faceID, "memory_id", memoryID)
		return nil
	}

	for _, c := range g.clusters {
		for _, member := range c.Embeddings {
			if vecindex.Cosine(member, embedding) > FaceThreshold {
				c.Faces = append(c.Faces, faceID)
				c.Embeddings = append(c.Embeddings, embedding)
				c.addMemoryID(memoryID)
				return c
			}
		}
	}

	c := &FaceCluster{
		Name:       fmt.Sprintf("Person_%d", g.counter),
		Faces:      []string{faceID},
		Embeddings: [][]float64{embedding},
		MemoryIDs:  []model.MemoryID{memoryID},
	}
	g.counter++
	g.clusters = append(g.clusters, c)
	return c
}

// Rename changes a cluster's name. Renaming onto an existing cluster merges
// the two: face lists and embedding lists are concatenated, memory-id sets
// are unioned. The merged cluster keeps the target's position.
func (g *FaceGrouper) Rename(oldName, newName string) error {
	src, err := g.Get(oldName)
	if err != nil {
		return err
	}

	if dst, err := g.Get(newName); err == nil && dst != src {
		dst.Faces = append(dst.Faces, src.Faces...)
		dst.Embeddings = append(dst.Embeddings, src.Embeddings...)
		for _, id := range src.MemoryIDs {
			dst.addMemoryID(id)
		}
		g.remove(src)
		return nil
	}

	src.Name = newName
	return nil
}

// Delete removes a cluster entirely
func (g *FaceGrouper) Delete(name string) error {
	c, err := g.Get(name)
	if err != nil {
		return err
	}
	g.remove(c)
	return nil
}

func (g *FaceGrouper) remove(target *FaceCluster) {
	for i, c := range g.clusters {
		if c == target {
			g.clusters = append(g.clusters[:i], g.clusters[i+1:]...)
			return
		}
	}
}
