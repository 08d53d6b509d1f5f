package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/cluster"
	"github.com/m-mizutani/memoir/pkg/service/vecindex"
)

const (
	memoriesFile  = "memories.json"
	facesFile     = "faces.json"
	compositeFile = "composite_events.json"
	knowledgeFile = "knowledge.json"
	vectorDBDir   = "vector_db"
)

// localRepo implements Repository on a plain directory: one JSON file for
// the memory list, one (vectors, entries) JSON pair per axis under
// vector_db/, and JSON files for face clusters, composite events, and
// knowledge. Files are created lazily on first save.
type localRepo struct {
	dir string
}

// New creates a repository rooted at the collection directory
func New(dir string) Repository {
	return &localRepo{dir: dir}
}

func (r *localRepo) Initialized() bool {
	_, err := os.Stat(filepath.Join(r.dir, memoriesFile))
	return err == nil
}

func (r *localRepo) ModTime() (time.Time, error) {
	var newest time.Time
	err := filepath.Walk(r.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return time.Time{}, nil
		}
		return time.Time{}, goerr.Wrap(err, "failed to walk collection directory", goerr.Value("dir", r.dir))
	}
	return newest, nil
}

func (r *localRepo) readJSON(path string, out any) (found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to read store file", goerr.Value("path", path))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, goerr.Wrap(err, "failed to parse store file", goerr.Value("path", path))
	}
	return true, nil
}

func (r *localRepo) writeJSON(path string, in any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return goerr.Wrap(err, "failed to create store directory", goerr.Value("path", path))
	}
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal store data")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return goerr.Wrap(err, "failed to write store file", goerr.Value("path", path))
	}
	return nil
}

func (r *localRepo) LoadMemories(ctx context.Context) ([]*model.Memory, error) {
	var memories []*model.Memory
	found, err := r.readJSON(filepath.Join(r.dir, memoriesFile), &memories)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, goerr.Wrap(ErrNotInitialized, "no memory store", goerr.Value("dir", r.dir))
	}
	return memories, nil
}

func (r *localRepo) SaveMemories(ctx context.Context, memories []*model.Memory) error {
	return r.writeJSON(filepath.Join(r.dir, memoriesFile), memories)
}

func (r *localRepo) vectorPath(axis Axis) string {
	return filepath.Join(r.dir, vectorDBDir, string(axis)+"_vectors.json")
}

func (r *localRepo) entryPath(axis Axis) string {
	return filepath.Join(r.dir, vectorDBDir, string(axis)+"_entries.json")
}

func (r *localRepo) LoadIndex(ctx context.Context, axis Axis) (*vecindex.Index, error) {
	var rows [][]float64
	var entries []vecindex.Entry

	if _, err := r.readJSON(r.vectorPath(axis), &rows); err != nil {
		return nil, err
	}
	if _, err := r.readJSON(r.entryPath(axis), &entries); err != nil {
		return nil, err
	}

	index, err := vecindex.Load(entries, rows)
	if err != nil {
		return nil, goerr.Wrap(err, "inconsistent persisted index", goerr.Value("axis", axis))
	}
	return index, nil
}

func (r *localRepo) SaveIndex(ctx context.Context, axis Axis, index *vecindex.Index) error {
	if err := r.writeJSON(r.vectorPath(axis), index.Rows()); err != nil {
		return err
	}
	return r.writeJSON(r.entryPath(axis), index.Entries())
}

func (r *localRepo) LoadCompositeEvents(ctx context.Context) ([]*model.CompositeEvent, error) {
	var events []*model.CompositeEvent
	if _, err := r.readJSON(filepath.Join(r.dir, compositeFile), &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *localRepo) SaveCompositeEvents(ctx context.Context, events []*model.CompositeEvent) error {
	return r.writeJSON(filepath.Join(r.dir, compositeFile), events)
}

func (r *localRepo) LoadKnowledge(ctx context.Context) ([]*model.Knowledge, error) {
	var entries []*model.Knowledge
	if _, err := r.readJSON(filepath.Join(r.dir, knowledgeFile), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *localRepo) SaveKnowledge(ctx context.Context, entries []*model.Knowledge) error {
	return r.writeJSON(filepath.Join(r.dir, knowledgeFile), entries)
}

func (r *localRepo) LoadFaceClusters(ctx context.Context) ([]*cluster.FaceCluster, error) {
	var clusters []*cluster.FaceCluster
	if _, err := r.readJSON(filepath.Join(r.dir, facesFile), &clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}

func (r *localRepo) SaveFaceClusters(ctx context.Context, clusters []*cluster.FaceCluster) error {
	return r.writeJSON(filepath.Join(r.dir, facesFile), clusters)
}
