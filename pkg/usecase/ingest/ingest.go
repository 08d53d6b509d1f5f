// Package ingest builds and incrementally extends a collection store:
// scanning source media, annotating new items, updating every cluster store
// and similarity index, and inferring composite events and knowledge.
package ingest

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/repository"
	"github.com/m-mizutani/memoir/pkg/utils/logging"
)

type UseCase struct {
	repo      repository.Repository
	llm       adapter.LLM
	annotator adapter.Annotator
	metadata  adapter.MetadataExtractor
	faces     adapter.FaceDetector
}

type Option func(*UseCase)

// WithMetadataExtractor overrides the filesystem-based metadata fallback
func WithMetadataExtractor(m adapter.MetadataExtractor) Option {
	return func(u *UseCase) {
		u.metadata = m
	}
}

// WithFaceDetector enables the face identity pipeline
func WithFaceDetector(d adapter.FaceDetector) Option {
	return func(u *UseCase) {
		u.faces = d
	}
}

func New(repo repository.Repository, llm adapter.LLM, annotator adapter.Annotator, opts ...Option) *UseCase {
	u := &UseCase{
		repo:      repo,
		llm:       llm,
		annotator: annotator,
		metadata:  adapter.FileMetadata{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Output summarizes one ingestion run
type Output struct {
	Ingested int
	Skipped  int
	Failed   int
	Usage    model.Usage
}

// Run ingests new media from sourceDir into the collection. When the store
// is newer than the source folder the run is a no-op unless force is set.
// Failures of individual items are logged and skipped, never fatal to the
// batch.
func (u *UseCase) Run(ctx context.Context, sourceDir string, force bool) (*Output, error) {
	logger := logging.From(ctx)
	out := &Output{}

	if !force && u.repo.Initialized() {
		fresh, err := u.isFresh(sourceDir)
		if err != nil {
			return nil, err
		}
		if fresh {
			logger.Info("store is up to date, skipping ingestion", "source", sourceDir)
			return out, nil
		}
	}

	media, err := u.scan(ctx, sourceDir)
	if err != nil {
		return nil, err
	}

	var existing []*model.Memory
	if u.repo.Initialized() {
		existing, err = u.repo.LoadMemories(ctx)
		if err != nil {
			return nil, err
		}
	}
	known := make(map[model.MemoryID]struct{}, len(existing))
	for _, m := range existing {
		known[m.ID] = struct{}{}
	}

	st, err := u.loadStores(ctx)
	if err != nil {
		return nil, err
	}

	var added []*model.Memory
	for _, raw := range media {
		if _, ok := known[raw.id]; ok {
			out.Skipped++
			continue
		}

		memory, err := u.annotate(ctx, raw)
		if err != nil {
			logger.Warn("failed to annotate media, skipping", "id", raw.id, "error", err)
			out.Failed++
			continue
		}

		if err := u.augmentMemory(ctx, st, memory); err != nil {
			return nil, goerr.Wrap(err, "failed to index memory", goerr.Value("id", memory.ID))
		}

		added = append(added, memory)
		out.Ingested++
	}

	if len(added) > 0 {
		if err := u.inferContext(ctx, st, added, &out.Usage); err != nil {
			return nil, err
		}
	}

	memories := append(existing, added...)
	sort.SliceStable(memories, func(a, b int) bool {
		return memories[a].Temporal.DateString < memories[b].Temporal.DateString
	})

	if err := u.repo.SaveMemories(ctx, memories); err != nil {
		return nil, err
	}
	if err := u.saveStores(ctx, st); err != nil {
		return nil, err
	}

	logger.Info("ingestion finished",
		"ingested", out.Ingested, "skipped", out.Skipped, "failed", out.Failed)
	return out, nil
}

// isFresh compares the newest source file against the newest store file
func (u *UseCase) isFresh(sourceDir string) (bool, error) {
	storeMod, err := u.repo.ModTime()
	if err != nil {
		return false, err
	}
	sourceMod, err := newestModTime(sourceDir)
	if err != nil {
		return false, err
	}
	return !storeMod.Before(sourceMod), nil
}

// annotate builds a full Memory record from one scanned media file
func (u *UseCase) annotate(ctx context.Context, raw *rawMedia) (*model.Memory, error) {
	content, err := u.annotator.Annotate(ctx, raw.path)
	if err != nil {
		return nil, err
	}

	return &model.Memory{
		ID:            raw.id,
		FilePath:      raw.path,
		MediaType:     raw.mediaType,
		CaptureMethod: raw.meta.CaptureMethod,
		Temporal:      raw.meta.Temporal,
		Location:      raw.meta.Location,
		Content:       model.NewContent(content),
	}, nil
}
