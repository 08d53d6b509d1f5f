// Package query answers natural-language questions against an ingested
// collection, either through the full multi-signal fusion pipeline or the
// plain similarity baseline.
package query

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/repository"
	"github.com/m-mizutani/memoir/pkg/service/fusion"
)

// Mode selects the retrieval strategy
type Mode string

const (
	// ModeMemory runs the full multi-signal fusion pipeline
	ModeMemory Mode = "memory"
	// ModeRAG runs the single-index similarity baseline
	ModeRAG Mode = "rag"
)

var ErrUnknownMode = goerr.New("unknown query mode")

type UseCase struct {
	repo        repository.Repository
	llm         adapter.LLM
	opts        fusion.Options
	detectFaces bool
}

type Option func(*UseCase)

// WithOptions overrides the default per-signal retrieval depths
func WithOptions(opts fusion.Options) Option {
	return func(u *UseCase) {
		u.opts = opts
	}
}

// WithFaceTags enables the face-tag signal and face tags in rendered context
func WithFaceTags() Option {
	return func(u *UseCase) {
		u.detectFaces = true
	}
}

func New(repo repository.Repository, llm adapter.LLM, opts ...Option) *UseCase {
	u := &UseCase{
		repo: repo,
		llm:  llm,
		opts: fusion.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run evaluates one question and returns the generated answer with the
// evidence that produced it.
func (u *UseCase) Run(ctx context.Context, question string, mode Mode) (*fusion.Result, error) {
	engine, err := u.buildEngine(ctx)
	if err != nil {
		return nil, err
	}

	switch mode {
	case ModeMemory:
		return engine.Query(ctx, question, u.opts)
	case ModeRAG:
		return engine.QueryRAG(ctx, question, u.opts.TopK)
	default:
		return nil, goerr.Wrap(ErrUnknownMode, "cannot evaluate question", goerr.Value("mode", mode))
	}
}

// buildEngine loads the whole collection store into a read-only fusion engine
func (u *UseCase) buildEngine(ctx context.Context) (*fusion.Engine, error) {
	if !u.repo.Initialized() {
		return nil, goerr.Wrap(repository.ErrNotInitialized, "run ingestion first")
	}

	memories, err := u.repo.LoadMemories(ctx)
	if err != nil {
		return nil, err
	}

	input := fusion.Input{
		LLM:         u.llm,
		Memories:    memories,
		DetectFaces: u.detectFaces,
	}

	if input.Caption, err = u.repo.LoadIndex(ctx, repository.AxisCaption); err != nil {
		return nil, err
	}
	if input.Text, err = u.repo.LoadIndex(ctx, repository.AxisText); err != nil {
		return nil, err
	}
	if input.Objects, err = u.repo.LoadIndex(ctx, repository.AxisObjects); err != nil {
		return nil, err
	}
	if input.People, err = u.repo.LoadIndex(ctx, repository.AxisPeople); err != nil {
		return nil, err
	}
	if input.Activities, err = u.repo.LoadIndex(ctx, repository.AxisActivities); err != nil {
		return nil, err
	}
	if input.Location, err = u.repo.LoadIndex(ctx, repository.AxisLocation); err != nil {
		return nil, err
	}
	if input.Composite, err = u.repo.LoadIndex(ctx, repository.AxisComposite); err != nil {
		return nil, err
	}
	if input.Knowledge, err = u.repo.LoadIndex(ctx, repository.AxisKnowledge); err != nil {
		return nil, err
	}
	if input.RAG, err = u.repo.LoadIndex(ctx, repository.AxisRAG); err != nil {
		return nil, err
	}

	if input.Events, err = u.repo.LoadCompositeEvents(ctx); err != nil {
		return nil, err
	}
	if input.KnownFacts, err = u.repo.LoadKnowledge(ctx); err != nil {
		return nil, err
	}
	if input.Faces, err = u.repo.LoadFaceClusters(ctx); err != nil {
		return nil, err
	}

	return fusion.New(input), nil
}
