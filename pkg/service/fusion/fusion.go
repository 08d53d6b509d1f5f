// Package fusion combines independent retrieval signals into a bounded,
// deterministic context for answer generation. Each signal produces a
// candidate memory-id set; the sets are unioned in a fixed order, then
// intersected with the strict date filter when one was supplied.
package fusion

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/cluster"
	"github.com/m-mizutani/memoir/pkg/service/vecindex"
	"github.com/m-mizutani/memoir/pkg/utils/logging"
)

var (
	ErrEmptyQueryEmbedding = goerr.New("query embedding is empty")
)

// Input wires an engine to an already-augmented store. All indices are
// optional except captions; a nil index simply contributes no candidates.
type Input struct {
	LLM         adapter.LLM
	Memories    []*model.Memory
	Caption     *vecindex.Index
	Text        *vecindex.Index
	Objects     *vecindex.Index
	People      *vecindex.Index
	Activities  *vecindex.Index
	Location    *vecindex.Index
	Composite   *vecindex.Index
	Knowledge   *vecindex.Index
	RAG         *vecindex.Index
	Events      []*model.CompositeEvent
	KnownFacts  []*model.Knowledge
	Faces       []*cluster.FaceCluster
	DetectFaces bool
}

// Options are the per-signal retrieval depths
type Options struct {
	TopK          int
	AtomicTopK    int
	LocationTopK  int
	CompositeTopK int
	KnowledgeTopK int
	TextTopK      int
}

// DefaultOptions returns the retrieval depths used when none are configured
func DefaultOptions() Options {
	return Options{
		TopK:          30,
		AtomicTopK:    5,
		LocationTopK:  5,
		CompositeTopK: 10,
		KnowledgeTopK: 10,
		TextTopK:      10,
	}
}

// Result is the outcome of one fused query
type Result struct {
	Answer   model.Answer
	Context  string
	Memories []*model.Memory
	Usage    model.Usage
}

// Engine evaluates queries against a loaded store. Queries only read, so a
// stable engine is safe to share across concurrent evaluations.
type Engine struct {
	llm         adapter.LLM
	ordered     []*model.Memory
	byID        map[model.MemoryID]*model.Memory
	caption     *vecindex.Index
	text        *vecindex.Index
	objects     *vecindex.Index
	people      *vecindex.Index
	activities  *vecindex.Index
	location    *vecindex.Index
	composite   *vecindex.Index
	knowledge   *vecindex.Index
	rag         *vecindex.Index
	events      map[string]*model.CompositeEvent
	facts       map[string]*model.Knowledge
	faces       []*cluster.FaceCluster
	detectFaces bool

	today func() string
}

func New(input Input) *Engine {
	byID := make(map[model.MemoryID]*model.Memory, len(input.Memories))
	for _, m := range input.Memories {
		byID[m.ID] = m
	}

	events := make(map[string]*model.CompositeEvent, len(input.Events))
	for _, e := range input.Events {
		events[e.ID] = e
	}

	facts := make(map[string]*model.Knowledge, len(input.KnownFacts))
	for _, k := range input.KnownFacts {
		facts[k.ID] = k
	}

	return &Engine{
		llm:         input.LLM,
		ordered:     input.Memories,
		byID:        byID,
		caption:     orEmpty(input.Caption),
		text:        orEmpty(input.Text),
		objects:     orEmpty(input.Objects),
		people:      orEmpty(input.People),
		activities:  orEmpty(input.Activities),
		location:    orEmpty(input.Location),
		composite:   orEmpty(input.Composite),
		knowledge:   orEmpty(input.Knowledge),
		rag:         orEmpty(input.RAG),
		events:      events,
		facts:       facts,
		faces:       input.Faces,
		detectFaces: input.DetectFaces,
	}
}

func orEmpty(x *vecindex.Index) *vecindex.Index {
	if x == nil {
		return vecindex.New()
	}
	return x
}

// Query runs the full multi-signal fusion pipeline and generates an answer
func (e *Engine) Query(ctx context.Context, query string, opts Options) (*Result, error) {
	logger := logging.From(ctx)
	var usage model.Usage

	// Step 1: decompose the query into structured retrieval signals
	augmented, augUsage, err := e.augmentQuery(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to augment query")
	}
	usage.Add(augUsage)
	logger.Debug("augmented query", "augmented", augmented)

	// Step 2: strict date hard filter. Recorded separately from the signal
	// union; a supplied range that matches nothing must produce an empty
	// final result, so presence of the range matters, not set size.
	hasDateRange := augmented.StartDate != "" && augmented.EndDate != ""
	var hardFilter []model.MemoryID
	if hasDateRange {
		hardFilter = e.filterDate(ctx, augmented.StartDate, augmented.EndDate)
	}

	candidates := newIDSet()

	// Step 3: composite events, with LLM relevance rerank
	acceptedEvents, compositeIDs, rerankUsage, err := e.filterComposite(ctx, augmented.ComplexContext, query, opts.CompositeTopK)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to filter composite events")
	}
	usage.Add(rerankUsage)
	candidates.add(compositeIDs...)

	// Step 4: atomic entity signals
	atomicIDs, err := e.filterAtomic(ctx, augmented, opts.AtomicTopK)
	if err != nil {
		return nil, err
	}
	candidates.add(atomicIDs...)

	// Step 5: location signal
	locationIDs, err := e.filterLocation(ctx, augmented.Location, opts.LocationTopK)
	if err != nil {
		return nil, err
	}
	candidates.add(locationIDs...)

	// Step 6: face tags, exact case-insensitive match
	if e.detectFaces {
		candidates.add(e.filterFaceTags(augmented.Tags)...)
	}

	// Step 7: captions, the densest signal, always runs on the raw query
	queryEmb, err := e.llm.Embedding(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}
	if len(queryEmb) == 0 {
		return nil, goerr.Wrap(ErrEmptyQueryEmbedding, "cannot search captions", goerr.Value("query", query))
	}
	for _, hit := range e.caption.Search(queryEmb, opts.TopK) {
		candidates.add(hit.Entry.MemoryIDs...)
	}

	// Step 8: free text and speech
	for _, hit := range e.text.Search(queryEmb, opts.TextTopK) {
		candidates.add(hit.Entry.MemoryIDs...)
	}

	// Step 9: apply the hard filter as an intersection
	finalIDs := candidates.values()
	if hasDateRange {
		finalIDs = intersect(finalIDs, hardFilter)
	}

	// Step 10: knowledge side channel, never unioned into the candidates
	knowledgeEntries := e.filterKnowledge(queryEmb, opts.KnowledgeTopK)

	// Step 11: materialize and order ascending by capture time
	memories := e.materialize(finalIDs)

	// Steps 12-13: assemble the context and generate the answer
	assembled := e.assembleContext(memories, acceptedEvents, knowledgeEntries)
	answer, answerUsage, err := e.generateAnswer(ctx, query, assembled)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate answer")
	}
	usage.Add(answerUsage)

	return &Result{
		Answer:   *answer,
		Context:  assembled,
		Memories: memories,
		Usage:    usage,
	}, nil
}
