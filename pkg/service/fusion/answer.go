package fusion

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/render"
)

//go:embed prompt/rerank.md
var rerankPromptRaw string

//go:embed prompt/answer.md
var answerPromptRaw string

//go:embed prompt/rag.md
var ragPromptRaw string

var answerPromptTmpl = template.Must(template.New("answer").Parse(answerPromptRaw))

// rerankEvents asks the LLM which retrieved composite events are actually
// relevant to the query. Events are matched back by name; unnamed or unknown
// selections are ignored.
func (e *Engine) rerankEvents(ctx context.Context, query string, retrieved []*model.CompositeEvent) ([]*model.CompositeEvent, model.Usage, error) {
	if len(retrieved) == 0 {
		return nil, model.Usage{}, nil
	}

	var buf bytes.Buffer
	buf.WriteString("Query: " + query + "\n\nRetrieved events:\n")
	for _, event := range retrieved {
		buf.WriteString(render.CompositeEvent(event))
	}

	var result struct {
		CompositeContext []struct {
			EventName string `json:"event_name"`
		} `json:"composite_context"`
	}
	usage, err := adapter.CompleteJSON(ctx, e.llm, rerankPromptRaw, buf.String(), &result)
	if err != nil {
		return nil, usage, goerr.Wrap(err, "failed to rerank composite events")
	}

	var accepted []*model.CompositeEvent
	for _, selected := range result.CompositeContext {
		for _, event := range retrieved {
			if event.EventName == selected.EventName {
				accepted = append(accepted, event)
			}
		}
	}
	return accepted, usage, nil
}

// assembleContext renders the evidence into three labeled sections
func (e *Engine) assembleContext(memories []*model.Memory, events []*model.CompositeEvent, knowledge []*model.Knowledge) string {
	var b strings.Builder

	b.WriteString("Memories:\n")
	for _, m := range memories {
		b.WriteString(render.Memory(m, e.detectFaces))
	}

	b.WriteString("Composite Context:\n")
	for _, event := range events {
		b.WriteString(render.CompositeEvent(event))
	}

	b.WriteString("Knowledge:\n")
	for _, k := range knowledge {
		b.WriteString(render.Knowledge(k))
	}

	return b.String()
}

// generateAnswer hands the assembled context and the raw query to the answer
// generator
func (e *Engine) generateAnswer(ctx context.Context, query, evidence string) (*model.Answer, model.Usage, error) {
	var buf bytes.Buffer
	if err := answerPromptTmpl.Execute(&buf, map[string]any{
		"DetectFaces": e.detectFaces,
	}); err != nil {
		return nil, model.Usage{}, goerr.Wrap(err, "failed to execute answer prompt template")
	}

	payload := evidence + "\nQuestion: " + query + "\n"

	var answer model.Answer
	usage, err := adapter.CompleteJSON(ctx, e.llm, buf.String(), payload, &answer)
	if err != nil {
		return nil, usage, err
	}
	return &answer, usage, nil
}

// QueryRAG is the baseline mode: a single similarity search over the
// whole-memory index, handing the top-k raw memory texts directly to the
// answer generator.
func (e *Engine) QueryRAG(ctx context.Context, query string, topk int) (*Result, error) {
	queryEmb, err := e.llm.Embedding(ctx, query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}
	if len(queryEmb) == 0 {
		return nil, goerr.Wrap(ErrEmptyQueryEmbedding, "cannot search memories", goerr.Value("query", query))
	}

	var b strings.Builder
	set := newIDSet()
	for _, hit := range e.rag.Search(queryEmb, topk) {
		set.add(hit.Entry.MemoryIDs...)
		for _, id := range hit.Entry.MemoryIDs {
			b.WriteString("memory_id: " + string(id) + " ")
		}
		b.WriteString("memory: " + hit.Entry.Payload + "\n")
	}

	payload := b.String() + "\nQuestion: " + query + "\n"

	var answer model.Answer
	usage, err := adapter.CompleteJSON(ctx, e.llm, ragPromptRaw, payload, &answer)
	if err != nil {
		return nil, err
	}

	return &Result{
		Answer:   answer,
		Context:  b.String(),
		Memories: e.materialize(set.values()),
		Usage:    usage,
	}, nil
}
