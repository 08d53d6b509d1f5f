package ingest

import (
	"context"
	_ "embed"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/render"
)

//go:embed prompt/composite.md
var compositePrompt string

//go:embed prompt/knowledge.md
var knowledgePrompt string

// memories per inference window
const inferWindowSize = 10

// inferContext slides a window over the newly added memories (already in
// capture order) and asks the LLM for composite events and background
// knowledge, indexing each result for retrieval.
func (u *UseCase) inferContext(ctx context.Context, st *stores, added []*model.Memory, usage *model.Usage) error {
	for start := 0; start < len(added); start += inferWindowSize {
		end := min(start+inferWindowSize, len(added))

		var b strings.Builder
		for _, m := range added[start:end] {
			b.WriteString(render.Memory(m, false))
		}
		window := b.String()

		if err := u.inferEvents(ctx, st, window, usage); err != nil {
			return err
		}
		if err := u.inferKnowledge(ctx, st, window, usage); err != nil {
			return err
		}
	}
	return nil
}

func (u *UseCase) inferEvents(ctx context.Context, st *stores, window string, usage *model.Usage) error {
	var result struct {
		Events []struct {
			EventName   string           `json:"event_name"`
			Description string           `json:"description"`
			StartDate   string           `json:"start_date"`
			EndDate     string           `json:"end_date"`
			MemoryIDs   []model.MemoryID `json:"memory_ids"`
		} `json:"events"`
	}

	callUsage, err := adapter.CompleteJSON(ctx, u.llm, compositePrompt, window, &result)
	usage.Add(callUsage)
	if err != nil {
		return goerr.Wrap(err, "failed to infer composite events")
	}

	for _, e := range result.Events {
		if e.EventName == "" || len(e.MemoryIDs) == 0 {
			continue
		}

		event := &model.CompositeEvent{
			ID:          uuid.New().String(),
			EventName:   e.EventName,
			Description: e.Description,
			StartDate:   e.StartDate,
			EndDate:     e.EndDate,
			MemoryIDs:   e.MemoryIDs,
		}

		emb, err := u.llm.Embedding(ctx, event.EventName+": "+event.Description)
		if err != nil {
			return goerr.Wrap(err, "failed to embed composite event")
		}
		if len(emb) == 0 {
			continue
		}

		if err := st.composite.Add(emb, event.ID, event.MemoryIDs...); err != nil {
			return err
		}
		st.events = append(st.events, event)
	}
	return nil
}

func (u *UseCase) inferKnowledge(ctx context.Context, st *stores, window string, usage *model.Usage) error {
	var result struct {
		Facts []struct {
			Knowledge string           `json:"knowledge"`
			MemoryIDs []model.MemoryID `json:"memory_ids"`
		} `json:"facts"`
	}

	callUsage, err := adapter.CompleteJSON(ctx, u.llm, knowledgePrompt, window, &result)
	usage.Add(callUsage)
	if err != nil {
		return goerr.Wrap(err, "failed to infer knowledge")
	}

	for _, f := range result.Facts {
		if f.Knowledge == "" {
			continue
		}

		k := &model.Knowledge{
			ID:        uuid.New().String(),
			Fact:      f.Knowledge,
			MemoryIDs: f.MemoryIDs,
		}

		emb, err := u.llm.Embedding(ctx, k.Fact)
		if err != nil {
			return goerr.Wrap(err, "failed to embed knowledge")
		}
		if len(emb) == 0 {
			continue
		}

		if err := st.knowledge.Add(emb, k.ID, k.MemoryIDs...); err != nil {
			return err
		}
		st.facts = append(st.facts, k)
	}
	return nil
}
