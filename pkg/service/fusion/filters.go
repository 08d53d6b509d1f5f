package fusion

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/vecindex"
	"github.com/m-mizutani/memoir/pkg/utils/logging"
)

// queryDateFormat is the calendar-date form produced by query augmentation
const queryDateFormat = "2006-01-02"

// idSet is an insertion-ordered set of memory ids, so candidate unions stay
// deterministic across runs.
type idSet struct {
	seen  map[model.MemoryID]struct{}
	order []model.MemoryID
}

func newIDSet() *idSet {
	return &idSet{seen: map[model.MemoryID]struct{}{}}
}

func (s *idSet) add(ids ...model.MemoryID) {
	for _, id := range ids {
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.order = append(s.order, id)
	}
}

func (s *idSet) values() []model.MemoryID {
	return s.order
}

func intersect(ids, allowed []model.MemoryID) []model.MemoryID {
	allowedSet := make(map[model.MemoryID]struct{}, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = struct{}{}
	}
	out := make([]model.MemoryID, 0, len(ids))
	for _, id := range ids {
		if _, ok := allowedSet[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// filterDate returns ids of memories whose capture date falls within the
// closed [startDate, endDate] interval at calendar-date granularity.
// Unparsable bounds disable the filter; memories with unparsable timestamps
// are skipped.
func (e *Engine) filterDate(ctx context.Context, startDate, endDate string) []model.MemoryID {
	if startDate == "" || endDate == "" {
		return nil
	}

	start, err := time.Parse(queryDateFormat, startDate)
	if err != nil {
		logging.From(ctx).Warn("unparsable start date, skipping date filter", "start_date", startDate)
		return nil
	}
	end, err := time.Parse(queryDateFormat, endDate)
	if err != nil {
		logging.From(ctx).Warn("unparsable end date, skipping date filter", "end_date", endDate)
		return nil
	}

	var ids []model.MemoryID
	for _, m := range e.ordered {
		ts, err := m.Temporal.CaptureTime()
		if err != nil {
			continue
		}
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		if !day.Before(start) && !day.After(end) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// filterComposite retrieves nearby composite events, asks the LLM which are
// actually relevant, and unions their members. An accepted event carrying
// its own date range additionally contributes every memory in that range.
func (e *Engine) filterComposite(ctx context.Context, complexContext, query string, topk int) ([]*model.CompositeEvent, []model.MemoryID, model.Usage, error) {
	var usage model.Usage

	searchText := complexContext
	if searchText == "" {
		searchText = query
	}

	emb, err := e.llm.Embedding(ctx, searchText)
	if err != nil {
		return nil, nil, usage, goerr.Wrap(err, "failed to embed composite context")
	}

	hits := e.composite.Search(emb, topk)
	if len(hits) == 0 {
		return nil, nil, usage, nil
	}

	retrieved := make([]*model.CompositeEvent, 0, len(hits))
	for _, hit := range hits {
		if event, ok := e.events[hit.Entry.Payload]; ok {
			retrieved = append(retrieved, event)
		}
	}

	accepted, rerankUsage, err := e.rerankEvents(ctx, query, retrieved)
	usage.Add(rerankUsage)
	if err != nil {
		return nil, nil, usage, err
	}

	set := newIDSet()
	for _, event := range accepted {
		set.add(event.MemoryIDs...)
		if event.StartDate != "" && event.EndDate != "" {
			set.add(e.filterDate(ctx, event.StartDate, event.EndDate)...)
		}
	}
	return accepted, set.values(), usage, nil
}

// filterAtomic unions the members of the nearest clusters for each populated
// atomic field
func (e *Engine) filterAtomic(ctx context.Context, q *model.AugmentedQuery, topk int) ([]model.MemoryID, error) {
	set := newIDSet()

	for _, f := range []struct {
		text string
		idx  *vecindex.Index
	}{
		{q.Objects, e.objects},
		{q.People, e.people},
		{q.Activities, e.activities},
	} {
		if f.text == "" {
			continue
		}
		emb, err := e.llm.Embedding(ctx, f.text)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed atomic field", goerr.Value("text", f.text))
		}
		for _, hit := range f.idx.Search(emb, topk) {
			set.add(hit.Entry.MemoryIDs...)
		}
	}
	return set.values(), nil
}

func (e *Engine) filterLocation(ctx context.Context, location string, topk int) ([]model.MemoryID, error) {
	if location == "" || e.location.Len() == 0 {
		return nil, nil
	}

	emb, err := e.llm.Embedding(ctx, location)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed location", goerr.Value("location", location))
	}

	set := newIDSet()
	for _, hit := range e.location.Search(emb, topk) {
		set.add(hit.Entry.MemoryIDs...)
	}
	return set.values(), nil
}

// filterFaceTags matches named people against face cluster labels by exact
// case-insensitive comparison, not similarity.
func (e *Engine) filterFaceTags(tags []string) []model.MemoryID {
	set := newIDSet()
	for _, tag := range tags {
		for _, c := range e.faces {
			if strings.EqualFold(tag, c.Name) {
				set.add(c.MemoryIDs...)
			}
		}
	}
	return set.values()
}

func (e *Engine) filterKnowledge(queryEmb []float64, topk int) []*model.Knowledge {
	var entries []*model.Knowledge
	for _, hit := range e.knowledge.Search(queryEmb, topk) {
		if k, ok := e.facts[hit.Entry.Payload]; ok {
			entries = append(entries, k)
		}
	}
	return entries
}

// materialize resolves ids to memory records, silently dropping unknown ids,
// and sorts ascending by capture timestamp.
func (e *Engine) materialize(ids []model.MemoryID) []*model.Memory {
	memories := make([]*model.Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := e.byID[id]; ok {
			memories = append(memories, m)
		}
	}
	sort.SliceStable(memories, func(a, b int) bool {
		return memories[a].Temporal.DateString < memories[b].Temporal.DateString
	})
	return memories
}
