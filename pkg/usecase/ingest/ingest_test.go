package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/repository"
	"github.com/m-mizutani/memoir/pkg/usecase/ingest"
)

// mockLLM embeds from a fixed vocabulary and answers the inference prompts
// with scripted JSON.
type mockLLM struct {
	vectors   map[string][]float64
	events    string
	knowledge string
}

func (m *mockLLM) Embedding(ctx context.Context, text string) ([]float64, error) {
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

func (m *mockLLM) Complete(ctx context.Context, system, user string, structured bool) (string, model.Usage, error) {
	usage := model.Usage{PromptTokens: 1, OutputTokens: 1}
	switch {
	case strings.Contains(system, "composite events"):
		return m.events, usage, nil
	case strings.Contains(system, "durable background facts"):
		return m.knowledge, usage, nil
	case strings.Contains(system, "chunk the text"):
		return `{"chunks": ["part one", "part two"]}`, usage, nil
	}
	return "", usage, errors.New("unexpected system prompt")
}

func (m *mockLLM) Repair(ctx context.Context, malformed string) (string, model.Usage, error) {
	return "", model.Usage{}, errors.New("repair not expected")
}

func newMockLLM() *mockLLM {
	return &mockLLM{
		events:    `{"events": []}`,
		knowledge: `{"facts": []}`,
	}
}

// mockAnnotator returns a canned annotation per file name
type mockAnnotator struct {
	contents map[string]*model.RawContent
	fail     map[string]bool
}

func (m *mockAnnotator) Annotate(ctx context.Context, path string) (*model.RawContent, error) {
	name := filepath.Base(path)
	if m.fail[name] {
		return nil, errors.New("vision service unavailable")
	}
	if c, ok := m.contents[name]; ok {
		return c, nil
	}
	return &model.RawContent{Caption: "caption of " + name}, nil
}

// mockDetector returns one face per image
type mockDetector struct {
	embeddings map[string][]float64
}

func (m *mockDetector) DetectFaces(ctx context.Context, path string) ([]adapter.Face, error) {
	name := filepath.Base(path)
	if emb, ok := m.embeddings[name]; ok {
		return []adapter.Face{{ID: "face-" + name, Embedding: emb}}, nil
	}
	return nil, nil
}

func writeSourceFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		gt.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("media"), 0644))
	}
}

func TestIngestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests and persists new media", func(t *testing.T) {
		source := t.TempDir()
		writeSourceFiles(t, source, "a.jpg", "b.jpg")

		repo := repository.New(t.TempDir())
		uc := ingest.New(repo, newMockLLM(), &mockAnnotator{})

		out, err := uc.Run(ctx, source, false)
		gt.NoError(t, err)
		gt.V(t, out.Ingested).Equal(2)
		gt.V(t, out.Failed).Equal(0)

		memories, err := repo.LoadMemories(ctx)
		gt.NoError(t, err)
		gt.A(t, memories).Length(2)

		captions, err := repo.LoadIndex(ctx, repository.AxisCaption)
		gt.NoError(t, err)
		gt.V(t, captions.Len()).Equal(2)

		rag, err := repo.LoadIndex(ctx, repository.AxisRAG)
		gt.NoError(t, err)
		gt.V(t, rag.Len()).Equal(2)
	})

	t.Run("second run with force skips known media", func(t *testing.T) {
		source := t.TempDir()
		writeSourceFiles(t, source, "a.jpg")

		repo := repository.New(t.TempDir())
		uc := ingest.New(repo, newMockLLM(), &mockAnnotator{})

		_, err := uc.Run(ctx, source, false)
		gt.NoError(t, err)

		out, err := uc.Run(ctx, source, true)
		gt.NoError(t, err)
		gt.V(t, out.Ingested).Equal(0)
		gt.V(t, out.Skipped).Equal(1)
	})

	t.Run("fresh store short-circuits without force", func(t *testing.T) {
		source := t.TempDir()
		writeSourceFiles(t, source, "a.jpg")

		repo := repository.New(t.TempDir())
		uc := ingest.New(repo, newMockLLM(), &mockAnnotator{})

		_, err := uc.Run(ctx, source, false)
		gt.NoError(t, err)

		out, err := uc.Run(ctx, source, false)
		gt.NoError(t, err)
		gt.V(t, out.Ingested).Equal(0)
		gt.V(t, out.Skipped).Equal(0)
	})

	t.Run("annotation failure skips the item only", func(t *testing.T) {
		source := t.TempDir()
		writeSourceFiles(t, source, "a.jpg", "broken.jpg")

		repo := repository.New(t.TempDir())
		annotator := &mockAnnotator{fail: map[string]bool{"broken.jpg": true}}
		uc := ingest.New(repo, newMockLLM(), annotator)

		out, err := uc.Run(ctx, source, false)
		gt.NoError(t, err)
		gt.V(t, out.Ingested).Equal(1)
		gt.V(t, out.Failed).Equal(1)
	})

	t.Run("live photo video sibling is skipped", func(t *testing.T) {
		source := t.TempDir()
		writeSourceFiles(t, source, "a.jpg", "a.mp4", "b.mp4")

		repo := repository.New(t.TempDir())
		uc := ingest.New(repo, newMockLLM(), &mockAnnotator{})

		out, err := uc.Run(ctx, source, false)
		gt.NoError(t, err)
		gt.V(t, out.Ingested).Equal(2)

		memories, err := repo.LoadMemories(ctx)
		gt.NoError(t, err)
		found := false
		for _, m := range memories {
			gt.V(t, m.ID).NotEqual(model.MemoryID("a.mp4"))
			if m.ID == "b.mp4" {
				found = true
			}
		}
		gt.True(t, found)
	})

	t.Run("annotation descriptors feed the cluster stores", func(t *testing.T) {
		source := t.TempDir()
		writeSourceFiles(t, source, "a.jpg")

		repo := repository.New(t.TempDir())
		annotator := &mockAnnotator{contents: map[string]*model.RawContent{
			"a.jpg": {
				Caption: "breakfast on the balcony",
				Objects: []any{"croissant", "coffee"},
			},
		}}
		uc := ingest.New(repo, newMockLLM(), annotator)

		_, err := uc.Run(ctx, source, false)
		gt.NoError(t, err)

		objects, err := repo.LoadIndex(ctx, repository.AxisObjects)
		gt.NoError(t, err)
		gt.V(t, objects.Len()).Equal(2)
		gt.V(t, objects.Entry(0).Payload).Equal("croissant")
	})

	t.Run("inferred events and knowledge are stored", func(t *testing.T) {
		source := t.TempDir()
		writeSourceFiles(t, source, "a.jpg")

		repo := repository.New(t.TempDir())
		llm := newMockLLM()
		llm.events = `{"events": [{"event_name": "Morning routine", "description": "Breakfast at home.", "start_date": "", "end_date": "", "memory_ids": ["a.jpg"]}]}`
		llm.knowledge = `{"facts": [{"knowledge": "The owner eats breakfast on the balcony.", "memory_ids": ["a.jpg"]}]}`
		uc := ingest.New(repo, llm, &mockAnnotator{})

		_, err := uc.Run(ctx, source, false)
		gt.NoError(t, err)

		events, err := repo.LoadCompositeEvents(ctx)
		gt.NoError(t, err)
		gt.A(t, events).Length(1)
		gt.V(t, events[0].EventName).Equal("Morning routine")
		gt.True(t, events[0].ID != "")

		facts, err := repo.LoadKnowledge(ctx)
		gt.NoError(t, err)
		gt.A(t, facts).Length(1)

		composite, err := repo.LoadIndex(ctx, repository.AxisComposite)
		gt.NoError(t, err)
		gt.V(t, composite.Len()).Equal(1)
		gt.V(t, composite.Entry(0).Payload).Equal(events[0].ID)
	})

	t.Run("detected faces become tags and clusters", func(t *testing.T) {
		source := t.TempDir()
		writeSourceFiles(t, source, "a.jpg", "b.jpg")

		repo := repository.New(t.TempDir())
		detector := &mockDetector{embeddings: map[string][]float64{
			"a.jpg": {1, 0, 0},
			"b.jpg": {0.95, 0.05, 0},
		}}
		uc := ingest.New(repo, newMockLLM(), &mockAnnotator{}, ingest.WithFaceDetector(detector))

		_, err := uc.Run(ctx, source, false)
		gt.NoError(t, err)

		clusters, err := repo.LoadFaceClusters(ctx)
		gt.NoError(t, err)
		gt.A(t, clusters).Length(1)
		gt.V(t, clusters[0].Name).Equal("Person_0")
		gt.A(t, clusters[0].MemoryIDs).Length(2)

		memories, err := repo.LoadMemories(ctx)
		gt.NoError(t, err)
		for _, m := range memories {
			gt.A(t, m.Content.FaceTags).Equal([]string{"Person_0"})
		}
	})
}
