package ingest

import (
	"context"
	_ "embed"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/service/render"
	"github.com/m-mizutani/memoir/pkg/service/vecindex"
	"github.com/m-mizutani/memoir/pkg/utils/logging"
)

//go:embed prompt/chunk.md
var chunkPrompt string

// texts longer than this are chunked before embedding to stay under the
// embedding model's token limit
const maxEmbedChars = 8000

// augmentMemory feeds one new memory into every index and cluster store.
// Observations without an embedding are dropped silently; provider failures
// abort the run.
func (u *UseCase) augmentMemory(ctx context.Context, st *stores, m *model.Memory) error {
	if err := u.addToIndex(ctx, st.caption, m.Content.Caption, m.ID); err != nil {
		return err
	}

	if err := u.addText(ctx, st, m); err != nil {
		return err
	}
	if err := u.addToIndex(ctx, st.text, m.Content.Speech, m.ID); err != nil {
		return err
	}

	rendered := render.Memory(m, false)
	if err := u.addToIndex(ctx, st.rag, rendered, m.ID); err != nil {
		return err
	}

	if m.Location != nil && m.Location.Address != "" {
		if err := u.observe(ctx, st.location, m.Location.Address, m.ID); err != nil {
			return err
		}
	}

	for _, pair := range []struct {
		store  observer
		labels []string
	}{
		{st.objects, m.Content.Objects},
		{st.people, m.Content.People},
		{st.activities, m.Content.Activities},
	} {
		for _, label := range pair.labels {
			if err := u.observe(ctx, pair.store, label, m.ID); err != nil {
				return err
			}
		}
	}

	return u.tagFaces(ctx, st, m)
}

type observer interface {
	Observe(ctx context.Context, embedding []float64, label string, memoryID model.MemoryID)
}

// addToIndex embeds the text and appends an index entry; empty text or a
// missing embedding contributes nothing.
func (u *UseCase) addToIndex(ctx context.Context, index *vecindex.Index, text string, id model.MemoryID) error {
	if text == "" {
		return nil
	}
	emb, err := u.llm.Embedding(ctx, text)
	if err != nil {
		return goerr.Wrap(err, "failed to embed text")
	}
	if len(emb) == 0 {
		logging.From(ctx).Debug("no embedding for text, skipping", "memory_id", id)
		return nil
	}
	return index.Add(emb, text, id)
}

func (u *UseCase) observe(ctx context.Context, store observer, label string, id model.MemoryID) error {
	emb, err := u.llm.Embedding(ctx, label)
	if err != nil {
		return goerr.Wrap(err, "failed to embed label", goerr.Value("label", label))
	}
	store.Observe(ctx, emb, label, id)
	return nil
}

// addText indexes OCR text, chunking it through the LLM first when it is too
// long to embed whole.
func (u *UseCase) addText(ctx context.Context, st *stores, m *model.Memory) error {
	text := m.Content.Text
	if text == "" {
		return nil
	}

	if len(text) <= maxEmbedChars {
		return u.addToIndex(ctx, st.text, text, m.ID)
	}

	var result struct {
		Chunks []string `json:"chunks"`
	}
	if _, err := adapter.CompleteJSON(ctx, u.llm, chunkPrompt, text, &result); err != nil {
		return goerr.Wrap(err, "failed to chunk long text", goerr.Value("memory_id", m.ID))
	}

	for _, chunk := range result.Chunks {
		if err := u.addToIndex(ctx, st.text, chunk, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// tagFaces runs the face pipeline when a detector is configured: each
// detected face joins an identity cluster, and the cluster name becomes a
// face tag on the memory.
func (u *UseCase) tagFaces(ctx context.Context, st *stores, m *model.Memory) error {
	if u.faces == nil || m.MediaType != model.MediaTypeImage {
		return nil
	}

	detected, err := u.faces.DetectFaces(ctx, m.FilePath)
	if err != nil {
		logging.From(ctx).Warn("face detection failed, skipping", "memory_id", m.ID, "error", err)
		return nil
	}

	for _, face := range detected {
		if c := st.faces.Observe(ctx, face.Embedding, face.ID, m.ID); c != nil {
			m.AddFaceTag(c.Name)
		}
	}
	return nil
}
