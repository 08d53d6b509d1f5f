package adapter

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/model"
	"google.golang.org/genai"
)

// GeminiClient implements LLM on Vertex AI Gemini
type GeminiClient struct {
	client          *genai.Client
	generativeModel string
	repairModel     string
	embeddingModel  string
	sleep           sleepFn
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

func WithRepairModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.repairModel = model
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		generativeModel: "gemini-2.5-flash",
		repairModel:     "gemini-2.5-flash-lite",
		embeddingModel:  "gemini-embedding-001",
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// isGeminiTransient reports whether the error is a retryable service
// condition (rate limit or overload)
func isGeminiTransient(err error) bool {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 429 || apiErr.Code == 503
}

func (g *GeminiClient) Embedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, nil
	}

	var resp *genai.EmbedContentResponse
	err := retryTransient(ctx, g.sleep, isGeminiTransient, func() error {
		var err error
		resp, err = g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{})
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content")
	}

	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, nil
	}

	values := resp.Embeddings[0].Values
	vector := make([]float64, len(values))
	for i, v := range values {
		vector[i] = float64(v)
	}
	return vector, nil
}

func (g *GeminiClient) Complete(ctx context.Context, system, user string, structured bool) (string, model.Usage, error) {
	return g.generate(ctx, g.generativeModel, system, user, structured)
}

func (g *GeminiClient) Repair(ctx context.Context, malformed string) (string, model.Usage, error) {
	return g.generate(ctx, g.repairModel,
		"Reformat the JSON-like text into a correct JSON format. Output the json object.",
		malformed, true)
}

func (g *GeminiClient) generate(ctx context.Context, modelName, system, user string, structured bool) (string, model.Usage, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, ""),
	}
	if structured {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{genai.NewContentFromText(user, genai.RoleUser)}

	var resp *genai.GenerateContentResponse
	err := retryTransient(ctx, g.sleep, isGeminiTransient, func() error {
		var err error
		resp, err = g.client.Models.GenerateContent(ctx, modelName, contents, config)
		return err
	})
	if err != nil {
		return "", model.Usage{}, goerr.Wrap(err, "failed to generate content")
	}

	var usage model.Usage
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", usage, goerr.New("invalid response structure from gemini")
	}

	return resp.Candidates[0].Content.Parts[0].Text, usage, nil
}
