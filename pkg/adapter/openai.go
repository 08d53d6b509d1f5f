package adapter

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/model"
	openai "github.com/sashabaranov/go-openai"
)

// per-token USD rates used for the running cost counter
var openAIRates = map[string]float64{
	openai.GPT4o:     0.000005,
	openai.GPT4oMini: 0.00000015,
}

// OpenAIClient implements LLM on the OpenAI API
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	repairModel    string
	embeddingModel openai.EmbeddingModel
	sleep          sleepFn
}

type OpenAIOption func(*OpenAIClient)

func WithChatModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.chatModel = model
	}
}

func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		client:         openai.NewClient(apiKey),
		chatModel:      openai.GPT4o,
		repairModel:    openai.GPT4oMini,
		embeddingModel: openai.SmallEmbedding3,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// isOpenAITransient reports whether the error is a retryable service
// condition (rate limit or overload)
func isOpenAITransient(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.HTTPStatusCode {
	case 429, 500, 502, 503:
		return true
	}
	return false
}

func (c *OpenAIClient) Embedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, nil
	}

	var resp openai.EmbeddingResponse
	err := retryTransient(ctx, c.sleep, isOpenAITransient, func() error {
		var err error
		resp, err = c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: c.embeddingModel,
		})
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embeddings")
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, nil
	}

	values := resp.Data[0].Embedding
	vector := make([]float64, len(values))
	for i, v := range values {
		vector[i] = float64(v)
	}
	return vector, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, system, user string, structured bool) (string, model.Usage, error) {
	return c.chat(ctx, c.chatModel, system, user, structured)
}

func (c *OpenAIClient) Repair(ctx context.Context, malformed string) (string, model.Usage, error) {
	return c.chat(ctx, c.repairModel,
		"Reformat the JSON-like text into a correct JSON format. Output the json object.",
		malformed, true)
}

func (c *OpenAIClient) chat(ctx context.Context, chatModel, system, user string, structured bool) (string, model.Usage, error) {
	req := openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens: 4096,
	}
	if structured {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var resp openai.ChatCompletionResponse
	err := retryTransient(ctx, c.sleep, isOpenAITransient, func() error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return "", model.Usage{}, goerr.Wrap(err, "failed to create chat completion")
	}

	rate, ok := openAIRates[chatModel]
	if !ok {
		rate = openAIRates[openai.GPT4o]
	}
	usage := model.Usage{
		PromptTokens: resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Cost:         float64(resp.Usage.PromptTokens)*rate + float64(resp.Usage.CompletionTokens)*rate*3,
	}

	if len(resp.Choices) == 0 {
		return "", usage, goerr.New("empty response from openai")
	}

	return resp.Choices[0].Message.Content, usage, nil
}
