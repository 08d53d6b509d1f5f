package adapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/model"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

func readImage(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", goerr.Wrap(err, "failed to read media file", goerr.Value("path", path))
	}

	mimeType := "image/jpeg"
	if strings.EqualFold(filepath.Ext(path), ".png") {
		mimeType = "image/png"
	}
	return data, mimeType, nil
}

// Annotate implements Annotator on the Gemini vision endpoint
func (g *GeminiClient) Annotate(ctx context.Context, path string) (*model.RawContent, error) {
	data, mimeType, err := readImage(path)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(annotatePrompt, ""),
		ResponseMIMEType:  "application/json",
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
		}, genai.RoleUser),
	}

	var resp *genai.GenerateContentResponse
	err = retryTransient(ctx, g.sleep, isGeminiTransient, func() error {
		var err error
		resp, err = g.client.Models.GenerateContent(ctx, g.generativeModel, contents, config)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to annotate media")
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, goerr.New("invalid annotation response from gemini")
	}

	var raw model.RawContent
	text := resp.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to parse annotation", goerr.Value("output", text))
	}
	return &raw, nil
}

// Annotate implements Annotator on the OpenAI vision endpoint
func (c *OpenAIClient) Annotate(ctx context.Context, path string) (*model.RawContent, error) {
	data, mimeType, err := readImage(path)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: annotatePrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		MaxTokens: 4096,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var resp openai.ChatCompletionResponse
	err = retryTransient(ctx, c.sleep, isOpenAITransient, func() error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, req)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to annotate media")
	}

	if len(resp.Choices) == 0 {
		return nil, goerr.New("empty annotation response from openai")
	}

	var raw model.RawContent
	text := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to parse annotation", goerr.Value("output", text))
	}
	return &raw, nil
}
