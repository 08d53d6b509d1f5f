package adapter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/model"
)

var (
	ErrMalformedOutput = goerr.New("malformed structured output")
)

// LLM is the combined embedding-provider and answer-generator interface.
// Embedding returns (nil, nil) when the provider has nothing for the input
// (empty text or an empty response); callers drop such observations.
type LLM interface {
	// Embedding returns a fixed-length vector for the text, or nil
	Embedding(ctx context.Context, text string) ([]float64, error)

	// Complete sends a system/user prompt pair. When structured is true the
	// provider is asked for a JSON-shaped response.
	Complete(ctx context.Context, system, user string, structured bool) (string, model.Usage, error)

	// Repair re-asks a cheaper variant of the same service to reformat
	// JSON-like text into valid JSON
	Repair(ctx context.Context, malformed string) (string, model.Usage, error)
}

// CompleteJSON runs a structured completion and unmarshals the result into
// out. Malformed output triggers exactly one repair round-trip before the
// parse is retried; a second failure surfaces as ErrMalformedOutput.
func CompleteJSON(ctx context.Context, llm LLM, system, user string, out any) (model.Usage, error) {
	text, usage, err := llm.Complete(ctx, system, user, true)
	if err != nil {
		return usage, err
	}

	if err := json.Unmarshal([]byte(stripFences(text)), out); err == nil {
		return usage, nil
	}

	repaired, repairUsage, err := llm.Repair(ctx, text)
	usage.Add(repairUsage)
	if err != nil {
		return usage, goerr.Wrap(err, "failed to repair structured output")
	}

	if err := json.Unmarshal([]byte(stripFences(repaired)), out); err != nil {
		return usage, goerr.Wrap(ErrMalformedOutput, "structured output unparsable after repair",
			goerr.Value("output", repaired))
	}
	return usage, nil
}

// stripFences removes a markdown code fence around a JSON body, a common
// decoration in model output.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
