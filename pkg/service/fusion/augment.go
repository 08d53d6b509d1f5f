package fusion

import (
	"bytes"
	"context"
	_ "embed"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/model"
)

//go:embed prompt/augment.md
var augmentPromptRaw string

var augmentPromptTmpl = template.Must(template.New("augment").Parse(augmentPromptRaw))

// augmentQuery asks the LLM to decompose the query into structured retrieval
// signals. Today's date is injected so relative phrases like "last weekend"
// resolve to concrete calendar dates.
func (e *Engine) augmentQuery(ctx context.Context, query string) (*model.AugmentedQuery, model.Usage, error) {
	today := time.Now().Format(queryDateFormat)
	if e.today != nil {
		today = e.today()
	}

	var buf bytes.Buffer
	if err := augmentPromptTmpl.Execute(&buf, map[string]any{
		"Today":       today,
		"DetectFaces": e.detectFaces,
	}); err != nil {
		return nil, model.Usage{}, goerr.Wrap(err, "failed to execute augment prompt template")
	}

	var result struct {
		AugmentedQuery model.AugmentedQuery `json:"augmented_query"`
	}
	usage, err := adapter.CompleteJSON(ctx, e.llm, buf.String(), query, &result)
	if err != nil {
		return nil, usage, err
	}

	return &result.AugmentedQuery, usage, nil
}
