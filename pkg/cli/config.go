package cli

import (
	"context"
	"errors"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/repository"
	"github.com/m-mizutani/memoir/pkg/service/fusion"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	// Repository
	collection string

	// Adapters
	provider       string
	openaiAPIKey   string
	geminiProject  string
	geminiLocation string
	faceEndpoint   string

	// Retrieval tuning
	configFile string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "collection",
			Aliases:     []string{"c"},
			Usage:       "Collection store directory",
			Value:       "memoir_store",
			Sources:     cli.EnvVars("MEMOIR_COLLECTION"),
			Destination: &cfg.collection,
		},
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to retrieval tuning file (YAML)",
			Value:       "memoir.yml",
			Sources:     cli.EnvVars("MEMOIR_CONFIG"),
			Destination: &cfg.configFile,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "LLM provider (gemini or openai)",
			Value:       "gemini",
			Sources:     cli.EnvVars("MEMOIR_PROVIDER"),
			Destination: &cfg.provider,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
	}
}

// faceFlags returns flags for the optional face identity pipeline
func faceFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "face-endpoint",
			Usage:       "Face detection service endpoint (empty disables the face pipeline)",
			Sources:     cli.EnvVars("MEMOIR_FACE_ENDPOINT"),
			Destination: &cfg.faceEndpoint,
		},
	}
}

// newRepository creates a new repository instance
func (cfg *config) newRepository() (repository.Repository, error) {
	if cfg.collection == "" {
		return nil, goerr.New("collection is required")
	}
	return repository.New(cfg.collection), nil
}

// provider clients implement both text completion and vision annotation
type providerClient interface {
	adapter.LLM
	adapter.Annotator
}

// newLLM creates the configured provider client
func (cfg *config) newLLM(ctx context.Context) (providerClient, error) {
	switch cfg.provider {
	case "gemini":
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project is required")
		}
		if cfg.geminiLocation == "" {
			return nil, goerr.New("gemini-location is required")
		}
		client, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create gemini client")
		}
		return client, nil

	case "openai":
		if cfg.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		return adapter.NewOpenAI(cfg.openaiAPIKey), nil

	default:
		return nil, goerr.New("unknown provider", goerr.Value("provider", cfg.provider))
	}
}

// newFaceDetector creates the face detector when an endpoint is configured
func (cfg *config) newFaceDetector() adapter.FaceDetector {
	if cfg.faceEndpoint == "" {
		return nil
	}
	return adapter.NewHTTPFaceDetector(cfg.faceEndpoint)
}

// tuningFile is the optional YAML file overriding retrieval depths
type tuningFile struct {
	TopK          *int `yaml:"topk"`
	AtomicTopK    *int `yaml:"atomic_topk"`
	LocationTopK  *int `yaml:"location_topk"`
	CompositeTopK *int `yaml:"composite_topk"`
	KnowledgeTopK *int `yaml:"knowledge_topk"`
	TextTopK      *int `yaml:"text_topk"`
}

// loadOptions merges the tuning file over the default retrieval depths. A
// missing file means defaults; a malformed file is an error.
func (cfg *config) loadOptions() (fusion.Options, error) {
	opts := fusion.DefaultOptions()

	raw, err := os.ReadFile(cfg.configFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return opts, nil
		}
		return opts, goerr.Wrap(err, "failed to read tuning file", goerr.Value("path", cfg.configFile))
	}

	var tuning tuningFile
	if err := yaml.Unmarshal(raw, &tuning); err != nil {
		return opts, goerr.Wrap(err, "failed to parse tuning file", goerr.Value("path", cfg.configFile))
	}

	for _, x := range []struct {
		src *int
		dst *int
	}{
		{tuning.TopK, &opts.TopK},
		{tuning.AtomicTopK, &opts.AtomicTopK},
		{tuning.LocationTopK, &opts.LocationTopK},
		{tuning.CompositeTopK, &opts.CompositeTopK},
		{tuning.KnowledgeTopK, &opts.KnowledgeTopK},
		{tuning.TextTopK, &opts.TextTopK},
	} {
		if x.src != nil && *x.src > 0 {
			*x.dst = *x.src
		}
	}

	return opts, nil
}
