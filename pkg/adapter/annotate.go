package adapter

import (
	"context"
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/model"
)

//go:embed prompt/annotate.md
var annotatePrompt string

// Annotator generates content descriptors (caption, objects, people,
// activities, visible text) for one media file.
type Annotator interface {
	Annotate(ctx context.Context, path string) (*model.RawContent, error)
}

// Metadata is the capture-time information of one media file
type Metadata struct {
	Temporal      model.TemporalInfo
	Location      *model.Location
	CaptureMethod string
}

// MetadataExtractor reads capture metadata from a media file. Full EXIF/GPS
// parsing is an external concern; implementations may approximate.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, path string) (*Metadata, error)
}

// FileMetadata extracts metadata from filesystem attributes. It is the
// fallback when no EXIF-capable extractor is configured: the file
// modification time stands in for the capture timestamp.
type FileMetadata struct{}

func (FileMetadata) ExtractMetadata(ctx context.Context, path string) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to stat media file", goerr.Value("path", path))
	}

	method := "photo"
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "mp4", "mov", "avi":
		method = "video"
	}

	return &Metadata{
		Temporal:      model.NewTemporalInfo(info.ModTime()),
		CaptureMethod: method,
	}, nil
}
