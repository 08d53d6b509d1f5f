package adapter

import (
	"context"

	"github.com/go-resty/resty/v2"
	"github.com/m-mizutani/goerr/v2"
)

// Face is one detected face crop with its embedding
type Face struct {
	ID        string    `json:"id"`
	Embedding []float64 `json:"embedding"`
}

// FaceDetector detects and embeds faces in a media file. Detection and
// alignment run in an external service.
type FaceDetector interface {
	DetectFaces(ctx context.Context, path string) ([]Face, error)
}

// HTTPFaceDetector calls a face detection endpoint that accepts an image
// upload and returns crops with embeddings.
type HTTPFaceDetector struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPFaceDetector(endpoint string) *HTTPFaceDetector {
	return &HTTPFaceDetector{
		client:   resty.New(),
		endpoint: endpoint,
	}
}

func (d *HTTPFaceDetector) DetectFaces(ctx context.Context, path string) ([]Face, error) {
	var result struct {
		Faces []Face `json:"faces"`
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetFile("image", path).
		SetResult(&result).
		Post(d.endpoint)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call face detection service", goerr.Value("path", path))
	}
	if resp.IsError() {
		return nil, goerr.New("face detection service returned error",
			goerr.Value("status", resp.StatusCode()), goerr.Value("path", path))
	}

	return result.Faces, nil
}
