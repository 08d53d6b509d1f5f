package adapter

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/go-resty/resty/v2"
	"github.com/m-mizutani/goerr/v2"
)

// Fetcher retrieves remote dataset objects by URL
type Fetcher interface {
	// Fetch opens the object behind the URL for reading
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
	// Supports reports whether this fetcher handles the URL scheme
	Supports(url string) bool
}

// httpFetcher retrieves objects over http(s)
type httpFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher creates a fetcher for http and https URLs
func NewHTTPFetcher() Fetcher {
	return &httpFetcher{
		client: resty.New(),
	}
}

func (f *httpFetcher) Supports(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch object", goerr.Value("url", url))
	}
	if resp.StatusCode() != 200 {
		resp.RawBody().Close()
		return nil, goerr.New("unexpected status fetching object",
			goerr.Value("url", url), goerr.Value("status", resp.StatusCode()))
	}
	return resp.RawBody(), nil
}

// gcsFetcher retrieves objects from Cloud Storage via gs:// URLs
type gcsFetcher struct {
	client *storage.Client
}

// NewGCSFetcher creates a fetcher for gs:// URLs
func NewGCSFetcher(ctx context.Context) (Fetcher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}
	return &gcsFetcher{client: client}, nil
}

func (f *gcsFetcher) Supports(url string) bool {
	return strings.HasPrefix(url, "gs://")
}

func (f *gcsFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	bucket, object, ok := strings.Cut(strings.TrimPrefix(url, "gs://"), "/")
	if !ok || object == "" {
		return nil, goerr.New("malformed gs:// URL", goerr.Value("url", url))
	}

	reader, err := f.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.Value("url", url))
	}
	return reader, nil
}
