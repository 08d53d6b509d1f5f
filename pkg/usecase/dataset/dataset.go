// Package dataset downloads a media collection described by a manifest into
// a local source directory, from which ingestion can run.
package dataset

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnsupportedScheme = goerr.New("no fetcher supports URL scheme")
)

// defaultConcurrency bounds parallel downloads
const defaultConcurrency = 8

// Manifest describes a downloadable dataset
type Manifest struct {
	Name  string `yaml:"name"`
	Items []Item `yaml:"items"`
}

// Item is one downloadable media file
type Item struct {
	// Name is the local filename, relative to the destination directory
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LoadManifest reads and parses a manifest file
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest", goerr.Value("path", path))
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, goerr.Wrap(err, "failed to parse manifest", goerr.Value("path", path))
	}
	return &m, nil
}

type UseCase struct {
	fetchers    []adapter.Fetcher
	concurrency int
}

type Option func(*UseCase)

// WithConcurrency overrides the download worker count
func WithConcurrency(n int) Option {
	return func(u *UseCase) {
		if n > 0 {
			u.concurrency = n
		}
	}
}

func New(fetchers []adapter.Fetcher, opts ...Option) *UseCase {
	u := &UseCase{
		fetchers:    fetchers,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Output summarizes one download run
type Output struct {
	Downloaded int
	Skipped    int
	Failed     int
}

// Run downloads every manifest item into destDir with a bounded worker pool.
// Files already present are skipped, and individual failures are logged
// without aborting the rest of the batch.
func (u *UseCase) Run(ctx context.Context, manifest *Manifest, destDir string) (*Output, error) {
	logger := logging.From(ctx)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create destination directory", goerr.Value("dir", destDir))
	}

	var mu sync.Mutex
	out := &Output{}

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(u.concurrency)

	for _, item := range manifest.Items {
		grp.Go(func() error {
			dest := filepath.Join(destDir, filepath.Base(item.Name))

			if _, err := os.Stat(dest); err == nil {
				mu.Lock()
				out.Skipped++
				mu.Unlock()
				return nil
			}

			if err := u.download(ctx, item.URL, dest); err != nil {
				logger.Warn("failed to download item, skipping",
					"name", item.Name, "url", item.URL, "error", err)
				mu.Lock()
				out.Failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			out.Downloaded++
			mu.Unlock()
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}

	logger.Info("dataset download finished",
		"downloaded", out.Downloaded, "skipped", out.Skipped, "failed", out.Failed)
	return out, nil
}

// download streams one object to a temporary file and renames it into place
// so interrupted downloads never leave a partial file behind.
func (u *UseCase) download(ctx context.Context, url, dest string) error {
	fetcher := u.fetcherFor(url)
	if fetcher == nil {
		return goerr.Wrap(ErrUnsupportedScheme, "cannot download item", goerr.Value("url", url))
	}

	body, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temporary file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to write item", goerr.Value("dest", dest))
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temporary file")
	}

	return os.Rename(tmp.Name(), dest)
}

func (u *UseCase) fetcherFor(url string) adapter.Fetcher {
	for _, f := range u.fetchers {
		if f.Supports(url) {
			return f
		}
	}
	return nil
}
