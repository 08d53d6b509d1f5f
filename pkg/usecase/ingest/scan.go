package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/memoir/pkg/adapter"
	"github.com/m-mizutani/memoir/pkg/model"
	"github.com/m-mizutani/memoir/pkg/utils/logging"
)

var (
	imageExts = map[string]struct{}{"jpg": {}, "jpeg": {}, "png": {}, "heic": {}}
	videoExts = map[string]struct{}{"mp4": {}, "mov": {}, "avi": {}}
)

type rawMedia struct {
	id        model.MemoryID
	path      string
	mediaType model.MediaType
	meta      *adapter.Metadata
}

// scan lists supported media in the source folder, reads metadata for each,
// and returns them ordered by capture timestamp. A video with an image
// sibling of the same base name is a live-photo artifact and is skipped.
// Files whose metadata cannot be read are skipped with a log entry.
func (u *UseCase) scan(ctx context.Context, dir string) ([]*rawMedia, error) {
	logger := logging.From(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read source folder", goerr.Value("dir", dir))
	}

	imageStems := make(map[string]struct{})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stem, ext := splitName(entry.Name())
		if _, ok := imageExts[ext]; ok {
			imageStems[stem] = struct{}{}
		}
	}

	var media []*rawMedia
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		stem, ext := splitName(name)

		var mediaType model.MediaType
		switch {
		case hasExt(imageExts, ext):
			mediaType = model.MediaTypeImage
		case hasExt(videoExts, ext):
			if _, ok := imageStems[stem]; ok {
				continue
			}
			mediaType = model.MediaTypeVideo
		default:
			continue
		}

		path := filepath.Join(dir, name)
		meta, err := u.metadata.ExtractMetadata(ctx, path)
		if err != nil {
			logger.Warn("failed to extract metadata, skipping", "path", path, "error", err)
			continue
		}

		media = append(media, &rawMedia{
			id:        model.MemoryID(name),
			path:      path,
			mediaType: mediaType,
			meta:      meta,
		})
	}

	sort.SliceStable(media, func(a, b int) bool {
		return media[a].meta.Temporal.DateString < media[b].meta.Temporal.DateString
	})
	return media, nil
}

func splitName(name string) (stem, ext string) {
	ext = strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	stem = strings.TrimSuffix(name, filepath.Ext(name))
	return stem, ext
}

func hasExt(set map[string]struct{}, ext string) bool {
	_, ok := set[ext]
	return ok
}

func newestModTime(dir string) (time.Time, error) {
	var newest time.Time
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "failed to walk source folder", goerr.Value("dir", dir))
	}
	return newest, nil
}
