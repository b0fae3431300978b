package ingest

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/library"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/search"
)

var timeZero time.Time

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 80, B: 40, A: 255})
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, imaging.Save(img, path))
}

func newHandlers(t *testing.T) (*Handlers, *library.MemoryLibrary) {
	lib := library.NewMemoryLibrary()
	provider, err := search.NewProvider("hash", 1024)
	require.NoError(t, err)
	return &Handlers{
		Library:         lib,
		Index:           search.NewIndex(provider),
		ThumbnailDir:    filepath.Join(t.TempDir(), "thumbs"),
		ThumbnailHeight: 50,
		Logger:          zerolog.Nop(),
	}, lib
}

func TestThumbnailHandler(t *testing.T) {
	h, lib := newHandlers(t)
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "photo.png")
	writeImage(t, src, 300, 200)
	require.NoError(t, lib.Insert(ctx, assets.Asset{ID: "img", Type: assets.TypeImage, OriginalPath: src}))

	require.NoError(t, h.Thumbnail(ctx, newJob(JobThumbnailGeneration, "img", timeZero)))

	a, err := lib.Get(ctx, "img")
	require.NoError(t, err)
	assert.Equal(t, "img.jpg", a.ThumbnailRef)

	thumb, err := imaging.Open(filepath.Join(h.ThumbnailDir, a.ThumbnailRef))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 75, 50), thumb.Bounds())
}

func TestThumbnailHandlerSkipsVideo(t *testing.T) {
	h, lib := newHandlers(t)
	ctx := context.Background()
	require.NoError(t, lib.Insert(ctx, assets.Asset{ID: "vid", Type: assets.TypeVideo, OriginalPath: "/nowhere.mp4"}))
	assert.ErrorIs(t, h.Thumbnail(ctx, newJob(JobThumbnailGeneration, "vid", timeZero)), ErrSkip)
}

func TestExifHandlerWithoutExif(t *testing.T) {
	h, lib := newHandlers(t)
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "plain.jpg")
	writeImage(t, src, 20, 20)
	require.NoError(t, lib.Insert(ctx, assets.Asset{ID: "img", Type: assets.TypeImage, OriginalPath: src}))

	assert.ErrorIs(t, h.Exif(ctx, newJob(JobExifExtraction, "img", timeZero)), ErrSkip)

	_, err := ReadExif(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestReadExif(t *testing.T) {
	src := filepath.Join(t.TempDir(), "plain.png")
	writeImage(t, src, 8, 8)
	data, err := ReadExif(src)
	require.NoError(t, err)
	assert.True(t, data.empty())

	_, err = ReadExif(t.TempDir())
	assert.Error(t, err, "reading a directory is an I/O failure, not missing EXIF")
}

// stalledGetLibrary holds the first Get after it has read the record until
// release is closed.
type stalledGetLibrary struct {
	*library.MemoryLibrary
	once    sync.Once
	fetched chan struct{}
	release chan struct{}
}

func (l *stalledGetLibrary) Get(ctx context.Context, id string) (assets.Asset, error) {
	a, err := l.MemoryLibrary.Get(ctx, id)
	first := false
	l.once.Do(func() { first = true })
	if first {
		close(l.fetched)
		<-l.release
	}
	return a, err
}

func TestConcurrentHandlersKeepEachOthersFields(t *testing.T) {
	h, mem := newHandlers(t)
	lib := &stalledGetLibrary{MemoryLibrary: mem, fetched: make(chan struct{}), release: make(chan struct{})}
	h.Library = lib
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "photo.png")
	writeImage(t, src, 60, 40)
	mtime := time.Date(2020, 2, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))
	require.NoError(t, mem.Insert(ctx, assets.Asset{ID: "img", Type: assets.TypeImage, OriginalPath: src}))

	thumbDone := make(chan error, 1)
	go func() { thumbDone <- h.Thumbnail(ctx, newJob(JobThumbnailGeneration, "img", timeZero)) }()
	<-lib.fetched

	require.NoError(t, h.FileMetadata(ctx, newJob(JobMetadataExtraction, "img", timeZero)))
	close(lib.release)
	require.NoError(t, <-thumbDone)

	a, err := mem.Get(ctx, "img")
	require.NoError(t, err)
	assert.Equal(t, "img.jpg", a.ThumbnailRef)
	assert.True(t, a.TakenAt.Equal(mtime), "capture time written while the thumbnail was rendering must survive")
}

func TestFileMetadataHandler(t *testing.T) {
	h, lib := newHandlers(t)
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("not really a video"), 0o644))
	mtime := time.Date(2021, 7, 4, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))
	require.NoError(t, lib.Insert(ctx, assets.Asset{ID: "vid", Type: assets.TypeVideo, OriginalPath: src}))

	require.NoError(t, h.FileMetadata(ctx, newJob(JobMetadataExtraction, "vid", timeZero)))
	a, err := lib.Get(ctx, "vid")
	require.NoError(t, err)
	assert.True(t, a.TakenAt.Equal(mtime))

	assert.ErrorIs(t, h.FileMetadata(ctx, newJob(JobMetadataExtraction, "vid", timeZero)), ErrSkip)
}

func TestSearchIndexHandler(t *testing.T) {
	h, lib := newHandlers(t)
	ctx := context.Background()
	require.NoError(t, lib.Insert(ctx, assets.Asset{
		ID:          "a1",
		Type:        assets.TypeImage,
		TakenAt:     time.Date(2023, 8, 1, 0, 0, 0, 0, time.UTC),
		Description: "sunset over the harbour",
	}))

	require.NoError(t, h.SearchIndex(ctx, newJob(JobSearchIndex, "a1", timeZero)))
	assert.Equal(t, 1, h.Index.Len())
	hits, err := h.Index.Query(ctx, "harbour sunset", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a1", hits[0].ID)

	require.NoError(t, lib.Delete(ctx, "a1"))
	require.NoError(t, h.SearchIndex(ctx, newJob(JobSearchIndex, "a1", timeZero)))
	assert.Equal(t, 0, h.Index.Len())
}
