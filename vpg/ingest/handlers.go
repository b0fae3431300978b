package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	exiflib "github.com/rwcarlsen/goexif/exif"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/library"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/search"
)

// Handlers holds the collaborators the built-in job handlers need.
type Handlers struct {
	Library         library.Repository
	Index           *search.Index
	ThumbnailDir    string
	ThumbnailHeight int
	Logger          zerolog.Logger
}

// Register installs every handler that has its collaborators configured.
// Video conversion has no built-in handler; those jobs are counted as skipped.
func (h *Handlers) Register(r *Runner) {
	if h.ThumbnailDir != "" {
		r.Handle(JobThumbnailGeneration, h.Thumbnail)
	}
	r.Handle(JobExifExtraction, h.Exif)
	r.Handle(JobMetadataExtraction, h.FileMetadata)
	if h.Index != nil {
		r.Handle(JobSearchIndex, h.SearchIndex)
	}
}

// ExifData is the subset of EXIF tags the library stores.
type ExifData struct {
	TakenAt  time.Time
	Location *assets.Location
}

func (d ExifData) empty() bool {
	return d.TakenAt.IsZero() && d.Location == nil
}

// ReadExif decodes capture time and GPS position from an image file. A file
// without a usable EXIF block yields empty data and no error. Read failures
// are returned.
func ReadExif(path string) (ExifData, error) {
	f, err := os.Open(path)
	if err != nil {
		return ExifData{}, err
	}
	defer f.Close()
	return readExif(f)
}

func readExif(r io.Reader) (ExifData, error) {
	rr := &recordingReader{r: r}
	x, err := exiflib.Decode(rr)
	if rr.err != nil {
		return ExifData{}, rr.err
	}
	if err != nil && (x == nil || exiflib.IsCriticalError(err)) {
		return ExifData{}, nil
	}
	var out ExifData
	if t, err := x.DateTime(); err == nil {
		out.TakenAt = t.UTC()
	}
	if lat, lon, err := x.LatLong(); err == nil {
		out.Location = &assets.Location{Latitude: lat, Longitude: lon}
	}
	return out, nil
}

// recordingReader keeps the first read error other than io.EOF, so decode
// failures can be told apart from I/O failures.
type recordingReader struct {
	r   io.Reader
	err error
}

func (rr *recordingReader) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && rr.err == nil {
		rr.err = err
	}
	return n, err
}

// Exif refreshes TakenAt and Location from the original file's EXIF block.
func (h *Handlers) Exif(ctx context.Context, job Job) error {
	a, err := h.Library.Get(ctx, job.AssetID)
	if err != nil {
		return err
	}
	if a.OriginalPath == "" {
		return ErrSkip
	}
	meta, err := ReadExif(a.OriginalPath)
	if err != nil {
		return fmt.Errorf("read exif: %w", err)
	}
	if meta.empty() {
		return ErrSkip
	}
	h.Logger.Debug().Str("asset", a.ID).Time("takenAt", meta.TakenAt).Bool("gps", meta.Location != nil).Msg("exif applied")
	return h.Library.SetCapture(ctx, a.ID, meta.TakenAt, meta.Location)
}

// FileMetadata fills a missing capture time from the file's modification
// time. Imported videos arrive without one.
func (h *Handlers) FileMetadata(ctx context.Context, job Job) error {
	a, err := h.Library.Get(ctx, job.AssetID)
	if err != nil {
		return err
	}
	if a.OriginalPath == "" || !a.TakenAt.IsZero() {
		return ErrSkip
	}
	info, err := os.Stat(a.OriginalPath)
	if err != nil {
		return err
	}
	return h.Library.SetCapture(ctx, a.ID, info.ModTime(), nil)
}

// Thumbnail writes a JPEG preview of an image scaled to ThumbnailHeight.
func (h *Handlers) Thumbnail(ctx context.Context, job Job) error {
	a, err := h.Library.Get(ctx, job.AssetID)
	if err != nil {
		return err
	}
	if a.Type != assets.TypeImage || a.OriginalPath == "" {
		return ErrSkip
	}
	src, err := imaging.Open(a.OriginalPath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode %s: %w", a.OriginalPath, err)
	}
	height := h.ThumbnailHeight
	if height <= 0 {
		height = 235
	}
	if src.Bounds().Dy() > height {
		src = imaging.Resize(src, 0, height, imaging.Lanczos)
	}

	if err := os.MkdirAll(h.ThumbnailDir, 0o755); err != nil {
		return err
	}
	name := a.ID + ".jpg"
	if err := imaging.Save(src, filepath.Join(h.ThumbnailDir, name), imaging.JPEGQuality(80)); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.Library.SetThumbnail(ctx, a.ID, name)
}

// SearchIndex embeds the asset's searchable text, or drops it from the
// index when the asset no longer exists.
func (h *Handlers) SearchIndex(ctx context.Context, job Job) error {
	a, err := h.Library.Get(ctx, job.AssetID)
	if errors.Is(err, library.ErrNotFound) {
		h.Index.Remove(job.AssetID)
		return nil
	}
	if err != nil {
		return err
	}
	return h.Index.Upsert(ctx, a.ID, a.SearchText())
}
