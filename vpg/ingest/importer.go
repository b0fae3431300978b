package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	ignore "github.com/sabhiram/go-gitignore"

	internal "github.com/ZanzyTHEbar/virtual-photogrid/vpg"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/library"
)

// ImportResult counts what one directory import did.
type ImportResult struct {
	Imported int
	Ignored  int
	// Unsupported counts files that are neither images nor videos.
	Unsupported int
	Jobs        int
}

// Importer walks a directory, records every media file and dispatches its
// upload jobs.
type Importer struct {
	library    library.Repository
	dispatcher *Dispatcher
	logger     zerolog.Logger
	newID      func() string
}

func NewImporter(lib library.Repository, dispatcher *Dispatcher, logger zerolog.Logger) *Importer {
	return &Importer{
		library:    lib,
		dispatcher: dispatcher,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// loadIgnore compiles root's ignore file, returning nil when there is none.
func loadIgnore(root string) (*ignore.GitIgnore, error) {
	ignorePath := filepath.Join(root, internal.DefaultIgnoreFileName)
	if _, err := os.Stat(ignorePath); err == nil {
		ignored, err := ignore.CompileIgnoreFile(ignorePath)
		if err != nil {
			return nil, fmt.Errorf("error reading %s file: %w", internal.DefaultIgnoreFileName, err)
		}
		return ignored, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error checking for %s file: %w", internal.DefaultIgnoreFileName, err)
	}
	return nil, nil
}

func isIgnored(ignored *ignore.GitIgnore, rel string, dir bool) bool {
	if ignored == nil {
		return false
	}
	if ignored.MatchesPath(rel) {
		return true
	}
	return dir && ignored.MatchesPath(rel+"/")
}

// ImportDirectory imports every image and video under root. Capture time
// starts as the file's modification time; the EXIF job refines it.
func (im *Importer) ImportDirectory(ctx context.Context, root string) (ImportResult, error) {
	var res ImportResult
	root, err := filepath.Abs(root)
	if err != nil {
		return res, err
	}
	ignored, err := loadIgnore(root)
	if err != nil {
		return res, err
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if d.Name() == internal.DefaultIgnoreFileName {
			return nil
		}
		if isIgnored(ignored, filepath.ToSlash(rel), d.IsDir()) {
			res.Ignored++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		typ := assets.TypeFromPath(path)
		if typ == assets.TypeOther {
			res.Unsupported++
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		a := assets.Asset{
			ID:           im.newID(),
			Type:         typ,
			OriginalPath: path,
		}
		// Images start at the file time until EXIF replaces it. Videos get
		// their capture time from the metadata-extraction job.
		if typ == assets.TypeImage {
			a.TakenAt = info.ModTime().UTC()
		}
		if err := im.library.Insert(ctx, a); err != nil {
			return err
		}
		jobs, err := im.dispatcher.AssetUploaded(ctx, a)
		res.Jobs += len(jobs)
		if err != nil {
			return err
		}
		res.Imported++
		im.logger.Debug().Str("asset", a.ID).Str("path", rel).Msg("asset imported")
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("import %s: %w", root, err)
	}
	im.logger.Info().Str("root", root).Int("imported", res.Imported).Int("ignored", res.Ignored).Msg("import finished")
	return res, nil
}
