package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/library"
)

func TestImportDirectory(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "a.jpg"), 10, 10)
	writeImage(t, filepath.Join(root, "nested", "b.png"), 10, 10)
	writeImage(t, filepath.Join(root, "raw", "c.jpg"), 10, 10)
	writeImage(t, filepath.Join(root, "draft.tmp.jpg"), 10, 10)
	require.NoError(t, os.WriteFile(filepath.Join(root, "clip.mp4"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".vpgignore"), []byte("raw\n*.tmp.jpg\n"), 0o644))

	lib := library.NewMemoryLibrary()
	q := &recordingQueue{}
	im := NewImporter(lib, NewDispatcher(q, zerolog.Nop()), zerolog.Nop())
	n := 0
	im.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}

	res, err := im.ImportDirectory(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 2, res.Ignored)
	assert.Equal(t, 1, res.Unsupported)
	assert.Equal(t, 2+2+3, res.Jobs)

	layout, err := lib.TimeBuckets(context.Background(), assets.BucketMonth, assets.Filter{})
	require.NoError(t, err)
	total := 0
	for _, b := range layout {
		total += b.Count
	}
	assert.Equal(t, 3, total)

	var videos int
	for i := 1; i <= 3; i++ {
		a, err := lib.Get(context.Background(), fmt.Sprintf("id-%d", i))
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(a.OriginalPath))
		if a.Type == assets.TypeVideo {
			videos++
		}
	}
	assert.Equal(t, 1, videos)
}

func TestImportDirectoryCancelled(t *testing.T) {
	root := t.TempDir()
	writeImage(t, filepath.Join(root, "a.jpg"), 10, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	im := NewImporter(library.NewMemoryLibrary(), NewDispatcher(&recordingQueue{}, zerolog.Nop()), zerolog.Nop())
	_, err := im.ImportDirectory(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportedVideoTakesCaptureTimeFromMetadataJob(t *testing.T) {
	root := t.TempDir()
	clip := filepath.Join(root, "clip.mp4")
	require.NoError(t, os.WriteFile(clip, []byte("x"), 0o644))
	mtime := time.Date(2019, 5, 17, 18, 30, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(clip, mtime, mtime))

	h, lib := newHandlers(t)
	q := &recordingQueue{}
	im := NewImporter(lib, NewDispatcher(q, zerolog.Nop()), zerolog.Nop())
	im.newID = func() string { return "vid" }

	_, err := im.ImportDirectory(context.Background(), root)
	require.NoError(t, err)
	a, err := lib.Get(context.Background(), "vid")
	require.NoError(t, err)
	assert.True(t, a.TakenAt.IsZero())

	var ran bool
	for _, job := range q.jobs {
		if job.Name != JobMetadataExtraction {
			continue
		}
		require.NoError(t, h.FileMetadata(context.Background(), job))
		ran = true
	}
	require.True(t, ran)

	a, err = lib.Get(context.Background(), "vid")
	require.NoError(t, err)
	assert.True(t, a.TakenAt.Equal(mtime))
}
