package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/grid"
)

// SQLLibrary is a Repository backed by libsql. Local databases use a
// "file:" DSN; anything else is handed to the driver as a remote URL.
type SQLLibrary struct {
	db     *sql.DB
	logger zerolog.Logger
}

type Option func(*SQLLibrary)

func WithLogger(logger zerolog.Logger) Option {
	return func(l *SQLLibrary) { l.logger = logger }
}

// OpenSQLLibrary connects to dsn and creates the schema if missing.
func OpenSQLLibrary(ctx context.Context, dsn string, opts ...Option) (*SQLLibrary, error) {
	if path, ok := strings.CutPrefix(dsn, "file:"); ok && path != "" && !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create library directory: %w", err)
		}
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open library database: %w", err)
	}
	// SQLite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	l := &SQLLibrary{db: db, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	l.logger.Debug().Str("dsn", dsn).Msg("library opened")
	return l, nil
}

func (l *SQLLibrary) initialize(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()
	for _, statement := range schema {
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return tx.Commit()
}

func (l *SQLLibrary) Close() error {
	return l.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func locationArgs(loc *assets.Location) (any, any) {
	if loc == nil {
		return nil, nil
	}
	return loc.Latitude, loc.Longitude
}

func (l *SQLLibrary) Insert(ctx context.Context, a assets.Asset) error {
	if a.ID == "" {
		return fmt.Errorf("insert asset: empty id")
	}
	lat, lon := locationArgs(a.Location)
	taken := a.TakenAt.UTC()
	_, err := l.db.ExecContext(ctx, `INSERT INTO assets (id, type, taken_at, bucket_month, bucket_day,
		is_favorite, is_archived, latitude, longitude, thumbnail_ref, original_path, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), taken.Format(takenAtLayout),
		assets.BucketMonth.Key(taken), assets.BucketDay.Key(taken),
		boolToInt(a.IsFavorite), boolToInt(a.IsArchived), lat, lon,
		a.ThumbnailRef, a.OriginalPath, a.Description)
	if err != nil {
		return fmt.Errorf("insert asset %s: %w", a.ID, err)
	}
	return nil
}

func (l *SQLLibrary) Get(ctx context.Context, id string) (assets.Asset, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets a WHERE a.id = ?`, id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return assets.Asset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return assets.Asset{}, fmt.Errorf("get asset %s: %w", id, err)
	}
	return a, nil
}

func (l *SQLLibrary) Update(ctx context.Context, a assets.Asset) error {
	lat, lon := locationArgs(a.Location)
	taken := a.TakenAt.UTC()
	res, err := l.db.ExecContext(ctx, `UPDATE assets SET type = ?, taken_at = ?, bucket_month = ?, bucket_day = ?,
		is_favorite = ?, is_archived = ?, latitude = ?, longitude = ?, thumbnail_ref = ?,
		original_path = ?, description = ? WHERE id = ?`,
		string(a.Type), taken.Format(takenAtLayout),
		assets.BucketMonth.Key(taken), assets.BucketDay.Key(taken),
		boolToInt(a.IsFavorite), boolToInt(a.IsArchived), lat, lon,
		a.ThumbnailRef, a.OriginalPath, a.Description, a.ID)
	if err != nil {
		return fmt.Errorf("update asset %s: %w", a.ID, err)
	}
	return expectRow(res, a.ID)
}

func (l *SQLLibrary) Delete(ctx context.Context, id string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM album_assets WHERE asset_id = ?`,
		`DELETE FROM asset_faces WHERE asset_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete asset %s: %w", id, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	if err := expectRow(res, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (l *SQLLibrary) SetFavorite(ctx context.Context, id string, favorite bool) error {
	res, err := l.db.ExecContext(ctx, `UPDATE assets SET is_favorite = ? WHERE id = ?`, boolToInt(favorite), id)
	if err != nil {
		return fmt.Errorf("set favorite %s: %w", id, err)
	}
	return expectRow(res, id)
}

func (l *SQLLibrary) SetThumbnail(ctx context.Context, id, ref string) error {
	res, err := l.db.ExecContext(ctx, `UPDATE assets SET thumbnail_ref = ? WHERE id = ?`, ref, id)
	if err != nil {
		return fmt.Errorf("set thumbnail %s: %w", id, err)
	}
	return expectRow(res, id)
}

// SetCapture writes capture time and position in one statement. A zero
// takenAt or nil loc leaves the stored column unchanged.
func (l *SQLLibrary) SetCapture(ctx context.Context, id string, takenAt time.Time, loc *assets.Location) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if !takenAt.IsZero() {
		taken := takenAt.UTC()
		sets = append(sets, "taken_at = ?", "bucket_month = ?", "bucket_day = ?")
		args = append(args, taken.Format(takenAtLayout),
			assets.BucketMonth.Key(taken), assets.BucketDay.Key(taken))
	}
	if loc != nil {
		sets = append(sets, "latitude = ?", "longitude = ?")
		args = append(args, loc.Latitude, loc.Longitude)
	}
	if len(sets) == 0 {
		_, err := l.Get(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := l.db.ExecContext(ctx, `UPDATE assets SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("set capture %s: %w", id, err)
	}
	return expectRow(res, id)
}

func (l *SQLLibrary) AddToAlbum(ctx context.Context, albumID string, ids ...string) error {
	return l.link(ctx, `INSERT OR IGNORE INTO album_assets (album_id, asset_id) VALUES (?, ?)`, albumID, ids)
}

func (l *SQLLibrary) TagPerson(ctx context.Context, personID string, ids ...string) error {
	return l.link(ctx, `INSERT OR IGNORE INTO asset_faces (person_id, asset_id) VALUES (?, ?)`, personID, ids)
}

func (l *SQLLibrary) link(ctx context.Context, stmt, group string, ids []string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if _, err := tx.ExecContext(ctx, stmt, group, id); err != nil {
			return fmt.Errorf("link %s to %s: %w", id, group, err)
		}
	}
	return tx.Commit()
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func bucketColumn(size assets.BucketSize) string {
	if sizeOf(size) == assets.BucketDay {
		return "a.bucket_day"
	}
	return "a.bucket_month"
}

// filterClause renders filter as SQL conditions over alias a.
func filterClause(filter assets.Filter) ([]string, []any) {
	var conds []string
	var args []any
	if !filter.WithArchived {
		conds = append(conds, "a.is_archived = 0")
	}
	if filter.FavoritesOnly {
		conds = append(conds, "a.is_favorite = 1")
	}
	if filter.AlbumID != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM album_assets aa WHERE aa.asset_id = a.id AND aa.album_id = ?)")
		args = append(args, filter.AlbumID)
	}
	if filter.PersonID != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM asset_faces af WHERE af.asset_id = a.id AND af.person_id = ?)")
		args = append(args, filter.PersonID)
	}
	return conds, args
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (l *SQLLibrary) TimeBuckets(ctx context.Context, size assets.BucketSize, filter assets.Filter) ([]assets.BucketCount, error) {
	col := bucketColumn(size)
	conds, args := filterClause(filter)
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM assets a%s GROUP BY %s ORDER BY %s DESC`,
		col, where(conds), col, col)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query time buckets: %w", err)
	}
	defer rows.Close()

	var layout []assets.BucketCount
	for rows.Next() {
		var bc assets.BucketCount
		if err := rows.Scan(&bc.TimeBucket, &bc.Count); err != nil {
			return nil, err
		}
		layout = append(layout, bc)
	}
	return layout, rows.Err()
}

func (l *SQLLibrary) Page(ctx context.Context, req grid.FetchRequest, page int) ([]assets.Asset, error) {
	if err := cancelled(ctx); err != nil {
		return nil, err
	}
	if page < 0 {
		return nil, nil
	}
	limit := pageSizeOf(req)
	conds, args := filterClause(req.Filter)
	conds = append([]string{bucketColumn(req.Size) + " = ?"}, conds...)
	args = append([]any{req.BucketKey}, args...)
	args = append(args, limit, page*limit)

	query := `SELECT ` + assetColumns + ` FROM assets a` + where(conds) +
		` ORDER BY a.taken_at DESC, a.id ASC LIMIT ? OFFSET ?`
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		if cerr := cancelled(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("query bucket %s: %w", req.BucketKey, err)
	}
	defer rows.Close()

	items := make([]assets.Asset, 0, limit)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		if cerr := cancelled(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}
	return items, nil
}

// FetchBucket reads the bucket page by page until a short page.
func (l *SQLLibrary) FetchBucket(ctx context.Context, req grid.FetchRequest) ([]assets.Asset, error) {
	limit := pageSizeOf(req)
	var out []assets.Asset
	for page := 0; ; page++ {
		batch, err := l.Page(ctx, req, page)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < limit {
			l.logger.Debug().Str("bucket", req.BucketKey).Int("pages", page+1).Int("assets", len(out)).Msg("bucket fetched")
			return out, nil
		}
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(s scanner) (assets.Asset, error) {
	var (
		a          assets.Asset
		typ, taken string
		fav, arch  int64
		lat, lon   sql.NullFloat64
	)
	if err := s.Scan(&a.ID, &typ, &taken, &fav, &arch, &lat, &lon,
		&a.ThumbnailRef, &a.OriginalPath, &a.Description); err != nil {
		return assets.Asset{}, err
	}
	t, err := time.Parse(takenAtLayout, taken)
	if err != nil {
		return assets.Asset{}, fmt.Errorf("asset %s: bad taken_at %q: %w", a.ID, taken, err)
	}
	a.Type = assets.AssetType(typ)
	a.TakenAt = t
	a.IsFavorite = fav != 0
	a.IsArchived = arch != 0
	if lat.Valid && lon.Valid {
		a.Location = &assets.Location{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return a, nil
}

var _ Repository = (*SQLLibrary)(nil)
