package library

// Bucket keys are stored alongside taken_at so layout queries group on an
// indexed column. taken_at is a fixed-width UTC string and sorts lexically.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		taken_at TEXT NOT NULL,
		bucket_month TEXT NOT NULL,
		bucket_day TEXT NOT NULL,
		is_favorite INTEGER NOT NULL DEFAULT 0,
		is_archived INTEGER NOT NULL DEFAULT 0,
		latitude REAL,
		longitude REAL,
		thumbnail_ref TEXT NOT NULL DEFAULT '',
		original_path TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_bucket_month ON assets(bucket_month, taken_at)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_bucket_day ON assets(bucket_day, taken_at)`,
	`CREATE TABLE IF NOT EXISTS album_assets (
		album_id TEXT NOT NULL,
		asset_id TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		PRIMARY KEY (album_id, asset_id)
	)`,
	`CREATE TABLE IF NOT EXISTS asset_faces (
		person_id TEXT NOT NULL,
		asset_id TEXT NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
		PRIMARY KEY (person_id, asset_id)
	)`,
}

const assetColumns = `a.id, a.type, a.taken_at, a.is_favorite, a.is_archived,
	a.latitude, a.longitude, a.thumbnail_ref, a.original_path, a.description`

const takenAtLayout = "2006-01-02T15:04:05.000000000Z"
