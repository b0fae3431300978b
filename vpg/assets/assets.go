// Package assets holds the media item types shared by the timeline, the
// library and the upload pipeline.
package assets

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// AssetType classifies a media item.
type AssetType string

const (
	TypeImage AssetType = "IMAGE"
	TypeVideo AssetType = "VIDEO"
	TypeOther AssetType = "OTHER"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".heic": true, ".heif": true, ".tif": true, ".tiff": true, ".dng": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".m4v": true, ".mkv": true,
	".avi": true, ".webm": true, ".3gp": true, ".mts": true,
}

// TypeFromPath classifies a file by its extension.
func TypeFromPath(path string) AssetType {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExtensions[ext]:
		return TypeImage
	case videoExtensions[ext]:
		return TypeVideo
	default:
		return TypeOther
	}
}

// Location is a WGS84 coordinate.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Asset is the summary of a media item as rendered in the timeline.
type Asset struct {
	ID           string    `json:"id"`
	Type         AssetType `json:"type"`
	TakenAt      time.Time `json:"takenAt"`
	IsFavorite   bool      `json:"isFavorite"`
	IsArchived   bool      `json:"isArchived"`
	Location     *Location `json:"location,omitempty"`
	ThumbnailRef string    `json:"thumbnailRef"`
	OriginalPath string    `json:"originalPath,omitempty"`
	Description  string    `json:"description,omitempty"`
}

// Clone returns a copy of a that shares no pointers with it.
func (a Asset) Clone() Asset {
	if a.Location != nil {
		loc := *a.Location
		a.Location = &loc
	}
	return a
}

// CloneAll clones every asset in items into a new slice.
func CloneAll(items []Asset) []Asset {
	out := make([]Asset, len(items))
	for i, a := range items {
		out[i] = a.Clone()
	}
	return out
}

// SearchText is the text fed to the search index for this asset.
func (a Asset) SearchText() string {
	parts := []string{
		strings.ToLower(string(a.Type)),
		a.TakenAt.UTC().Format("2006 January 02 Monday"),
	}
	if a.OriginalPath != "" {
		parts = append(parts, filepath.Base(a.OriginalPath))
	}
	if a.Description != "" {
		parts = append(parts, a.Description)
	}
	if a.IsFavorite {
		parts = append(parts, "favorite")
	}
	return strings.Join(parts, " ")
}

// Filter holds the query parameters used for every fetch in a timeline's
// lifetime.
type Filter struct {
	AlbumID       string `json:"albumId,omitempty"`
	PersonID      string `json:"personId,omitempty"`
	FavoritesOnly bool   `json:"isFavorite,omitempty"`
	WithArchived  bool   `json:"withArchived,omitempty"`
}

// Matches reports whether the asset passes the flag-based parts of the filter.
// Album and person membership are resolved by the repository.
func (f Filter) Matches(a Asset) bool {
	if f.FavoritesOnly && !a.IsFavorite {
		return false
	}
	if !f.WithArchived && a.IsArchived {
		return false
	}
	return true
}

// BucketSize is the time span grouped into a single bucket.
type BucketSize string

const (
	BucketMonth BucketSize = "MONTH"
	BucketDay   BucketSize = "DAY"
)

// ParseBucketSize accepts month/day in any case.
func ParseBucketSize(s string) (BucketSize, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(BucketMonth):
		return BucketMonth, nil
	case string(BucketDay):
		return BucketDay, nil
	default:
		return "", fmt.Errorf("unknown bucket size %q", s)
	}
}

// Key returns the bucket key for t.
func (s BucketSize) Key(t time.Time) string {
	if s == BucketDay {
		return t.UTC().Format("2006-01-02")
	}
	return t.UTC().Format("2006-01")
}

// BucketCount is one entry of a bucket layout.
type BucketCount struct {
	TimeBucket string `json:"timeBucket"`
	Count      int    `json:"count"`
}
