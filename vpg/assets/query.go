package assets

import (
	"net/url"
	"strconv"
)

// Query parameter names shared by the paging API and its client.
const (
	ParamAlbumID      = "albumId"
	ParamPersonID     = "personId"
	ParamIsFavorite   = "isFavorite"
	ParamWithArchived = "withArchived"
	ParamSize         = "size"
	ParamTimeBucket   = "timeBucket"
	ParamPage         = "page"
	ParamPageSize     = "pageSize"
)

// Encode writes the non-zero filter fields into v.
func (f Filter) Encode(v url.Values) {
	if f.AlbumID != "" {
		v.Set(ParamAlbumID, f.AlbumID)
	}
	if f.PersonID != "" {
		v.Set(ParamPersonID, f.PersonID)
	}
	if f.FavoritesOnly {
		v.Set(ParamIsFavorite, "true")
	}
	if f.WithArchived {
		v.Set(ParamWithArchived, "true")
	}
}

// FilterFromQuery is the inverse of Encode. Malformed booleans read as false.
func FilterFromQuery(v url.Values) Filter {
	fav, _ := strconv.ParseBool(v.Get(ParamIsFavorite))
	arch, _ := strconv.ParseBool(v.Get(ParamWithArchived))
	return Filter{
		AlbumID:       v.Get(ParamAlbumID),
		PersonID:      v.Get(ParamPersonID),
		FavoritesOnly: fav,
		WithArchived:  arch,
	}
}
