package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	internal "github.com/ZanzyTHEbar/virtual-photogrid/vpg"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/grid"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/library"
)

type handler struct {
	deps Deps
}

func (h *handler) timeBuckets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, err := assets.ParseBucketSize(q.Get(assets.ParamSize))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	layout, err := h.deps.Library.TimeBuckets(r.Context(), size, assets.FilterFromQuery(q))
	if err != nil {
		h.deps.Logger.Error().Err(err).Msg("time buckets query failed")
		InternalServerError(w, "Failed to list time buckets")
		return
	}
	if layout == nil {
		layout = []assets.BucketCount{}
	}
	JSON(w, http.StatusOK, layout)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (h *handler) timeBucket(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get(assets.ParamTimeBucket)
	if key == "" {
		BadRequest(w, "timeBucket is required")
		return
	}
	size, err := assets.ParseBucketSize(q.Get(assets.ParamSize))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	page, err := intParam(r, assets.ParamPage, 0)
	if err != nil || page < 0 {
		BadRequest(w, "page must be a non-negative integer")
		return
	}
	pageSize, err := intParam(r, assets.ParamPageSize, internal.DefaultPageSize)
	if err != nil || pageSize <= 0 || pageSize > h.deps.MaxPageSize {
		BadRequest(w, "pageSize out of range")
		return
	}

	items, err := h.deps.Library.Page(r.Context(), grid.FetchRequest{
		PageSize:  pageSize,
		BucketKey: key,
		Size:      size,
		Filter:    assets.FilterFromQuery(q),
	}, page)
	if err != nil {
		h.deps.Logger.Error().Err(err).Str("bucket", key).Int("page", page).Msg("bucket page query failed")
		InternalServerError(w, "Failed to read bucket")
		return
	}
	if items == nil {
		items = []assets.Asset{}
	}
	JSON(w, http.StatusOK, items)
}

// lookupError maps repository errors to a response. It returns false when err is nil.
func (h *handler) lookupError(w http.ResponseWriter, err error, id string) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, library.ErrNotFound):
		NotFound(w, "Asset not found")
	default:
		h.deps.Logger.Error().Err(err).Str("asset", id).Msg("asset operation failed")
		InternalServerError(w, "Asset operation failed")
	}
	return true
}

func (h *handler) getAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.deps.Library.Get(r.Context(), id)
	if h.lookupError(w, err, id) {
		return
	}
	JSON(w, http.StatusOK, a)
}

func (h *handler) saveAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var a assets.Asset
	if !decodeJSONBody(w, r, &a) {
		return
	}
	if a.ID == "" {
		a.ID = id
	}
	if a.ID != id {
		BadRequest(w, "asset id does not match path")
		return
	}
	if h.lookupError(w, h.deps.Library.Update(r.Context(), a), id) {
		return
	}
	h.saved(r, id)
	JSON(w, http.StatusOK, a)
}

type favoriteRequest struct {
	IsFavorite bool `json:"isFavorite"`
}

func (h *handler) setFavorite(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req favoriteRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if h.lookupError(w, h.deps.Library.SetFavorite(r.Context(), id, req.IsFavorite), id) {
		return
	}
	h.saved(r, id)
	w.WriteHeader(http.StatusNoContent)
}

// saved runs the save hook. A failing hook does not fail the request.
func (h *handler) saved(r *http.Request, id string) {
	if h.deps.OnSave == nil {
		return
	}
	if err := h.deps.OnSave(r.Context(), id); err != nil {
		h.deps.Logger.Warn().Err(err).Str("asset", id).Msg("save hook failed")
	}
}
