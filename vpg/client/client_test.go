package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/assets"
	"github.com/ZanzyTHEbar/virtual-photogrid/vpg/grid"
)

func bucketServer(t *testing.T, total int, pages *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/timeline/bucket", r.URL.Path)
		atomic.AddInt32(pages, 1)
		q := r.URL.Query()
		assert.Equal(t, "2024-03", q.Get("timeBucket"))
		assert.Equal(t, "album-1", q.Get("albumId"))
		page, _ := strconv.Atoi(q.Get("page"))
		size, _ := strconv.Atoi(q.Get("pageSize"))

		var out []assets.Asset
		for i := page * size; i < total && i < (page+1)*size; i++ {
			out = append(out, assets.Asset{ID: fmt.Sprintf("asset-%d", i), Type: assets.TypeImage})
		}
		if out == nil {
			out = []assets.Asset{}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
}

func TestFetchBucketPagesUntilShortPage(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		wantPages int32
	}{
		{"Empty", 0, 1},
		{"ShortFirstPage", 3, 1},
		{"ExactMultiple", 8, 3},
		{"Remainder", 9, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var pages int32
			server := bucketServer(t, tc.total, &pages)
			defer server.Close()

			c := New(server.URL)
			items, err := c.FetchBucket(context.Background(), grid.FetchRequest{
				PageSize:  4,
				BucketKey: "2024-03",
				Size:      assets.BucketMonth,
				Filter:    assets.Filter{AlbumID: "album-1"},
			})
			require.NoError(t, err)
			assert.Len(t, items, tc.total)
			assert.Equal(t, tc.wantPages, atomic.LoadInt32(&pages))
			if tc.total > 0 {
				assert.Equal(t, "asset-0", items[0].ID)
			}
		})
	}
}

func TestTimeBuckets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/timeline/buckets", r.URL.Path)
		assert.Equal(t, "DAY", r.URL.Query().Get("size"))
		assert.Equal(t, "true", r.URL.Query().Get("isFavorite"))
		_, _ = w.Write([]byte(`[{"timeBucket":"2024-03-02","count":4},{"timeBucket":"2024-03-01","count":1}]`))
	}))
	defer server.Close()

	layout, err := New(server.URL).TimeBuckets(context.Background(), assets.BucketDay, assets.Filter{FavoritesOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []assets.BucketCount{
		{TimeBucket: "2024-03-02", Count: 4},
		{TimeBucket: "2024-03-01", Count: 1},
	}, layout)
}

func TestAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"NOT_FOUND","message":"no such asset"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).FetchBucket(context.Background(), grid.FetchRequest{PageSize: 10, BucketKey: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.True(t, apiErr.IsNotFound())
	assert.Equal(t, "no such asset", apiErr.Message)
	assert.False(t, grid.IsCancelled(err))
}

func TestAPIErrorPlainBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := New(server.URL).SetFavorite(context.Background(), "a1", true)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestCancelledFetch(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := New(server.URL).FetchBucket(ctx, grid.FetchRequest{PageSize: 10, BucketKey: "2024-03"})
	require.Error(t, err)
	assert.True(t, grid.IsCancelled(err))
	assert.ErrorIs(t, err, grid.ErrFetchCancelled)
}

func TestDefaultClientLeavesCancellationToContext(t *testing.T) {
	c := New("http://127.0.0.1:0")
	assert.Zero(t, c.httpClient.Timeout)
}

func TestFetchBucketRejectsZeroPageSize(t *testing.T) {
	_, err := New("http://127.0.0.1:0").FetchBucket(context.Background(), grid.FetchRequest{BucketKey: "x"})
	assert.Error(t, err)
}

func TestSaveAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/assets/a1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var a assets.Asset
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		a.Description = "saved"
		_ = json.NewEncoder(w).Encode(a)
	}))
	defer server.Close()

	saved, err := New(server.URL).SaveAsset(context.Background(), assets.Asset{ID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, "saved", saved.Description)
}
