// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/astro-facts/pkg/types"
)

func init() {
	// Use a tiny base delay so tests finish quickly.
	RetryBaseDelay = 1 * time.Millisecond
}

func TestGet_ImmediateSuccess(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "astro-facts-test", r.Header.Get("User-Agent"))
		w.Write([]byte("TITLE: GCN CIRCULAR"))
	}))
	defer ts.Close()

	c := New(types.HTTPConfig{UserAgent: "astro-facts-test"}, nil)
	body, err := c.Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "TITLE: GCN CIRCULAR", string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_RetriesThen200(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.Write([]byte("ok"))
		}
	}))
	defer ts.Close()

	body, err := New(types.HTTPConfig{}, nil).Get(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_ExhaustsRetries(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := New(types.HTTPConfig{MaxRetries: 2}, nil).Get(context.Background(), ts.URL)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_NotFoundIsPermanent(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := New(types.HTTPConfig{}, nil).Get(context.Background(), ts.URL)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_OtherStatusIsPermanent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := New(types.HTTPConfig{}, nil).Get(context.Background(), ts.URL)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestGet_Cache(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("cached"))
	}))
	defer ts.Close()

	c := New(types.HTTPConfig{CacheSize: 4, CacheTTL: time.Minute}, nil)
	for range 3 {
		body, err := c.Get(context.Background(), ts.URL)
		require.NoError(t, err)
		assert.Equal(t, "cached", string(body))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGet_ContextCancelled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(types.HTTPConfig{}, nil).Get(ctx, ts.URL)
	assert.Error(t, err)
}

func TestGetJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"trigger": 658000000, "name": "bn211123"}`))
	}))
	defer ts.Close()

	var v struct {
		Trigger int    `json:"trigger"`
		Name    string `json:"name"`
	}
	require.NoError(t, New(types.HTTPConfig{}, nil).GetJSON(context.Background(), ts.URL, &v))
	assert.Equal(t, 658000000, v.Trigger)
	assert.Equal(t, "bn211123", v.Name)
}

func TestDownload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("archive bytes"))
	}))
	defer ts.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "all_gcn_circulars.tar.gz")
	c := New(types.HTTPConfig{}, nil)

	require.NoError(t, c.Download(context.Background(), ts.URL+"/archive", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(data))

	other := filepath.Join(dir, "missing.tar.gz")
	err = c.Download(context.Background(), ts.URL+"/missing", other)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, statErr := os.Stat(other)
	assert.True(t, os.IsNotExist(statErr))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
