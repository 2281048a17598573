package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"go.uber.org/zap"
)

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []domain.ProgressSnapshot
}

func (r *snapshotRecorder) record(s domain.ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *snapshotRecorder) all() []domain.ProgressSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ProgressSnapshot(nil), r.snaps...)
}

func newTestFetcher(fs afero.Fs) *HTTPFetcher {
	f := NewHTTPFetcher(fs, nil, "ytfetch-test", zap.NewNop())
	f.interval = time.Millisecond
	return f
}

func TestHTTPFetcher_KnownLengthEndsAtTotal(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 256*1024)
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	rec := &snapshotRecorder{}
	err := newTestFetcher(fs).Fetch(context.Background(), srv.URL, "/bin/yt-dlp", rec.record)
	require.NoError(t, err)

	assert.Equal(t, "ytfetch-test", gotUA)

	data, err := afero.ReadFile(fs, "/bin/yt-dlp")
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	snaps := rec.all()
	require.NotEmpty(t, snaps)
	last := snaps[len(snaps)-1]
	assert.Equal(t, int64(len(payload)), last.Downloaded)
	assert.Equal(t, last.Total, last.Downloaded)
	assert.Equal(t, 100.0, last.Percent())

	for i, s := range snaps {
		assert.LessOrEqual(t, s.Downloaded, s.Total)
		if i > 0 {
			assert.GreaterOrEqual(t, s.Downloaded, snaps[i-1].Downloaded)
		}
	}
}

func TestHTTPFetcher_UnknownLengthReportsZeroPercent(t *testing.T) {
	chunk := bytes.Repeat([]byte("y"), 8*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 8; i++ {
			w.Write(chunk)
			flusher.Flush()
			time.Sleep(2 * time.Millisecond)
		}
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	rec := &snapshotRecorder{}
	require.NoError(t, newTestFetcher(fs).Fetch(context.Background(), srv.URL, "/tmp/file", rec.record))

	snaps := rec.all()
	require.NotEmpty(t, snaps)
	for i, s := range snaps {
		assert.Equal(t, int64(0), s.Total)
		assert.Equal(t, 0.0, s.Percent())
		if i > 0 {
			assert.GreaterOrEqual(t, s.Downloaded, snaps[i-1].Downloaded)
		}
	}
	assert.Equal(t, int64(len(chunk)*8), snaps[len(snaps)-1].Downloaded)
}

func TestHTTPFetcher_ThrottlesCallbacks(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 512*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(afero.NewMemMapFs(), nil, "", zap.NewNop())
	f.interval = time.Hour

	rec := &snapshotRecorder{}
	require.NoError(t, f.Fetch(context.Background(), srv.URL, "/tmp/file", rec.record))

	// one throttled callback on the first chunk plus the final one
	assert.Len(t, rec.all(), 2)
}

func TestHTTPFetcher_BadStatusIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	err := newTestFetcher(afero.NewMemMapFs()).Fetch(context.Background(), srv.URL, "/tmp/file", nil)
	assert.True(t, errors.Is(err, domain.ErrNetwork))
}

func TestHTTPFetcher_TruncatedBodyIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		w.Write([]byte("short"))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	err := newTestFetcher(fs).Fetch(context.Background(), srv.URL, "/tmp/file", nil)
	assert.True(t, errors.Is(err, domain.ErrNetwork))

	// the partial file is left for the caller
	exists, _ := afero.Exists(fs, "/tmp/file")
	assert.True(t, exists)
}

func TestHTTPFetcher_UnwritableDestinationIsIOError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	err := newTestFetcher(fs).Fetch(context.Background(), srv.URL, "/tmp/file", nil)
	assert.True(t, errors.Is(err, domain.ErrIO))
}

func TestHTTPFetcher_Cancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 1000; i++ {
			if _, err := w.Write(bytes.Repeat([]byte("c"), 1024)); err != nil {
				return
			}
			flusher.Flush()
			time.Sleep(5 * time.Millisecond)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var once sync.Once
	err := newTestFetcher(afero.NewMemMapFs()).Fetch(ctx, srv.URL, "/tmp/file", func(domain.ProgressSnapshot) {
		once.Do(cancel)
	})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
