package fetcher

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"feedloader/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type getResult struct {
	resp domain.RawResponse
	err  error
}

func newTestClient(opts Options) *HTTPClient {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHTTPClient(&http.Client{}, opts, logger)
}

func getAndWait(t *testing.T, client *HTTPClient, rawURL string) getResult {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	done := make(chan getResult, 1)
	client.Get(u, func(resp domain.RawResponse, err error) {
		done <- getResult{resp: resp, err: err}
	})
	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("completion was not called")
		return getResult{}
	}
}

func TestHTTPClient_Get_Success(t *testing.T) {
	var method, path string
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"items":[]}`))
	}))
	defer testServer.Close()

	result := getAndWait(t, newTestClient(Options{}), testServer.URL+"/feed")

	require.NoError(t, result.err)
	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, "/feed", path)
	assert.Equal(t, http.StatusOK, result.resp.StatusCode)
	assert.Equal(t, `{"items":[]}`, string(result.resp.Data))
	assert.Equal(t, "application/json", result.resp.Header.Get("Content-Type"))
}

func TestHTTPClient_Get_NonOKStatusIsNotAnError(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not here"))
	}))
	defer testServer.Close()

	result := getAndWait(t, newTestClient(Options{}), testServer.URL)

	require.NoError(t, result.err)
	assert.Equal(t, http.StatusNotFound, result.resp.StatusCode)
	assert.Equal(t, "not here", string(result.resp.Data))
}

func TestHTTPClient_Get_ConnectionError(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := testServer.URL
	testServer.Close()

	result := getAndWait(t, newTestClient(Options{}), serverURL)

	assert.Error(t, result.err)
	assert.Zero(t, result.resp.StatusCode)
}

func TestHTTPClient_Get_InvalidScheme(t *testing.T) {
	result := getAndWait(t, newTestClient(Options{}), "invalid://url")

	assert.Error(t, result.err)
}

func TestHTTPClient_Get_NilURL(t *testing.T) {
	client := newTestClient(Options{})
	done := make(chan error, 1)

	client.Get(nil, func(_ domain.RawResponse, err error) { done <- err })

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("completion was not called")
	}
}

func TestHTTPClient_Get_Timeout(t *testing.T) {
	release := make(chan struct{})
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer testServer.Close()
	defer close(release)

	result := getAndWait(t, newTestClient(Options{Timeout: 50 * time.Millisecond}), testServer.URL)

	assert.Error(t, result.err)
}

func TestHTTPClient_Get_LimitsBody(t *testing.T) {
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer testServer.Close()

	result := getAndWait(t, newTestClient(Options{MaxBodyBytes: 10}), testServer.URL)

	require.NoError(t, result.err)
	assert.Len(t, result.resp.Data, 10)
}

func TestHTTPClient_Get_CompletesOncePerCall(t *testing.T) {
	var requests atomic.Int32
	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer testServer.Close()
	client := newTestClient(Options{})
	u, err := url.Parse(testServer.URL)
	require.NoError(t, err)

	var completions atomic.Int32
	for i := 0; i < 3; i++ {
		client.Get(u, func(domain.RawResponse, error) { completions.Add(1) })
	}

	require.Eventually(t, func() bool { return completions.Load() == 3 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), completions.Load())
	assert.Equal(t, int32(3), requests.Load())
}
