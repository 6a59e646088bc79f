package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticResolver struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (r *staticResolver) ServiceURLs(string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.urls, r.err
}

func (r *staticResolver) set(urls []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.urls, r.err = urls, err
}

// backend answers every request with its own name
func backend(t *testing.T, name string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"instance":%q,"path":%q,"query":%q}`, name, r.URL.Path, r.URL.RawQuery)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, router http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func instanceOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var body struct {
		Instance string `json:"instance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Instance
}

func TestProxy_RoundRobin(t *testing.T) {
	a, b := backend(t, "a"), backend(t, "b")
	g := New(&staticResolver{urls: []string{a.URL, b.URL}}, "bike-store", "")
	router := g.Router(false)

	hits := map[string]int{}
	for i := 0; i < 6; i++ {
		w := get(t, router, http.MethodPost, "/api/orders")
		require.Equal(t, http.StatusCreated, w.Code)
		hits[instanceOf(t, w)]++
	}

	assert.Equal(t, map[string]int{"a": 3, "b": 3}, hits)
}

func TestProxy_PreservesPathAndQuery(t *testing.T) {
	a := backend(t, "a")
	router := New(&staticResolver{urls: []string{a.URL}}, "bike-store", "").Router(false)

	w := get(t, router, http.MethodGet, "/api/products?searchTerm=road")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"instance":"a","path":"/api/products","query":"searchTerm=road"}`, w.Body.String())
}

func TestProxy_FallbackWhenDiscoveryFails(t *testing.T) {
	fallback := backend(t, "fallback")
	g := New(&staticResolver{err: errors.New("consul down")}, "bike-store", fallback.URL)

	assert.Equal(t, []string{fallback.URL}, g.URLs())
	w := get(t, g.Router(false), http.MethodGet, "/api/products")
	assert.Equal(t, "fallback", instanceOf(t, w))
}

func TestProxy_NilResolverUsesFallback(t *testing.T) {
	fallback := backend(t, "fallback")
	g := New(nil, "bike-store", fallback.URL)

	w := get(t, g.Router(false), http.MethodGet, "/")
	assert.Equal(t, "fallback", instanceOf(t, w))
}

func TestProxy_NoUpstream(t *testing.T) {
	router := New(&staticResolver{}, "bike-store", "").Router(false)

	w := get(t, router, http.MethodGet, "/api/products")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"bike-store unavailable","error":{"name":"ServiceUnavailable"}}`, w.Body.String())
}

func TestProxy_UpstreamDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	router := New(&staticResolver{urls: []string{deadURL}}, "bike-store", "").Router(false)

	w := get(t, router, http.MethodGet, "/api/products")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Upstream service failed to respond.","error":{"name":"BadGateway"}}`, w.Body.String())
}

func TestRefresh_PicksUpNewInstances(t *testing.T) {
	a, b := backend(t, "a"), backend(t, "b")
	resolver := &staticResolver{urls: []string{a.URL}}
	g := New(resolver, "bike-store", "")
	assert.Equal(t, []string{a.URL}, g.URLs())

	resolver.set([]string{b.URL, a.URL}, nil)
	g.Refresh()
	assert.ElementsMatch(t, []string{a.URL, b.URL}, g.URLs())

	resolver.set(nil, errors.New("no healthy instances"))
	g.Refresh()
	assert.Empty(t, g.URLs())
}

func TestHealthCheck(t *testing.T) {
	a := backend(t, "a")
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	router := New(&staticResolver{urls: []string{a.URL, deadURL}}, "bike-store", "").Router(false)

	w := get(t, router, http.MethodGet, "/gateway/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status    string            `json:"status"`
		Upstreams map[string]string `json:"upstreams"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "healthy", body.Upstreams[a.URL])
	assert.Equal(t, "unhealthy", body.Upstreams[deadURL])
}

func TestListServices(t *testing.T) {
	a := backend(t, "a")
	router := New(&staticResolver{urls: []string{a.URL}}, "bike-store", "").Router(false)

	w := get(t, router, http.MethodGet, "/gateway/services")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"service":"bike-store","upstreams":[%q]}`, a.URL), w.Body.String())
}

func TestUnknownGatewayRoute(t *testing.T) {
	router := New(nil, "bike-store", "").Router(false)

	w := get(t, router, http.MethodGet, "/admin")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
