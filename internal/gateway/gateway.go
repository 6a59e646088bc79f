// Package gateway fronts one or more bike-store instances discovered through
// Consul and spreads requests across them.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prudhivi99/bike-store/internal/handlers"
)

// Resolver looks up the base URLs of healthy service instances
type Resolver interface {
	ServiceURLs(serviceName string) ([]string, error)
}

type upstream struct {
	url   string
	proxy *httputil.ReverseProxy
}

type Gateway struct {
	resolver Resolver
	service  string
	fallback string

	mutex     sync.RWMutex
	upstreams []*upstream
	next      atomic.Uint64

	client *http.Client
}

// New creates a gateway for service. resolver may be nil, in which case only
// the fallback URL is used.
func New(resolver Resolver, service, fallback string) *Gateway {
	g := &Gateway{
		resolver: resolver,
		service:  service,
		fallback: fallback,
		client:   &http.Client{Timeout: 2 * time.Second},
	}

	g.Refresh()
	return g
}

// Refresh re-resolves the upstream set
func (g *Gateway) Refresh() {
	var urls []string
	if g.resolver != nil {
		resolved, err := g.resolver.ServiceURLs(g.service)
		if err != nil {
			log.Printf("⚠️ Service %s not found: %v", g.service, err)
		}
		urls = resolved
	}
	if len(urls) == 0 && g.fallback != "" {
		urls = []string{g.fallback}
	}
	sort.Strings(urls)

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if sameURLs(g.upstreams, urls) {
		return
	}

	upstreams := make([]*upstream, 0, len(urls))
	for _, raw := range urls {
		target, err := url.Parse(raw)
		if err != nil {
			log.Printf("❌ Invalid URL for %s: %v", g.service, err)
			continue
		}
		upstreams = append(upstreams, &upstream{url: raw, proxy: newProxy(target)})
	}

	g.upstreams = upstreams
	log.Printf("✅ Updated routes: %s → %v", g.service, urls)
}

func sameURLs(current []*upstream, urls []string) bool {
	if len(current) != len(urls) {
		return false
	}
	for i, u := range current {
		if u.url != urls[i] {
			return false
		}
	}
	return true
}

func newProxy(target *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("❌ Proxy error for %s: %v", target, err)
		writeEnvelope(w, http.StatusBadGateway, "Upstream service failed to respond.", "BadGateway")
	}
	return proxy
}

func writeEnvelope(w http.ResponseWriter, status int, message, name string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(handlers.ErrorResponse{
		Success: false,
		Message: message,
		Error:   handlers.ErrorBody{Name: name},
	})
}

// Watch refreshes the upstream set every interval until ctx is done
func (g *Gateway) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Refresh()
		}
	}
}

// pick returns the next upstream round-robin, or nil if there is none
func (g *Gateway) pick() *upstream {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if len(g.upstreams) == 0 {
		return nil
	}
	n := g.next.Add(1) - 1
	return g.upstreams[n%uint64(len(g.upstreams))]
}

// URLs returns the current upstream base URLs
func (g *Gateway) URLs() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	urls := make([]string, 0, len(g.upstreams))
	for _, u := range g.upstreams {
		urls = append(urls, u.url)
	}
	return urls
}

// Proxy forwards the request to one upstream instance. Requests are never
// retried against another instance.
func (g *Gateway) Proxy(c *gin.Context) {
	up := g.pick()
	if up == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, handlers.ErrorResponse{
			Success: false,
			Message: g.service + " unavailable",
			Error:   handlers.ErrorBody{Name: "ServiceUnavailable"},
		})
		return
	}

	log.Printf("🔀 Routing %s %s → %s", c.Request.Method, c.Request.URL.Path, up.url)
	up.proxy.ServeHTTP(c.Writer, c.Request)
}

// HealthCheck probes every upstream's /health endpoint
func (g *Gateway) HealthCheck(c *gin.Context) {
	urls := g.URLs()

	statuses := make(map[string]string, len(urls))
	status := "healthy"
	if len(urls) == 0 {
		status = "degraded"
	}

	for _, u := range urls {
		if g.probe(c.Request.Context(), u) {
			statuses[u] = "healthy"
			continue
		}
		statuses[u] = "unhealthy"
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"service":   "bike-gateway",
		"upstreams": statuses,
	})
}

func (g *Gateway) probe(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ListServices reports the current upstreams
func (g *Gateway) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   g.service,
		"upstreams": g.URLs(),
	})
}

// Router exposes the gateway's own endpoints and proxies everything else
func (g *Gateway) Router(requestLog bool) *gin.Engine {
	router := gin.New()
	if requestLog {
		router.Use(gin.Logger())
	}
	router.Use(handlers.Recovery())

	router.GET("/gateway/health", g.HealthCheck)
	router.GET("/gateway/services", g.ListServices)

	router.GET("/", g.Proxy)
	router.Any("/api/*path", g.Proxy)

	router.NoRoute(handlers.NotFound)

	return router
}
