package httpserver

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/mattnewell-cam/AgentPayments/internal/logger"
	"github.com/mattnewell-cam/AgentPayments/pkg/responders"
)

// NewUpstreamProxy builds the reverse proxy the gate fronts. Inbound path
// and query pass through unchanged; Host is rewritten to the upstream so
// name-based virtual hosts route correctly. An unreachable upstream
// answers 502.
func NewUpstreamProxy(upstream string) (http.Handler, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("httpserver: parse upstream %q: %w", upstream, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("httpserver: upstream %q must include a scheme and host", upstream)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = target.Host
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log := logger.FromContext(r.Context())
		log.Warn().
			Err(err).
			Str("upstream", target.Host).
			Str("path", r.URL.Path).
			Msg("server.upstream_unreachable")
		responders.JSON(w, http.StatusBadGateway, map[string]any{
			"error":   "bad_gateway",
			"message": "Upstream request failed.",
		})
	}

	return proxy, nil
}
