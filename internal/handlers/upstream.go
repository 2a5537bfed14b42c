package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const defaultUpstreamTimeout = 15 * time.Second

// NewUpstreamProxy forwards requests to baseURL. It must be mounted on a
// wildcard route: the wildcard remainder, the query, the body and the
// Authorization header are passed through and the upstream status, content
// type and body are relayed verbatim.
func NewUpstreamProxy(baseURL string, timeout time.Duration) (http.Handler, error) {
	target, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || target.Scheme == "" || target.Host == "" {
		return nil, errors.New("invalid upstream base url")
	}
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			rest := "/" + strings.TrimPrefix(chi.URLParamFromCtx(pr.In.Context(), "*"), "/")

			pr.Out.URL.Scheme = target.Scheme
			pr.Out.URL.Host = target.Host
			pr.Out.URL.Path = target.Path + rest
			pr.Out.URL.RawPath = ""
			pr.Out.URL.RawQuery = pr.In.URL.RawQuery
			pr.Out.Host = target.Host

			pr.Out.Header = make(http.Header)
			for _, key := range []string{"Authorization", "Content-Type", "Accept"} {
				if value := pr.In.Header.Get(key); value != "" {
					pr.Out.Header.Set(key, value)
				}
			}
		},
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: timeout,
			IdleConnTimeout:       90 * time.Second,
		},
		ModifyResponse: func(resp *http.Response) error {
			contentType := resp.Header.Get("Content-Type")
			for key := range resp.Header {
				resp.Header.Del(key)
			}
			if contentType != "" {
				resp.Header.Set("Content-Type", contentType)
			}
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.WarnContext(r.Context(), "upstream request failed", "path", r.URL.Path, "err", err)
			if errors.Is(err, context.DeadlineExceeded) {
				writeError(w, http.StatusGatewayTimeout, "upstream timed out")
				return
			}
			writeError(w, http.StatusBadGateway, "upstream unavailable")
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		proxy.ServeHTTP(w, r.WithContext(ctx))
	}), nil
}
