package transport

import (
	"log"
	"net/url"
	"strings"

	"net/http"

	"github.com/Janine65/jafr-ng-core/pkg/runtimecfg"
)

// Rewrite bases scheme-less requests on the environment's API URL and
// strips the configured API prefix from their path. Absolute requests
// already aimed at the API host get the same prefix treatment; requests to
// any other host pass through untouched, so calls to the identity provider
// or to third-party endpoints are never redirected at the backend.
func Rewrite(env runtimecfg.Environment) Decorator {
	base, err := url.Parse(env.APIURL)
	if err != nil {
		log.Printf("transport: invalid api url %q: %v", env.APIURL, err)
		base = nil
	}
	prefix := env.APIPrefix

	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if base == nil {
				return next.RoundTrip(req)
			}
			if req.URL.Host != "" && req.URL.Host != base.Host {
				return next.RoundTrip(req)
			}

			out := cloneRequest(req)
			path := out.URL.Path
			if prefix != "" && strings.HasPrefix(path, prefix) {
				path = strings.TrimPrefix(path, prefix)
				if !strings.HasPrefix(path, "/") {
					path = "/" + path
				}
			}

			rewritten := *base
			rewritten.Path = strings.TrimRight(base.Path, "/") + path
			rewritten.RawQuery = out.URL.RawQuery
			rewritten.Fragment = out.URL.Fragment
			out.URL = &rewritten
			out.Host = rewritten.Host
			return next.RoundTrip(out)
		})
	}
}
