package transport

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/rhuss/expresso/pkg/api"
)

// CORSConfig describes the cross-origin policy applied by CORS.
type CORSConfig struct {
	// Origins lists allowed origins. "*" allows any origin.
	Origins []string
	Methods []string
	Headers []string
	// MaxAge is the preflight cache lifetime in seconds; 0 omits the header.
	MaxAge int
	// HandlePreflight answers OPTIONS preflight requests with 204 without
	// running the rest of the chain.
	HandlePreflight bool
}

// DefaultCORSConfig allows every origin, the common methods, and the
// Content-Type and Authorization request headers.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		Origins: []string{"*"},
		Methods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		Headers: []string{"Content-Type", "Authorization"},
	}
}

// CORSWithOrigin is the default policy restricted to a single origin.
func CORSWithOrigin(origin string) Handler {
	cfg := DefaultCORSConfig()
	cfg.Origins = []string{origin}
	return CORS(cfg)
}

// CORS returns middleware that adds Access-Control-* headers to the
// response produced by the rest of the chain. When the policy lists
// explicit origins, the request Origin is echoed only if it is listed.
func CORS(cfg CORSConfig) Handler {
	methods := strings.Join(cfg.Methods, ", ")
	headers := strings.Join(cfg.Headers, ", ")
	wildcard := slices.Contains(cfg.Origins, "*")

	apply := func(req *api.Request, res *api.Response) *api.Response {
		if wildcard {
			res.SetHeader("Access-Control-Allow-Origin", "*")
		} else {
			if origin := req.HeaderValue("Origin"); origin != "" && slices.Contains(cfg.Origins, origin) {
				res.SetHeader("Access-Control-Allow-Origin", origin)
			}
			res.AddHeader("Vary", "Origin")
		}
		if methods != "" {
			res.SetHeader("Access-Control-Allow-Methods", methods)
		}
		if headers != "" {
			res.SetHeader("Access-Control-Allow-Headers", headers)
		}
		return res
	}

	return HandlerFunc(func(ctx context.Context, req *api.Request, res *api.Response, next Next) *api.Response {
		if cfg.HandlePreflight && req.Method == api.MethodOptions && req.HeaderValue("Access-Control-Request-Method") != "" {
			res.Status(http.StatusNoContent)
			if cfg.MaxAge > 0 {
				res.SetHeader("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
			}
			return apply(req, res)
		}
		return apply(req, next(ctx))
	})
}
