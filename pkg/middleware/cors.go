package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig controls the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists origins allowed to call the service. A "*"
	// entry allows everything, which is only safe in development.
	AllowedOrigins []string

	// AllowedMethods defaults to GET, POST and OPTIONS when empty.
	AllowedMethods []string

	// AllowedHeaders defaults to Accept, Authorization, Content-Type
	// and X-Correlation-ID when empty.
	AllowedHeaders []string

	// ExposedHeaders lists response headers the browser may read.
	ExposedHeaders []string

	// MaxAge is the preflight cache lifetime in seconds, 3600 when 0.
	MaxAge int

	// AllowCredentials permits cookies and Authorization headers on
	// cross-origin requests.
	AllowCredentials bool

	// Environment widens origin matching: "development" behaves as if
	// AllowedOrigins contained "*".
	Environment string
}

// DefaultCORSConfig suits local development, scoped to the methods the
// gateway actually serves.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Correlation-ID", "X-Upload-ID"},
		MaxAge:         3600,
		Environment:    "development",
	}
}

// corsPolicy is a CORSConfig flattened into ready-to-send header values.
type corsPolicy struct {
	wildcard bool
	origins  map[string]struct{}
	methods  string
	headers  string
	exposed  string
	maxAge   string
	creds    bool
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID"}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}

	p := &corsPolicy{
		wildcard: cfg.Environment == "development",
		origins:  make(map[string]struct{}, len(cfg.AllowedOrigins)),
		methods:  strings.Join(cfg.AllowedMethods, ", "),
		headers:  strings.Join(cfg.AllowedHeaders, ", "),
		exposed:  strings.Join(cfg.ExposedHeaders, ", "),
		maxAge:   strconv.Itoa(cfg.MaxAge),
		creds:    cfg.AllowCredentials,
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.wildcard = true
		}
		p.origins[o] = struct{}{}
	}
	return p
}

func (p *corsPolicy) setHeaders(w http.ResponseWriter, origin string) {
	h := w.Header()

	switch {
	case p.wildcard:
		h.Set("Access-Control-Allow-Origin", "*")
	case origin != "":
		if _, ok := p.origins[origin]; ok {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Vary", "Origin")
		}
	}

	h.Set("Access-Control-Allow-Methods", p.methods)
	h.Set("Access-Control-Allow-Headers", p.headers)
	if p.exposed != "" {
		h.Set("Access-Control-Expose-Headers", p.exposed)
	}
	h.Set("Access-Control-Max-Age", p.maxAge)
	if p.creds {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

// CORS answers preflight requests and stamps CORS headers on everything
// else. The admin console uploads straight from the browser, so
// preflights for multipart POSTs must succeed here.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy.setHeaders(w, r.Header.Get("Origin"))

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
