package lookup

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Opts holds configuration for the lookup clients.
type Opts struct {
	BaseURL   string        // API root, without trailing slash
	APIKey    string        // credential sent with each request, when the API needs one
	Timeout   time.Duration // per-request timeout
	UserAgent string        // User-Agent header sent with each request
}

// Option defines a functional option for configuring a lookup client.
type Option func(*Opts)

// WithBaseURL overrides the API root, mainly for tests and self-hosted mirrors.
func WithBaseURL(baseURL string) Option {
	return func(o *Opts) {
		o.BaseURL = baseURL
	}
}

// WithAPIKey sets the API credential.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithTimeout sets the per-request timeout. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Opts) {
		if timeout > 0 {
			o.Timeout = timeout
		}
	}
}

// WithUserAgent sets the User-Agent header. OpenFoodFacts asks clients to
// identify themselves; an empty value keeps the default.
func WithUserAgent(ua string) Option {
	return func(o *Opts) {
		if ua = strings.TrimSpace(ua); ua != "" {
			o.UserAgent = ua
		}
	}
}

const defaultUserAgent = "GoalPipe/1.0"

func buildOpts(defaultBaseURL string, opts []Option) Opts {
	cfg := Opts{
		BaseURL:   defaultBaseURL,
		Timeout:   DefaultTimeout,
		UserAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return cfg
}

// newHTTPClient returns a resty client bound to the configured base URL and timeout.
func newHTTPClient(cfg Opts) *resty.Client {
	return resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent)
}
