package acme

import (
	"context"
	"crypto"
	"net/http"
	"net/url"

	"go.n16f.net/log"
)

// DefaultMaxRetries is the nonce-replay retry ceiling applied when
// SessionCfg.MaxRetries is zero (spec.md 4.6: "max_retries = 3").
const DefaultMaxRetries = 3

// SessionCfg configures a Session. Only BaseURL is required; everything
// else defaults the way the teacher's ClientCfg defaults its Client.
type SessionCfg struct {
	Log           *log.Logger   `json:"-"`
	HTTPTransport HTTPTransport `json:"-"`
	Signer        Signer        `json:"-"`

	BaseURL          string `json:"base_url"`
	ProxyURL         string `json:"proxy_url,omitempty"`
	ProductUserAgent string `json:"product_user_agent,omitempty"`
	MaxRetries       int    `json:"max_retries,omitempty"`
}

// Session is the root ACME client object (spec.md 3): it is bound to one
// CA directory URL for its whole lifetime and drives exactly one dialect.
//
// A Session is single-threaded cooperative (spec.md 5): callers must not
// invoke two signed POSTs concurrently on the same Session, and the
// nonce cache and endpoint set are deliberately not mutex-guarded (see
// DESIGN.md) — the contract is enforced by convention, not by locking,
// because Go's race detector catching an accidental second caller is
// more useful here than a lock silently serializing two callers that
// both assumed exclusivity.
type Session struct {
	baseURL string

	dialect     Dialect
	endpoints   Endpoints
	caAgreement string
	nonce       *string

	accountGroup string
	accountID    string
	account      *Account
	accountKey   crypto.Signer

	transport HTTPTransport
	signer    Signer
	logger    *log.Logger

	userAgent  string
	proxyURL   string
	shortName  string
	maxRetries int
}

// NewSession implements spec.md 4.6's create(base_url, proxy_url?): it
// validates the base URL, derives short_name, and leaves dialect
// UNKNOWN until the first setup (invariant I1).
func NewSession(cfg SessionCfg) (*Session, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || !u.IsAbs() {
		return nil, newError(ErrorKindInvalid, "invalid ACME directory URL %q", cfg.BaseURL)
	}

	if cfg.Log == nil {
		cfg.Log = log.DefaultLogger("acme")
	}

	if cfg.Signer == nil {
		cfg.Signer = NewJoseSigner()
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	productUserAgent := cfg.ProductUserAgent
	if productUserAgent == "" {
		productUserAgent = "acmecore"
	}

	s := &Session{
		baseURL: cfg.BaseURL,
		dialect: DialectUnknown,

		transport: cfg.HTTPTransport,
		signer:    cfg.Signer,
		logger:    cfg.Log,

		userAgent:  productUserAgent + " mod_md/1.0",
		proxyURL:   cfg.ProxyURL,
		shortName:  shortHostname(u.Hostname()),
		maxRetries: cfg.MaxRetries,
	}

	return s, nil
}

// shortHostname implements spec.md 4.6 / testable property B1: the last
// min(len(hostname), 16) characters of hostname.
func shortHostname(hostname string) string {
	const maxLen = 16

	if len(hostname) <= maxLen {
		return hostname
	}

	return hostname[len(hostname)-maxLen:]
}

func (s *Session) log() *log.Logger {
	return s.logger
}

// ensureTransport lazily instantiates the default HTTP transport bound
// to user_agent/proxy_url and capped at 1 MiB, per spec.md 4.3.
func (s *Session) ensureTransport() HTTPTransport {
	if s.transport == nil {
		httpClient := NewHTTPClient(nil)

		if s.proxyURL != "" {
			if proxy, err := url.Parse(s.proxyURL); err == nil {
				if t, ok := httpClient.Transport.(*http.Transport); ok {
					t.Proxy = http.ProxyURL(proxy)
				}
			}
		}

		t := NewStdHTTPTransport(httpClient, s.userAgent)
		t.SetMaxResponseBodySize(MaxResponseBodySize)

		s.transport = t
	}

	return s.transport
}

// ensureSetup performs directory discovery (spec.md 4.3) on first use,
// satisfying invariant I1/I2.
func (s *Session) ensureSetup(ctx context.Context) error {
	if s.dialect != DialectUnknown {
		return nil
	}

	return s.setup(ctx)
}

// Setup forces a directory refresh. A first call resolves the dialect
// (invariant I1); subsequent calls may only refresh endpoints for the
// already-resolved dialect (invariant I2).
func (s *Session) Setup(ctx context.Context) error {
	return s.setup(ctx)
}

// Dialect reports the currently resolved protocol dialect.
func (s *Session) Dialect() Dialect {
	return s.dialect
}

// CAAgreement returns the CA's advertised terms-of-service URL, if any.
func (s *Session) CAAgreement() string {
	return s.caAgreement
}

// BaseURL returns the CA directory URL this Session is bound to.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// ShortName returns the truncated hostname used for log correlation
// (spec.md 4.6).
func (s *Session) ShortName() string {
	return s.shortName
}
