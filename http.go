package acme

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// MaxResponseBodySize is the response body size ceiling required by
// spec.md 4.3 ("caps response body size at 1 MiB").
const MaxResponseBodySize = 1 << 20

// HTTPResponse is the response shape the core consumes from the HTTP
// transport (spec.md 6.1): status, headers, and a fully-read body.
type HTTPResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// HTTPTransport is the HTTP transport the core consumes (spec.md 6.1).
// The source models completion as a callback; in Go the natural
// realization is a blocking call returning a value or an error, which is
// equally compatible with the continuation-passing pipeline described in
// spec.md 5 since the pipeline itself is free to run the call on a
// goroutine if a caller needs non-blocking dispatch.
type HTTPTransport interface {
	Get(ctx context.Context, url string, headers http.Header) (*HTTPResponse, error)
	Head(ctx context.Context, url string, headers http.Header) (*HTTPResponse, error)
	Post(ctx context.Context, url string, headers http.Header, contentType string, body []byte) (*HTTPResponse, error)
}

// StdHTTPTransport is the default HTTPTransport, grounded on the
// teacher's NewHTTPClient. It additionally retries transport-level
// (connection, timeout) failures on GET/HEAD with a bounded exponential
// backoff — idempotent methods only, since retrying a POST here would
// race the pipeline's own nonce-replay retry in request.go and risk
// spending a nonce twice.
type StdHTTPTransport struct {
	client              *http.Client
	userAgent           string
	maxResponseBodySize int64
	maxRetries          uint64
}

// NewHTTPClient builds the net/http.Client the StdHTTPTransport wraps,
// grounded directly on the teacher's dialer/transport tuning.
func NewHTTPClient(caCertPool *x509.CertPool) *http.Client {
	transport := http.Transport{
		Proxy: http.ProxyFromEnvironment,

		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		MaxIdleConns: 10,

		IdleConnTimeout: 60 * time.Second,
	}

	transport.DialTLSContext = func(ctx context.Context, network, address string) (net.Conn, error) {
		tlsCfg := tls.Config{RootCAs: caCertPool}

		dialer := &tls.Dialer{
			NetDialer: &net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			},
			Config: &tlsCfg,
		}

		return dialer.DialContext(ctx, network, address)
	}

	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: &transport,
	}
}

// NewStdHTTPTransport constructs the default transport, bound to a
// user agent (spec.md 6.1). It takes no proxy URL: a proxy, if any, is
// configured on httpClient. A nil httpClient falls back to
// NewHTTPClient(nil).
func NewStdHTTPTransport(httpClient *http.Client, userAgent string) *StdHTTPTransport {
	if httpClient == nil {
		httpClient = NewHTTPClient(nil)
	}

	return &StdHTTPTransport{
		client:              httpClient,
		userAgent:           userAgent,
		maxResponseBodySize: MaxResponseBodySize,
		maxRetries:          3,
	}
}

// SetMaxResponseBodySize overrides the response body cap (spec.md 4.3).
func (t *StdHTTPTransport) SetMaxResponseBodySize(n int64) {
	t.maxResponseBodySize = n
}

func (t *StdHTTPTransport) Get(ctx context.Context, url string, headers http.Header) (*HTTPResponse, error) {
	return t.doIdempotent(ctx, http.MethodGet, url, headers, "", nil)
}

func (t *StdHTTPTransport) Head(ctx context.Context, url string, headers http.Header) (*HTTPResponse, error) {
	return t.doIdempotent(ctx, http.MethodHead, url, headers, "", nil)
}

func (t *StdHTTPTransport) Post(ctx context.Context, url string, headers http.Header, contentType string, body []byte) (*HTTPResponse, error) {
	return t.do(ctx, http.MethodPost, url, headers, contentType, body)
}

// doIdempotent wraps do with a bounded backoff retry of transport-level
// failures (network errors, not ACME problem documents): safe because
// GET and HEAD never mutate server state.
func (t *StdHTTPTransport) doIdempotent(ctx context.Context, method, url string, headers http.Header, contentType string, body []byte) (*HTTPResponse, error) {
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), t.maxRetries),
		ctx)

	var res *HTTPResponse

	err := backoff.Retry(func() error {
		var err error
		res, err = t.do(ctx, method, url, headers, contentType, body)
		if err == nil {
			return nil
		}

		var netErr net.Error
		if errors.As(err, &netErr) {
			return err // transient: retry
		}

		return backoff.Permanent(err)
	}, bo)
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (t *StdHTTPTransport) do(ctx context.Context, method, url string, headers http.Header, contentType string, body []byte) (*HTTPResponse, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, newError(ErrorKindInvalid, "cannot create request: %v", err)
	}

	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	res, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	limited := io.LimitReader(res.Body, t.maxResponseBodySize+1)

	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, newError(ErrorKindGeneral, "cannot read response body: %v", err)
	}

	if int64(len(data)) > t.maxResponseBodySize {
		return nil, newError(ErrorKindGeneral, "response body exceeds %d bytes",
			t.maxResponseBodySize)
	}

	return &HTTPResponse{
		Status: res.StatusCode,
		Header: res.Header,
		Body:   data,
	}, nil
}
