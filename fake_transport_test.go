package acme

import (
	"context"
	"fmt"
	"net/http"
)

// fakeResponse is one scripted reply for a (method, url) pair.
type fakeResponse struct {
	status int
	header http.Header
	body   []byte
	err    error
}

// fakeCall records one dispatch observed by fakeTransport, so tests can
// assert exact call counts (spec.md 8 scenarios 2-4).
type fakeCall struct {
	method string
	url    string
}

// fakeTransport is the HTTPTransport double the test suite drives: each
// (method, url) pair has its own FIFO queue of scripted responses,
// consumed one per dispatch, mirroring how a real CA would answer a
// sequence of retries differently each time.
type fakeTransport struct {
	queues map[string][]fakeResponse
	calls  []fakeCall
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{queues: make(map[string][]fakeResponse)}
}

func (t *fakeTransport) script(method, url string, res fakeResponse) {
	key := method + " " + url
	t.queues[key] = append(t.queues[key], res)
}

func (t *fakeTransport) dispatch(method, url string) (*HTTPResponse, error) {
	t.calls = append(t.calls, fakeCall{method: method, url: url})

	key := method + " " + url

	q := t.queues[key]
	if len(q) == 0 {
		return nil, fmt.Errorf("fakeTransport: no scripted response for %s %s", method, url)
	}

	res := q[0]
	t.queues[key] = q[1:]

	if res.err != nil {
		return nil, res.err
	}

	header := res.header
	if header == nil {
		header = make(http.Header)
	}

	return &HTTPResponse{Status: res.status, Header: header, Body: res.body}, nil
}

func (t *fakeTransport) Get(ctx context.Context, url string, headers http.Header) (*HTTPResponse, error) {
	return t.dispatch("GET", url)
}

func (t *fakeTransport) Head(ctx context.Context, url string, headers http.Header) (*HTTPResponse, error) {
	return t.dispatch("HEAD", url)
}

func (t *fakeTransport) Post(ctx context.Context, url string, headers http.Header, contentType string, body []byte) (*HTTPResponse, error) {
	return t.dispatch("POST", url)
}

func (t *fakeTransport) callCount(method, url string) int {
	n := 0

	for _, c := range t.calls {
		if c.method == method && c.url == url {
			n++
		}
	}

	return n
}

func jsonHeader() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return h
}

func problemHeader(nonce string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/problem+json")

	if nonce != "" {
		h.Set("Replay-Nonce", nonce)
	}

	return h
}

func nonceHeader(nonce string) http.Header {
	h := make(http.Header)
	h.Set("Replay-Nonce", nonce)
	return h
}
