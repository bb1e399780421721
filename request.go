package acme

import (
	"context"
	"errors"
	"net/http"
)

// request is the scratch object threaded through the send pipeline
// (spec.md 4.4): everything accumulated while assembling, signing, and
// dispatching one HTTP call, carried across a nonce-replay retry without
// being rebuilt from scratch.
type request struct {
	method string
	url    string

	protectedHeaders map[string]string
	requestJSON      *JSONValue

	// onInit runs after protected headers are assembled but before
	// signing, letting a caller (e.g. account creation) inspect or
	// amend them. onJSON and onRaw are mutually non-exclusive
	// completion callbacks; onJSON wins when the response carries a
	// JSON body, onRaw otherwise (spec.md 4.4 step 8).
	onInit func(*request) error
	onJSON func(*JSONValue) error
	onRaw  func(body []byte, header http.Header) error

	retriesLeft int

	responseHeaders http.Header
}

// dispatchUnsigned performs an unauthenticated GET or HEAD. It is the
// only way directory discovery and new-nonce fetches talk to the
// network, since neither has anything to sign with yet.
func (s *Session) dispatchUnsigned(ctx context.Context, method, url string) ([]byte, http.Header, error) {
	transport := s.ensureTransport()

	var res *HTTPResponse
	var err error

	switch method {
	case "GET":
		res, err = transport.Get(ctx, url, nil)
	case "HEAD":
		res, err = transport.Head(ctx, url, nil)
	default:
		return nil, nil, newError(ErrorKindNotImplemented, "unsupported HTTP method %q", method)
	}

	if err != nil {
		return nil, nil, newError(ErrorKindGeneral, "%s %s failed: %v", method, url, err)
	}

	if nonce := res.Header.Get("Replay-Nonce"); nonce != "" {
		s.storeNonce(nonce)
	}

	if res.Status < 200 || res.Status >= 300 {
		return nil, res.Header, classifyErrorResponse(res)
	}

	return res.Body, res.Header, nil
}

// classifyErrorResponse turns a non-2xx HTTPResponse into an *Error,
// preferring the RFC 7807 problem document when the body parses as one
// (spec.md 4.1) and falling back to a bare status-code classification
// otherwise.
func classifyErrorResponse(res *HTTPResponse) error {
	doc, err := ParseHTTPResponse(res.Header.Get("Content-Type"), res.Body)
	if err == nil {
		var p ProblemDetails
		if uerr := doc.Unmarshal(&p); uerr == nil && p.Type != "" {
			return newProblemError(&p)
		}
	}

	return newError(classifyHTTPStatus(res.Status), "ACME server returned status %d", res.Status)
}

// send implements the request pipeline of spec.md 4.4: pre-flight setup
// and nonce acquisition, protected header assembly, signing, dispatch,
// response classification, and nonce-replay retry. A retry re-enters the
// top of the loop below rather than recursing, so the retry ceiling
// (req.retriesLeft) is the only thing bounding how long the loop runs.
func (s *Session) send(ctx context.Context, req *request) error {
	switch req.method {
	case "GET", "HEAD", "POST":
	default:
		return newError(ErrorKindNotImplemented, "unsupported HTTP method %q", req.method)
	}

	for {
		var body []byte
		contentType := ""

		if req.method == "POST" {
			if err := s.ensureSetup(ctx); err != nil {
				return err
			}

			if err := s.ensureNonce(ctx); err != nil {
				return err
			}

			nonce, ok := s.consumeNonce()
			if !ok {
				return newError(ErrorKindGeneral, "no nonce available to sign request")
			}

			req.protectedHeaders = map[string]string{"nonce": nonce}
			if s.dialect == DialectV2 {
				req.protectedHeaders["url"] = req.url
			}

			if req.onInit != nil {
				if err := req.onInit(req); err != nil {
					return err
				}
			}

			if req.requestJSON != nil {
				payload, err := req.requestJSON.MarshalCompact()
				if err != nil {
					return newError(ErrorKindInvalid, "cannot encode request payload: %v", err)
				}

				// Account creation has no account URL to use as a kid yet,
				// so requests to newAccount embed the jwk instead.
				keyID := ""
				if s.dialect == DialectV2 && req.url != s.endpoints.V2.NewAccount {
					if s.account == nil || s.account.URI == "" {
						return newError(ErrorKindInvalid,
							"cannot sign request: no account key identifier bound to session")
					}

					keyID = s.account.URI
				}

				if s.accountKey == nil {
					return newError(ErrorKindInvalid,
						"cannot sign request: no account key bound to session")
				}

				signed, err := s.signer.Sign(payload, req.protectedHeaders, s.accountKey, keyID)
				if err != nil {
					return err
				}

				body = signed
				contentType = "application/jose+json"
			}
		}

		transport := s.ensureTransport()

		var res *HTTPResponse
		var err error

		switch req.method {
		case "GET":
			res, err = transport.Get(ctx, req.url, nil)
		case "HEAD":
			res, err = transport.Head(ctx, req.url, nil)
		case "POST":
			res, err = transport.Post(ctx, req.url, nil, contentType, body)
		}

		if err != nil {
			return newError(ErrorKindGeneral, "%s %s failed: %v", req.method, req.url, err)
		}

		req.responseHeaders = res.Header

		if nonce := res.Header.Get("Replay-Nonce"); nonce != "" {
			s.storeNonce(nonce)
		}

		if res.Status >= 200 && res.Status < 300 {
			return s.deliver(req, res)
		}

		resErr := classifyErrorResponse(res)

		var acmeErr *Error
		if errors.As(resErr, &acmeErr) && acmeErr.Kind == ErrorKindTransient &&
			req.method == "POST" && req.retriesLeft > 0 {
			req.retriesLeft--

			s.log().Debug(1, "%s %s: %v, retrying nonce (%d attempt(s) left)",
				req.method, req.url, resErr, req.retriesLeft)

			continue
		}

		s.log().Error("%s %s failed: %v", req.method, req.url, resErr)

		return resErr
	}
}

// deliver dispatches a successful response to the caller's JSON or raw
// callback (spec.md 4.4 step 8). A response with a JSON body always goes
// to onJSON when registered; a response with no JSON body at all falls
// through to onRaw rather than failing the call outright.
func (s *Session) deliver(req *request, res *HTTPResponse) error {
	if req.onJSON != nil {
		doc, err := ParseHTTPResponse(res.Header.Get("Content-Type"), res.Body)
		if err == nil {
			return req.onJSON(doc)
		}

		if err != errNoJSONBody {
			return err
		}
	}

	if req.onRaw != nil {
		return req.onRaw(res.Body, res.Header)
	}

	return newError(ErrorKindInvalid, "%s %s: no callback registered for a successful response", req.method, req.url)
}
