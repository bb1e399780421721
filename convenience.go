package acme

import (
	"context"
	"crypto"
	"net/http"
)

// GET implements spec.md 4.5's get(url): an unsigned GET dispatched
// through the pipeline, delivering whichever of onJSON/onRaw matches the
// response body. It does not resolve the directory and does not consume
// the nonce cache; a Replay-Nonce header on the response is still stored.
func (s *Session) GET(ctx context.Context, url string, onJSON func(*JSONValue) error, onRaw func([]byte, http.Header) error) error {
	req := &request{method: "GET", url: url, onJSON: onJSON, onRaw: onRaw}
	return s.send(ctx, req)
}

// GetJSON is a GET that requires a JSON body and decodes it into dest,
// the common case used by order/authorization/challenge polling.
func (s *Session) GetJSON(ctx context.Context, url string, dest any) error {
	return s.GET(ctx, url, func(doc *JSONValue) error {
		return doc.Unmarshal(dest)
	}, nil)
}

// POST implements spec.md 4.5's post(url, payload): a signed POST to an
// already-known endpoint, bound to the session's current account key.
// dest, if non-nil, receives the decoded JSON response body. With a nil
// dest no completion callback is registered, so a successful response is
// reported as an ErrorKindInvalid error.
func (s *Session) POST(ctx context.Context, url string, payload any, dest any) error {
	payloadJSON, err := MarshalJSONValue(payload)
	if err != nil {
		return err
	}

	req := &request{
		method:      "POST",
		url:         url,
		requestJSON: payloadJSON,
		retriesLeft: s.maxRetries,
	}

	if dest != nil {
		req.onJSON = func(doc *JSONValue) error {
			return doc.Unmarshal(dest)
		}
	}

	return s.send(ctx, req)
}

// newAccountPayload is the RFC 8555 7.3 / draft-barnes-acme new-reg
// account creation request body.
type newAccountPayload struct {
	Contact              []string `json:"contact,omitempty"`
	TermsOfServiceAgreed bool     `json:"termsOfServiceAgreed,omitempty"`
	OnlyReturnExisting   bool     `json:"onlyReturnExisting,omitempty"`
}

// newAccountResponse is the subset of the RFC 8555 7.1.2 account object
// this package cares about.
type newAccountResponse struct {
	Status  string   `json:"status"`
	Contact []string `json:"contact,omitempty"`
}

// POSTNewAccount implements spec.md 4.5's post_new_account(key, contact,
// agree_terms): a signed POST to the dialect's account-creation endpoint
// using an embedded jwk rather than a kid, since no account URL exists
// yet. On success it binds the returned account URL (from the Location
// header, per RFC 8555 7.3) and key to the session and, if store is
// non-nil, persists the pair under (group, id).
func (s *Session) POSTNewAccount(ctx context.Context, key crypto.Signer, contact []string, agreeTerms bool, store Store, group, id string) (*Account, error) {
	endpoint, err := s.newAccountEndpoint()
	if err != nil {
		return nil, err
	}

	payloadJSON, err := MarshalJSONValue(newAccountPayload{
		Contact:              contact,
		TermsOfServiceAgreed: agreeTerms,
	})
	if err != nil {
		return nil, err
	}

	previousKey := s.accountKey
	s.accountKey = key

	var resBody newAccountResponse

	req := &request{
		method:      "POST",
		url:         endpoint,
		requestJSON: payloadJSON,
		retriesLeft: s.maxRetries,
		onJSON: func(doc *JSONValue) error {
			return doc.Unmarshal(&resBody)
		},
	}

	var accountURL string

	if err := s.send(ctx, req); err != nil {
		s.accountKey = previousKey
		return nil, err
	}

	if req.responseHeaders != nil {
		accountURL = req.responseHeaders.Get("Location")
	}

	if s.dialect == DialectV2 && accountURL == "" {
		s.accountKey = previousKey
		return nil, newError(ErrorKindInvalid, "ACME server did not return an account URL")
	}

	account := &Account{
		URI:     accountURL,
		CAURL:   s.baseURL,
		Contact: resBody.Contact,
	}

	s.account = account
	s.accountGroup = group
	s.accountID = id

	if store != nil {
		if err := store.SaveAccount(s, group, id, account, key); err != nil {
			return nil, err
		}
	}

	return account, nil
}

// UseAccount implements spec.md 4.5's use_account(group, id): load a
// previously-saved account from store and bind it to the session,
// rejecting accounts created against a different CA (scenario 5) without
// a network round trip.
func (s *Session) UseAccount(store Store, group, id string) error {
	account, key, err := store.LoadAccount(group, id)
	if err != nil {
		return err
	}

	if account.CAURL != "" && account.CAURL != s.baseURL {
		return newError(ErrorKindNotFound,
			"account %q/%q was created against a different ACME server", group, id)
	}

	s.account = account
	s.accountKey = key
	s.accountGroup = group
	s.accountID = id

	return nil
}

// SaveAccount persists the session's currently bound account and key.
func (s *Session) SaveAccount(store Store) error {
	if s.account == nil || s.accountKey == nil {
		return newError(ErrorKindInvalid, "no account bound to session")
	}

	return store.SaveAccount(s, s.accountGroup, s.accountID, s.account, s.accountKey)
}

// ClearAccount unbinds the current account and key without touching the
// data store, so the session can later call UseAccount or
// POSTNewAccount freshly.
func (s *Session) ClearAccount() {
	s.account = nil
	s.accountKey = nil
	s.accountGroup = ""
	s.accountID = ""
}

// AccountID returns the account URL bound to the session (the RFC 8555
// kid), or the empty string if no account is bound.
func (s *Session) AccountID() string {
	if s.account == nil {
		return ""
	}

	return s.account.URI
}

// AccountURL is an alias of AccountID kept for callers that think of the
// identifier as a URL rather than a kid.
func (s *Session) AccountURL() string {
	return s.AccountID()
}
