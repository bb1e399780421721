package acme

import "context"

// storeNonce replaces the cached nonce with one freshly observed on a
// response (spec.md invariant I4, P1). Called for every response, success
// or failure, not just signed POSTs.
func (s *Session) storeNonce(nonce string) {
	if nonce == "" {
		return
	}

	s.nonce = &nonce
}

// consumeNonce returns the cached nonce, if any, clearing the cache in
// the same step (spec.md invariant I4: "a nonce is consumed by exactly
// one signed POST").
func (s *Session) consumeNonce() (string, bool) {
	if s.nonce == nil {
		return "", false
	}

	nonce := *s.nonce
	s.nonce = nil

	return nonce, true
}

// ensureNonce guarantees a nonce is cached, fetching one from the
// dialect's new-nonce source if the cache is empty (spec.md 4.2, 4.4
// step 1). This is the only place new_nonce_fn is invoked.
func (s *Session) ensureNonce(ctx context.Context) error {
	if s.nonce != nil {
		return nil
	}

	url, err := s.newNonceSourceURL()
	if err != nil {
		return err
	}

	_, header, err := s.dispatchUnsigned(ctx, "HEAD", url)
	if err != nil {
		return err
	}

	nonce := header.Get("Replay-Nonce")
	if nonce == "" {
		return newError(ErrorKindGeneral, "missing or empty Replay-Nonce header field")
	}

	s.storeNonce(nonce)

	return nil
}
