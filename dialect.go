package acme

// Dialect identifies which ACME protocol variant a Session is bound to.
// A Session starts DialectUnknown and transitions to exactly one of V1 or
// V2 the first time its directory is resolved (spec.md invariant I1/I2).
//
// The teacher this module is grown from only ever spoke V2 and varied
// dialect-specific behavior through function pointers on the client; here
// the variance is expressed as a tagged union matched at the handful of
// call sites that actually differ (new-nonce source, protected header
// shape, account-creation endpoint, jwk-vs-kid), per the recommendation
// in spec.md 9.
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectV1
	DialectV2
)

func (d Dialect) String() string {
	switch d {
	case DialectV1:
		return "v1"
	case DialectV2:
		return "v2"
	default:
		return "unknown"
	}
}

// V1Endpoints holds the pre-RFC-8555 draft directory endpoints
// (draft-barnes-acme, the dialect this package calls V1).
type V1Endpoints struct {
	NewAuthz   string
	NewCert    string
	NewReg     string
	RevokeCert string
}

// V2Endpoints holds the RFC 8555 directory endpoints.
type V2Endpoints struct {
	NewAccount string
	NewOrder   string
	RevokeCert string
	KeyChange  string
	NewNonce   string
}

// Endpoints is the dialect-tagged endpoint set bound to a Session. At most
// one of V1/V2 is non-nil at any time (spec.md invariant I1).
type Endpoints struct {
	V1 *V1Endpoints
	V2 *V2Endpoints
}

// newAccountEndpoint returns the endpoint a POST_new_account dispatches
// to: new_reg for V1, newAccount for V2.
func (s *Session) newAccountEndpoint() (string, error) {
	switch s.dialect {
	case DialectV1:
		return s.endpoints.V1.NewReg, nil
	case DialectV2:
		return s.endpoints.V2.NewAccount, nil
	default:
		return "", newError(ErrorKindInvalid, "ACME dialect not yet resolved")
	}
}

// newNonceSourceURL returns the URL the dialect's new_nonce_fn targets:
// a HEAD to new_reg for V1 (the draft dialect has no dedicated endpoint),
// a HEAD to the dedicated newNonce endpoint for V2.
func (s *Session) newNonceSourceURL() (string, error) {
	switch s.dialect {
	case DialectV1:
		return s.endpoints.V1.NewReg, nil
	case DialectV2:
		return s.endpoints.V2.NewNonce, nil
	default:
		return "", newError(ErrorKindInvalid, "ACME dialect not yet resolved")
	}
}
