package acme

import "context"

// v2Directory is the RFC 8555 7.1.1 directory document shape.
type v2Directory struct {
	NewNonce   string `json:"newNonce"`
	NewAccount string `json:"newAccount"`
	NewOrder   string `json:"newOrder"`
	RevokeCert string `json:"revokeCert"`
	KeyChange  string `json:"keyChange"`

	Meta struct {
		TermsOfService string `json:"termsOfService,omitempty"`
	} `json:"meta"`
}

// v1Directory is the draft-barnes-acme directory document shape (the
// dialect this package calls V1).
type v1Directory struct {
	NewAuthz   string `json:"new-authz"`
	NewCert    string `json:"new-cert"`
	NewReg     string `json:"new-reg"`
	RevokeCert string `json:"revoke-cert"`

	Meta struct {
		TermsOfService string `json:"terms-of-service,omitempty"`
	} `json:"meta"`
}

// setup performs the Directory Resolver step of spec.md 4.3: fetch the
// directory document, detect the dialect from the keys present, and bind
// endpoints + terms of service. Once dialect has transitioned away from
// DialectUnknown it never reverts (invariant I2); a later call may still
// refresh the endpoint set for the same dialect.
func (s *Session) setup(ctx context.Context) error {
	body, _, err := s.dispatchUnsigned(ctx, "GET", s.baseURL)
	if err != nil {
		return err
	}

	doc, err := ParseHTTPResponse("application/json", body)
	if err != nil {
		return newError(ErrorKindInvalid, "cannot parse ACME directory: %v", err)
	}

	switch {
	case doc.Has("new-authz"):
		var d v1Directory
		if err := doc.Unmarshal(&d); err != nil {
			return newError(ErrorKindInvalid, "cannot parse ACME directory: %v", err)
		}

		if d.NewCert == "" || d.NewReg == "" || d.RevokeCert == "" {
			return newError(ErrorKindInvalid,
				"Unable to understand ACME server response.")
		}

		if s.dialect == DialectV2 {
			return newError(ErrorKindInvalid,
				"ACME directory changed dialect from %s to %s", s.dialect, DialectV1)
		}

		if s.dialect == DialectUnknown {
			s.dialect = DialectV1
		}

		s.endpoints = Endpoints{V1: &V1Endpoints{
			NewAuthz:   d.NewAuthz,
			NewCert:    d.NewCert,
			NewReg:     d.NewReg,
			RevokeCert: d.RevokeCert,
		}}
		s.caAgreement = d.Meta.TermsOfService

	case doc.Has("newAccount"):
		var d v2Directory
		if err := doc.Unmarshal(&d); err != nil {
			return newError(ErrorKindInvalid, "cannot parse ACME directory: %v", err)
		}

		if d.NewOrder == "" || d.RevokeCert == "" || d.KeyChange == "" ||
			d.NewNonce == "" {
			return newError(ErrorKindInvalid,
				"Unable to understand ACME server response.")
		}

		if s.dialect == DialectV1 {
			return newError(ErrorKindInvalid,
				"ACME directory changed dialect from %s to %s", s.dialect, DialectV2)
		}

		if s.dialect == DialectUnknown {
			s.dialect = DialectV2
		}

		s.endpoints = Endpoints{V2: &V2Endpoints{
			NewAccount: d.NewAccount,
			NewOrder:   d.NewOrder,
			RevokeCert: d.RevokeCert,
			KeyChange:  d.KeyChange,
			NewNonce:   d.NewNonce,
		}}
		s.caAgreement = d.Meta.TermsOfService

	default:
		return newError(ErrorKindInvalid,
			"Unable to understand ACME server response.")
	}

	s.log().Debug(1, "resolved ACME dialect %s for %q", s.dialect, s.baseURL)

	return nil
}
