package acme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDialectString(t *testing.T) {
	require.Equal(t, "unknown", DialectUnknown.String())
	require.Equal(t, "v1", DialectV1.String())
	require.Equal(t, "v2", DialectV2.String())
}

func TestEndpointsUnresolvedDialectIsInvalid(t *testing.T) {
	s := &Session{dialect: DialectUnknown}

	_, err := s.newAccountEndpoint()
	require.Error(t, err)

	var acmeErr *Error
	require.ErrorAs(t, err, &acmeErr)
	require.Equal(t, ErrorKindInvalid, acmeErr.Kind)

	_, err = s.newNonceSourceURL()
	require.Error(t, err)
	require.ErrorAs(t, err, &acmeErr)
	require.Equal(t, ErrorKindInvalid, acmeErr.Kind)
}

func TestEndpointsV1AndV2Selection(t *testing.T) {
	s1 := &Session{
		dialect:   DialectV1,
		endpoints: Endpoints{V1: &V1Endpoints{NewReg: "https://x/new-reg"}},
	}

	endpoint, err := s1.newAccountEndpoint()
	require.NoError(t, err)
	require.Equal(t, "https://x/new-reg", endpoint)

	nonceURL, err := s1.newNonceSourceURL()
	require.NoError(t, err)
	require.Equal(t, "https://x/new-reg", nonceURL)

	s2 := &Session{
		dialect: DialectV2,
		endpoints: Endpoints{V2: &V2Endpoints{
			NewAccount: "https://x/acct",
			NewNonce:   "https://x/nnc",
		}},
	}

	endpoint, err = s2.newAccountEndpoint()
	require.NoError(t, err)
	require.Equal(t, "https://x/acct", endpoint)

	nonceURL, err = s2.newNonceSourceURL()
	require.NoError(t, err)
	require.Equal(t, "https://x/nnc", nonceURL)
}
