package acme

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const testDirectoryURL = "https://acme.example/dir"

func newTestSession(t *testing.T, transport *fakeTransport) *Session {
	s, err := NewSession(SessionCfg{
		BaseURL:       testDirectoryURL,
		HTTPTransport: transport,
	})
	require.NoError(t, err)

	return s
}

const v2DirectoryBody = `{
  "newAccount": "https://acme.example/acct",
  "newOrder": "https://acme.example/ord",
  "revokeCert": "https://acme.example/rev",
  "keyChange": "https://acme.example/kc",
  "newNonce": "https://acme.example/nnc",
  "meta": {"termsOfService": "https://acme.example/tos"}
}`

func TestSessionSetupV2Discovery(t *testing.T) {
	transport := newFakeTransport()
	transport.script("GET", testDirectoryURL, fakeResponse{
		status: 200,
		header: jsonHeader(),
		body:   []byte(v2DirectoryBody),
	})

	s := newTestSession(t, transport)

	err := s.Setup(context.Background())
	require.NoError(t, err)

	require.Equal(t, DialectV2, s.Dialect())
	require.Equal(t, "https://acme.example/acct", s.endpoints.V2.NewAccount)
	require.Equal(t, "https://acme.example/tos", s.CAAgreement())
}

func TestSessionSetupDialectRejection(t *testing.T) {
	transport := newFakeTransport()
	transport.script("GET", testDirectoryURL, fakeResponse{
		status: 200,
		header: jsonHeader(),
		body:   []byte(`{"foo":"bar"}`),
	})

	s := newTestSession(t, transport)

	err := s.POST(context.Background(), "https://acme.example/whatever", map[string]string{}, nil)
	require.Error(t, err)

	var acmeErr *Error
	require.ErrorAs(t, err, &acmeErr)
	require.Equal(t, ErrorKindInvalid, acmeErr.Kind)

	require.Equal(t, DialectUnknown, s.Dialect())
	require.Equal(t, 0, transport.callCount("POST", "https://acme.example/whatever"))
	require.Equal(t, 1, transport.callCount("GET", testDirectoryURL))
}

func TestSessionSetupMissingV2Endpoint(t *testing.T) {
	transport := newFakeTransport()
	transport.script("GET", testDirectoryURL, fakeResponse{
		status: 200,
		header: jsonHeader(),
		body: []byte(`{
			"newAccount": "https://acme.example/acct",
			"newOrder": "https://acme.example/ord",
			"revokeCert": "https://acme.example/rev",
			"keyChange": "https://acme.example/kc"
		}`),
	})

	s := newTestSession(t, transport)

	err := s.Setup(context.Background())
	require.Error(t, err)

	var acmeErr *Error
	require.ErrorAs(t, err, &acmeErr)
	require.Equal(t, ErrorKindInvalid, acmeErr.Kind)
	require.Equal(t, DialectUnknown, s.Dialect())
}

func TestShortHostname(t *testing.T) {
	cases := []string{"a.co", "example.com", "a-very-long-hostname.example.com"}

	for _, hostname := range cases {
		got := shortHostname(hostname)

		wantLen := len(hostname)
		if wantLen > 16 {
			wantLen = 16
		}

		require.Len(t, got, wantLen)

		if len(hostname) <= 16 {
			require.Equal(t, hostname, got)
		} else {
			require.Equal(t, hostname[len(hostname)-16:], got)
		}
	}
}

func TestShortHostnameLengthBound(t *testing.T) {
	long := "this-is-a-very-long-hostname-well-past-sixteen-characters.example.com"

	got := shortHostname(long)

	require.Len(t, got, 16)
	require.Equal(t, long[len(long)-16:], got)
}
