package acme

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHTTPResponseEmptyBodyIsNoJSONBody(t *testing.T) {
	_, err := ParseHTTPResponse("application/json", nil)
	require.ErrorIs(t, err, errNoJSONBody)
}

func TestParseHTTPResponseNonJSONContentType(t *testing.T) {
	_, err := ParseHTTPResponse("text/plain", []byte("hello"))
	require.ErrorIs(t, err, errNoJSONBody)
}

func TestParseHTTPResponseMalformedBodyIsInvalid(t *testing.T) {
	_, err := ParseHTTPResponse("application/json", []byte("{not json"))
	require.Error(t, err)

	var acmeErr *Error
	require.ErrorAs(t, err, &acmeErr)
	require.Equal(t, ErrorKindInvalid, acmeErr.Kind)
}

func TestJSONValueGetString(t *testing.T) {
	v, err := ParseHTTPResponse("application/json", []byte(`{"meta":{"termsOfService":"https://x/tos"}}`))
	require.NoError(t, err)

	require.Equal(t, "https://x/tos", v.GetString("", "meta", "termsOfService"))
	require.Equal(t, "fallback", v.GetString("fallback", "meta", "missing"))
	require.Equal(t, "fallback", v.GetString("fallback", "missing", "path"))
}

func TestJSONValueHas(t *testing.T) {
	v, err := ParseHTTPResponse("application/json", []byte(`{"newAccount":"x"}`))
	require.NoError(t, err)

	require.True(t, v.Has("newAccount"))
	require.False(t, v.Has("new-authz"))
}

func TestJSONValueCloneIsIndependent(t *testing.T) {
	v, err := ParseHTTPResponse("application/json", []byte(`{"a":1}`))
	require.NoError(t, err)

	clone := v.Clone()
	require.Equal(t, v.raw, clone.raw)

	clone.raw[0] = 'X'
	require.NotEqual(t, string(v.raw), string(clone.raw))
}

func TestMarshalJSONValueRoundTrip(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	v, err := MarshalJSONValue(payload{Name: "bob"})
	require.NoError(t, err)

	var out payload
	require.NoError(t, v.Unmarshal(&out))
	require.Equal(t, "bob", out.Name)
}
