package acme

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"

	"github.com/go-jose/go-jose/v4"
)

// Signer is the JWS signer the core consumes (spec.md 6.2): given a
// payload, a set of protected headers (which always includes "nonce",
// and for V2 also "url"), a signing key, and an optional key identifier,
// produce the JWS flat-serialized JSON object the pipeline sends as the
// request body. A V1 call passes an empty keyID, embedding the public
// key as "jwk"; a V2 call after account creation passes the account URL
// as "kid".
type Signer interface {
	Sign(payload []byte, protectedHeaders map[string]string, key crypto.Signer, keyID string) ([]byte, error)
}

// JoseSigner is the default Signer, built on go-jose/go-jose/v4. It is
// the direct generalization of the teacher's Client.signPayload, freed
// from its hard binding to a single account and a V2-only "url" header.
type JoseSigner struct{}

func NewJoseSigner() *JoseSigner {
	return &JoseSigner{}
}

func (JoseSigner) Sign(payload []byte, protectedHeaders map[string]string, key crypto.Signer, keyID string) ([]byte, error) {
	algorithm, err := signatureAlgorithm(key)
	if err != nil {
		return nil, newError(ErrorKindInvalid, "cannot identify signature algorithm: %v", err)
	}

	jwk := jose.JSONWebKey{Key: key}

	if keyID != "" {
		jwk.KeyID = keyID
	}

	signingKey := jose.SigningKey{Algorithm: algorithm, Key: &jwk}

	nonce, ok := protectedHeaders["nonce"]
	if !ok || nonce == "" {
		return nil, newError(ErrorKindInvalid, "cannot sign request without a nonce")
	}

	options := jose.SignerOptions{
		NonceSource:  staticNonceSource{nonce: nonce},
		ExtraHeaders: make(map[jose.HeaderKey]any),
	}

	if url, ok := protectedHeaders["url"]; ok && url != "" {
		options.ExtraHeaders["url"] = url
	}

	if jwk.KeyID == "" {
		options.EmbedJWK = true
	}

	signer, err := jose.NewSigner(signingKey, &options)
	if err != nil {
		return nil, newError(ErrorKindInvalid, "cannot create JWS signer: %v", err)
	}

	signedData, err := signer.Sign(payload)
	if err != nil {
		return nil, newError(ErrorKindInvalid, "cannot sign request body: %v", err)
	}

	return []byte(signedData.FullSerialize()), nil
}

func signatureAlgorithm(key crypto.Signer) (jose.SignatureAlgorithm, error) {
	switch key := key.(type) {
	case *rsa.PrivateKey:
		return jose.RS256, nil

	case *ecdsa.PrivateKey:
		switch key.Curve {
		case elliptic.P256():
			return jose.ES256, nil
		case elliptic.P384():
			return jose.ES384, nil
		case elliptic.P521():
			return jose.ES512, nil
		default:
			return "", newError(ErrorKindInvalid,
				"unsupported elliptic curve %v", key.Curve)
		}

	default:
		return "", newError(ErrorKindInvalid, "unsupported private key type %T", key)
	}
}

// staticNonceSource hands out a single pre-fetched nonce. The pipeline
// (not go-jose) owns nonce lifecycle, so this only bridges the value
// through go-jose's NonceSource hook.
type staticNonceSource struct {
	nonce string
}

func (s staticNonceSource) Nonce() (string, error) {
	return s.nonce, nil
}

// GenerateECDSAP256PrivateKey is the default account/request key
// generator, grounded on the teacher's identically named helper.
func GenerateECDSAP256PrivateKey() (crypto.Signer, error) {
	return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
}
