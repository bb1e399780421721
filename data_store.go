package acme

import (
	"crypto"
	"crypto/x509"
	"encoding/json"
)

// ErrAccountNotFound is returned by Store.LoadAccount when no account is
// recorded under the requested (group, id).
var ErrAccountNotFound = newError(ErrorKindNotFound, "account not found in data store")

// AccountGroupDefault is the default group new accounts are stored
// under, per spec.md 6.4 ("load_account(group=ACCOUNTS, id)").
const AccountGroupDefault = "ACCOUNTS"

// Account is the identity bound to a Session after account creation or
// UseAccount (spec.md 3). URI is the account URL from the Location header
// of account creation, used as the V2 key identifier (kid); it may be
// empty for V1 accounts, and V1 requests never use it since the draft
// dialect re-signs with the embedded jwk every time. CAURL records which CA's
// base URL this account was created against, so UseAccount can reject an
// account belonging to a different CA without a round trip (spec.md 4.5
// scenario 5).
type Account struct {
	URI     string   `json:"uri,omitempty"`
	CAURL   string   `json:"ca_url"`
	Contact []string `json:"contact,omitempty"`
}

// Store is the account persistence the core consumes (spec.md 6.4). The
// core neither defines nor inspects the on-disk layout beyond this
// narrow contract.
type Store interface {
	LoadAccount(group, id string) (*Account, crypto.Signer, error)
	SaveAccount(s *Session, group, id string, account *Account, key crypto.Signer) error
}

// accountRecord is the on-the-wire encoding of an Account + key pair,
// grounded on the teacher's AccountData marshaling.
type accountRecord struct {
	Account
	PrivateKeyData []byte `json:"private_key_data"`
}

func marshalAccountRecord(account *Account, key crypto.Signer) ([]byte, error) {
	privateKeyData, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, newError(ErrorKindGeneral, "cannot encode private key: %v", err)
	}

	rec := accountRecord{Account: *account, PrivateKeyData: privateKeyData}

	return json.Marshal(&rec)
}

func unmarshalAccountRecord(data []byte) (*Account, crypto.Signer, error) {
	var rec accountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, newError(ErrorKindGeneral, "cannot decode account record: %v", err)
	}

	privateKey, err := x509.ParsePKCS8PrivateKey(rec.PrivateKeyData)
	if err != nil {
		return nil, nil, newError(ErrorKindGeneral, "cannot parse PKCS #8 data: %v", err)
	}

	signer, ok := privateKey.(crypto.Signer)
	if !ok {
		return nil, nil, newError(ErrorKindGeneral,
			"private key of type %T cannot be used to sign data", privateKey)
	}

	account := rec.Account

	return &account, signer, nil
}
