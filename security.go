package pdfstream

import (
	"github.com/tsawler/pdfstream/core"
	"github.com/tsawler/pdfstream/internal/crypt"
)

// SecurityHandler holds the document key of an encrypted document and
// decrypts its streams and strings. Pass it to Decoder.WithSecurity.
type SecurityHandler = crypt.Handler

// Authenticate opens an encrypted document protected by the standard
// security handler. encrypt is the trailer's Encrypt dictionary and fileID
// the first element of its ID array. password may be the user or the owner
// password; the empty string tries the empty user password.
//
// A wrong password returns an error matching ErrPassword.
func Authenticate(encrypt core.Dict, fileID []byte, password string) (*SecurityHandler, error) {
	info, err := core.EncryptInfo(encrypt, fileID)
	if err != nil {
		return nil, err
	}
	return crypt.Authenticate(info, password)
}

// NewSecurityHandler returns a handler for an already known document key.
// method is the crypt filter method: "V2" (RC4), "AESV2" or "AESV3".
func NewSecurityHandler(key []byte, method string) (*SecurityHandler, error) {
	m, err := crypt.ParseMethod(method)
	if err != nil {
		return nil, err
	}
	return crypt.NewHandler(key, m)
}
