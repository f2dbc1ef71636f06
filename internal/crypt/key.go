// Package crypt implements the decryption stages of PDF's standard security
// handler: per-object key derivation, RC4 and AES-CBC sources, and password
// authentication for revisions 2 through 6.
package crypt

import (
	"crypto/md5"
	"fmt"

	"github.com/tsawler/pdfstream/internal/filters"
)

// Method is a crypt filter method (the CFM entry of a crypt filter).
type Method int

const (
	MethodNone  Method = iota // Identity, data is not encrypted
	MethodRC4                 // V2
	MethodAESV2               // AES-128 CBC
	MethodAESV3               // AES-256 CBC
)

func (m Method) String() string {
	switch m {
	case MethodNone:
		return "None"
	case MethodRC4:
		return "RC4"
	case MethodAESV2:
		return "AESV2"
	case MethodAESV3:
		return "AESV3"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a CFM name to a Method. Both the dictionary spelling
// (V2) and the descriptive one (RC4) are accepted.
func ParseMethod(name string) (Method, error) {
	switch name {
	case "None", "Identity", "":
		return MethodNone, nil
	case "V2", "RC4":
		return MethodRC4, nil
	case "AESV2":
		return MethodAESV2, nil
	case "AESV3":
		return MethodAESV3, nil
	}
	return MethodNone, &filters.InitError{Method: name, Err: fmt.Errorf("unknown crypt filter method")}
}

func (m Method) isAES() bool { return m == MethodAESV2 || m == MethodAESV3 }

// maxObjectKey is the longest key produced by per-object derivation.
const maxObjectKey = 16

// ObjectKey derives the key for the object ref from the document key:
//
//	MD5(docKey || num[0:3] || gen[0:2] || "sAlT" if aes)
//
// with num and gen little endian, truncated to len(docKey)+5 bytes but never
// more than 16.
func ObjectKey(docKey []byte, ref filters.ObjectRef, aes bool) []byte {
	h := md5.New()
	h.Write(docKey)
	h.Write([]byte{byte(ref.Num), byte(ref.Num >> 8), byte(ref.Num >> 16)})
	h.Write([]byte{byte(ref.Gen), byte(ref.Gen >> 8)})
	if aes {
		h.Write([]byte("sAlT"))
	}
	sum := h.Sum(nil)

	n := len(docKey) + 5
	if n > maxObjectKey {
		n = maxObjectKey
	}
	return sum[:n]
}

// keyFor returns the key used to encrypt ref's data with method m. AESV3
// uses the 32 byte document key directly.
func keyFor(docKey []byte, ref filters.ObjectRef, m Method) []byte {
	if m == MethodAESV3 {
		return docKey
	}
	return ObjectKey(docKey, ref, m == MethodAESV2)
}
