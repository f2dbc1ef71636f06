package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/secure/precis"

	"github.com/tsawler/pdfstream/internal/filters"
)

// ErrPassword is returned when neither the user nor the owner password
// matches.
var ErrPassword = errors.New("crypt: incorrect password")

// EncryptInfo holds the entries of a standard security handler's Encrypt
// dictionary together with the first element of the document ID.
type EncryptInfo struct {
	V      int
	R      int
	Length int // key length in bits, 40 if zero
	O, U   []byte
	OE, UE []byte
	Perms  []byte
	P      int32
	ID     []byte

	EncryptMetadata bool
	// CF maps crypt filter names to their CFM method names.
	CF   map[string]string
	StmF string
	StrF string
}

var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// Authenticate checks password against the user and then the owner entry
// and returns a Handler holding the document key. A wrong password yields an
// error matching both ErrPassword and filters.ErrCryptoInit.
func Authenticate(info EncryptInfo, password string) (*Handler, error) {
	var (
		key []byte
		err error
	)
	switch info.R {
	case 2, 3, 4:
		key, err = authenticateRC4(info, password)
	case 5, 6:
		key, err = authenticateAES256(info, password)
	default:
		return nil, &filters.InitError{Method: "Standard", Err: fmt.Errorf("unsupported revision %d", info.R)}
	}
	if err != nil {
		return nil, err
	}

	method := MethodRC4
	if info.V >= 5 {
		method = MethodAESV3
	}
	h, err := NewHandler(key, method)
	if err != nil {
		return nil, err
	}
	if info.V >= 4 {
		for name, cfm := range info.CF {
			m, err := ParseMethod(cfm)
			if err != nil {
				return nil, err
			}
			h.SetCryptFilter(name, m)
		}
		stmF, strF := info.StmF, info.StrF
		if stmF == "" {
			stmF = filters.IdentityCryptFilter
		}
		if strF == "" {
			strF = filters.IdentityCryptFilter
		}
		h.SetDefaults(stmF, strF)
	}
	return h, nil
}

func keyBytes(info EncryptInfo) int {
	if info.R == 2 || info.Length == 0 {
		return 5
	}
	n := info.Length / 8
	if n < 5 {
		n = 5
	}
	if n > 16 {
		n = 16
	}
	return n
}

// latin1Password encodes a password for revisions 2 to 4. Characters
// outside Latin-1 fall back to their UTF-8 bytes.
func latin1Password(password string) []byte {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(password))
	if err != nil {
		return []byte(password)
	}
	return b
}

func padPassword(pw []byte) []byte {
	padded := make([]byte, 32)
	n := copy(padded, pw)
	copy(padded[n:], passwordPadding)
	return padded
}

func rc4Crypt(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		// Keys here are always 5 to 16 bytes.
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// documentKey computes the document key from a padded user password.
func documentKey(info EncryptInfo, padded []byte) []byte {
	n := keyBytes(info)
	h := md5.New()
	h.Write(padded)
	h.Write(info.O)
	var p [4]byte
	binary.LittleEndian.PutUint32(p[:], uint32(info.P))
	h.Write(p[:])
	h.Write(info.ID)
	if info.R >= 4 && !info.EncryptMetadata {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	sum := h.Sum(nil)
	if info.R >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(sum[:n])
			sum = s[:]
		}
	}
	return sum[:n]
}

// userEntry computes the U value a document key produces.
func userEntry(info EncryptInfo, key []byte) []byte {
	if info.R == 2 {
		return rc4Crypt(key, passwordPadding)
	}
	h := md5.New()
	h.Write(passwordPadding)
	h.Write(info.ID)
	x := rc4Crypt(key, h.Sum(nil))
	xk := make([]byte, len(key))
	for i := 1; i <= 19; i++ {
		for j := range key {
			xk[j] = key[j] ^ byte(i)
		}
		x = rc4Crypt(xk, x)
	}
	return x
}

func checkUser(info EncryptInfo, key []byte) bool {
	u := userEntry(info, key)
	if info.R >= 3 {
		return len(info.U) >= 16 && bytes.Equal(u[:16], info.U[:16])
	}
	return len(info.U) >= 32 && bytes.Equal(u, info.U[:32])
}

// ownerKey is the RC4 key protecting the user password inside O.
func ownerKey(info EncryptInfo, owner []byte) []byte {
	sum := md5.Sum(padPassword(owner))
	if info.R >= 3 {
		for i := 0; i < 50; i++ {
			sum = md5.Sum(sum[:])
		}
	}
	return sum[:keyBytes(info)]
}

func authenticateRC4(info EncryptInfo, password string) ([]byte, error) {
	if len(info.O) < 32 || len(info.U) < 16 {
		return nil, &filters.InitError{Method: "Standard", Err: fmt.Errorf("O or U entry too short")}
	}
	pw := latin1Password(password)

	key := documentKey(info, padPassword(pw))
	if checkUser(info, key) {
		return key, nil
	}

	// Owner password: O holds the padded user password encrypted with a
	// key derived from the owner password.
	okey := ownerKey(info, pw)
	user := append([]byte(nil), info.O[:32]...)
	if info.R == 2 {
		user = rc4Crypt(okey, user)
	} else {
		xk := make([]byte, len(okey))
		for i := 19; i >= 0; i-- {
			for j := range okey {
				xk[j] = okey[j] ^ byte(i)
			}
			user = rc4Crypt(xk, user)
		}
	}
	key = documentKey(info, user)
	if checkUser(info, key) {
		return key, nil
	}
	return nil, &filters.InitError{Method: "Standard", Err: ErrPassword}
}

// utf8Password prepares a password for revisions 5 and 6: SASLprep
// normalisation, truncated to 127 bytes.
func utf8Password(password string) []byte {
	b := []byte(password)
	if password != "" {
		if norm, err := precis.OpaqueString.Bytes(b); err == nil {
			b = norm
		}
	}
	if len(b) > 127 {
		b = b[:127]
	}
	return b
}

// hashR6 is the revision 5 and 6 password hash. Revision 5 is a single
// SHA-256; revision 6 iterates over AES-128-CBC and the SHA-2 family.
func hashR6(r int, pw, salt, udata []byte) []byte {
	h := sha256.New()
	h.Write(pw)
	h.Write(salt)
	h.Write(udata)
	k := h.Sum(nil)
	if r == 5 {
		return k
	}

	var e []byte
	for i := 0; i < 64 || int(e[len(e)-1]) > i-32; i++ {
		seq := make([]byte, 0, len(pw)+len(k)+len(udata))
		seq = append(seq, pw...)
		seq = append(seq, k...)
		seq = append(seq, udata...)
		k1 := bytes.Repeat(seq, 64)

		block, _ := aes.NewCipher(k[:16])
		e = make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		switch sum % 3 {
		case 0:
			s := sha256.Sum256(e)
			k = s[:]
		case 1:
			s := sha512.Sum384(e)
			k = s[:]
		default:
			s := sha512.Sum512(e)
			k = s[:]
		}
	}
	return k[:32]
}

// unwrapKey decrypts UE or OE, AES-256 CBC with a zero IV.
func unwrapKey(kek, wrapped []byte) ([]byte, error) {
	if len(wrapped) < 32 {
		return nil, fmt.Errorf("wrapped key too short")
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	var iv [aes.BlockSize]byte
	key := make([]byte, 32)
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(key, wrapped[:32])
	return key, nil
}

func authenticateAES256(info EncryptInfo, password string) ([]byte, error) {
	if len(info.U) < 48 || len(info.O) < 48 {
		return nil, &filters.InitError{Method: "AESV3", Err: fmt.Errorf("O or U entry too short")}
	}
	pw := utf8Password(password)

	var kek, wrapped []byte
	switch {
	case bytes.Equal(hashR6(info.R, pw, info.U[32:40], nil), info.U[:32]):
		kek, wrapped = hashR6(info.R, pw, info.U[40:48], nil), info.UE
	case bytes.Equal(hashR6(info.R, pw, info.O[32:40], info.U[:48]), info.O[:32]):
		kek, wrapped = hashR6(info.R, pw, info.O[40:48], info.U[:48]), info.OE
	default:
		return nil, &filters.InitError{Method: "AESV3", Err: ErrPassword}
	}

	key, err := unwrapKey(kek, wrapped)
	if err != nil {
		return nil, &filters.InitError{Method: "AESV3", Err: errors.Wrap(err, "unwrap file key")}
	}
	if len(info.Perms) >= aes.BlockSize {
		if err := checkPerms(info, key); err != nil {
			return nil, &filters.InitError{Method: "AESV3", Err: err}
		}
	}
	return key, nil
}

// checkPerms decrypts Perms with the file key and compares it with P.
func checkPerms(info EncryptInfo, key []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	var perms [aes.BlockSize]byte
	block.Decrypt(perms[:], info.Perms[:aes.BlockSize])
	if string(perms[9:12]) != "adb" {
		return errors.New("perms entry does not decrypt")
	}
	if binary.LittleEndian.Uint32(perms[:4]) != uint32(info.P) {
		return errors.New("perms entry does not match P")
	}
	return nil
}
