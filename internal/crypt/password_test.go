package crypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfstream/internal/filters"
)

var testID = []byte{0x1c, 0x9e, 0x55, 0x2a, 0xb0, 0x11, 0x02, 0x7f, 0x33, 0x48, 0xe1, 0x0d, 0x6c, 0x90, 0x24, 0xfa}

// buildRC4Info writes the O and U entries a PDF writer would produce for the
// given passwords.
func buildRC4Info(info EncryptInfo, user, owner string) (EncryptInfo, []byte) {
	info.ID = testID
	okey := ownerKey(info, latin1Password(owner))
	o := padPassword(latin1Password(user))
	if info.R == 2 {
		o = rc4Crypt(okey, o)
	} else {
		xk := make([]byte, len(okey))
		for i := 0; i <= 19; i++ {
			for j := range okey {
				xk[j] = okey[j] ^ byte(i)
			}
			o = rc4Crypt(xk, o)
		}
	}
	info.O = o

	key := documentKey(info, padPassword(latin1Password(user)))
	u := userEntry(info, key)
	if info.R >= 3 {
		u = append(u, bytes.Repeat([]byte{0xEE}, 16)...)
	}
	info.U = u
	return info, key
}

func aes256(t *testing.T, key, iv, data []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	return out
}

// buildAES256Info writes U, UE, O, OE and Perms for fileKey.
func buildAES256Info(t *testing.T, r int, user, owner string, fileKey []byte, p int32) EncryptInfo {
	t.Helper()
	info := EncryptInfo{V: 5, R: r, Length: 256, P: p, EncryptMetadata: true,
		CF: map[string]string{"StdCF": "AESV3"}, StmF: "StdCF", StrF: "StdCF"}
	zero := make([]byte, 16)

	upw := utf8Password(user)
	uvs, uks := []byte("uvsalt01"), []byte("uksalt02")
	info.U = append(append(hashR6(r, upw, uvs, nil), uvs...), uks...)
	info.UE = aes256(t, hashR6(r, upw, uks, nil), zero, fileKey)

	opw := utf8Password(owner)
	ovs, oks := []byte("ovsalt03"), []byte("oksalt04")
	info.O = append(append(hashR6(r, opw, ovs, info.U[:48]), ovs...), oks...)
	info.OE = aes256(t, hashR6(r, opw, oks, info.U[:48]), zero, fileKey)

	var perms [16]byte
	binary.LittleEndian.PutUint32(perms[:4], uint32(p))
	copy(perms[4:8], []byte{0xFF, 0xFF, 0xFF, 0xFF})
	perms[8] = 'T'
	copy(perms[9:12], "adb")
	block, err := aes.NewCipher(fileKey)
	require.NoError(t, err)
	info.Perms = make([]byte, 16)
	block.Encrypt(info.Perms, perms[:])
	return info
}

func TestAuthenticateRC4(t *testing.T) {
	tests := []struct {
		name string
		info EncryptInfo
	}{
		{"R2 40 bit", EncryptInfo{V: 1, R: 2, P: -44}},
		{"R3 128 bit", EncryptInfo{V: 2, R: 3, Length: 128, P: -1028}},
		{"R4 without metadata", EncryptInfo{V: 4, R: 4, Length: 128, P: -3904,
			CF: map[string]string{"StdCF": "V2"}, StmF: "StdCF", StrF: "StdCF"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, key := buildRC4Info(tt.info, "user", "owner")

			h, err := Authenticate(info, "user")
			require.NoError(t, err)
			assert.Equal(t, key, h.Key())

			h, err = Authenticate(info, "owner")
			require.NoError(t, err, "owner password")
			assert.Equal(t, key, h.Key())

			_, err = Authenticate(info, "guess")
			assert.True(t, errors.Is(err, ErrPassword), "got %v", err)
			assert.True(t, errors.Is(err, filters.ErrCryptoInit))
		})
	}
}

func TestAuthenticateEmptyUserPassword(t *testing.T) {
	info, key := buildRC4Info(EncryptInfo{V: 2, R: 3, Length: 128, P: -4}, "", "secret")

	h, err := Authenticate(info, "")
	require.NoError(t, err)
	assert.Equal(t, key, h.Key())
}

func TestAuthenticateLatin1Password(t *testing.T) {
	info, key := buildRC4Info(EncryptInfo{V: 2, R: 3, Length: 128, P: -4}, "café", "owner")
	assert.Equal(t, []byte{'c', 'a', 'f', 0xE9}, latin1Password("café"))

	h, err := Authenticate(info, "café")
	require.NoError(t, err)
	assert.Equal(t, key, h.Key())
}

func TestAuthenticateR4CryptFilters(t *testing.T) {
	info, _ := buildRC4Info(EncryptInfo{V: 4, R: 4, Length: 128, P: -4,
		CF: map[string]string{"StdCF": "AESV2"}, StmF: "StdCF"}, "", "owner")

	h, err := Authenticate(info, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"StdCF"}, h.CryptFilters())

	m, err := h.resolve("", h.stmF)
	require.NoError(t, err)
	assert.Equal(t, MethodAESV2, m)

	// StrF is absent, so strings are not encrypted.
	m, err = h.resolve("", h.strF)
	require.NoError(t, err)
	assert.Equal(t, MethodNone, m)
}

func TestAuthenticateAES256(t *testing.T) {
	fileKey := bytes.Repeat([]byte{0x5E}, 32)

	for _, r := range []int{5, 6} {
		info := buildAES256Info(t, r, "user", "owner", fileKey, -3392)

		for _, pw := range []string{"user", "owner"} {
			h, err := Authenticate(info, pw)
			require.NoError(t, err, "R%d %s", r, pw)
			assert.Equal(t, fileKey, h.Key(), "R%d %s", r, pw)
		}

		_, err := Authenticate(info, "nobody")
		assert.True(t, errors.Is(err, ErrPassword), "R%d: %v", r, err)
	}
}

func TestAuthenticateAES256Decrypts(t *testing.T) {
	fileKey := bytes.Repeat([]byte{0x17}, 32)
	info := buildAES256Info(t, 6, "", "owner", fileKey, -4)

	h, err := Authenticate(info, "")
	require.NoError(t, err)

	plain := []byte("AESV3 uses the file key for every object")
	enc := aesEncrypt(t, fileKey, bytes.Repeat([]byte{9}, 16), plain)
	got, err := h.DecryptString(filters.ObjectRef{Num: 40}, enc)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestAuthenticateAES256PermsMismatch(t *testing.T) {
	fileKey := bytes.Repeat([]byte{0x22}, 32)
	info := buildAES256Info(t, 6, "user", "owner", fileKey, -4)
	info.P = -8

	_, err := Authenticate(info, "user")
	require.Error(t, err)
	assert.True(t, errors.Is(err, filters.ErrCryptoInit))
	assert.False(t, errors.Is(err, ErrPassword))
}

func TestAuthenticateUnsupported(t *testing.T) {
	_, err := Authenticate(EncryptInfo{R: 7}, "")
	assert.True(t, errors.Is(err, filters.ErrCryptoInit))

	_, err = Authenticate(EncryptInfo{R: 3, O: []byte{1}}, "")
	assert.True(t, errors.Is(err, filters.ErrCryptoInit))

	info, _ := buildRC4Info(EncryptInfo{V: 4, R: 4, Length: 128, CF: map[string]string{"X": "Rot13"}}, "", "o")
	_, err = Authenticate(info, "")
	assert.True(t, errors.Is(err, filters.ErrCryptoInit))
}

func TestHashR6Deterministic(t *testing.T) {
	a := hashR6(6, []byte("pw"), []byte("saltsalt"), nil)
	b := hashR6(6, []byte("pw"), []byte("saltsalt"), nil)
	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, hashR6(5, []byte("pw"), []byte("saltsalt"), nil))
}
