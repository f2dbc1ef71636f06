package core

import (
	"fmt"

	"github.com/tsawler/pdfstream/internal/crypt"
	"github.com/tsawler/pdfstream/internal/filters"
)

// EncryptInfo reads a standard security handler's Encrypt dictionary.
// fileID is the first element of the trailer's ID array.
func EncryptInfo(encrypt Dict, fileID []byte) (crypt.EncryptInfo, error) {
	if f, _ := encrypt.GetName("Filter"); f != "Standard" {
		return crypt.EncryptInfo{}, &filters.InitError{Method: string(f), Err: fmt.Errorf("unsupported security handler")}
	}

	info := crypt.EncryptInfo{
		ID:              fileID,
		EncryptMetadata: true,
		StmF:            nameOf(encrypt, "StmF"),
		StrF:            nameOf(encrypt, "StrF"),
	}
	if v, ok := encrypt.GetInt("V"); ok {
		info.V = int(v)
	}
	if r, ok := encrypt.GetInt("R"); ok {
		info.R = int(r)
	}
	if l, ok := encrypt.GetInt("Length"); ok {
		info.Length = int(l)
	}
	if p, ok := encrypt.GetInt("P"); ok {
		info.P = int32(p)
	}
	if b, ok := encrypt.GetBool("EncryptMetadata"); ok {
		info.EncryptMetadata = bool(b)
	}
	info.O = bytesOf(encrypt, "O")
	info.U = bytesOf(encrypt, "U")
	info.OE = bytesOf(encrypt, "OE")
	info.UE = bytesOf(encrypt, "UE")
	info.Perms = bytesOf(encrypt, "Perms")

	if cf, ok := encrypt.GetDict("CF"); ok {
		info.CF = make(map[string]string, len(cf))
		for name, obj := range cf {
			entry, ok := obj.(Dict)
			if !ok {
				return crypt.EncryptInfo{}, &filters.InitError{Method: name, Err: fmt.Errorf("crypt filter entry is %T, not a dictionary", obj)}
			}
			info.CF[name] = nameOf(entry, "CFM")
		}
	}
	return info, nil
}

func nameOf(d Dict, key string) string {
	n, _ := d.GetName(key)
	return string(n)
}

func bytesOf(d Dict, key string) []byte {
	s, ok := d.GetString(key)
	if !ok {
		return nil
	}
	return []byte(s)
}
