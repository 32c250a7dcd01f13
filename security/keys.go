package security

import (
	"bytes"
	"crypto/aes"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"hash"

	"golang.org/x/crypto/pbkdf2"
)

var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

const (
	pbkdf2Iterations = 10000
	saltLen          = 8
)

func padPassword(pwd []byte) []byte {
	out := make([]byte, 32)
	n := copy(out, pwd)
	copy(out[n:], passwordPadding)
	return out
}

// fileKey computes the RC4/AES-128 file encryption key from a user password.
func fileKey(pwd, o []byte, p int32, fileID []byte, keyLen, r int, encryptMeta bool) []byte {
	keyLen = md5KeyLen(keyLen)
	h := md5.New()
	h.Write(padPassword(pwd))
	h.Write(o)
	var pb [4]byte
	binary.LittleEndian.PutUint32(pb[:], uint32(p))
	h.Write(pb[:])
	h.Write(fileID)
	if r >= 4 && !encryptMeta {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	sum := h.Sum(nil)
	if r >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(sum[:keyLen])
			sum = s[:]
		}
	}
	return sum[:keyLen]
}

// ownerRC4Key hashes the owner password (or the user password when the owner
// password is empty) into the key that protects /O.
func ownerRC4Key(pwd []byte, r, keyLen int) []byte {
	keyLen = md5KeyLen(keyLen)
	sum := md5.Sum(padPassword(pwd))
	digest := sum[:]
	if r >= 3 {
		for i := 0; i < 50; i++ {
			s := md5.Sum(digest)
			digest = s[:]
		}
	} else {
		keyLen = 5
	}
	return digest[:keyLen]
}

// md5KeyLen keeps an RC4/AES-128 key length within what one MD5 digest
// provides.
func md5KeyLen(n int) int {
	switch {
	case n < 5:
		return 5
	case n > md5.Size:
		return md5.Size
	}
	return n
}

// ownerEntry computes /O.
func ownerEntry(ownerPwd, userPwd []byte, r, keyLen int) []byte {
	if len(ownerPwd) == 0 {
		ownerPwd = userPwd
	}
	key := ownerRC4Key(ownerPwd, r, keyLen)
	out := rc4XOR(key, padPassword(userPwd))
	if r >= 3 {
		out = rc4Rounds(key, out, 1, 19)
	}
	return out
}

// recoverUserPassword reverses ownerEntry, yielding the padded user password
// when pwd is the owner password.
func recoverUserPassword(pwd, o []byte, r, keyLen int) []byte {
	if len(o) < 32 {
		return nil
	}
	key := ownerRC4Key(pwd, r, keyLen)
	data := append([]byte(nil), o[:32]...)
	if r >= 3 {
		data = rc4Rounds(key, data, 19, 0)
		return data
	}
	return rc4XOR(key, data)
}

// userEntry computes /U for the given file key.
func userEntry(key, fileID []byte, r int) []byte {
	if r == 2 {
		return rc4XOR(key, passwordPadding)
	}
	h := md5.New()
	h.Write(passwordPadding)
	h.Write(fileID)
	out := rc4XOR(key, h.Sum(nil))
	out = rc4Rounds(key, out, 1, 19)
	// pad to 32 bytes; readers compare only the first 16
	return append(out, passwordPadding[:16]...)
}

// rc4Rounds applies RC4 with key XOR i for i running from first to last,
// inclusive, in either direction.
func rc4Rounds(key, data []byte, first, last int) []byte {
	step := 1
	if last < first {
		step = -1
	}
	tmp := make([]byte, len(key))
	for i := first; ; i += step {
		for j := range key {
			tmp[j] = key[j] ^ byte(i)
		}
		data = rc4XOR(tmp, data)
		if i == last {
			return data
		}
	}
}

func rc4XOR(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		// key lengths are fixed by the callers
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// hashFunc derives the 32-byte check or intermediate key for AES-256
// passwords.
type hashFunc func(pwd, salt, udata []byte) []byte

func pbkdf2Hash(pwd, salt, udata []byte) []byte {
	in := make([]byte, 0, len(pwd)+len(udata))
	in = append(in, pwd...)
	in = append(in, udata...)
	return pbkdf2.Key(in, salt, pbkdf2Iterations, 32, sha256.New)
}

func sha256Hash(pwd, salt, udata []byte) []byte {
	h := sha256.New()
	h.Write(pwd)
	h.Write(salt)
	h.Write(udata)
	return h.Sum(nil)
}

// isoHash is the revision 6 hardened hash: SHA-256 seeded, then at least 64
// rounds of AES-128-CBC expansion and a SHA-2 variant chosen by the output.
func isoHash(pwd, salt, udata []byte) []byte {
	k := sha256Hash(pwd, salt, udata)
	var e []byte
	for round := 0; round < 64 || int(e[len(e)-1]) > round-32; round++ {
		seq := make([]byte, 0, len(pwd)+len(k)+len(udata))
		seq = append(seq, pwd...)
		seq = append(seq, k...)
		seq = append(seq, udata...)
		k1 := bytes.Repeat(seq, 64)
		var err error
		e, err = aesCBC(k[:16], k[16:32], k1, true)
		if err != nil {
			return nil
		}
		sum := 0
		for _, b := range e[:16] {
			sum += int(b)
		}
		var h hash.Hash
		switch sum % 3 {
		case 0:
			h = sha256.New()
		case 1:
			h = sha512.New384()
		default:
			h = sha512.New()
		}
		h.Write(e)
		k = h.Sum(nil)
	}
	return k[:32]
}

// aes256Hashes lists the password hashes accepted on read, newest first.
var aes256Hashes = []hashFunc{pbkdf2Hash, isoHash, sha256Hash}

// unwrapAES256Key validates pwd against a 48-byte /U or /O entry and, on a
// match, decrypts the file key from the matching /UE or /OE entry.
func unwrapAES256Key(pwd, entry, udata, wrapped []byte) []byte {
	valSalt, keySalt := entry[32:40], entry[40:48]
	for _, hf := range aes256Hashes {
		check := hf(pwd, valSalt, udata)
		if check == nil || subtle.ConstantTimeCompare(check, entry[:32]) != 1 {
			continue
		}
		inter := hf(pwd, keySalt, udata)
		key, err := aesCBC(inter, make([]byte, aes.BlockSize), wrapped[:32], false)
		if err != nil {
			return nil
		}
		return key
	}
	return nil
}

// aes256Entries builds the (check, wrapped key) pair for one password. udata
// is empty for the user entry and the 48-byte /U for the owner entry.
func aes256Entries(pwd, udata, fileKey, salts []byte) (entry, wrapped []byte, err error) {
	valSalt, keySalt := salts[:saltLen], salts[saltLen:2*saltLen]
	entry = make([]byte, 0, 48)
	entry = append(entry, pbkdf2Hash(pwd, valSalt, udata)...)
	entry = append(entry, valSalt...)
	entry = append(entry, keySalt...)
	wrapped, err = aesCBC(pbkdf2Hash(pwd, keySalt, udata), make([]byte, aes.BlockSize), fileKey, true)
	return entry, wrapped, err
}

func encryptPerms(key []byte, p int32, encryptMeta bool, tail []byte) ([]byte, error) {
	block := make([]byte, 16)
	binary.LittleEndian.PutUint32(block, uint32(p))
	copy(block[4:8], []byte{0xFF, 0xFF, 0xFF, 0xFF})
	block[8] = 'F'
	if encryptMeta {
		block[8] = 'T'
	}
	copy(block[9:12], "adb")
	copy(block[12:], tail)
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 16)
	c.Encrypt(out, block)
	return out, nil
}

var errBadPerms = errors.New("perms entry does not verify")

func decryptPerms(key, perms []byte) (int32, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return 0, err
	}
	out := make([]byte, 16)
	c.Decrypt(out, perms[:16])
	if string(out[9:12]) != "adb" {
		return 0, errBadPerms
	}
	return int32(binary.LittleEndian.Uint32(out[:4])), nil
}
