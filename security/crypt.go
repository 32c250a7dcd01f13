package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// randReader is the source for salts, IVs and file keys.
var randReader io.Reader = rand.Reader

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// objectKey derives the per-object key. AES-256 uses the file key directly.
func objectKey(fileKey []byte, objNum, gen int, algo cryptAlgo) []byte {
	if algo == algoAES256 {
		return fileKey
	}
	h := md5.New()
	h.Write(fileKey)
	h.Write([]byte{byte(objNum), byte(objNum >> 8), byte(objNum >> 16), byte(gen), byte(gen >> 8)})
	if algo == algoAES {
		h.Write([]byte("sAlT"))
	}
	sum := h.Sum(nil)
	n := len(fileKey) + 5
	if n > 16 {
		n = 16
	}
	return sum[:n]
}

func rc4Crypt(key, data []byte) ([]byte, error) {
	return rc4XOR(key, data), nil
}

// aesEncrypt returns IV || CBC(PKCS#7(data)) with a random IV.
func aesEncrypt(key, data []byte) ([]byte, error) {
	iv, err := randomBytes(aes.BlockSize)
	if err != nil {
		return nil, err
	}
	pad := aes.BlockSize - len(data)%aes.BlockSize
	plain := make([]byte, len(data), len(data)+pad)
	copy(plain, data)
	plain = append(plain, bytes.Repeat([]byte{byte(pad)}, pad)...)
	ct, err := aesCBC(key, iv, plain, true)
	if err != nil {
		return nil, err
	}
	return append(iv, ct...), nil
}

var errBadPadding = errors.New("invalid padding")

func aesDecrypt(key, data []byte) ([]byte, error) {
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a whole number of blocks after the IV", len(data))
	}
	plain, err := aesCBC(key, data[:aes.BlockSize], data[aes.BlockSize:], false)
	if err != nil {
		return nil, err
	}
	pad := int(plain[len(plain)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(plain) {
		return nil, errBadPadding
	}
	for _, b := range plain[len(plain)-pad:] {
		if int(b) != pad {
			return nil, errBadPadding
		}
	}
	return plain[:len(plain)-pad], nil
}

// aesCBC runs CBC without padding; data must be block aligned.
func aesCBC(key, iv, data []byte, encrypt bool) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("data length %d is not block aligned", len(data))
	}
	out := make([]byte, len(data))
	if encrypt {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	} else {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	}
	return out, nil
}
