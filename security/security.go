package security

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm selects the standard security handler revision used to protect
// a document.
type Algorithm int

const (
	NoEncryption Algorithm = iota
	RC4_40
	RC4_128
	AES_128
	AES_256
)

func (a Algorithm) String() string {
	switch a {
	case NoEncryption:
		return "None"
	case RC4_40:
		return "RC4-40"
	case RC4_128:
		return "RC4-128"
	case AES_128:
		return "AES-128"
	case AES_256:
		return "AES-256"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm accepts names such as "RC4-40", "aes_128" or "AES256".
func ParseAlgorithm(s string) (Algorithm, error) {
	norm := strings.ToUpper(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	switch norm {
	case "RC440":
		return RC4_40, nil
	case "RC4128":
		return RC4_128, nil
	case "AES128":
		return AES_128, nil
	case "AES256":
		return AES_256, nil
	}
	return NoEncryption, &Error{Op: "parse algorithm", Err: fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)}
}

// Sentinel causes carried by *Error.
var (
	ErrUnsupportedAlgorithm = errors.New("unsupported encryption algorithm")
	ErrPasswordTooLong      = errors.New("password longer than 127 bytes")
	ErrPasswordRequired     = errors.New("AES-256 requires a user or owner password")
	ErrInvalidPassword      = errors.New("invalid password")
	ErrDecrypt              = errors.New("decryption failed")
)

// MaxPasswordLength is the longest password accepted, in bytes.
const MaxPasswordLength = 127

// Error is returned for every encryption failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "security: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// DataClass identifies the kind of payload being encrypted or decrypted.
type DataClass int

const (
	DataClassStream DataClass = iota
	DataClassString
)

type Handler interface {
	IsEncrypted() bool
	Algorithm() Algorithm
	Authenticate(password string) error
	Decrypt(objNum, gen int, data []byte, class DataClass) ([]byte, error)
	Encrypt(objNum, gen int, data []byte, class DataClass) ([]byte, error)
	Permissions() Permissions
	EncryptMetadata() bool
}

type noEncryptionHandler struct{}

func (noEncryptionHandler) IsEncrypted() bool                  { return false }
func (noEncryptionHandler) Algorithm() Algorithm               { return NoEncryption }
func (noEncryptionHandler) Authenticate(password string) error { return nil }
func (noEncryptionHandler) Decrypt(objNum, gen int, data []byte, class DataClass) ([]byte, error) {
	return data, nil
}
func (noEncryptionHandler) Encrypt(objNum, gen int, data []byte, class DataClass) ([]byte, error) {
	return data, nil
}
func (noEncryptionHandler) Permissions() Permissions { return AllPermissions() }
func (noEncryptionHandler) EncryptMetadata() bool    { return false }

// NoopHandler returns a reusable pass-through encryption handler.
func NoopHandler() Handler { return noEncryptionHandler{} }
