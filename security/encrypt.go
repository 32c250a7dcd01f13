package security

import (
	"fmt"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

// Options configures NewEncryption.
type Options struct {
	Algorithm     Algorithm
	UserPassword  string
	OwnerPassword string
	// Permissions defaults to AllPermissions when nil.
	Permissions *Permissions
}

// Encryption is a freshly generated security plan: the /Encrypt dictionary to
// write and an authenticated handler that encrypts with its key.
type Encryption struct {
	Dict    *raw.DictObj
	Handler Handler
}

// NewEncryption builds a security plan for a document with the given first
// /ID element.
func NewEncryption(opts Options, fileID []byte) (*Encryption, error) {
	user, owner := []byte(opts.UserPassword), []byte(opts.OwnerPassword)
	if len(user) > MaxPasswordLength || len(owner) > MaxPasswordLength {
		return nil, &Error{Op: "new encryption", Err: ErrPasswordTooLong}
	}
	perms := AllPermissions()
	if opts.Permissions != nil {
		perms = *opts.Permissions
	}
	p := EncodePermissions(perms)

	switch opts.Algorithm {
	case RC4_40:
		return newStandardEncryption(user, owner, p, fileID, 1, 2, 5, algoRC4)
	case RC4_128:
		return newStandardEncryption(user, owner, p, fileID, 2, 3, 16, algoRC4)
	case AES_128:
		return newStandardEncryption(user, owner, p, fileID, 4, 4, 16, algoAES)
	case AES_256:
		if len(user) == 0 && len(owner) == 0 {
			return nil, &Error{Op: "new encryption", Err: ErrPasswordRequired}
		}
		return newAES256Encryption(user, owner, p)
	}
	return nil, &Error{Op: "new encryption", Err: fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, opts.Algorithm)}
}

func newStandardEncryption(user, owner []byte, p int32, fileID []byte, v, r, keyLen int, algo cryptAlgo) (*Encryption, error) {
	o := ownerEntry(owner, user, r, keyLen)
	key := fileKey(user, o, p, fileID, keyLen, r, true)
	u := userEntry(key, fileID, r)

	d := raw.Dict()
	d.Set("Filter", raw.NameLiteral("Standard"))
	d.Set("V", raw.NumberInt(int64(v)))
	d.Set("R", raw.NumberInt(int64(r)))
	d.Set("Length", raw.NumberInt(int64(keyLen*8)))
	if algo == algoAES {
		d.Set("CF", cryptFilterDict("AESV2", 16))
		d.Set("StmF", raw.NameLiteral("StdCF"))
		d.Set("StrF", raw.NameLiteral("StdCF"))
	}
	d.Set("O", raw.HexStr(o))
	d.Set("U", raw.HexStr(u))
	d.Set("P", raw.NumberInt(int64(p)))

	h := &standardHandler{
		v: v, r: r, keyLen: keyLen,
		o: o, u: u, p: p,
		fileID:      fileID,
		encryptMeta: true,
		base:        algo,
		stmAlgo:     algo,
		strAlgo:     algo,
		key:         key,
		authed:      true,
	}
	return &Encryption{Dict: d, Handler: h}, nil
}

func newAES256Encryption(user, owner []byte, p int32) (*Encryption, error) {
	if len(owner) == 0 {
		owner = user
	}
	key, err := randomBytes(32)
	if err != nil {
		return nil, &Error{Op: "new encryption", Err: err}
	}
	salts, err := randomBytes(4*saltLen + 4)
	if err != nil {
		return nil, &Error{Op: "new encryption", Err: err}
	}
	u, ue, err := aes256Entries(user, nil, key, salts[:2*saltLen])
	if err != nil {
		return nil, &Error{Op: "new encryption", Err: err}
	}
	o, oe, err := aes256Entries(owner, u, key, salts[2*saltLen:4*saltLen])
	if err != nil {
		return nil, &Error{Op: "new encryption", Err: err}
	}
	perms, err := encryptPerms(key, p, true, salts[4*saltLen:])
	if err != nil {
		return nil, &Error{Op: "new encryption", Err: err}
	}

	d := raw.Dict()
	d.Set("Filter", raw.NameLiteral("Standard"))
	d.Set("V", raw.NumberInt(5))
	d.Set("R", raw.NumberInt(6))
	d.Set("Length", raw.NumberInt(256))
	d.Set("CF", cryptFilterDict("AESV3", 32))
	d.Set("StmF", raw.NameLiteral("StdCF"))
	d.Set("StrF", raw.NameLiteral("StdCF"))
	d.Set("O", raw.HexStr(o))
	d.Set("U", raw.HexStr(u))
	d.Set("OE", raw.HexStr(oe))
	d.Set("UE", raw.HexStr(ue))
	d.Set("P", raw.NumberInt(int64(p)))
	d.Set("Perms", raw.HexStr(perms))

	h := &standardHandler{
		v: 5, r: 6, keyLen: 32,
		o: o, u: u, oe: oe, ue: ue, perms: perms, p: p,
		encryptMeta: true,
		base:        algoAES256,
		stmAlgo:     algoAES256,
		strAlgo:     algoAES256,
		key:         key,
		authed:      true,
	}
	return &Encryption{Dict: d, Handler: h}, nil
}

func cryptFilterDict(method string, length int64) *raw.DictObj {
	std := raw.Dict()
	std.Set("Type", raw.NameLiteral("CryptFilter"))
	std.Set("CFM", raw.NameLiteral(method))
	std.Set("AuthEvent", raw.NameLiteral("DocOpen"))
	std.Set("Length", raw.NumberInt(length))
	cf := raw.Dict()
	cf.Set("StdCF", std)
	return cf
}
