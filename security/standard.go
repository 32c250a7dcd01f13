package security

import (
	"crypto/subtle"
	"fmt"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
)

// HandlerBuilder constructs a Handler from an /Encrypt dictionary read out of
// an existing file.
type HandlerBuilder struct {
	encryptDict *raw.DictObj
	trailer     *raw.DictObj
	fileID      []byte
}

func (b *HandlerBuilder) WithEncryptDict(d *raw.DictObj) *HandlerBuilder {
	b.encryptDict = d
	return b
}
func (b *HandlerBuilder) WithTrailer(d *raw.DictObj) *HandlerBuilder { b.trailer = d; return b }
func (b *HandlerBuilder) WithFileID(id []byte) *HandlerBuilder       { b.fileID = id; return b }

// Build returns an unauthenticated handler. With no /Encrypt dictionary the
// pass-through handler is returned.
func (b *HandlerBuilder) Build() (Handler, error) {
	d := b.encryptDict
	if d == nil {
		return noEncryptionHandler{}, nil
	}
	if name, ok := d.GetName("Filter"); ok && name != "Standard" {
		return nil, &Error{Op: "build handler", Err: fmt.Errorf("%w: filter %s", ErrUnsupportedAlgorithm, name)}
	}
	v, _ := d.GetInt("V")
	if v == 0 {
		v = 1
	}
	r, ok := d.GetInt("R")
	if !ok {
		r = 2
	}
	if v == 3 || v > 5 || r < 2 || r > 6 {
		return nil, &Error{Op: "build handler", Err: fmt.Errorf("%w: V=%d R=%d", ErrUnsupportedAlgorithm, v, r)}
	}
	keyLen := 40
	if v >= 5 {
		keyLen = 256
	}
	if n, ok := d.GetInt("Length"); ok && n > 0 && v < 5 {
		keyLen = int(n)
	}
	if v == 4 && keyLen < 128 {
		keyLen = 128
	}
	maxLen := 128
	if v >= 5 {
		maxLen = 256
	}
	if keyLen%8 != 0 || keyLen < 40 || keyLen > maxLen {
		return nil, &Error{Op: "build handler", Err: fmt.Errorf("%w: key length %d", ErrUnsupportedAlgorithm, keyLen)}
	}
	id := b.fileID
	if len(id) == 0 && b.trailer != nil {
		if arr, ok := b.trailer.GetArray("ID"); ok && arr.Len() > 0 {
			if s, ok := arr.Items[0].(raw.StringObj); ok {
				id = s.Bytes
			}
		}
	}
	h := &standardHandler{
		v:           int(v),
		r:           int(r),
		keyLen:      keyLen / 8,
		fileID:      id,
		encryptMeta: true,
	}
	h.o, _ = d.GetString("O")
	h.u, _ = d.GetString("U")
	h.oe, _ = d.GetString("OE")
	h.ue, _ = d.GetString("UE")
	h.perms, _ = d.GetString("Perms")
	p, _ := d.GetInt("P")
	h.p = int32(p)
	if meta, ok := d.Get("EncryptMetadata"); ok {
		if bv, ok := meta.(raw.BoolObj); ok {
			h.encryptMeta = bv.V
		}
	}

	base := algoRC4
	switch {
	case v >= 5:
		base = algoAES256
	case v == 4:
		base = algoAES
	}
	h.base = base
	if v >= 4 {
		filters, err := parseCryptFilters(d, base)
		if err != nil {
			return nil, err
		}
		if h.stmAlgo, err = resolveCryptFilter(d, "StmF", filters); err != nil {
			return nil, err
		}
		if h.strAlgo, err = resolveCryptFilter(d, "StrF", filters); err != nil {
			return nil, err
		}
	} else {
		h.stmAlgo, h.strAlgo = algoRC4, algoRC4
	}
	return h, nil
}

type cryptAlgo int

const (
	algoNone cryptAlgo = iota
	algoRC4
	algoAES
	algoAES256
)

type standardHandler struct {
	v, r        int
	keyLen      int // bytes
	o, u        []byte
	oe, ue      []byte
	perms       []byte
	p           int32
	fileID      []byte
	encryptMeta bool
	base        cryptAlgo
	stmAlgo     cryptAlgo
	strAlgo     cryptAlgo

	key    []byte
	authed bool
}

func (h *standardHandler) IsEncrypted() bool     { return true }
func (h *standardHandler) EncryptMetadata() bool { return h.encryptMeta }

func (h *standardHandler) Algorithm() Algorithm {
	switch h.base {
	case algoAES256:
		return AES_256
	case algoAES:
		return AES_128
	}
	if h.keyLen <= 5 {
		return RC4_40
	}
	return RC4_128
}

func (h *standardHandler) Permissions() Permissions { return DecodePermissions(h.p) }

// Authenticate tries password as the user password and then as the owner
// password.
func (h *standardHandler) Authenticate(password string) error {
	pwd := []byte(password)
	if len(pwd) > MaxPasswordLength {
		return &Error{Op: "authenticate", Err: ErrPasswordTooLong}
	}
	var key []byte
	if h.r >= 5 {
		key = h.authenticateAES256(pwd)
	} else {
		key = h.authenticateStandard(pwd)
	}
	if key == nil {
		return &Error{Op: "authenticate", Err: ErrInvalidPassword}
	}
	h.key, h.authed = key, true
	if h.r >= 5 {
		h.checkPerms()
	}
	return nil
}

func (h *standardHandler) authenticateStandard(pwd []byte) []byte {
	if key := h.userKey(pwd); key != nil {
		return key
	}
	// An owner password decrypts O back to the padded user password.
	return h.userKey(recoverUserPassword(pwd, h.o, h.r, h.keyLen))
}

func (h *standardHandler) userKey(pwd []byte) []byte {
	key := fileKey(pwd, h.o, h.p, h.fileID, h.keyLen, h.r, h.encryptMeta)
	want := userEntry(key, h.fileID, h.r)
	n := 32
	if h.r >= 3 {
		n = 16
	}
	if len(h.u) < n || subtle.ConstantTimeCompare(want[:n], h.u[:n]) != 1 {
		return nil
	}
	return key
}

func (h *standardHandler) authenticateAES256(pwd []byte) []byte {
	if len(h.u) < 48 || len(h.ue) < 32 {
		return nil
	}
	if key := unwrapAES256Key(pwd, h.u[:48], nil, h.ue); key != nil {
		return key
	}
	if len(h.o) < 48 || len(h.oe) < 32 {
		return nil
	}
	return unwrapAES256Key(pwd, h.o[:48], h.u[:48], h.oe)
}

// checkPerms prefers the authenticated /Perms copy of the permission flags
// when it decrypts cleanly.
func (h *standardHandler) checkPerms() {
	if len(h.perms) < 16 {
		return
	}
	if p, err := decryptPerms(h.key, h.perms); err == nil {
		h.p = p
	}
}

func (h *standardHandler) ensureAuth() error {
	if h.authed {
		return nil
	}
	return h.Authenticate("")
}

func (h *standardHandler) algoFor(class DataClass) cryptAlgo {
	if class == DataClassString {
		return h.strAlgo
	}
	return h.stmAlgo
}

func (h *standardHandler) Encrypt(objNum, gen int, data []byte, class DataClass) ([]byte, error) {
	if err := h.ensureAuth(); err != nil {
		return nil, err
	}
	algo := h.algoFor(class)
	if algo == algoNone || len(data) == 0 {
		return data, nil
	}
	key := objectKey(h.key, objNum, gen, algo)
	if algo == algoRC4 {
		return rc4Crypt(key, data)
	}
	out, err := aesEncrypt(key, data)
	if err != nil {
		return nil, &Error{Op: "encrypt", Err: err}
	}
	return out, nil
}

func (h *standardHandler) Decrypt(objNum, gen int, data []byte, class DataClass) ([]byte, error) {
	if err := h.ensureAuth(); err != nil {
		return nil, err
	}
	algo := h.algoFor(class)
	if algo == algoNone || len(data) == 0 {
		return data, nil
	}
	key := objectKey(h.key, objNum, gen, algo)
	if algo == algoRC4 {
		return rc4Crypt(key, data)
	}
	out, err := aesDecrypt(key, data)
	if err != nil {
		return nil, &Error{Op: fmt.Sprintf("decrypt object %d %d", objNum, gen), Err: fmt.Errorf("%w: %v", ErrDecrypt, err)}
	}
	return out, nil
}

func parseCryptFilters(d *raw.DictObj, base cryptAlgo) (map[string]cryptAlgo, error) {
	out := map[string]cryptAlgo{"Identity": algoNone}
	cf, ok := d.GetDict("CF")
	if !ok {
		return out, nil
	}
	for _, name := range cf.Keys() {
		sub, ok := cf.GetDict(name)
		if !ok {
			continue
		}
		method, _ := sub.GetName("CFM")
		switch method {
		case "None", "":
			out[name] = algoNone
		case "V2":
			out[name] = algoRC4
		case "AESV2":
			out[name] = algoAES
		case "AESV3":
			out[name] = algoAES256
		default:
			return nil, &Error{Op: "build handler", Err: fmt.Errorf("%w: crypt method %s", ErrUnsupportedAlgorithm, method)}
		}
	}
	return out, nil
}

func resolveCryptFilter(d *raw.DictObj, key string, filters map[string]cryptAlgo) (cryptAlgo, error) {
	name, ok := d.GetName(key)
	if !ok {
		return algoNone, nil
	}
	if algo, ok := filters[name]; ok {
		return algo, nil
	}
	return algoNone, &Error{Op: "build handler", Err: fmt.Errorf("%w: crypt filter %s not defined", ErrUnsupportedAlgorithm, name)}
}
