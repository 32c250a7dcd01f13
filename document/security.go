package document

import (
	"crypto/rand"
	"crypto/sha256"
	"strconv"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/pagetree"
	"github.com/VibePDF/VibePDF-sub001/security"
)

// SecurityInfo describes an encrypted document. Only encrypted documents
// provide one; see Document.Security.
type SecurityInfo interface {
	Encrypted() bool
	Permissions() security.Permissions
	Algorithm() security.Algorithm
}

type securityInfo struct{ h security.Handler }

func (s securityInfo) Encrypted() bool                   { return true }
func (s securityInfo) Permissions() security.Permissions { return s.h.Permissions() }
func (s securityInfo) Algorithm() security.Algorithm     { return s.h.Algorithm() }

// Security returns the document's security state when it is encrypted.
func (d *Document) Security() (SecurityInfo, bool) {
	if d.sec == nil || !d.sec.IsEncrypted() {
		return nil, false
	}
	return securityInfo{h: d.sec}, true
}

// EnableSecurity encrypts the document on the next save. Any existing
// /Encrypt dictionary is replaced.
func (d *Document) EnableSecurity(opts security.Options) error {
	if len(d.id) != 2 || len(d.id[0]) == 0 {
		d.id = d.freshID()
	}
	enc, err := security.NewEncryption(opts, d.id[0])
	if err != nil {
		return err
	}
	if !d.encrypt.IsZero() {
		_ = d.arena.remove(d.encrypt.Num)
	}
	d.encrypt = d.arena.add(enc.Dict)
	d.sec = enc.Handler
	d.secModified = true
	d.log.Debug("security enabled", observability.String("algorithm", opts.Algorithm.String()))
	return nil
}

// ensureID creates the file identifier when the document has none.
func (d *Document) ensureID() {
	if len(d.id) == 2 && len(d.id[0]) > 0 {
		return
	}
	if d.sec == nil || !d.sec.IsEncrypted() || d.secModified {
		d.id = d.freshID()
		return
	}
	// The loaded handler derived its key from the first element as it was,
	// possibly empty, so only the second may be filled in.
	var first []byte
	if len(d.id) > 0 {
		first = d.id[0]
	}
	var second []byte
	if len(d.id) == 2 {
		second = d.id[1]
	} else {
		second = d.freshID()[1]
	}
	d.id = [][]byte{first, second}
}

func (d *Document) freshID() [][]byte {
	var id []byte
	if d.cfg.deterministic {
		id = d.idSeed()
	} else {
		id = make([]byte, 16)
		if _, err := rand.Read(id); err != nil {
			id = d.idSeed()
		}
	}
	second := make([]byte, len(id))
	copy(second, id)
	return [][]byte{id, second}
}

// idSeed hashes the information dictionary and page geometry.
func (d *Document) idSeed() []byte {
	h := sha256.New()
	info := d.Info()
	for _, s := range []string{info.Title, info.Author, info.Subject, info.Keywords, info.Creator, info.Producer} {
		h.Write([]byte(s))
	}
	h.Write([]byte(strconv.Itoa(d.PageCount())))
	for _, p := range d.tree.Pages() {
		if box, ok := pagetree.Resolve(p, "MediaBox"); ok {
			h.Write(raw.Serialize(box))
		}
	}
	return h.Sum(nil)[:16]
}

// nextID keeps the permanent part of the identifier and renews the second.
func (d *Document) nextID() {
	d.ensureID()
	if d.cfg.deterministic {
		return
	}
	fresh := make([]byte, 16)
	if _, err := rand.Read(fresh); err == nil {
		d.id = [][]byte{d.id[0], fresh}
	}
}
