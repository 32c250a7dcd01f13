package document

import (
	"context"

	"github.com/VibePDF/VibePDF-sub001/ir/raw"
	"github.com/VibePDF/VibePDF-sub001/observability"
	"github.com/VibePDF/VibePDF-sub001/writer"
	"github.com/VibePDF/VibePDF-sub001/xref"
)

// Save validates the structure and writes the whole document. An invalid
// document yields a *StructuralError and no bytes.
func (d *Document) Save(ctx context.Context) (out []byte, err error) {
	ctx, span := d.trace.StartSpan(ctx, observability.SpanSave)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()

	d.syncTree()
	if err := d.checkStructure(); err != nil {
		return nil, err
	}
	d.ensureID()
	in := d.input(d.arena.liveRefs(), d.arena.removedRefs(true))
	out, err = writer.New(d.writerConfig()).Write(ctx, in)
	if err != nil {
		return nil, err
	}
	d.arena.afterFullSave()
	d.secModified = false
	d.rebase(out)
	d.log.Debug("document saved",
		observability.Int("objects", len(in.Objects)),
		observability.Int("pages", d.PageCount()),
		observability.Int("bytes", len(out)))
	return out, nil
}

// SaveIncremental appends the objects changed since the last load or save
// to that file and returns the complete result.
func (d *Document) SaveIncremental(ctx context.Context) (out []byte, err error) {
	ctx, span := d.trace.StartSpan(ctx, observability.SpanSave)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()

	if len(d.baseline) == 0 {
		return nil, ErrNotLoaded
	}
	if d.secModified {
		return nil, ErrSecurityChanged
	}
	d.syncTree()
	if err := d.checkStructure(); err != nil {
		return nil, err
	}
	d.nextID()
	in := d.input(d.arena.modifiedRefs(), d.arena.removedRefs(false))
	iw := writer.NewIncremental(d.writerConfig(), d.baseline, d.prevXRef, d.prevSize)
	out, err = iw.Append(ctx, in)
	if err != nil {
		return nil, err
	}
	d.arena.afterIncrementalSave()
	d.rebase(out)
	d.log.Debug("incremental update saved",
		observability.Int("objects", len(in.Objects)),
		observability.Int("freed", len(in.Freed)),
		observability.Int("bytes", len(out)))
	return out, nil
}

func (d *Document) input(refs, freed []raw.ObjectRef) writer.Input {
	in := writer.Input{
		Root:     d.catalog,
		ID:       d.id,
		Security: d.sec,
		Freed:    freed,
		Size:     d.arena.size(),
	}
	if _, err := d.arena.get(d.info); err == nil {
		in.Info = d.info
	}
	encrypted := d.sec.IsEncrypted() && !d.encrypt.IsZero()
	if encrypted {
		if v, err := d.arena.get(d.encrypt); err == nil {
			enc := raw.NewIndirect(d.encrypt, v)
			in.Encrypt = &enc
		}
	}
	in.Objects = make([]raw.IndirectObject, 0, len(refs))
	for _, ref := range refs {
		if encrypted && ref == d.encrypt {
			continue
		}
		v, err := d.arena.get(ref)
		if err != nil {
			continue
		}
		in.Objects = append(in.Objects, raw.NewIndirect(ref, v))
	}
	return in
}

func (d *Document) writerConfig() writer.Config {
	wc := d.cfg.writer
	if wc.Version == "" && d.version > "1.7" {
		wc.Version = d.version
	}
	return wc
}

// rebase makes out the file later incremental saves append to.
func (d *Document) rebase(out []byte) {
	d.baseline = out
	if off, err := xref.FindStartXRef(out); err == nil {
		d.prevXRef = off
	}
	d.prevSize = d.arena.size()
}
