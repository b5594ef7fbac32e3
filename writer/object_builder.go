package writer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wudi/plantreport/contentstream"
	"github.com/wudi/plantreport/ir/raw"
	"github.com/wudi/plantreport/ir/semantic"
)

// objectBuilder lowers a semantic document into an object table. Object
// numbers are allocated in document order so equal documents produce equal
// tables.
type objectBuilder struct {
	cfg      Config
	table    *raw.Table
	fonts    map[string]raw.ObjectRef
	xobjects map[*semantic.XObject]raw.ObjectRef
}

func newObjectBuilder(cfg Config) *objectBuilder {
	return &objectBuilder{
		cfg:      cfg,
		table:    raw.NewTable(),
		fonts:    make(map[string]raw.ObjectRef),
		xobjects: make(map[*semantic.XObject]raw.ObjectRef),
	}
}

func (b *objectBuilder) build(ctx context.Context, doc *semantic.Document) (raw.ObjectRef, *raw.ObjectRef, error) {
	catalogRef := b.table.Reserve()
	pagesRef := b.table.Reserve()

	kids := raw.NewArray()
	for i, p := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return raw.ObjectRef{}, nil, err
		}
		ref, err := b.addPage(p, pagesRef)
		if err != nil {
			return raw.ObjectRef{}, nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		kids.Append(raw.Ref(ref))
	}

	pages := raw.Dict()
	pages.Set("Type", raw.Name("Pages"))
	pages.Set("Kids", kids)
	pages.Set("Count", raw.Int(int64(kids.Len())))
	b.table.Put(pagesRef, pages)

	catalog := raw.Dict()
	catalog.Set("Type", raw.Name("Catalog"))
	catalog.Set("Pages", raw.Ref(pagesRef))
	if doc.Lang != "" {
		catalog.Set("Lang", textString(doc.Lang))
	}
	b.table.Put(catalogRef, catalog)

	var infoRef *raw.ObjectRef
	if doc.Info != nil {
		ref := b.table.Add(infoDict(doc.Info))
		infoRef = &ref
	}
	return catalogRef, infoRef, nil
}

func (b *objectBuilder) addPage(p *semantic.Page, parent raw.ObjectRef) (raw.ObjectRef, error) {
	if p == nil {
		return raw.ObjectRef{}, fmt.Errorf("nil page")
	}
	if p.Width() <= 0 || p.Height() <= 0 {
		return raw.ObjectRef{}, fmt.Errorf("empty media box")
	}
	pageRef := b.table.Reserve()
	page := raw.Dict()
	page.Set("Type", raw.Name("Page"))
	page.Set("Parent", raw.Ref(parent))
	mb := p.MediaBox
	page.Set("MediaBox", raw.RectArray(mb.LLX, mb.LLY, mb.URX, mb.URY))
	if rot := normalizeRotation(p.Rotate); rot != 0 {
		page.Set("Rotate", raw.Int(int64(rot)))
	}

	var ops []semantic.Operation
	for _, cs := range p.Contents {
		ops = append(ops, cs.Operations...)
	}
	content, err := b.stream(raw.Dict(), contentstream.Encode(ops), "")
	if err != nil {
		return raw.ObjectRef{}, err
	}
	page.Set("Contents", raw.Ref(b.table.Add(content)))

	res, err := b.resources(p.Resources)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	page.Set("Resources", res)
	b.table.Put(pageRef, page)
	return pageRef, nil
}

func (b *objectBuilder) resources(r *semantic.Resources) (*raw.DictObj, error) {
	dict := raw.Dict()
	dict.Set("ProcSet", raw.NewArray(raw.Name("PDF"), raw.Name("Text"), raw.Name("ImageB"), raw.Name("ImageC")))
	if r == nil {
		return dict, nil
	}
	if len(r.Fonts) > 0 {
		fontDict := raw.Dict()
		for _, name := range sortedKeys(r.Fonts) {
			fontDict.Set(name, raw.Ref(b.ensureFont(r.Fonts[name])))
		}
		dict.Set("Font", fontDict)
	}
	if len(r.XObjects) > 0 {
		xoDict := raw.Dict()
		for _, name := range sortedKeys(r.XObjects) {
			ref, err := b.ensureXObject(r.XObjects[name])
			if err != nil {
				return nil, fmt.Errorf("xobject %s: %w", name, err)
			}
			xoDict.Set(name, raw.Ref(ref))
		}
		dict.Set("XObject", xoDict)
	}
	return dict, nil
}

func (b *objectBuilder) ensureFont(font *semantic.Font) raw.ObjectRef {
	subtype := font.Subtype
	if subtype == "" {
		subtype = "Type1"
	}
	encoding := font.Encoding
	if encoding == "" {
		encoding = "WinAnsiEncoding"
	}
	key := strings.Join([]string{subtype, font.BaseFont, encoding}, "|")
	if ref, ok := b.fonts[key]; ok {
		return ref
	}
	dict := raw.Dict()
	dict.Set("Type", raw.Name("Font"))
	dict.Set("Subtype", raw.Name(subtype))
	dict.Set("BaseFont", raw.Name(font.BaseFont))
	dict.Set("Encoding", raw.Name(encoding))
	ref := b.table.Add(dict)
	b.fonts[key] = ref
	return ref
}

func (b *objectBuilder) ensureXObject(xo *semantic.XObject) (raw.ObjectRef, error) {
	if ref, ok := b.xobjects[xo]; ok {
		return ref, nil
	}
	if xo.Width <= 0 || xo.Height <= 0 {
		return raw.ObjectRef{}, fmt.Errorf("invalid image size %dx%d", xo.Width, xo.Height)
	}
	dict := raw.Dict()
	dict.Set("Type", raw.Name("XObject"))
	dict.Set("Subtype", raw.Name("Image"))
	dict.Set("Width", raw.Int(int64(xo.Width)))
	dict.Set("Height", raw.Int(int64(xo.Height)))
	cs := xo.ColorSpace.Name
	if cs == "" {
		cs = "DeviceRGB"
	}
	dict.Set("ColorSpace", raw.Name(cs))
	bpc := xo.BitsPerComponent
	if bpc == 0 {
		bpc = 8
	}
	dict.Set("BitsPerComponent", raw.Int(int64(bpc)))
	if xo.Interpolate {
		dict.Set("Interpolate", raw.Bool(true))
	}
	if xo.SMask != nil {
		smask, err := b.ensureXObject(xo.SMask)
		if err != nil {
			return raw.ObjectRef{}, fmt.Errorf("smask: %w", err)
		}
		dict.Set("SMask", raw.Ref(smask))
	}
	stream, err := b.stream(dict, xo.Data, xo.Filter)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	ref := b.table.Add(stream)
	b.xobjects[xo] = ref
	return ref, nil
}

// stream wraps data, compressing it unless a pass-through filter is given.
func (b *objectBuilder) stream(dict *raw.DictObj, data []byte, filter string) (*raw.StreamObj, error) {
	if filter != "" {
		dict.Set("Filter", raw.Name(filter))
		return raw.NewStream(dict, data), nil
	}
	if b.cfg.Compression > 0 {
		enc, err := flateEncode(data, b.cfg.Compression)
		if err != nil {
			return nil, fmt.Errorf("compress stream: %w", err)
		}
		dict.Set("Filter", raw.Name("FlateDecode"))
		data = enc
	}
	return raw.NewStream(dict, data), nil
}

func infoDict(info *semantic.DocumentInfo) *raw.DictObj {
	dict := raw.Dict()
	set := func(key, val string) {
		if val != "" {
			dict.Set(key, textString(val))
		}
	}
	set("Title", info.Title)
	set("Author", info.Author)
	set("Subject", info.Subject)
	set("Creator", info.Creator)
	set("Producer", info.Producer)
	set("Keywords", strings.Join(info.Keywords, "; "))
	if !info.CreationDate.IsZero() {
		dict.Set("CreationDate", raw.Str([]byte(pdfDate(info.CreationDate))))
		dict.Set("ModDate", raw.Str([]byte(pdfDate(info.CreationDate))))
	}
	return dict
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
