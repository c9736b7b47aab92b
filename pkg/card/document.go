package card

import (
	"fmt"

	"github.com/goopsie/kkcard/pkg/bytecursor"
	"github.com/goopsie/kkcard/pkg/msgpack"
	"github.com/goopsie/kkcard/pkg/pngcontainer"
)

// Document is the decoded form of one card/scene file: the variant it was
// recognized as, its image prefix, its header fields, and its ordered list
// of blocks (known and unknown alike, in original catalog order).
type Document struct {
	Variant Variant

	ProductNo int32
	Version   string

	// Header holds every HeaderFields entry from the VariantDescriptor,
	// keyed by FieldSpec.Name.
	Header map[string]HeaderValue

	ImageBytes     []byte
	FaceImageBytes []byte

	Blocks []Block

	// Trailer is whatever bytes follow the block-data section that the
	// catalog does not account for (e.g. a scene file's end-of-stream
	// marker). Preserved verbatim on save.
	Trailer []byte

	// catalogValue is the decoded {"lstInfo": [...]} catalog tree, kept so
	// Encode can patch pos/size in place instead of rebuilding the map with
	// shortest-width tags (see catalog.go's patchCatalog).
	catalogValue msgpack.Value

	warnings   []NestedDecodeWarning
	nestedWrap map[string]wrapKind
	lz4Memos   map[string]lz4Memo
}

// Warnings returns the non-fatal nested-payload decode failures
// accumulated while loading this Document.
func (d *Document) Warnings() []NestedDecodeWarning {
	return d.warnings
}

// Block returns the first block with the given name and whether it exists.
func (d *Document) Block(name string) (Block, bool) {
	for _, b := range d.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return Block{}, false
}

// SetBlock replaces the block with the given name, or appends it if absent.
func (d *Document) SetBlock(b Block) {
	for i := range d.Blocks {
		if d.Blocks[i].Name == b.Name {
			d.Blocks[i] = b
			return
		}
	}
	d.Blocks = append(d.Blocks, b)
}

// decodeDocument parses a non-save variant document: PNG prefix, fixed
// header fields, block catalog, and block-data section.
func decodeDocument(desc VariantDescriptor, data []byte) (*Document, error) {
	frame, err := pngcontainer.Split(data)
	if err != nil {
		return nil, fmt.Errorf("card: %w", err)
	}

	r := bytecursor.NewReader(frame.Tail)

	var productNo int32
	if !desc.IsBareVersionHeader {
		// A header too short to hold this descriptor's magic cannot match
		// it; report that as ErrUnknownVariant so Load tries the next one.
		productNo, err = r.ReadInt32LE()
		if err != nil {
			return nil, &ErrUnknownVariant{}
		}

		magic, err := r.ReadLengthPrefixed8()
		if err != nil {
			return nil, &ErrUnknownVariant{}
		}
		if string(magic) != desc.Magic {
			return nil, &ErrUnknownVariant{Magic: string(magic)}
		}
	}

	version, err := readVersionField(r, desc.VersionFieldKind)
	if err != nil {
		return nil, fmt.Errorf("card: %w", err)
	}

	header := make(map[string]HeaderValue, len(desc.HeaderFields))
	for _, spec := range desc.HeaderFields {
		v, err := readHeaderField(r, spec)
		if err != nil {
			return nil, fmt.Errorf("card: %w", err)
		}
		header[spec.Name] = v
	}

	rest := frame.Tail[r.Pos():]
	entries, catalogValue, catalogLen, err := decodeCatalog(rest)
	if err != nil {
		return nil, err
	}

	sizeReader := bytecursor.NewReader(rest[catalogLen:])
	blockDataSize, err := sizeReader.ReadInt64LE()
	if err != nil {
		return nil, fmt.Errorf("card: blockdata_size: %w", err)
	}
	bodyStart := catalogLen + sizeReader.Pos()
	if bodyStart+int(blockDataSize) > len(rest) {
		return nil, &ErrSchemaMismatch{Field: "blockdata_size", Reason: "declared size runs past end of buffer"}
	}
	blockData := rest[bodyStart : bodyStart+int(blockDataSize)]
	trailer := rest[bodyStart+int(blockDataSize):]

	blocks := make([]Block, len(entries))
	for i, e := range entries {
		if int(e.Pos)+int(e.Size) > len(blockData) {
			return nil, &ErrSchemaMismatch{Field: e.Name, Reason: "block span runs past end of block-data section"}
		}
		raw := blockData[e.Pos : e.Pos+e.Size]
		blocks[i] = Block{Name: e.Name, Version: e.Version, Raw: append([]byte(nil), raw...)}
	}

	doc := &Document{
		Variant:        desc.Variant,
		ProductNo:      productNo,
		Version:        version,
		Header:         header,
		ImageBytes:     frame.ImageBytes,
		FaceImageBytes: frame.FaceImageBytes,
		Blocks:         blocks,
		Trailer:        append([]byte(nil), trailer...),
		catalogValue:   catalogValue,
	}

	// Bare-version-header variants (KoikatuScene, HoneycomeScene) carry no
	// leading magic to dispatch on, so the variant is instead confirmed by
	// the end-of-stream marker load_string reads and asserts as the very
	// last thing in the file — see VariantDescriptor.Magic.
	if desc.IsBareVersionHeader {
		tail, err := bytecursor.NewReader(doc.Trailer).ReadVarString()
		if err != nil || string(tail) != desc.Magic {
			got := ""
			if err == nil {
				got = string(tail)
			}
			return nil, &ErrUnknownVariant{Magic: got}
		}
	}

	for i, b := range doc.Blocks {
		if !desc.KnownBlocks[b.Name] {
			continue
		}
		v, n, err := msgpack.Decode(b.Raw)
		if err != nil || n != len(b.Raw) {
			doc.warnings = append(doc.warnings, NestedDecodeWarning{
				BlockName: b.Name,
				Reason:    "block payload is not a single well-formed object",
			})
			continue
		}
		doc.Blocks[i].Value = v
		doc.Blocks[i].Known = true

		if nestedKeys, ok := desc.NestedKeys[b.Name]; ok {
			decodeNestedPayloads(doc, b.Name, &doc.Blocks[i].Value, nestedKeys)
		}
	}

	return doc, nil
}

// Encode serializes the Document back to its on-disk form. Known blocks
// re-encode their Value tree (re-applying nested-payload encoding first);
// unknown blocks are emitted from Raw verbatim.
func (d *Document) Encode(desc VariantDescriptor) ([]byte, error) {
	w := bytecursor.NewWriter()
	if !desc.IsBareVersionHeader {
		w.WriteInt32LE(d.ProductNo)
		w.WriteLengthPrefixed8([]byte(desc.Magic))
	}
	writeVersionField(w, desc.VersionFieldKind, d.Version)
	for _, spec := range desc.HeaderFields {
		writeHeaderField(w, spec, d.Header[spec.Name])
	}

	var blockData []byte
	entries := make([]catalogEntry, len(d.Blocks))
	for i, b := range d.Blocks {
		raw := b.Raw
		if b.Known {
			v := b.Value
			if nestedKeys, ok := desc.NestedKeys[b.Name]; ok {
				encodeNestedPayloads(d, b.Name, &v, nestedKeys)
			}
			if b.Name == "KKEx" {
				applyKKExOverrides(&v)
			}
			raw = msgpack.Encode(v)
		}
		entries[i] = catalogEntry{Name: b.Name, Version: b.Version, Pos: int32(len(blockData)), Size: int32(len(raw))}
		blockData = append(blockData, raw...)
	}

	catalogValue := patchCatalog(d.catalogValue, entries)
	w.WriteBytes(msgpack.Encode(catalogValue))
	w.WriteInt64LE(int64(len(blockData)))
	w.WriteBytes(blockData)
	w.WriteBytes(d.Trailer)

	out := pngcontainer.Join(pngcontainer.Frame{
		ImageBytes:     d.ImageBytes,
		FaceImageBytes: d.FaceImageBytes,
		Tail:           w.Bytes(),
	})
	return out, nil
}
