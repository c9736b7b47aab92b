package card

import (
	"fmt"

	"github.com/goopsie/kkcard/pkg/bytecursor"
	"github.com/goopsie/kkcard/pkg/pngcontainer"
)

// HeaderInfo is the result of PeekHeader: just enough to identify a file's
// variant and version without decoding its block catalog.
type HeaderInfo struct {
	Variant   Variant
	ProductNo int32
	Version   string
}

// PeekHeader reads only the fixed header fields of a card/scene file —
// product number, magic, and version — without touching the block
// catalog, for fast variant/version probing. Bare-version-header variants
// (KoikatuScene, HoneycomeScene) have no leading magic to peek: their
// identifying marker is only readable after the whole file has been
// decoded (see decodeDocument), so PeekHeader skips them the same way it
// skips save variants.
func PeekHeader(data []byte) (HeaderInfo, error) {
	for _, desc := range Registry {
		if desc.IsSaveVariant || desc.IsBareVersionHeader {
			continue
		}
		frame, err := pngcontainer.Split(data)
		if err != nil {
			return HeaderInfo{}, fmt.Errorf("card: %w", err)
		}
		r := bytecursor.NewReader(frame.Tail)
		productNo, err := r.ReadInt32LE()
		if err != nil {
			continue
		}
		magic, err := r.ReadLengthPrefixed8()
		if err != nil {
			continue
		}
		if string(magic) != desc.Magic {
			continue
		}
		version, err := readVersionField(r, desc.VersionFieldKind)
		if err != nil {
			return HeaderInfo{}, fmt.Errorf("card: %w", err)
		}
		return HeaderInfo{Variant: desc.Variant, ProductNo: productNo, Version: version}, nil
	}
	return HeaderInfo{}, &ErrUnknownVariant{}
}

// Load detects a card/scene document's variant by magic and fully decodes
// it, returning the VariantDescriptor alongside the Document so callers
// can pass both back into Encode.
func Load(data []byte) (*Document, VariantDescriptor, error) {
	var lastErr error
	for _, desc := range Registry {
		if desc.IsSaveVariant {
			continue
		}
		doc, err := decodeDocument(desc, data)
		if err != nil {
			var uv *ErrUnknownVariant
			// A bare-version-header descriptor has no leading magic to
			// reject on, so any failure to decode under it means the file
			// is not of that variant.
			if asUnknownVariant(err, &uv) || desc.IsBareVersionHeader {
				lastErr = err
				continue
			}
			return nil, VariantDescriptor{}, err
		}
		return doc, desc, nil
	}
	if lastErr == nil {
		lastErr = &ErrUnknownVariant{}
	}
	return nil, VariantDescriptor{}, lastErr
}

// LoadSave detects a save-file variant by probing each IsSaveVariant
// descriptor's header shape in turn — save files carry no magic — and
// fully decodes the first one whose fields come out plausible.
func LoadSave(data []byte) (*SaveDocument, VariantDescriptor, error) {
	var lastErr error
	for _, desc := range Registry {
		if !desc.IsSaveVariant {
			continue
		}
		doc, err := decodeSaveDocument(desc, data)
		if err != nil {
			var uv *ErrUnknownVariant
			if asUnknownVariant(err, &uv) {
				lastErr = err
				continue
			}
			return nil, VariantDescriptor{}, err
		}
		return doc, desc, nil
	}
	if lastErr == nil {
		lastErr = &ErrUnknownVariant{}
	}
	return nil, VariantDescriptor{}, lastErr
}

func asUnknownVariant(err error, target **ErrUnknownVariant) bool {
	if uv, ok := err.(*ErrUnknownVariant); ok {
		*target = uv
		return true
	}
	return false
}
