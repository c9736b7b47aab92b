package card

import (
	"fmt"
	"unicode/utf8"

	"github.com/goopsie/kkcard/pkg/bytecursor"
	"github.com/goopsie/kkcard/pkg/msgpack"
)

// SaveDocument is the decoded form of a save-file variant: these carry no
// PNG prefix, no magic string, and no block catalog at all — just a flat
// sequence of named header fields followed by a single opaque body span.
// KoikatuSaveData.py's _load_header and SummerVacationSaveData.py's load
// both start reading fields immediately; neither checks a leading magic,
// so variant selection here is done by probing each candidate header shape
// (see decodeSaveDocument) rather than by a tag byte. Per the scope
// decision recorded for save variants, the body is preserved verbatim
// rather than decoded field-by-field — this module exposes the header for
// inspection without interpreting game-state meaning.
type SaveDocument struct {
	Variant Variant
	Header  map[string]HeaderValue
	Body    []byte
}

// decodeSaveDocument reads desc's HeaderFields off data in order and then
// checks the result against probeSaveHeader before committing to this
// variant. There is no magic to reject on, so a wrong guess is only
// caught after the fact: KoikatuSave's and SummerVacationSave's header
// shapes differ enough (varint strings and small integers vs. a
// length-prefixed msgpack blob and a 64-bit counter) that decoding one as
// the other either runs out of buffer or produces field values the probe
// rejects.
func decodeSaveDocument(desc VariantDescriptor, data []byte) (*SaveDocument, error) {
	r := bytecursor.NewReader(data)

	header := make(map[string]HeaderValue, len(desc.HeaderFields))
	for _, spec := range desc.HeaderFields {
		v, err := readHeaderField(r, spec)
		if err != nil {
			return nil, &ErrUnknownVariant{}
		}
		header[spec.Name] = v
	}
	if !probeSaveHeader(desc.Variant, header) {
		return nil, &ErrUnknownVariant{}
	}

	body, err := r.ReadBytes(r.Len())
	if err != nil {
		return nil, fmt.Errorf("card: save body: %w", err)
	}

	return &SaveDocument{
		Variant: desc.Variant,
		Header:  header,
		Body:    append([]byte(nil), body...),
	}, nil
}

// probeSaveHeader reports whether a decoded header plausibly belongs to
// variant, rather than being garbage produced by reading the wrong save
// format's field layout off the wrong bytes.
func probeSaveHeader(variant Variant, header map[string]HeaderValue) bool {
	switch variant {
	case KoikatuSave:
		return probeKoikatuSaveHeader(header)
	case SummerVacationSave:
		return probeSummerVacationSaveHeader(header)
	}
	return false
}

// probeKoikatuSaveHeader checks the fields read per _load_header: version
// and school_name must be plausible short UTF-8 strings with no control
// characters, opening is a boolean flag (0 or 1), and week lies in
// 0..10000.
func probeKoikatuSaveHeader(header map[string]HeaderValue) bool {
	if !isPlausibleShortText(header["version"].Str) {
		return false
	}
	if !isPlausibleShortText(header["school_name"].Str) {
		return false
	}
	opening := header["opening"].Int8
	if opening != 0 && opening != 1 {
		return false
	}
	week := header["week"].Int
	if week < 0 || week > 10000 {
		return false
	}
	return true
}

// probeSummerVacationSaveHeader checks the fields read per
// SummerVacationSaveData.load: meta is a length-prefixed blob that must
// itself be a complete, well-formed msgpack object (load() immediately
// msg_unpacks it), and data_length is a byte count bounded well below the
// point it would overflow any real save file.
func probeSummerVacationSaveHeader(header map[string]HeaderValue) bool {
	meta := header["meta"].Bytes
	if len(meta) == 0 || len(meta) > 1<<20 {
		return false
	}
	if _, n, err := msgpack.Decode(meta); err != nil || n != len(meta) {
		return false
	}
	return header["data_length"].Uint64 < 1<<40
}

func isPlausibleShortText(s string) bool {
	if len(s) > 256 || !utf8.ValidString(s) {
		return false
	}
	for _, c := range s {
		if c < 0x20 {
			return false
		}
	}
	return true
}

// Encode serializes the SaveDocument back to its on-disk form.
func (d *SaveDocument) Encode(desc VariantDescriptor) []byte {
	w := bytecursor.NewWriter()
	for _, spec := range desc.HeaderFields {
		writeHeaderField(w, spec, d.Header[spec.Name])
	}
	w.WriteBytes(d.Body)
	return w.Bytes()
}
