package card

import (
	"fmt"

	"github.com/goopsie/kkcard/pkg/bytecursor"
)

// HeaderValue is the decoded form of a single header field. Kind selects
// which of the remaining fields is meaningful — callers must switch on
// Kind rather than sniff for zero values, since a populated string field
// can legitimately be empty and a populated int8 field can legitimately
// be zero.
type HeaderValue struct {
	Kind FieldKind

	Int    int32
	Int8   int8
	Uint64 uint64
	Bytes  []byte
	Str    string
	IntArr []int32
}

// readHeaderField consumes one field from r according to spec and returns
// its decoded value.
func readHeaderField(r *bytecursor.Reader, spec FieldSpec) (HeaderValue, error) {
	switch spec.Kind {
	case FieldInt32:
		v, err := r.ReadInt32LE()
		if err != nil {
			return HeaderValue{}, fmt.Errorf("header field %q: %w", spec.Name, err)
		}
		return HeaderValue{Kind: FieldInt32, Int: v}, nil
	case FieldInt8:
		v, err := r.ReadInt8()
		if err != nil {
			return HeaderValue{}, fmt.Errorf("header field %q: %w", spec.Name, err)
		}
		return HeaderValue{Kind: FieldInt8, Int8: v}, nil
	case FieldLenBytes32:
		b, err := r.ReadLengthPrefixed32()
		if err != nil {
			return HeaderValue{}, fmt.Errorf("header field %q: %w", spec.Name, err)
		}
		return HeaderValue{Kind: FieldLenBytes32, Bytes: append([]byte(nil), b...)}, nil
	case FieldLenString32:
		b, err := r.ReadLengthPrefixed32()
		if err != nil {
			return HeaderValue{}, fmt.Errorf("header field %q: %w", spec.Name, err)
		}
		return HeaderValue{Kind: FieldLenString32, Str: string(b)}, nil
	case FieldLenString8:
		b, err := r.ReadLengthPrefixed8()
		if err != nil {
			return HeaderValue{}, fmt.Errorf("header field %q: %w", spec.Name, err)
		}
		return HeaderValue{Kind: FieldLenString8, Str: string(b)}, nil
	case FieldVarString:
		b, err := r.ReadVarString()
		if err != nil {
			return HeaderValue{}, fmt.Errorf("header field %q: %w", spec.Name, err)
		}
		return HeaderValue{Kind: FieldVarString, Str: string(b)}, nil
	case FieldInt32Array:
		count, err := r.ReadInt32LE()
		if err != nil {
			return HeaderValue{}, fmt.Errorf("header field %q: %w", spec.Name, err)
		}
		arr := make([]int32, count)
		for i := range arr {
			v, err := r.ReadInt32LE()
			if err != nil {
				return HeaderValue{}, fmt.Errorf("header field %q[%d]: %w", spec.Name, i, err)
			}
			arr[i] = v
		}
		return HeaderValue{Kind: FieldInt32Array, IntArr: arr}, nil
	case FieldUint64:
		v, err := r.ReadUint64LE()
		if err != nil {
			return HeaderValue{}, fmt.Errorf("header field %q: %w", spec.Name, err)
		}
		return HeaderValue{Kind: FieldUint64, Uint64: v}, nil
	}
	return HeaderValue{}, fmt.Errorf("header field %q: unknown field kind", spec.Name)
}

func writeHeaderField(w *bytecursor.Writer, spec FieldSpec, v HeaderValue) {
	switch spec.Kind {
	case FieldInt32:
		w.WriteInt32LE(v.Int)
	case FieldInt8:
		w.WriteInt8(v.Int8)
	case FieldLenBytes32:
		w.WriteLengthPrefixed32(v.Bytes)
	case FieldLenString32:
		w.WriteLengthPrefixed32([]byte(v.Str))
	case FieldLenString8:
		w.WriteLengthPrefixed8([]byte(v.Str))
	case FieldVarString:
		w.WriteVarString([]byte(v.Str))
	case FieldInt32Array:
		w.WriteInt32LE(int32(len(v.IntArr)))
		for _, n := range v.IntArr {
			w.WriteInt32LE(n)
		}
	case FieldUint64:
		w.WriteUint64LE(v.Uint64)
	}
}

// readVersionField reads the version string immediately following the
// magic, whose framing varies by variant (see VariantDescriptor.VersionFieldKind).
func readVersionField(r *bytecursor.Reader, kind FieldKind) (string, error) {
	switch kind {
	case FieldLenString32:
		b, err := r.ReadLengthPrefixed32()
		if err != nil {
			return "", fmt.Errorf("version: %w", err)
		}
		return string(b), nil
	case FieldLenString8:
		b, err := r.ReadLengthPrefixed8()
		if err != nil {
			return "", fmt.Errorf("version: %w", err)
		}
		return string(b), nil
	case FieldVarString:
		b, err := r.ReadVarString()
		if err != nil {
			return "", fmt.Errorf("version: %w", err)
		}
		return string(b), nil
	}
	return "", fmt.Errorf("version: unsupported field kind")
}

func writeVersionField(w *bytecursor.Writer, kind FieldKind, version string) {
	switch kind {
	case FieldLenString32:
		w.WriteLengthPrefixed32([]byte(version))
	case FieldLenString8:
		w.WriteLengthPrefixed8([]byte(version))
	case FieldVarString:
		w.WriteVarString([]byte(version))
	}
}
