package msgpack

import (
	"fmt"
	"unicode/utf8"

	"github.com/goopsie/kkcard/pkg/bytecursor"
)

// ErrTruncated is returned when a decode runs off the end of the buffer.
var ErrTruncated = fmt.Errorf("msgpack: truncated input")

// ErrUnsupportedTag is returned when a leading byte does not match any
// known object-codec tag.
type ErrUnsupportedTag struct {
	Tag byte
}

func (e *ErrUnsupportedTag) Error() string {
	return fmt.Sprintf("msgpack: unsupported tag 0x%02x", e.Tag)
}

// Decode parses a single encoded value from the start of data and returns
// it along with the number of bytes consumed.
func Decode(data []byte) (Value, int, error) {
	r := bytecursor.NewReader(data)
	v, err := decodeValue(r)
	if err != nil {
		return Value{}, 0, err
	}
	return v, r.Pos(), nil
}

func wrapShort(err error) error {
	if err == bytecursor.ErrShortRead {
		return ErrTruncated
	}
	return err
}

func decodeValue(r *bytecursor.Reader) (Value, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Value{}, wrapShort(err)
	}

	switch {
	case tag <= 0x7f: // positive fixint
		return Value{Kind: KindInt, Tag: TagPosFixInt, Int: int64(tag)}, nil
	case tag >= 0xe0: // negative fixint
		return Value{Kind: KindInt, Tag: TagNegFixInt, Int: int64(int8(tag))}, nil
	case tag>>4 == 0x8: // fixmap 1000xxxx
		return decodeMap(r, int(tag&0x0f), TagFixMap)
	case tag>>4 == 0x9: // fixarray 1001xxxx
		return decodeArray(r, int(tag&0x0f), TagFixArray)
	case tag>>5 == 0x5: // fixstr 101xxxxx
		return decodeString(r, int(tag&0x1f), TagFixStr)
	}

	switch tag {
	case 0xc0:
		return Value{Kind: KindNull}, nil
	case 0xc2:
		return Value{Kind: KindBool, Bool: false}, nil
	case 0xc3:
		return Value{Kind: KindBool, Bool: true}, nil
	case 0xc4:
		return decodeBin(r, 1, TagBin8)
	case 0xc5:
		return decodeBin(r, 2, TagBin16)
	case 0xc6:
		return decodeBin(r, 4, TagBin32)
	case 0xc7:
		return decodeExt(r, 1, TagExt8)
	case 0xc8:
		return decodeExt(r, 2, TagExt16)
	case 0xc9:
		return decodeExt(r, 4, TagExt32)
	case 0xca:
		f, err := r.ReadFloat32BE()
		if err != nil {
			return Value{}, wrapShort(err)
		}
		return Value{Kind: KindFloat32, Tag: TagFloat32, Float32: f}, nil
	case 0xcb:
		f, err := r.ReadFloat64BE()
		if err != nil {
			return Value{}, wrapShort(err)
		}
		return Value{Kind: KindFloat64, Tag: TagFloat64, Float64: f}, nil
	case 0xcc:
		v, err := r.ReadUint8()
		if err != nil {
			return Value{}, wrapShort(err)
		}
		return Value{Kind: KindUint, Tag: TagUint8, Uint: uint64(v)}, nil
	case 0xcd:
		v, err := r.ReadUint16BE()
		if err != nil {
			return Value{}, wrapShort(err)
		}
		return Value{Kind: KindUint, Tag: TagUint16, Uint: uint64(v)}, nil
	case 0xce:
		v, err := r.ReadUint32BE()
		if err != nil {
			return Value{}, wrapShort(err)
		}
		return Value{Kind: KindUint, Tag: TagUint32, Uint: uint64(v)}, nil
	case 0xcf:
		v, err := r.ReadUint64BE()
		if err != nil {
			return Value{}, wrapShort(err)
		}
		return Value{Kind: KindUint, Tag: TagUint64, Uint: v}, nil
	case 0xd0:
		v, err := r.ReadInt8()
		if err != nil {
			return Value{}, wrapShort(err)
		}
		return Value{Kind: KindInt, Tag: TagInt8, Int: int64(v)}, nil
	case 0xd1:
		v, err := r.ReadUint16BE()
		if err != nil {
			return Value{}, wrapShort(err)
		}
		return Value{Kind: KindInt, Tag: TagInt16, Int: int64(int16(v))}, nil
	case 0xd2:
		v, err := r.ReadUint32BE()
		if err != nil {
			return Value{}, wrapShort(err)
		}
		return Value{Kind: KindInt, Tag: TagInt32, Int: int64(int32(v))}, nil
	case 0xd3:
		v, err := r.ReadUint64BE()
		if err != nil {
			return Value{}, wrapShort(err)
		}
		return Value{Kind: KindInt, Tag: TagInt64, Int: int64(v)}, nil
	case 0xd4:
		return decodeExt(r, 0, TagFixExt1)
	case 0xd5:
		return decodeExt(r, 0, TagFixExt2)
	case 0xd6:
		return decodeExt(r, 0, TagFixExt4)
	case 0xd7:
		return decodeExt(r, 0, TagFixExt8)
	case 0xd8:
		return decodeExt(r, 0, TagFixExt16)
	case 0xd9:
		return decodeString(r, -1, TagStr8)
	case 0xda:
		return decodeString(r, -2, TagStr16)
	case 0xdb:
		return decodeString(r, -4, TagStr32)
	case 0xdc:
		return decodeArray(r, -2, TagArray16)
	case 0xdd:
		return decodeArray(r, -4, TagArray32)
	case 0xde:
		return decodeMap(r, -2, TagMap16)
	case 0xdf:
		return decodeMap(r, -4, TagMap32)
	}

	return Value{}, &ErrUnsupportedTag{Tag: tag}
}

// readCount reads a length that is either a literal fixed count (n >= 0)
// or, for negative n, an (-n)-byte big-endian count prefix.
func readCount(r *bytecursor.Reader, n int) (int, error) {
	if n >= 0 {
		return n, nil
	}
	switch -n {
	case 1:
		v, err := r.ReadUint8()
		return int(v), wrapShort(err)
	case 2:
		v, err := r.ReadUint16BE()
		return int(v), wrapShort(err)
	case 4:
		v, err := r.ReadUint32BE()
		return int(v), wrapShort(err)
	}
	panic("msgpack: invalid count width")
}

func decodeBin(r *bytecursor.Reader, widthBytes int, tag Tag) (Value, error) {
	n, err := readCount(r, -widthBytes)
	if err != nil {
		return Value{}, err
	}
	b, err := r.ReadBytes(n)
	if err != nil {
		return Value{}, wrapShort(err)
	}
	return Value{Kind: KindBytes, Tag: tag, Bin: append([]byte(nil), b...)}, nil
}

// decodeString reads a string payload. n >= 0 means a literal fixstr
// length; negative n means an (-n)-byte count prefix follows. A string
// that is not valid UTF-8 downgrades to Value::Bytes per §4.3.
func decodeString(r *bytecursor.Reader, n int, tag Tag) (Value, error) {
	length, err := readCount(r, n)
	if err != nil {
		return Value{}, err
	}
	b, err := r.ReadBytes(length)
	if err != nil {
		return Value{}, wrapShort(err)
	}
	if !utf8.Valid(b) {
		binTag := stringTagToBinTag(tag)
		return Value{Kind: KindBytes, Tag: binTag, Bin: append([]byte(nil), b...)}, nil
	}
	return Value{Kind: KindString, Tag: tag, Str: string(b)}, nil
}

func stringTagToBinTag(t Tag) Tag {
	switch t {
	case TagFixStr, TagStr8:
		return TagBin8
	case TagStr16:
		return TagBin16
	case TagStr32:
		return TagBin32
	}
	return TagBin32
}

func decodeArray(r *bytecursor.Reader, n int, tag Tag) (Value, error) {
	count, err := readCount(r, n)
	if err != nil {
		return Value{}, err
	}
	arr := make([]Value, count)
	for i := 0; i < count; i++ {
		v, err := decodeValue(r)
		if err != nil {
			return Value{}, err
		}
		arr[i] = v
	}
	return Value{Kind: KindArray, Tag: tag, Arr: arr}, nil
}

func decodeMap(r *bytecursor.Reader, n int, tag Tag) (Value, error) {
	count, err := readCount(r, n)
	if err != nil {
		return Value{}, err
	}
	pairs := make([]Pair, count)
	for i := 0; i < count; i++ {
		k, err := decodeValue(r)
		if err != nil {
			return Value{}, err
		}
		v, err := decodeValue(r)
		if err != nil {
			return Value{}, err
		}
		pairs[i] = Pair{Key: k, Value: v}
	}
	return Value{Kind: KindMap, Tag: tag, Map: pairs}, nil
}

// decodeExt reads an extension payload. For fixext tags, lengthWidth is 0
// and the length is implied by the tag; otherwise lengthWidth bytes of
// big-endian length precede the type byte.
func decodeExt(r *bytecursor.Reader, lengthWidth int, tag Tag) (Value, error) {
	var length int
	switch tag {
	case TagFixExt1:
		length = 1
	case TagFixExt2:
		length = 2
	case TagFixExt4:
		length = 4
	case TagFixExt8:
		length = 8
	case TagFixExt16:
		length = 16
	default:
		n, err := readCount(r, -lengthWidth)
		if err != nil {
			return Value{}, err
		}
		length = n
	}

	code, err := r.ReadInt8()
	if err != nil {
		return Value{}, wrapShort(err)
	}
	data, err := r.ReadBytes(length)
	if err != nil {
		return Value{}, wrapShort(err)
	}
	return Value{Kind: KindExt, Tag: tag, ExtCode: int8(code), ExtData: append([]byte(nil), data...)}, nil
}
