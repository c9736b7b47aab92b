// Package msgpack implements a decoder/encoder for the self-describing
// binary object format used throughout the card container payload. Unlike
// a general-purpose MessagePack library, this one preserves the exact tag
// observed on decode (integer width, float precision, string/bin/array/map
// length-class) so that encode(decode(b)) reproduces b byte-for-byte.
package msgpack

// Kind is the sum-type discriminant for a decoded Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat32
	KindFloat64
	KindString
	KindBytes
	KindArray
	KindMap
	KindExt
)

// Tag records the exact on-disk encoding family for a Value, so that
// Encode can choose the same tag the decoder observed rather than always
// emitting the shortest representation. TagAuto means "no memo" — used for
// values built programmatically, which are encoded in their shortest form.
type Tag uint8

const (
	TagAuto Tag = iota
	TagPosFixInt
	TagNegFixInt
	TagInt8
	TagInt16
	TagInt32
	TagInt64
	TagUint8
	TagUint16
	TagUint32
	TagUint64
	TagFloat32
	TagFloat64
	TagFixStr
	TagStr8
	TagStr16
	TagStr32
	TagBin8
	TagBin16
	TagBin32
	TagFixArray
	TagArray16
	TagArray32
	TagFixMap
	TagMap16
	TagMap32
	TagFixExt1
	TagFixExt2
	TagFixExt4
	TagFixExt8
	TagFixExt16
	TagExt8
	TagExt16
	TagExt32
)

// Pair is a single map entry, kept in an ordered list rather than a hashed
// map so that on-disk key order survives a decode/encode round trip.
type Pair struct {
	Key   Value
	Value Value
}

// Value is the tagged sum over every primitive the object codec can carry.
type Value struct {
	Kind Kind
	Tag  Tag

	Bool    bool
	Int     int64
	Uint    uint64
	Float32 float32
	Float64 float64
	Str     string
	Bin     []byte
	Arr     []Value
	Map     []Pair
	ExtCode int8
	ExtData []byte
}

// Null returns the Value::Null singleton.
func Null() Value { return Value{Kind: KindNull} }

// FromBool builds a Value::Bool.
func FromBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// FromInt builds a Value::Int with no tag memo (shortest-width encode).
func FromInt(v int64) Value { return Value{Kind: KindInt, Int: v} }

// FromUint builds a Value::UInt with no tag memo (shortest-width encode).
func FromUint(v uint64) Value { return Value{Kind: KindUint, Uint: v} }

// FromString builds a Value::String with no tag memo.
func FromString(s string) Value { return Value{Kind: KindString, Str: s} }

// FromBytes builds a Value::Bytes with no tag memo.
func FromBytes(b []byte) Value { return Value{Kind: KindBytes, Bin: b} }

// FromArray builds a Value::Array with no tag memo.
func FromArray(v []Value) Value { return Value{Kind: KindArray, Arr: v} }

// FromMap builds a Value::Map with no tag memo, preserving pair order.
func FromMap(pairs []Pair) Value { return Value{Kind: KindMap, Map: pairs} }

// MapGet returns the value associated with a string key and whether it was
// found. It performs a linear scan, consistent with the format's general
// lack of any hashed index over map keys.
func (v Value) MapGet(key string) (Value, bool) {
	for _, p := range v.Map {
		if p.Key.Kind == KindString && p.Key.Str == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// MapSet replaces the value for an existing string key, or appends a new
// pair at the end if the key is not present.
func (v *Value) MapSet(key string, val Value) {
	for i := range v.Map {
		if v.Map[i].Key.Kind == KindString && v.Map[i].Key.Str == key {
			v.Map[i].Value = val
			return
		}
	}
	v.Map = append(v.Map, Pair{Key: FromString(key), Value: val})
}

// Equal reports whether two Values are both value- and tag-equal, as
// required by the msgpack_decode(msgpack_encode(v)) == v round-trip
// property. A TagAuto tag (a value built programmatically, with no memo)
// matches any tag, since Decode always records the concrete tag it read.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind || (a.Tag != b.Tag && a.Tag != TagAuto && b.Tag != TagAuto) {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindUint:
		return a.Uint == b.Uint
	case KindFloat32:
		return a.Float32 == b.Float32 || (isNaN32(a.Float32) && isNaN32(b.Float32))
	case KindFloat64:
		return a.Float64 == b.Float64 || (isNaN64(a.Float64) && isNaN64(b.Float64))
	case KindString:
		return a.Str == b.Str
	case KindBytes:
		return bytesEqual(a.Bin, b.Bin)
	case KindArray:
		if len(a.Arr) != len(b.Arr) {
			return false
		}
		for i := range a.Arr {
			if !Equal(a.Arr[i], b.Arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.Map) != len(b.Map) {
			return false
		}
		for i := range a.Map {
			if !Equal(a.Map[i].Key, b.Map[i].Key) || !Equal(a.Map[i].Value, b.Map[i].Value) {
				return false
			}
		}
		return true
	case KindExt:
		return a.ExtCode == b.ExtCode && bytesEqual(a.ExtData, b.ExtData)
	}
	return false
}

func isNaN32(f float32) bool { return f != f }
func isNaN64(f float64) bool { return f != f }

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
