package msgpack

import "github.com/goopsie/kkcard/pkg/bytecursor"

// Encode serializes v, choosing the same tag Decode observed when the
// value still fits that tag's width, so that Encode(Decode(b)) reproduces
// b byte-for-byte for untouched data. Mutated leaves that no longer fit
// their memoized tag are widened to the smallest tag that does fit.
func Encode(v Value) []byte {
	w := bytecursor.NewWriter()
	encodeValue(w, v)
	return w.Bytes()
}

func encodeValue(w *bytecursor.Writer, v Value) {
	switch v.Kind {
	case KindNull:
		w.WriteByte(0xc0)
	case KindBool:
		if v.Bool {
			w.WriteByte(0xc3)
		} else {
			w.WriteByte(0xc2)
		}
	case KindInt:
		encodeInt(w, v)
	case KindUint:
		encodeUint(w, v)
	case KindFloat32:
		w.WriteByte(0xca)
		w.WriteFloat32BE(v.Float32)
	case KindFloat64:
		w.WriteByte(0xcb)
		w.WriteFloat64BE(v.Float64)
	case KindString:
		encodeString(w, v)
	case KindBytes:
		encodeBytes(w, v)
	case KindArray:
		encodeArray(w, v)
	case KindMap:
		encodeMap(w, v)
	case KindExt:
		encodeExt(w, v)
	}
}

func encodeInt(w *bytecursor.Writer, v Value) {
	n := v.Int
	tag := v.Tag
	if !intFits(tag, n) {
		tag = smallestIntTag(n)
	}
	switch tag {
	case TagPosFixInt:
		w.WriteByte(byte(n))
	case TagNegFixInt:
		w.WriteByte(byte(int8(n)))
	case TagInt8:
		w.WriteByte(0xd0)
		w.WriteInt8(int8(n))
	case TagInt16:
		w.WriteByte(0xd1)
		w.WriteUint16BE(uint16(int16(n)))
	case TagInt32:
		w.WriteByte(0xd2)
		w.WriteUint32BE(uint32(int32(n)))
	case TagInt64:
		w.WriteByte(0xd3)
		w.WriteUint64BE(uint64(n))
	default:
		w.WriteByte(0xd3)
		w.WriteUint64BE(uint64(n))
	}
}

func intFits(tag Tag, n int64) bool {
	switch tag {
	case TagPosFixInt:
		return n >= 0 && n <= 0x7f
	case TagNegFixInt:
		return n >= -32 && n < 0
	case TagInt8:
		return n >= -128 && n <= 127
	case TagInt16:
		return n >= -32768 && n <= 32767
	case TagInt32:
		return n >= -2147483648 && n <= 2147483647
	case TagInt64:
		return true
	default:
		return false
	}
}

func smallestIntTag(n int64) Tag {
	switch {
	case n >= 0 && n <= 0x7f:
		return TagPosFixInt
	case n >= -32 && n < 0:
		return TagNegFixInt
	case n >= -128 && n <= 127:
		return TagInt8
	case n >= -32768 && n <= 32767:
		return TagInt16
	case n >= -2147483648 && n <= 2147483647:
		return TagInt32
	default:
		return TagInt64
	}
}

func encodeUint(w *bytecursor.Writer, v Value) {
	n := v.Uint
	tag := v.Tag
	if !uintFits(tag, n) {
		tag = smallestUintTag(n)
	}
	switch tag {
	case TagUint8:
		w.WriteByte(0xcc)
		w.WriteUint8(uint8(n))
	case TagUint16:
		w.WriteByte(0xcd)
		w.WriteUint16BE(uint16(n))
	case TagUint32:
		w.WriteByte(0xce)
		w.WriteUint32BE(uint32(n))
	default:
		w.WriteByte(0xcf)
		w.WriteUint64BE(n)
	}
}

func uintFits(tag Tag, n uint64) bool {
	switch tag {
	case TagUint8:
		return n <= 0xff
	case TagUint16:
		return n <= 0xffff
	case TagUint32:
		return n <= 0xffffffff
	case TagUint64:
		return true
	default:
		return false
	}
}

func smallestUintTag(n uint64) Tag {
	switch {
	case n <= 0xff:
		return TagUint8
	case n <= 0xffff:
		return TagUint16
	case n <= 0xffffffff:
		return TagUint32
	default:
		return TagUint64
	}
}

func encodeString(w *bytecursor.Writer, v Value) {
	b := []byte(v.Str)
	tag := v.Tag
	if !strFits(tag, len(b)) {
		tag = smallestStrTag(len(b))
	}
	switch tag {
	case TagFixStr:
		w.WriteByte(0xa0 | byte(len(b)))
	case TagStr8:
		w.WriteByte(0xd9)
		w.WriteUint8(uint8(len(b)))
	case TagStr16:
		w.WriteByte(0xda)
		w.WriteUint16BE(uint16(len(b)))
	default:
		w.WriteByte(0xdb)
		w.WriteUint32BE(uint32(len(b)))
	}
	w.WriteBytes(b)
}

func strFits(tag Tag, n int) bool {
	switch tag {
	case TagFixStr:
		return n <= 0x1f
	case TagStr8:
		return n <= 0xff
	case TagStr16:
		return n <= 0xffff
	case TagStr32:
		return true
	default:
		return false
	}
}

func smallestStrTag(n int) Tag {
	switch {
	case n <= 0x1f:
		return TagFixStr
	case n <= 0xff:
		return TagStr8
	case n <= 0xffff:
		return TagStr16
	default:
		return TagStr32
	}
}

func encodeBytes(w *bytecursor.Writer, v Value) {
	b := v.Bin
	tag := v.Tag
	if !binFits(tag, len(b)) {
		tag = smallestBinTag(len(b))
	}
	switch tag {
	case TagBin8:
		w.WriteByte(0xc4)
		w.WriteUint8(uint8(len(b)))
	case TagBin16:
		w.WriteByte(0xc5)
		w.WriteUint16BE(uint16(len(b)))
	default:
		w.WriteByte(0xc6)
		w.WriteUint32BE(uint32(len(b)))
	}
	w.WriteBytes(b)
}

func binFits(tag Tag, n int) bool {
	switch tag {
	case TagBin8:
		return n <= 0xff
	case TagBin16:
		return n <= 0xffff
	case TagBin32:
		return true
	default:
		return false
	}
}

func smallestBinTag(n int) Tag {
	switch {
	case n <= 0xff:
		return TagBin8
	case n <= 0xffff:
		return TagBin16
	default:
		return TagBin32
	}
}

func encodeArray(w *bytecursor.Writer, v Value) {
	n := len(v.Arr)
	tag := v.Tag
	if !arrFits(tag, n) {
		tag = smallestArrTag(n)
	}
	switch tag {
	case TagFixArray:
		w.WriteByte(0x90 | byte(n))
	case TagArray16:
		w.WriteByte(0xdc)
		w.WriteUint16BE(uint16(n))
	default:
		w.WriteByte(0xdd)
		w.WriteUint32BE(uint32(n))
	}
	for _, e := range v.Arr {
		encodeValue(w, e)
	}
}

func arrFits(tag Tag, n int) bool {
	switch tag {
	case TagFixArray:
		return n <= 0x0f
	case TagArray16:
		return n <= 0xffff
	case TagArray32:
		return true
	default:
		return false
	}
}

func smallestArrTag(n int) Tag {
	switch {
	case n <= 0x0f:
		return TagFixArray
	case n <= 0xffff:
		return TagArray16
	default:
		return TagArray32
	}
}

func encodeMap(w *bytecursor.Writer, v Value) {
	n := len(v.Map)
	tag := v.Tag
	if !mapFits(tag, n) {
		tag = smallestMapTag(n)
	}
	switch tag {
	case TagFixMap:
		w.WriteByte(0x80 | byte(n))
	case TagMap16:
		w.WriteByte(0xde)
		w.WriteUint16BE(uint16(n))
	default:
		w.WriteByte(0xdf)
		w.WriteUint32BE(uint32(n))
	}
	for _, p := range v.Map {
		encodeValue(w, p.Key)
		encodeValue(w, p.Value)
	}
}

func mapFits(tag Tag, n int) bool {
	switch tag {
	case TagFixMap:
		return n <= 0x0f
	case TagMap16:
		return n <= 0xffff
	case TagMap32:
		return true
	default:
		return false
	}
}

func smallestMapTag(n int) Tag {
	switch {
	case n <= 0x0f:
		return TagFixMap
	case n <= 0xffff:
		return TagMap16
	default:
		return TagMap32
	}
}

func encodeExt(w *bytecursor.Writer, v Value) {
	n := len(v.ExtData)
	tag := v.Tag
	if !extFits(tag, n) {
		tag = smallestExtTag(n)
	}
	switch tag {
	case TagFixExt1, TagFixExt2, TagFixExt4, TagFixExt8, TagFixExt16:
		w.WriteByte(fixExtByte(tag))
	case TagExt8:
		w.WriteByte(0xc7)
		w.WriteUint8(uint8(n))
	case TagExt16:
		w.WriteByte(0xc8)
		w.WriteUint16BE(uint16(n))
	default:
		w.WriteByte(0xc9)
		w.WriteUint32BE(uint32(n))
	}
	w.WriteInt8(v.ExtCode)
	w.WriteBytes(v.ExtData)
}

func fixExtByte(tag Tag) byte {
	switch tag {
	case TagFixExt1:
		return 0xd4
	case TagFixExt2:
		return 0xd5
	case TagFixExt4:
		return 0xd6
	case TagFixExt8:
		return 0xd7
	default:
		return 0xd8
	}
}

func extFits(tag Tag, n int) bool {
	switch tag {
	case TagFixExt1:
		return n == 1
	case TagFixExt2:
		return n == 2
	case TagFixExt4:
		return n == 4
	case TagFixExt8:
		return n == 8
	case TagFixExt16:
		return n == 16
	case TagExt8:
		return n <= 0xff
	case TagExt16:
		return n <= 0xffff
	case TagExt32:
		return true
	default:
		return false
	}
}

func smallestExtTag(n int) Tag {
	switch n {
	case 1:
		return TagFixExt1
	case 2:
		return TagFixExt2
	case 4:
		return TagFixExt4
	case 8:
		return TagFixExt8
	case 16:
		return TagFixExt16
	}
	switch {
	case n <= 0xff:
		return TagExt8
	case n <= 0xffff:
		return TagExt16
	default:
		return TagExt32
	}
}

// WidenExtToExt32 rewrites an already-encoded ext8/ext16 payload's header
// to the ext32 form while keeping its type byte and data untouched. This
// mirrors KKEx's save-time requirement that nested-payload extensions be
// emitted in the widest ext form regardless of their original size
// (pkg/card/nested.go meets it by re-wrapping with TagExt32).
func WidenExtToExt32(encoded []byte) []byte {
	if len(encoded) == 0 {
		return encoded
	}
	switch encoded[0] {
	case 0xc7: // ext8: [0xc7][len:1][type:1][data...]
		if len(encoded) < 3 {
			return encoded
		}
		length := int(encoded[1])
		typ := encoded[2]
		data := encoded[3:]
		return rebuildExt32(length, typ, data)
	case 0xc8: // ext16: [0xc8][len:2][type:1][data...]
		if len(encoded) < 4 {
			return encoded
		}
		length := int(encoded[1])<<8 | int(encoded[2])
		typ := encoded[3]
		data := encoded[4:]
		return rebuildExt32(length, typ, data)
	}
	return encoded
}

func rebuildExt32(length int, typ byte, data []byte) []byte {
	w := bytecursor.NewWriterSize(6 + length)
	w.WriteByte(0xc9)
	w.WriteUint32BE(uint32(length))
	w.WriteByte(typ)
	w.WriteBytes(data)
	return w.Bytes()
}
