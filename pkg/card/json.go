package card

import (
	"encoding/base64"
	"strconv"

	"github.com/goopsie/kkcard/pkg/msgpack"
)

// ToJSON renders the Document as a JSON-marshalable tree (a plain
// map[string]interface{}, to be passed to encoding/json by the caller).
// Binary leaves (Bytes/Ext) and unknown blocks are base64-encoded when
// includeImage is true, since JSON has no native byte-string type, and
// omitted otherwise. Map key order is not preserved — JSON objects are
// inherently unordered — this is an inspection/export view, not a
// round-trip format.
func (d *Document) ToJSON(includeImage bool) map[string]interface{} {
	out := map[string]interface{}{
		"variant":   string(d.Variant),
		"productNo": d.ProductNo,
		"version":   d.Version,
	}

	header := make(map[string]interface{}, len(d.Header))
	for name, v := range d.Header {
		header[name] = headerValueToJSON(v, includeImage)
	}
	out["header"] = header

	blocks := make(map[string]interface{}, len(d.Blocks))
	for _, b := range d.Blocks {
		if b.Known {
			blocks[b.Name] = valueToJSON(b.Value, includeImage)
		} else if includeImage {
			blocks[b.Name] = map[string]interface{}{
				"raw": base64.StdEncoding.EncodeToString(b.Raw),
			}
		}
	}
	out["blocks"] = blocks

	if includeImage {
		out["image"] = base64.StdEncoding.EncodeToString(d.ImageBytes)
		if len(d.FaceImageBytes) > 0 {
			out["faceImage"] = base64.StdEncoding.EncodeToString(d.FaceImageBytes)
		}
	}
	return out
}

// ToJSON renders a SaveDocument the same way Document.ToJSON does. There
// is no top-level version field — KoikatuSave's version lives in its
// header map like any other field, and SummerVacationSave has none at
// all. There is no includeImage flag: save variants never carry a
// screenshot, and the opaque body and any byte-valued header field are
// always base64-encoded.
func (d *SaveDocument) ToJSON() map[string]interface{} {
	header := make(map[string]interface{}, len(d.Header))
	for name, v := range d.Header {
		header[name] = headerValueToJSON(v, true)
	}
	return map[string]interface{}{
		"variant": string(d.Variant),
		"header":  header,
		"body":    base64.StdEncoding.EncodeToString(d.Body),
	}
}

func headerValueToJSON(v HeaderValue, includeImage bool) interface{} {
	switch v.Kind {
	case FieldLenString32, FieldLenString8, FieldVarString:
		return v.Str
	case FieldLenBytes32:
		if !includeImage {
			return nil
		}
		return base64.StdEncoding.EncodeToString(v.Bytes)
	case FieldInt32Array:
		return v.IntArr
	case FieldInt8:
		return v.Int8
	case FieldUint64:
		return v.Uint64
	default: // FieldInt32
		return v.Int
	}
}

// valueToJSON converts a decoded Value to a JSON-marshalable form. Per
// §4.5, Bytes (and Ext, which carries bytes) leaves are base64-encoded
// only when includeImage is true; otherwise they are omitted (rendered as
// a dropped map key, or null inside an array where a key cannot be
// dropped).
func valueToJSON(v msgpack.Value, includeImage bool) interface{} {
	switch v.Kind {
	case msgpack.KindNull:
		return nil
	case msgpack.KindBool:
		return v.Bool
	case msgpack.KindInt:
		return v.Int
	case msgpack.KindUint:
		return v.Uint
	case msgpack.KindFloat32:
		return float64(v.Float32)
	case msgpack.KindFloat64:
		return v.Float64
	case msgpack.KindString:
		return v.Str
	case msgpack.KindBytes:
		if !includeImage {
			return nil
		}
		return base64.StdEncoding.EncodeToString(v.Bin)
	case msgpack.KindArray:
		arr := make([]interface{}, len(v.Arr))
		for i, e := range v.Arr {
			arr[i] = valueToJSON(e, includeImage)
		}
		return arr
	case msgpack.KindMap:
		m := make(map[string]interface{}, len(v.Map))
		for _, p := range v.Map {
			if p.Value.Kind == msgpack.KindBytes && !includeImage {
				continue
			}
			if p.Value.Kind == msgpack.KindExt && !includeImage {
				continue
			}
			m[jsonKey(p.Key)] = valueToJSON(p.Value, includeImage)
		}
		return m
	case msgpack.KindExt:
		if !includeImage {
			return nil
		}
		return map[string]interface{}{
			"extCode": v.ExtCode,
			"extData": base64.StdEncoding.EncodeToString(v.ExtData),
		}
	}
	return nil
}

func jsonKey(k msgpack.Value) string {
	switch k.Kind {
	case msgpack.KindString:
		return k.Str
	case msgpack.KindInt:
		return strconv.FormatInt(k.Int, 10)
	case msgpack.KindUint:
		return strconv.FormatUint(k.Uint, 10)
	default:
		return "?"
	}
}
