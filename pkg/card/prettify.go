package card

import (
	"fmt"
	"strings"

	"github.com/goopsie/kkcard/pkg/msgpack"
)

// Prettify renders a human-readable outline of the Document: its header
// fields, then each block's name/version and a short indented summary of
// its decoded contents (or its byte length, if unknown).
func Prettify(d *Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (product %d, version %q)\n", d.Variant, d.ProductNo, d.Version)
	for name, v := range d.Header {
		fmt.Fprintf(&b, "  header.%s = %s\n", name, prettifyHeaderValue(v))
	}
	for _, block := range d.Blocks {
		if block.Known {
			fmt.Fprintf(&b, "block %s v%s\n", block.Name, block.Version)
			prettifyValue(&b, block.Value, 1)
		} else {
			fmt.Fprintf(&b, "block %s v%s (opaque, %d bytes)\n", block.Name, block.Version, len(block.Raw))
		}
	}
	if len(d.Trailer) > 0 {
		fmt.Fprintf(&b, "trailer (%d bytes)\n", len(d.Trailer))
	}
	return b.String()
}

func prettifyHeaderValue(v HeaderValue) string {
	switch v.Kind {
	case FieldLenString32, FieldLenString8, FieldVarString:
		return v.Str
	case FieldLenBytes32:
		return fmt.Sprintf("<%d bytes>", len(v.Bytes))
	case FieldInt32Array:
		return fmt.Sprintf("%v", v.IntArr)
	case FieldInt8:
		return fmt.Sprintf("%d", v.Int8)
	case FieldUint64:
		return fmt.Sprintf("%d", v.Uint64)
	default: // FieldInt32
		return fmt.Sprintf("%d", v.Int)
	}
}

func prettifyValue(b *strings.Builder, v msgpack.Value, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v.Kind {
	case msgpack.KindMap:
		for _, p := range v.Map {
			fmt.Fprintf(b, "%s%s:", indent, jsonKey(p.Key))
			if p.Value.Kind == msgpack.KindMap || p.Value.Kind == msgpack.KindArray {
				b.WriteString("\n")
				prettifyValue(b, p.Value, depth+1)
			} else {
				fmt.Fprintf(b, " %s\n", scalarString(p.Value))
			}
		}
	case msgpack.KindArray:
		fmt.Fprintf(b, "%s[%d items]\n", indent, len(v.Arr))
	default:
		fmt.Fprintf(b, "%s%s\n", indent, scalarString(v))
	}
}

func scalarString(v msgpack.Value) string {
	switch v.Kind {
	case msgpack.KindNull:
		return "null"
	case msgpack.KindBool:
		return fmt.Sprintf("%v", v.Bool)
	case msgpack.KindInt:
		return fmt.Sprintf("%d", v.Int)
	case msgpack.KindUint:
		return fmt.Sprintf("%d", v.Uint)
	case msgpack.KindFloat32:
		return fmt.Sprintf("%g", v.Float32)
	case msgpack.KindFloat64:
		return fmt.Sprintf("%g", v.Float64)
	case msgpack.KindString:
		return v.Str
	case msgpack.KindBytes:
		return fmt.Sprintf("<%d bytes>", len(v.Bin))
	case msgpack.KindExt:
		return fmt.Sprintf("<ext %d, %d bytes>", v.ExtCode, len(v.ExtData))
	default:
		return "?"
	}
}
