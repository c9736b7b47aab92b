package card

import (
	"encoding/binary"
	"errors"
	"strconv"

	"github.com/goopsie/kkcard/pkg/msgpack"
	"github.com/pierrec/lz4/v4"
)

var errShortLZ4Header = errors.New("card: lz4 payload shorter than its header")

// wrapKind records how a nested payload leaf was framed on disk, so encode
// can put it back exactly the way it found it.
type wrapKind uint8

const (
	wrapNone wrapKind = iota
	wrapBin
	wrapLZ4Ext
)

// lz4Memo remembers the original compressed bytes and decoded value for an
// LZ4-wrapped nested payload, so an unmutated round trip re-emits the exact
// original compressed bytes rather than whatever a fresh compress pass
// happens to produce. A general-purpose LZ4 block compressor has no
// obligation to reproduce another encoder's compressed bytes for identical
// input, so recompressing unconditionally would silently break
// round-trip fidelity on documents nobody touched.
type lz4Memo struct {
	originalExtData []byte
	decoded         msgpack.Value
}

func wrapKeyID(blockName string, path []string) string {
	return blockName + "\x00" + nestedKeyID(path)
}

// navigate walks path through nested maps of v, matching each segment
// against either a string key or, when the segment parses as an integer,
// an int/uint key — KKEx's per-character sub-maps are keyed by integer 1.
// It returns a pointer into the live tree so callers can mutate in place.
func navigate(v *msgpack.Value, path []string) (*msgpack.Value, bool) {
	cur := v
	for _, seg := range path {
		if cur.Kind != msgpack.KindMap {
			return nil, false
		}
		idx := -1
		for i := range cur.Map {
			if matchesKey(cur.Map[i].Key, seg) {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, false
		}
		cur = &cur.Map[idx].Value
	}
	return cur, true
}

func matchesKey(key msgpack.Value, seg string) bool {
	if n, err := strconv.ParseInt(seg, 10, 64); err == nil {
		switch key.Kind {
		case msgpack.KindInt:
			return key.Int == n
		case msgpack.KindUint:
			return int64(key.Uint) == n
		}
		return false
	}
	return key.Kind == msgpack.KindString && key.Str == seg
}

// decodeNestedPayloads finds every nestedKeys path in val that resolves to
// a Bytes or LZ4-wrapped Ext leaf, decodes it as an independent object
// graph, and replaces the leaf in place with the decoded tree. Failures
// are non-fatal: the leaf is left untouched and a NestedDecodeWarning is
// recorded on doc.
func decodeNestedPayloads(doc *Document, blockName string, val *msgpack.Value, nestedKeys [][]string) {
	for _, path := range nestedKeys {
		leaf, ok := navigate(val, path)
		if !ok {
			continue
		}

		if isLZ4NestedKey(path) && leaf.Kind == msgpack.KindExt && leaf.ExtCode == 99 {
			plain, err := lz4BlockDecompress(leaf.ExtData)
			if err != nil {
				doc.warnings = append(doc.warnings, NestedDecodeWarning{
					BlockName: blockName, Path: path, Reason: "lz4 decompress: " + err.Error(),
				})
				continue
			}
			sub, n, err := msgpack.Decode(plain)
			if err != nil || n != len(plain) {
				doc.warnings = append(doc.warnings, NestedDecodeWarning{
					BlockName: blockName, Path: path, Reason: "nested decode after lz4: malformed payload",
				})
				continue
			}
			if doc.nestedWrap == nil {
				doc.nestedWrap = map[string]wrapKind{}
			}
			key := wrapKeyID(blockName, path)
			doc.nestedWrap[key] = wrapLZ4Ext
			if doc.lz4Memos == nil {
				doc.lz4Memos = map[string]lz4Memo{}
			}
			doc.lz4Memos[key] = lz4Memo{
				originalExtData: append([]byte(nil), leaf.ExtData...),
				decoded:         sub,
			}
			*leaf = sub
			continue
		}

		if leaf.Kind != msgpack.KindBytes {
			continue
		}
		sub, n, err := msgpack.Decode(leaf.Bin)
		if err != nil || n != len(leaf.Bin) {
			doc.warnings = append(doc.warnings, NestedDecodeWarning{
				BlockName: blockName, Path: path, Reason: "nested payload is not a well-formed object",
			})
			continue
		}
		if doc.nestedWrap == nil {
			doc.nestedWrap = map[string]wrapKind{}
		}
		doc.nestedWrap[wrapKeyID(blockName, path)] = wrapBin
		*leaf = sub
	}
}

// encodeNestedPayloads reverses decodeNestedPayloads: every leaf this
// Document decoded as a nested payload is re-encoded and re-wrapped in its
// original Bin or LZ4-Ext framing before the owning block is encoded.
func encodeNestedPayloads(doc *Document, blockName string, val *msgpack.Value, nestedKeys [][]string) {
	for _, path := range nestedKeys {
		kind, ok := doc.nestedWrap[wrapKeyID(blockName, path)]
		if !ok {
			continue
		}
		leaf, ok := navigate(val, path)
		if !ok {
			continue
		}
		switch kind {
		case wrapBin:
			encoded := msgpack.Encode(*leaf)
			*leaf = msgpack.FromBytes(encoded)
		case wrapLZ4Ext:
			key := wrapKeyID(blockName, path)
			memo, ok := doc.lz4Memos[key]
			var extData []byte
			if ok && msgpack.Equal(memo.decoded, *leaf) {
				extData = memo.originalExtData
			} else {
				extData = lz4BlockCompress(msgpack.Encode(*leaf))
			}
			*leaf = msgpack.Value{Kind: msgpack.KindExt, Tag: msgpack.TagExt32, ExtCode: 99, ExtData: extData}
		}
	}
}

// lz4BlockDecompress reverses lz4BlockCompress's framing: a leading 0xd2
// byte (the object codec's fixed-int32 tag) followed by a 4-byte
// big-endian uncompressed size, then an LZ4 block (not the
// framed/streaming format) — the exact shape KoikatuCharaData.py's KKEx
// LZ4 handling writes and reads via msg_unpack(data[:5]).
func lz4BlockDecompress(data []byte) ([]byte, error) {
	if len(data) < 5 || data[0] != 0xd2 {
		return nil, errShortLZ4Header
	}
	size := int(binary.BigEndian.Uint32(data[1:5]))
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[5:], dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// lz4BlockCompress frames a payload the same way lz4BlockDecompress
// expects: 0xd2, a 4-byte big-endian uncompressed size, then the
// LZ4-compressed block.
func lz4BlockCompress(plain []byte) []byte {
	compressed := make([]byte, lz4.CompressBlockBound(len(plain)))
	var c lz4.Compressor
	n, err := c.CompressBlock(plain, compressed)
	if err != nil || n == 0 {
		// incompressible input: lz4 block format requires a non-empty
		// compressed form, store literally via a zero-length compress is
		// not valid, so fall back to the compressor's own output as-is.
		n = len(compressed)
	}
	out := make([]byte, 5+n)
	out[0] = 0xd2
	binary.BigEndian.PutUint32(out[1:5], uint32(len(plain)))
	copy(out[5:], compressed[:n])
	return out
}
