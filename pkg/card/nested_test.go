package card

import (
	"testing"

	"github.com/goopsie/kkcard/pkg/msgpack"
)

func TestNestedBinPayloadRoundTrip(t *testing.T) {
	path := []string{"Accessory_States", "1", "CoordinateData"}

	inner := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("x"), Value: msgpack.FromInt(42)}})
	innerEncoded := msgpack.Encode(inner)
	wrapped := msgpack.FromBytes(innerEncoded)

	lvl2 := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("CoordinateData"), Value: wrapped}})
	lvl1 := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromInt(1), Value: lvl2}})
	root := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("Accessory_States"), Value: lvl1}})

	doc := &Document{}
	decodeNestedPayloads(doc, "KKEx", &root, [][]string{path})

	leaf, ok := navigate(&root, path)
	if !ok {
		t.Fatal("navigate after decode")
	}
	if leaf.Kind != msgpack.KindMap {
		t.Fatalf("want decoded map, got %v", leaf.Kind)
	}
	x, _ := leaf.MapGet("x")
	if x.Int != 42 {
		t.Fatalf("nested value: %+v", x)
	}

	encodeNestedPayloads(doc, "KKEx", &root, [][]string{path})
	leaf2, ok := navigate(&root, path)
	if !ok {
		t.Fatal("navigate after encode")
	}
	if leaf2.Kind != msgpack.KindBytes {
		t.Fatalf("want re-wrapped bytes, got %v", leaf2.Kind)
	}
	if string(leaf2.Bin) != string(innerEncoded) {
		t.Fatalf("re-wrapped bytes mismatch")
	}
}

func TestNestedLZ4PayloadRoundTrip(t *testing.T) {
	path := []string{"KKABMPlugin.ABMData", "1", "boneData"}
	if !isLZ4NestedKey(path) {
		t.Fatal("test path must be in lz4NestedKeys")
	}

	inner := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("bone"), Value: msgpack.FromString("root")}})
	plain := msgpack.Encode(inner)
	compressed := lz4BlockCompress(plain)
	ext := msgpack.Value{Kind: msgpack.KindExt, Tag: msgpack.TagExt8, ExtCode: 99, ExtData: compressed}

	lvl2 := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("boneData"), Value: ext}})
	lvl1 := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromInt(1), Value: lvl2}})
	root := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("KKABMPlugin.ABMData"), Value: lvl1}})

	doc := &Document{}
	decodeNestedPayloads(doc, "KKEx", &root, [][]string{path})

	leaf, ok := navigate(&root, path)
	if !ok {
		t.Fatal("navigate after decode")
	}
	if leaf.Kind != msgpack.KindMap {
		t.Fatalf("want decoded map, got %v", leaf.Kind)
	}
	bone, _ := leaf.MapGet("bone")
	if bone.Str != "root" {
		t.Fatalf("nested lz4 value: %+v", bone)
	}

	encodeNestedPayloads(doc, "KKEx", &root, [][]string{path})
	leaf2, ok := navigate(&root, path)
	if !ok {
		t.Fatal("navigate after encode")
	}
	if leaf2.Kind != msgpack.KindExt || leaf2.ExtCode != 99 || leaf2.Tag != msgpack.TagExt32 {
		t.Fatalf("want widened ext32, got %+v", leaf2)
	}
	roundTripped, err := lz4BlockDecompress(leaf2.ExtData)
	if err != nil {
		t.Fatalf("decompress re-encoded payload: %v", err)
	}
	if string(roundTripped) != string(plain) {
		t.Fatalf("lz4 payload content mismatch")
	}
}
