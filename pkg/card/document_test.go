package card

import (
	"bytes"
	"testing"

	"github.com/goopsie/kkcard/pkg/msgpack"
)

func minimalPNG() []byte {
	var b []byte
	b = append(b, 0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a)
	b = append(b, chunk("IHDR", make([]byte, 13))...)
	b = append(b, chunk("IEND", nil)...)
	return b
}

func chunk(typ string, data []byte) []byte {
	var b []byte
	length := []byte{0, 0, 0, 0}
	length[0] = byte(len(data) >> 24)
	length[1] = byte(len(data) >> 16)
	length[2] = byte(len(data) >> 8)
	length[3] = byte(len(data))
	b = append(b, length...)
	b = append(b, []byte(typ)...)
	b = append(b, data...)
	b = append(b, 0, 0, 0, 0) // crc, unchecked by pngcontainer
	return b
}

func TestDocumentRoundTrip(t *testing.T) {
	desc, ok := DescriptorFor(Koikatu)
	if !ok {
		t.Fatal("missing Koikatu descriptor")
	}

	doc := &Document{
		Variant:   Koikatu,
		ProductNo: 100,
		Version:   "0.0.0",
		Header: map[string]HeaderValue{
			"face_image_len": {Int: 0},
			"image_len":      {Int: 0},
		},
		ImageBytes: minimalPNG(),
		Blocks: []Block{
			{
				Name:    "Custom",
				Version: "1",
				Known:   true,
				Value: msgpack.FromMap([]msgpack.Pair{
					{Key: msgpack.FromString("face"), Value: msgpack.FromString("shape-a")},
					{Key: msgpack.FromString("sex"), Value: msgpack.FromInt(0)},
				}),
			},
			{
				Name:  "UnknownBlock",
				Raw:   []byte{1, 2, 3, 4},
				Known: false,
			},
		},
	}

	encoded, err := doc.Encode(desc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, gotDesc, err := Load(encoded)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotDesc.Variant != Koikatu {
		t.Fatalf("variant: got %v", gotDesc.Variant)
	}
	if decoded.ProductNo != 100 || decoded.Version != "0.0.0" {
		t.Fatalf("header mismatch: %+v", decoded)
	}

	custom, ok := decoded.Block("Custom")
	if !ok || !custom.Known {
		t.Fatalf("Custom block missing or not decoded")
	}
	face, ok := custom.Value.MapGet("face")
	if !ok || face.Str != "shape-a" {
		t.Fatalf("Custom.face: %+v", face)
	}

	unknown, ok := decoded.Block("UnknownBlock")
	if !ok || unknown.Known {
		t.Fatalf("UnknownBlock should stay opaque: %+v", unknown)
	}
	if !bytes.Equal(unknown.Raw, []byte{1, 2, 3, 4}) {
		t.Fatalf("UnknownBlock raw mismatch: %v", unknown.Raw)
	}

	reencoded, err := decoded.Encode(gotDesc)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if !bytes.Equal(reencoded, encoded) {
		t.Fatalf("round trip not byte-identical")
	}
}

// TestKKExOverrideDoesNotLeakIntoNestedPayload guards the encode ordering
// in Document.Encode: KKEx's fixed-width overrides must apply after
// nested-payload re-encoding, not before, or a plugin field name that
// happens to match KEYS_TO_OVERRIDE (here "BreathingBPM") inside a nested
// plugin's own sub-structure would be incorrectly widened, even though the
// real KKExPacker never sees that sub-structure as a live map — by the
// time it runs, the nested payload is already opaque bytes.
func TestKKExOverrideDoesNotLeakIntoNestedPayload(t *testing.T) {
	desc, ok := DescriptorFor(Koikatu)
	if !ok {
		t.Fatal("missing Koikatu descriptor")
	}

	nestedPath := []string{"Accessory_States", "1", "CoordinateData"}
	nestedInner := msgpack.FromMap([]msgpack.Pair{
		{Key: msgpack.FromString("BreathingBPM"), Value: msgpack.FromInt(5)},
	})
	nestedLvl2 := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("CoordinateData"), Value: msgpack.FromBytes(msgpack.Encode(nestedInner))}})
	nestedLvl1 := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromInt(1), Value: nestedLvl2}})
	kkex := msgpack.FromMap([]msgpack.Pair{
		{Key: msgpack.FromString("Accessory_States"), Value: nestedLvl1},
		{Key: msgpack.FromString("BreathingBPM"), Value: msgpack.FromInt(5)},
	})

	doc := &Document{
		Variant:    Koikatu,
		ProductNo:  1,
		Version:    "0.0.0",
		Header:     map[string]HeaderValue{"face_image_len": {Int: 0}, "image_len": {Int: 0}},
		ImageBytes: minimalPNG(),
		Blocks: []Block{
			{Name: "KKEx", Version: "1", Known: true, Value: kkex},
		},
	}

	first, err := doc.Encode(desc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Loading decodes the nested payload into a live map, so the next
	// Encode is the one whose re-wrap/override ordering matters.
	loaded, _, err := Load(first)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	encoded, err := loaded.Encode(desc)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}

	decoded, _, err := Load(encoded)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	kkexBlock, ok := decoded.Block("KKEx")
	if !ok || !kkexBlock.Known {
		t.Fatal("KKEx block missing or not decoded")
	}

	topLevel, ok := kkexBlock.Value.MapGet("BreathingBPM")
	if !ok || topLevel.Tag != msgpack.TagInt32 {
		t.Fatalf("top-level BreathingBPM should be widened to TagInt32, got %+v", topLevel)
	}

	nestedLeaf, ok := navigate(&kkexBlock.Value, nestedPath)
	if !ok {
		t.Fatal("navigate to nested payload after round trip")
	}
	innerBreathingBPM, ok := nestedLeaf.MapGet("BreathingBPM")
	if !ok {
		t.Fatal("nested BreathingBPM missing after round trip")
	}
	if innerBreathingBPM.Tag == msgpack.TagInt32 {
		t.Fatalf("nested payload's BreathingBPM must not be widened: overrides run on the outer tree only")
	}
}

func TestLoadRejectsUnknownMagic(t *testing.T) {
	data := append(minimalPNG(), make([]byte, 20)...)
	_, _, err := Load(data)
	if err == nil {
		t.Fatal("want error for garbage header")
	}
}

func TestPeekHeader(t *testing.T) {
	desc, _ := DescriptorFor(Koikatu)
	doc := &Document{
		Variant:    Koikatu,
		ProductNo:  7,
		Version:    "1.2.3",
		Header:     map[string]HeaderValue{"face_image_len": {Int: 0}, "image_len": {Int: 0}},
		ImageBytes: minimalPNG(),
	}
	encoded, err := doc.Encode(desc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	info, err := PeekHeader(encoded)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if info.Variant != Koikatu || info.ProductNo != 7 || info.Version != "1.2.3" {
		t.Fatalf("peek mismatch: %+v", info)
	}
}
