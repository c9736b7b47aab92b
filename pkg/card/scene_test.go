package card

import (
	"testing"

	"github.com/goopsie/kkcard/pkg/msgpack"
)

func dicObject(typ ObjectType, child msgpack.Value) msgpack.Value {
	pairs := []msgpack.Pair{{Key: msgpack.FromString("type"), Value: msgpack.FromInt(int64(typ))}}
	if child.Kind == msgpack.KindMap {
		pairs = append(pairs, msgpack.Pair{Key: msgpack.FromString("child"), Value: child})
	}
	return msgpack.FromMap(pairs)
}

func TestWalkPreOrderAndFilter(t *testing.T) {
	leaf := dicObject(ObjectItem, msgpack.Value{})
	folder := dicObject(ObjectFolder, msgpack.FromMap([]msgpack.Pair{
		{Key: msgpack.FromString("10"), Value: leaf},
	}))
	root := msgpack.FromMap([]msgpack.Pair{
		{Key: msgpack.FromString("1"), Value: folder},
		{Key: msgpack.FromString("2"), Value: dicObject(ObjectCamera, msgpack.Value{})},
	})

	nodes := Walk(root, nil)
	if len(nodes) != 3 {
		t.Fatalf("want 3 nodes, got %d: %+v", len(nodes), nodes)
	}
	wantPaths := []string{"1", "1.10", "2"}
	for i, want := range wantPaths {
		if nodes[i].Path != want {
			t.Fatalf("node %d path: got %q, want %q", i, nodes[i].Path, want)
		}
	}
	if nodes[1].Depth != 1 {
		t.Fatalf("nested node depth: got %d, want 1", nodes[1].Depth)
	}

	item := ObjectItem
	filtered := Walk(root, &item)
	if len(filtered) != 1 || filtered[0].Path != "1.10" {
		t.Fatalf("filtered walk: %+v", filtered)
	}
}

func TestPathIDs(t *testing.T) {
	ids := PathIDs("1.10.3")
	if len(ids) != 3 || ids[0] != "1" || ids[2] != "3" {
		t.Fatalf("PathIDs: %v", ids)
	}
	if PathIDs("") != nil {
		t.Fatal("empty path should split to nil")
	}
}

// TestSceneRoundTripHasNoLeadingMagic guards decodeDocument's
// IsBareVersionHeader path: KoikatuScene/HoneycomeScene carry no
// product_no and no leading magic, so a round trip must not write one
// either, and the file's identity instead comes from the trailing
// "【KStudio】"/"【DigitalCraft】" marker.
func TestSceneRoundTripHasNoLeadingMagic(t *testing.T) {
	desc, ok := DescriptorFor(KoikatuScene)
	if !ok {
		t.Fatal("missing KoikatuScene descriptor")
	}

	doc := &Document{
		Variant:    KoikatuScene,
		Version:    "1.0.0",
		ImageBytes: minimalPNG(),
		Trailer:    encodeVarStringForTest("【KStudio】"),
	}

	encoded, err := doc.Encode(desc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, gotDesc, err := Load(encoded)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotDesc.Variant != KoikatuScene {
		t.Fatalf("variant: got %v, want KoikatuScene", gotDesc.Variant)
	}
	if decoded.ProductNo != 0 {
		t.Fatalf("bare-version-header variant must not carry a product_no: got %d", decoded.ProductNo)
	}
	if decoded.Version != "1.0.0" {
		t.Fatalf("version: got %q", decoded.Version)
	}
}

// TestSceneDispatchDistinguishesByTrailerMarker guards dispatch between
// KoikatuScene and HoneycomeScene: since neither carries a leading magic,
// they differ only in the marker asserted at the very end of the file.
func TestSceneDispatchDistinguishesByTrailerMarker(t *testing.T) {
	koiDesc, _ := DescriptorFor(KoikatuScene)
	hcDesc, _ := DescriptorFor(HoneycomeScene)

	koi, err := (&Document{Variant: KoikatuScene, Version: "1.0.0", ImageBytes: minimalPNG(), Trailer: encodeVarStringForTest("【KStudio】")}).Encode(koiDesc)
	if err != nil {
		t.Fatalf("encode koi: %v", err)
	}
	hc, err := (&Document{Variant: HoneycomeScene, Version: "1.0.0", ImageBytes: minimalPNG(), Trailer: encodeVarStringForTest("【DigitalCraft】")}).Encode(hcDesc)
	if err != nil {
		t.Fatalf("encode hc: %v", err)
	}

	_, gotKoi, err := Load(koi)
	if err != nil || gotKoi.Variant != KoikatuScene {
		t.Fatalf("koikatu scene misidentified: variant=%v err=%v", gotKoi.Variant, err)
	}
	_, gotHC, err := Load(hc)
	if err != nil || gotHC.Variant != HoneycomeScene {
		t.Fatalf("honeycome scene misidentified: variant=%v err=%v", gotHC.Variant, err)
	}
}

func encodeVarStringForTest(s string) []byte {
	b := []byte(s)
	length := len(b)
	var out []byte
	for {
		chunk := byte(length & 0x7f)
		length >>= 7
		if length != 0 {
			out = append(out, 0x80|chunk)
		} else {
			out = append(out, chunk)
			break
		}
	}
	return append(out, b...)
}

func TestSceneTailBlockCryptoRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := []byte("fedcba9876543210")
	plaintext := []byte("0123456789abcdef0123456789abcdef") // two AES blocks

	ciphertext, err := EncryptSceneTailBlock(plaintext, key, iv)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if len(ciphertext) != len(plaintext) {
		t.Fatalf("ciphertext length: got %d, want %d", len(ciphertext), len(plaintext))
	}

	decrypted, err := DecryptSceneTailBlock(ciphertext, key, iv)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(decrypted) != string(plaintext) {
		t.Fatalf("round trip mismatch: got %q, want %q", decrypted, plaintext)
	}
}

func TestSceneTailBlockCryptoRejectsBadKeySize(t *testing.T) {
	if _, err := DecryptSceneTailBlock([]byte("0123456789abcdef"), []byte("short"), []byte("fedcba9876543210")); err == nil {
		t.Fatal("want error for non-16-byte key")
	}
}

func TestSceneTailBlockCryptoRejectsUnalignedLength(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := []byte("fedcba9876543210")
	if _, err := DecryptSceneTailBlock([]byte("not-block-aligned"), key, iv); err == nil {
		t.Fatal("want error for ciphertext length not a multiple of the AES block size")
	}
}
