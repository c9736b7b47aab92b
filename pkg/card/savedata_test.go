package card

import (
	"bytes"
	"testing"

	"github.com/goopsie/kkcard/pkg/msgpack"
)

func TestKoikatuSaveRoundTrip(t *testing.T) {
	desc, ok := DescriptorFor(KoikatuSave)
	if !ok {
		t.Fatal("missing KoikatuSave descriptor")
	}

	doc := &SaveDocument{
		Variant: KoikatuSave,
		Header: map[string]HeaderValue{
			"version":     {Kind: FieldVarString, Str: "1.0.0"},
			"school_name": {Kind: FieldVarString, Str: "Private Mihono Academy"},
			"emblem":      {Kind: FieldInt32, Int: 3},
			"opening":     {Kind: FieldInt8, Int8: 1},
			"week":        {Kind: FieldInt32, Int: 12},
		},
		Body: []byte{0xde, 0xad, 0xbe, 0xef},
	}

	encoded := doc.Encode(desc)
	decoded, gotDesc, err := LoadSave(encoded)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotDesc.Variant != KoikatuSave {
		t.Fatalf("variant: got %v, want KoikatuSave", gotDesc.Variant)
	}
	if decoded.Header["school_name"].Str != "Private Mihono Academy" || decoded.Header["week"].Int != 12 {
		t.Fatalf("header mismatch: %+v", decoded.Header)
	}
	if decoded.Header["opening"].Int8 != 1 {
		t.Fatalf("opening mismatch: %+v", decoded.Header["opening"])
	}
	if !bytes.Equal(decoded.Body, doc.Body) {
		t.Fatalf("body mismatch: %v", decoded.Body)
	}

	reencoded := decoded.Encode(gotDesc)
	if !bytes.Equal(reencoded, encoded) {
		t.Fatal("round trip not byte-identical")
	}
}

func TestSummerVacationSaveRoundTrip(t *testing.T) {
	desc, ok := DescriptorFor(SummerVacationSave)
	if !ok {
		t.Fatal("missing SummerVacationSave descriptor")
	}

	meta := msgpack.Encode(msgpack.FromMap([]msgpack.Pair{
		{Key: msgpack.FromString("version"), Value: msgpack.FromString("1.0.0")},
	}))

	doc := &SaveDocument{
		Variant: SummerVacationSave,
		Header: map[string]HeaderValue{
			"meta":        {Kind: FieldLenBytes32, Bytes: meta},
			"data_length": {Kind: FieldUint64, Uint64: 4096},
		},
		Body: []byte{0x01, 0x02, 0x03},
	}

	encoded := doc.Encode(desc)
	decoded, gotDesc, err := LoadSave(encoded)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotDesc.Variant != SummerVacationSave {
		t.Fatalf("variant: got %v, want SummerVacationSave", gotDesc.Variant)
	}
	if !bytes.Equal(decoded.Header["meta"].Bytes, meta) {
		t.Fatalf("meta mismatch")
	}
	if decoded.Header["data_length"].Uint64 != 4096 {
		t.Fatalf("data_length mismatch: %+v", decoded.Header["data_length"])
	}
	if !bytes.Equal(decoded.Body, doc.Body) {
		t.Fatalf("body mismatch: %v", decoded.Body)
	}

	reencoded := decoded.Encode(gotDesc)
	if !bytes.Equal(reencoded, encoded) {
		t.Fatal("round trip not byte-identical")
	}
}

// TestLoadSaveDistinguishesVariantsByShape guards the probe-based
// dispatch in decodeSaveDocument: with no magic to switch on, each
// variant must be told apart by whether its own header fields come out
// plausible, not the other's.
func TestLoadSaveDistinguishesVariantsByShape(t *testing.T) {
	koiDesc, _ := DescriptorFor(KoikatuSave)
	svDesc, _ := DescriptorFor(SummerVacationSave)

	koi := (&SaveDocument{
		Header: map[string]HeaderValue{
			"version":     {Kind: FieldVarString, Str: "1.0.0"},
			"school_name": {Kind: FieldVarString, Str: "Private Mihono Academy"},
			"emblem":      {Kind: FieldInt32, Int: 1},
			"opening":     {Kind: FieldInt8, Int8: 0},
			"week":        {Kind: FieldInt32, Int: 5},
		},
		Body: []byte{1, 2, 3},
	}).Encode(koiDesc)

	sv := (&SaveDocument{
		Header: map[string]HeaderValue{
			"meta":        {Kind: FieldLenBytes32, Bytes: msgpack.Encode(msgpack.FromInt(1))},
			"data_length": {Kind: FieldUint64, Uint64: 10},
		},
		Body: []byte{4, 5, 6},
	}).Encode(svDesc)

	_, gotKoi, err := LoadSave(koi)
	if err != nil || gotKoi.Variant != KoikatuSave {
		t.Fatalf("koikatu save misidentified: variant=%v err=%v", gotKoi.Variant, err)
	}
	_, gotSV, err := LoadSave(sv)
	if err != nil || gotSV.Variant != SummerVacationSave {
		t.Fatalf("summer vacation save misidentified: variant=%v err=%v", gotSV.Variant, err)
	}
}

func TestLoadSaveRejectsGarbage(t *testing.T) {
	garbage := make([]byte, 64)
	for i := range garbage {
		garbage[i] = 0xff
	}
	if _, _, err := LoadSave(garbage); err == nil {
		t.Fatal("want error for data matching no save variant's header shape")
	}
}

func TestProbeKoikatuSaveHeaderRejectsBadOpeningFlag(t *testing.T) {
	header := map[string]HeaderValue{
		"version":     {Str: "1.0.0"},
		"school_name": {Str: "School"},
		"emblem":      {Int: 1},
		"opening":     {Int8: 5},
		"week":        {Int: 5},
	}
	if probeKoikatuSaveHeader(header) {
		t.Fatal("opening flag outside {0,1} should be rejected")
	}
}

func TestProbeSummerVacationSaveHeaderRejectsNonMsgpackMeta(t *testing.T) {
	header := map[string]HeaderValue{
		"meta":        {Bytes: []byte{0xff, 0xff, 0xff}},
		"data_length": {Uint64: 10},
	}
	if probeSummerVacationSaveHeader(header) {
		t.Fatal("meta that isn't a complete msgpack object should be rejected")
	}
}
