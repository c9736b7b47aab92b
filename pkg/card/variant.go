package card

// Variant is the closed set of game/title schemas this codec understands.
type Variant string

const (
	Koikatu              Variant = "Koikatu"
	EmotionCreators      Variant = "EmotionCreators"
	Honeycome            Variant = "Honeycome"
	SummerVacationChara  Variant = "SummerVacationChara"
	SummerVacationSave   Variant = "SummerVacationSave"
	KoikatuSave          Variant = "KoikatuSave"
	EmocreMap            Variant = "EmocreMap"
	EmocreScene          Variant = "EmocreScene"
	KoikatuScene         Variant = "KoikatuScene"
	HoneycomeScene       Variant = "HoneycomeScene"
	Aicomi               Variant = "Aicomi"
)

// FieldKind identifies how a single header field is framed on disk.
type FieldKind uint8

const (
	// FieldInt32 is a bare little-endian signed 32-bit integer.
	FieldInt32 FieldKind = iota
	// FieldInt8 is a bare signed 8-bit integer, used for boolean flags.
	FieldInt8
	// FieldLenBytes32 is a 32-bit-length-prefixed raw byte span.
	FieldLenBytes32
	// FieldLenString32 is FieldLenBytes32 decoded as UTF-8.
	FieldLenString32
	// FieldLenString8 is a single-signed-byte-length-prefixed string,
	// decoded as UTF-8 — load_length(data, "b") in every chara loader
	// (KoikatuCharaData.py, KoikatuCharaHeader.py, EmocreCharaData.py),
	// used for the header/version string and the short identity fields
	// that follow it (userid, dataid, title, comment). Distinct from
	// FieldLenString32's 32-bit length prefix, which no descriptor in
	// Registry uses.
	FieldLenString8
	// FieldVarString is the 7-bit varint length-prefixed string form.
	FieldVarString
	// FieldInt32Array is an int32 count followed by that many int32s.
	FieldInt32Array
	// FieldUint64 is a bare little-endian unsigned 64-bit integer, used by
	// SummerVacationSave's data_length field.
	FieldUint64
)

// FieldSpec describes one header field: its wire name and framing.
type FieldSpec struct {
	Name string
	Kind FieldKind
}

// SceneKind marks whether a variant is a scene document (dicObject walk,
// §4.8) rather than a plain chara document.
type SceneKind uint8

const (
	SceneKindNone SceneKind = iota
	SceneKindStandard
)

// VariantDescriptor is the schema table driving decode/encode for one
// variant: its header layout, its known block set, and its nested-key
// table — see the "Polymorphic block classes -> schema descriptors"
// design note. Decode/encode are never driven by per-block class
// hierarchies; everything is table lookup against this struct.
type VariantDescriptor struct {
	Variant Variant

	// Magic is the exact header string (e.g. "【KoiKatuChara】") this
	// variant's dispatch matches against. Load tries descriptors in
	// Registry order and the first magic match wins. Save
	// variants carry no magic at all (neither KoikatuSaveData.py nor
	// SummerVacationSaveData.py writes one) and leave this empty; they are
	// told apart by probeSaveHeader instead (see savedata.go). For
	// IsBareVersionHeader variants, Magic instead names the trailing
	// end-of-stream marker (e.g. "【KStudio】") — KoikatuSceneData.py and
	// HoneycomeSceneData.py read and assert this string as the very last
	// thing in the file, not as a leading header field, so it is checked
	// against the decoded Trailer rather than against bytes at the front.
	Magic string

	// HasLeadingImage is true when the document starts with a PNG to be
	// split off by pngcontainer before any header field is read.
	HasLeadingImage bool

	// HeaderFields lists the fields immediately following the magic
	// string and version, in on-disk order. product_no, "header" and
	// "version" themselves are implicit and always read first, except that
	// IsBareVersionHeader variants read only "version".
	HeaderFields []FieldSpec

	// VersionFieldKind controls how the version string right after the
	// magic is framed; chara variants, EmocreScene and EmocreMap use
	// FieldLenString8, while KoikatuScene and HoneycomeScene use
	// FieldVarString (see KoikatuSceneData.load).
	VersionFieldKind FieldKind

	// KnownBlocks is the set of block names this variant decodes into a
	// Value tree. Any other block stays in Document.Blocks with Known
	// false, carried as its opaque Raw bytes.
	KnownBlocks map[string]bool

	// NestedKeys lists, per known block name, the dotted map-key paths
	// whose Bytes value is itself an encoded object graph to recurse
	// into — see NestedPayloadProcessor (pkg/card/nested.go).
	NestedKeys map[string][][]string

	// Scene is SceneKindStandard for variants exposing a dicObject tree
	// and Walk.
	Scene SceneKind

	// IsSaveVariant is true for KoikatuSave/SummerVacationSave: no PNG, no
	// magic, no block catalog, just a flat named-field header and an
	// opaque body (see pkg/card/savedata.go). LoadSave picks among
	// IsSaveVariant descriptors by probing HeaderFields' decoded shape,
	// since there is no magic to switch on.
	IsSaveVariant bool

	// IsBareVersionHeader is true for KoikatuScene/HoneycomeScene: unlike
	// every chara variant (and EmocreScene/EmocreMap, which keep the
	// product_no/header/version triple), KoikatuSceneData.py and
	// HoneycomeSceneData.py's load() read the image and then go straight
	// into a varint-prefixed version string — no product_no, no magic.
	// decodeDocument skips both when this is set, and instead of matching
	// Magic against a leading field it checks the decoded Trailer against
	// Magic once the rest of the document has been read (see Magic).
	IsBareVersionHeader bool
}

// kkexNestedKeys is the NESTED_KEYS table from
// kkloader/KoikatuCharaData.py's KKEx class, shared by every variant that
// carries a KKEx block.
var kkexNestedKeys = [][]string{
	{"Accessory_States", "1", "CoordinateData"},
	{"Additional_Card_Info", "1", "CardInfo"},
	{"Additional_Card_Info", "1", "CoordinateInfo"},
	{"KCOX", "1", "Overlays"},
	{"KKABMPlugin.ABMData", "1", "boneData"},
	{"KSOX", "1", "Lookup"},
	{"MigrationHelper", "1", "Info"},
	{"com.deathweasel.bepinex.clothingunlocker", "1", "ClothingUnlocked"},
	{"com.deathweasel.bepinex.dynamicboneeditor", "1", "AccessoryDynamicBoneData"},
	{"com.deathweasel.bepinex.hairaccessorycustomizer", "1", "HairAccessories"},
	{"com.deathweasel.bepinex.materialeditor", "1", "MaterialColorPropertyList"},
	{"com.deathweasel.bepinex.materialeditor", "1", "MaterialFloatPropertyList"},
	{"com.deathweasel.bepinex.materialeditor", "1", "MaterialShaderList"},
	{"com.deathweasel.bepinex.materialeditor", "1", "MaterialTexturePropertyList"},
	{"com.deathweasel.bepinex.materialeditor", "1", "RendererPropertyList"},
	{"com.deathweasel.bepinex.materialeditor", "1", "TextureDictionary"},
	{"com.deathweasel.bepinex.pushup", "1", "Pushup_BodyData"},
	{"com.deathweasel.bepinex.pushup", "1", "Pushup_BraData"},
	{"com.deathweasel.bepinex.pushup", "1", "Pushup_TopData"},
	{"com.jim60105.kk.charaoverlaysbasedoncoordinate", "1", "IrisDisplaySideList"},
	{"com.snw.bepinex.breastphysicscontroller", "1", "DynamicBoneParameter"},
	{"madevil.kk.ass", "1", "CharaTriggerInfo"},
	{"madevil.kk.ass", "1", "CharaVirtualGroupInfo"},
	{"madevil.kk.ass", "1", "CharaVirtualGroupNames"},
	{"madevil.kk.ass", "1", "TriggerGroupList"},
	{"madevil.kk.ass", "1", "TriggerPropertyList"},
	{"madevil.kk.ca", "1", "AAAPKExtdata"},
	{"madevil.kk.ca", "1", "AccStateSyncExtdata"},
	{"madevil.kk.ca", "1", "DynamicBoneEditorExtdata"},
	{"madevil.kk.ca", "1", "HairAccessoryCustomizerExtdata"},
	{"madevil.kk.ca", "1", "MaterialEditorExtdata"},
	{"madevil.kk.ca", "1", "MoreAccessoriesExtdata"},
	{"madevil.kk.ca", "1", "ResolutionInfoExtdata"},
	{"madevil.kk.ca", "1", "TextureContainer"},
	{"marco.authordata", "1", "Authors"},
	{"orange.spork.advikplugin", "1", "ResizeChainAdjustments"},
}

// lz4NestedKeys lists the KKEx nested keys whose decoded value may be an
// ExtType(99, ...) wrapping an LZ4-block-compressed payload, per
// KoikatuCharaData.py's LZ4_COMPRESSED_KEYS.
var lz4NestedKeys = map[string]bool{
	"KKABMPlugin.ABMData\x001\x00boneData":                                    true,
	"com.deathweasel.bepinex.breastphysicscontroller\x001\x00DynamicBoneParameter": true,
	"marco.authordata\x001\x00Authors":                                        true,
}

func nestedKeyID(path []string) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += "\x00"
		}
		s += p
	}
	return s
}

func koikatuBlocks() map[string]bool {
	return map[string]bool{"Custom": true, "Coordinate": true, "Parameter": true, "Status": true, "About": true, "KKEx": true}
}

func honeycomeFamilyBlocks(gameParam, gameInfo string) map[string]bool {
	m := map[string]bool{"Custom": true, "Coordinate": true, "Parameter": true, "Status": true, "Graphic": true, "About": true, "KKEx": true}
	m[gameParam] = true
	m[gameInfo] = true
	return m
}

// Registry lists every known VariantDescriptor in dispatch priority order.
// Priority matters when magics overlap between families (e.g. Honeycome
// vs a hypothetical DigitalCraft-flavored scene share a magic prefix); the
// order here is the one fixed by the package's tests, per §9's open
// question resolution.
var Registry = []VariantDescriptor{
	{
		Variant:          Koikatu,
		Magic:            "【KoiKatuChara】",
		HasLeadingImage:  true,
		VersionFieldKind: FieldLenString8,
		HeaderFields: []FieldSpec{
			{Name: "face_image_len", Kind: FieldInt32},
			{Name: "image_len", Kind: FieldInt32},
		},
		KnownBlocks: koikatuBlocks(),
		NestedKeys:  map[string][][]string{"KKEx": kkexNestedKeys},
	},
	{
		Variant:          EmotionCreators,
		Magic:            "【EmoCreChara】",
		HasLeadingImage:  true,
		VersionFieldKind: FieldLenString8,
		HeaderFields: []FieldSpec{
			{Name: "language", Kind: FieldInt32},
			{Name: "userid", Kind: FieldLenString8},
			{Name: "dataid", Kind: FieldLenString8},
			{Name: "packages", Kind: FieldInt32Array},
		},
		KnownBlocks: koikatuBlocks(),
		NestedKeys:  map[string][][]string{"KKEx": kkexNestedKeys},
	},
	{
		Variant:          Honeycome,
		Magic:            "【HCChara】",
		HasLeadingImage:  true,
		VersionFieldKind: FieldLenString8,
		HeaderFields: []FieldSpec{
			{Name: "face_image_len", Kind: FieldInt32},
			{Name: "image_len", Kind: FieldInt32},
		},
		KnownBlocks: honeycomeFamilyBlocks("GameParameter_HC", "GameInfo_HC"),
		NestedKeys:  map[string][][]string{"KKEx": kkexNestedKeys},
	},
	{
		Variant:          SummerVacationChara,
		Magic:            "【SVChara】",
		HasLeadingImage:  true,
		VersionFieldKind: FieldLenString8,
		HeaderFields: []FieldSpec{
			{Name: "face_image_len", Kind: FieldInt32},
			{Name: "image_len", Kind: FieldInt32},
		},
		KnownBlocks: honeycomeFamilyBlocks("GameParameter_SV", "GameInfo_SV"),
		NestedKeys:  map[string][][]string{"KKEx": kkexNestedKeys},
	},
	{
		Variant:          Aicomi,
		Magic:            "【ACChara】",
		HasLeadingImage:  true,
		VersionFieldKind: FieldLenString8,
		HeaderFields: []FieldSpec{
			{Name: "face_image_len", Kind: FieldInt32},
			{Name: "image_len", Kind: FieldInt32},
		},
		KnownBlocks: honeycomeFamilyBlocks("GameParameter_AC", "GameInfo_AC"),
		NestedKeys:  map[string][][]string{"KKEx": kkexNestedKeys},
	},
	{
		// KoikatuSceneData.py's load() has no product_no and no magic:
		// it reads the image, then a varint-prefixed version string,
		// straight into the object dictionary. "【KStudio】" is read as
		// the very last thing in the file (load_string, asserted equal),
		// so it is checked against Trailer, not against a leading field —
		// see IsBareVersionHeader.
		Variant:             KoikatuScene,
		Magic:               "【KStudio】",
		HasLeadingImage:     true,
		VersionFieldKind:    FieldVarString,
		IsBareVersionHeader: true,
		Scene:               SceneKindStandard,
		KnownBlocks:         map[string]bool{"SceneObjects": true, "SceneSettings": true},
	},
	{
		// Same header shape as KoikatuScene; HoneycomeSceneData.py's
		// load() also starts straight at the varint version string with
		// no product_no/magic, and asserts "【DigitalCraft】" as the last
		// thing it reads.
		Variant:             HoneycomeScene,
		Magic:               "【DigitalCraft】",
		HasLeadingImage:     true,
		VersionFieldKind:    FieldVarString,
		IsBareVersionHeader: true,
		Scene:               SceneKindStandard,
		KnownBlocks:         map[string]bool{"SceneObjects": true, "SceneSettings": true},
	},
	{
		Variant:          EmocreScene,
		Magic:            "【EmoCreScene】",
		HasLeadingImage:  true,
		VersionFieldKind: FieldLenString8,
		HeaderFields: []FieldSpec{
			{Name: "language", Kind: FieldInt32},
			{Name: "userid", Kind: FieldLenString8},
			{Name: "dataid", Kind: FieldLenString8},
			{Name: "title", Kind: FieldLenString8},
			{Name: "comment", Kind: FieldLenString8},
			{Name: "defaultbgm", Kind: FieldInt32},
			{Name: "tags", Kind: FieldInt32Array},
			{Name: "males", Kind: FieldInt32},
			{Name: "females", Kind: FieldInt32},
			{Name: "isplaying", Kind: FieldInt8},
			{Name: "uses_adv", Kind: FieldInt8},
			{Name: "uses_hpart", Kind: FieldInt8},
			{Name: "charapackages", Kind: FieldInt32Array},
			{Name: "mappackages", Kind: FieldInt32Array},
		},
		Scene:       SceneKindStandard,
		KnownBlocks: map[string]bool{"SceneObjects": true, "SceneSettings": true},
	},
	{
		Variant:          EmocreMap,
		Magic:            "【EmoCreMap】",
		HasLeadingImage:  true,
		VersionFieldKind: FieldLenString8,
		HeaderFields: []FieldSpec{
			{Name: "language", Kind: FieldInt32},
			{Name: "userid", Kind: FieldLenString8},
			{Name: "dataid", Kind: FieldLenString8},
		},
		KnownBlocks: map[string]bool{"MapObjects": true, "MapSettings": true},
	},
	{
		// Fields and order per KoikatuSaveData.py's _load_header: version
		// and school_name are both varint-length-prefixed strings, emblem
		// and week are bare int32s, opening is a single byte flag. Nothing
		// precedes version — there is no magic and no playerName field.
		// Everything from the following CharaInfo player record onward
		// (vars1, heroines, personality, club_data, vars2,
		// action_controls) stays in Body; modeling the embedded card and
		// save-state tree is out of scope here.
		Variant:       KoikatuSave,
		IsSaveVariant: true,
		HeaderFields: []FieldSpec{
			{Name: "version", Kind: FieldVarString},
			{Name: "school_name", Kind: FieldVarString},
			{Name: "emblem", Kind: FieldInt32},
			{Name: "opening", Kind: FieldInt8},
			{Name: "week", Kind: FieldInt32},
		},
	},
	{
		// Fields per SummerVacationSaveData.py's load: meta is a
		// length-prefixed msgpack blob (kept opaque — msg_unpack'ing it is
		// the loader's business, not this header's), data_length is a
		// bare uint64. chara_num and every per-character record after it
		// stay in Body: unlike KoikatuSave's fixed header, this one is
		// followed by a variable-count loop of embedded character cards,
		// which the opaque-body scope decision covers rather than a fixed
		// HeaderFields list.
		Variant:       SummerVacationSave,
		IsSaveVariant: true,
		HeaderFields: []FieldSpec{
			{Name: "meta", Kind: FieldLenBytes32},
			{Name: "data_length", Kind: FieldUint64},
		},
	},
}

// DescriptorFor returns the VariantDescriptor for a Variant tag.
func DescriptorFor(v Variant) (VariantDescriptor, bool) {
	for _, d := range Registry {
		if d.Variant == v {
			return d, true
		}
	}
	return VariantDescriptor{}, false
}

func isLZ4NestedKey(path []string) bool {
	return lz4NestedKeys[nestedKeyID(path)]
}
