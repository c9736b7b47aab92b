package card

import (
	"fmt"

	"github.com/goopsie/kkcard/pkg/msgpack"
)

// catalogEntry is one row of the block catalog's "lstInfo" array: a block's
// name, schema version, and byte span within the block-data section that
// immediately follows the catalog itself.
type catalogEntry struct {
	Name    string
	Version string
	Pos     int32
	Size    int32
}

// decodeCatalog reads the {"lstInfo": [...]} map starting at data[0] and
// returns the parsed entries, the decoded catalog Value itself (kept so
// Encode can patch pos/size in place rather than rebuild the map from
// scratch with shortest-width tags), and the number of bytes the catalog
// occupied (so the caller can locate the block-data section right after).
func decodeCatalog(data []byte) ([]catalogEntry, msgpack.Value, int, error) {
	v, n, err := msgpack.Decode(data)
	if err != nil {
		return nil, msgpack.Value{}, 0, fmt.Errorf("card: decode catalog: %w", err)
	}
	if v.Kind != msgpack.KindMap {
		return nil, msgpack.Value{}, 0, &ErrSchemaMismatch{Field: "lstInfo", Reason: "catalog is not a map"}
	}
	listVal, ok := v.MapGet("lstInfo")
	if !ok {
		return nil, msgpack.Value{}, 0, &ErrSchemaMismatch{Field: "lstInfo", Reason: "missing lstInfo key"}
	}
	if listVal.Kind != msgpack.KindArray {
		return nil, msgpack.Value{}, 0, &ErrSchemaMismatch{Field: "lstInfo", Reason: "lstInfo is not an array"}
	}

	entries := make([]catalogEntry, len(listVal.Arr))
	for i, item := range listVal.Arr {
		if item.Kind != msgpack.KindMap {
			return nil, msgpack.Value{}, 0, &ErrSchemaMismatch{Field: fmt.Sprintf("lstInfo[%d]", i), Reason: "entry is not a map"}
		}
		entries[i] = catalogEntry{
			Name:    mustStr(item, "name"),
			Version: mustStr(item, "version"),
			Pos:     int32(mustInt(item, "pos")),
			Size:    int32(mustInt(item, "size")),
		}
	}
	return entries, v, n, nil
}

func mustStr(m msgpack.Value, key string) string {
	v, ok := m.MapGet(key)
	if !ok {
		return ""
	}
	return v.Str
}

func mustInt(m msgpack.Value, key string) int64 {
	v, ok := m.MapGet(key)
	if !ok {
		return 0
	}
	switch v.Kind {
	case msgpack.KindInt:
		return v.Int
	case msgpack.KindUint:
		return int64(v.Uint)
	}
	return 0
}

// patchCatalog updates original's "pos"/"size" leaves in place to match
// entries, preserving every other tag (map length-class, key order, name
// and version string tags) exactly as decoded. This is what makes an
// unmutated document's catalog re-encode byte-identically: only the fields
// that can legitimately change (an edited block's new size, and every
// later block's shifted offset) are touched. Falls back to building a
// fresh catalog with shortest-width tags when original's shape no longer
// matches entries one-for-one (e.g. a block was added, removed, renamed or
// reordered).
func patchCatalog(original msgpack.Value, entries []catalogEntry) msgpack.Value {
	listVal, ok := original.MapGet("lstInfo")
	if !ok || listVal.Kind != msgpack.KindArray || len(listVal.Arr) != len(entries) {
		return encodeCatalogValue(entries)
	}
	for i := range listVal.Arr {
		item := &listVal.Arr[i]
		if item.Kind != msgpack.KindMap {
			return encodeCatalogValue(entries)
		}
		if mustStr(*item, "name") != entries[i].Name || mustStr(*item, "version") != entries[i].Version {
			return encodeCatalogValue(entries)
		}
		if !patchMapInt(item, "pos", int64(entries[i].Pos)) {
			return encodeCatalogValue(entries)
		}
		if !patchMapInt(item, "size", int64(entries[i].Size)) {
			return encodeCatalogValue(entries)
		}
	}
	for i := range original.Map {
		if original.Map[i].Key.Kind == msgpack.KindString && original.Map[i].Key.Str == "lstInfo" {
			original.Map[i].Value = listVal
		}
	}
	return original
}

// patchMapInt overwrites the leaf at key within m's map with a fresh
// Int/UInt Value carrying the same Kind and Tag it had on decode (so its
// on-disk width is unchanged unless the new value no longer fits, in which
// case Encode widens it automatically). Returns false if key is absent or
// not numeric.
func patchMapInt(m *msgpack.Value, key string, n int64) bool {
	for i := range m.Map {
		if m.Map[i].Key.Kind != msgpack.KindString || m.Map[i].Key.Str != key {
			continue
		}
		switch m.Map[i].Value.Kind {
		case msgpack.KindInt:
			m.Map[i].Value.Int = n
			return true
		case msgpack.KindUint:
			m.Map[i].Value.Uint = uint64(n)
			return true
		}
		return false
	}
	return false
}

// encodeCatalogValue builds the {"lstInfo": [...]} map from entries, using
// TagAuto (shortest-width) encoding for every field. Used only as a
// fallback when there is no prior decoded catalog shape to patch (fresh
// construction, or a structural change patchCatalog can't express).
func encodeCatalogValue(entries []catalogEntry) msgpack.Value {
	items := make([]msgpack.Value, len(entries))
	for i, e := range entries {
		items[i] = msgpack.FromMap([]msgpack.Pair{
			{Key: msgpack.FromString("name"), Value: msgpack.FromString(e.Name)},
			{Key: msgpack.FromString("version"), Value: msgpack.FromString(e.Version)},
			{Key: msgpack.FromString("pos"), Value: msgpack.FromInt(int64(e.Pos))},
			{Key: msgpack.FromString("size"), Value: msgpack.FromInt(int64(e.Size))},
		})
	}
	root := msgpack.FromMap([]msgpack.Pair{
		{Key: msgpack.FromString("lstInfo"), Value: msgpack.FromArray(items)},
	})
	return root
}
