package card

import "github.com/goopsie/kkcard/pkg/msgpack"

// kkexOverrideIntKeys and kkexOverrideNames together mirror funcs.py's
// KKExPacker.KEYS_TO_OVERRIDE: a global set of map keys — slot indices
// 0-6 and a fixed list of plugin field names — whose matching pair is
// packed with a forced int32 width rather than the shortest width that
// fits. Plugins that hand-parse these fields assume a fixed four-byte
// layout regardless of the value's magnitude.
var kkexOverrideIntKeys = map[int64]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true}

var kkexOverrideNames = map[string]bool{
	"AllCharaOverlayTable":  true,
	"BreathingBPM":          true,
	"CurrentCrest":          true,
	"EnableBulge":           true,
	"InmonLevel":            true,
	"LeaveSchoolWeek":       true,
	"MenstruationSchedule":  true,
	"ReferralIndex":         true,
	"ResizeCentroid":        true,
	"ReturnToSchoolWeek":    true,
	"SemenVolume":           true,
	"clothingOffsetVersion": true,
}

// applyKKExOverrides recursively walks val — the KKEx block's top-level
// value, after nested-payload re-encoding has already turned any plugin
// sub-trees into opaque Bytes — and forces int32 width onto every map
// pair whose key matches KEYS_TO_OVERRIDE, per KKExPacker._pack_map_pairs.
// Matching a Bytes leaf never recurses further, since a nested payload by
// this point is no longer a live map.
func applyKKExOverrides(val *msgpack.Value) {
	switch val.Kind {
	case msgpack.KindMap:
		for i := range val.Map {
			pair := &val.Map[i]
			if isKKExOverrideKey(pair.Key) {
				forceInt32(&pair.Key)
				forceInt32(&pair.Value)
			}
			applyKKExOverrides(&pair.Value)
		}
	case msgpack.KindArray:
		for i := range val.Arr {
			applyKKExOverrides(&val.Arr[i])
		}
	}
}

// isKKExOverrideKey reports whether a map key matches KEYS_TO_OVERRIDE:
// either one of the integer slot indices 0-6, or one of the fixed plugin
// field names.
func isKKExOverrideKey(k msgpack.Value) bool {
	switch k.Kind {
	case msgpack.KindInt:
		return kkexOverrideIntKeys[k.Int]
	case msgpack.KindUint:
		return kkexOverrideIntKeys[int64(k.Uint)]
	case msgpack.KindString:
		return kkexOverrideNames[k.Str]
	}
	return false
}

// forceInt32 widens an Int/Uint leaf to a fixed TagInt32 representation.
// KEYS_TO_OVERRIDE only overrides int-typed keys and values — a string or
// other leaf under a matching key is left exactly as it was, matching
// _pack_map_pairs's isinstance(v, int) guard.
func forceInt32(v *msgpack.Value) {
	switch v.Kind {
	case msgpack.KindInt:
		v.Tag = msgpack.TagInt32
	case msgpack.KindUint:
		*v = msgpack.Value{Kind: msgpack.KindInt, Tag: msgpack.TagInt32, Int: int64(v.Uint)}
	}
}
