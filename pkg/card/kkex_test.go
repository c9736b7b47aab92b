package card

import (
	"testing"

	"github.com/goopsie/kkcard/pkg/msgpack"
)

func TestApplyKKExOverridesForcesInt32OnMatchingName(t *testing.T) {
	// "madevil.kk.ca" -> {1: {"BreathingBPM": 5}}: "BreathingBPM" matches
	// KEYS_TO_OVERRIDE, so its int value must widen to a fixed int32.
	leafVal := msgpack.FromInt(5) // would naturally encode as a 1-byte positive fixint
	inner := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("BreathingBPM"), Value: leafVal}})
	lvl1 := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromInt(1), Value: inner}})
	root := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("madevil.kk.ca"), Value: lvl1}})

	applyKKExOverrides(&root)

	leaf, ok := navigate(&root, []string{"madevil.kk.ca", "1", "BreathingBPM"})
	if !ok {
		t.Fatal("navigate after override")
	}
	if leaf.Tag != msgpack.TagInt32 {
		t.Fatalf("want TagInt32, got %v", leaf.Tag)
	}
	encoded := msgpack.Encode(*leaf)
	if encoded[0] != 0xd2 {
		t.Fatalf("want int32 tag byte 0xd2, got 0x%02x", encoded[0])
	}
}

func TestApplyKKExOverridesForcesInt32OnSlotIndexKeyAndValue(t *testing.T) {
	// Slot index keys 0-6 are themselves in KEYS_TO_OVERRIDE: both the key
	// and an int-typed value under it widen to int32.
	leafVal := msgpack.FromInt(7)
	root := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromInt(3), Value: leafVal}})

	applyKKExOverrides(&root)

	if root.Map[0].Key.Tag != msgpack.TagInt32 {
		t.Fatalf("want key TagInt32, got %v", root.Map[0].Key.Tag)
	}
	if root.Map[0].Value.Tag != msgpack.TagInt32 {
		t.Fatalf("want value TagInt32, got %v", root.Map[0].Value.Tag)
	}
}

func TestApplyKKExOverridesLeavesNonMatchingKeysAlone(t *testing.T) {
	leafVal := msgpack.FromInt(5)
	root := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("UnrelatedField"), Value: leafVal}})

	applyKKExOverrides(&root)

	if root.Map[0].Value.Tag != msgpack.TagAuto {
		t.Fatalf("non-matching key must not be widened, got %v", root.Map[0].Value.Tag)
	}
}

func TestApplyKKExOverridesLeavesStringValueAlone(t *testing.T) {
	// KEYS_TO_OVERRIDE only forces int-typed values (isinstance(v, int) in
	// the source); a string value under a matching key is untouched.
	root := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("CurrentCrest"), Value: msgpack.FromString("gold")}})

	applyKKExOverrides(&root)

	if root.Map[0].Value.Kind != msgpack.KindString || root.Map[0].Value.Str != "gold" {
		t.Fatalf("string value must be untouched, got %+v", root.Map[0].Value)
	}
}

func TestApplyKKExOverridesDoesNotReachInsideOpaqueBytes(t *testing.T) {
	// By the time overrides run, a nested plugin payload has already been
	// re-encoded to opaque Bytes; overrides must not (and structurally
	// cannot) reach the int fields that were inside it.
	inner := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("BreathingBPM"), Value: msgpack.FromInt(5)}})
	root := msgpack.FromMap([]msgpack.Pair{{Key: msgpack.FromString("SomePlugin"), Value: msgpack.FromBytes(msgpack.Encode(inner))}})

	applyKKExOverrides(&root)

	if root.Map[0].Value.Kind != msgpack.KindBytes {
		t.Fatalf("opaque nested payload must stay opaque, got %v", root.Map[0].Value.Kind)
	}
}
