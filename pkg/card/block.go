package card

import "github.com/goopsie/kkcard/pkg/msgpack"

// Block is one named, versioned span of the block-data section. Known
// blocks carry a decoded Value tree; blocks the active VariantDescriptor
// does not recognize are kept as opaque Raw bytes and round-tripped
// verbatim at their original catalog position.
type Block struct {
	Name    string
	Version string

	// Value holds the decoded object tree for a known block. Zero Value
	// (Kind == msgpack.KindNull with no other field set) when Raw is used
	// instead.
	Value msgpack.Value

	// Raw holds the block's original bytes as sliced from the block-data
	// section. It is the block's only representation when Known is false:
	// an unknown block, or a known-named block whose payload did not decode
	// as a single object.
	Raw []byte

	// Known is true when Value was produced by decoding Raw as an object
	// tree; false means Raw is the block's only representation.
	Known bool
}

// Encode returns the encoded Value for a known block, or Raw verbatim
// otherwise. It does not re-wrap nested payloads or apply KKEx overrides;
// Document.Encode does both before encoding a block.
func (b Block) Encode() []byte {
	if b.Known {
		return msgpack.Encode(b.Value)
	}
	return b.Raw
}
