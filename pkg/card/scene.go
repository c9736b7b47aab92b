package card

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"strconv"
	"strings"

	"github.com/goopsie/kkcard/pkg/msgpack"
)

// ObjectType is the polymorphic type tag on a scene dicObject.
type ObjectType int32

const (
	ObjectCharacter ObjectType = 0
	ObjectItem      ObjectType = 1
	ObjectLight     ObjectType = 2
	ObjectFolder    ObjectType = 3
	ObjectRoute     ObjectType = 4
	ObjectCamera    ObjectType = 5
	ObjectText      ObjectType = 7
)

// SceneNode is one entry produced by Walk: an object's dotted id path, its
// depth, its decoded map, and its type tag. Type is meaningful only when
// HasType is true; an object with no "type" key has HasType false and
// Type 0.
type SceneNode struct {
	Path   string
	Depth  int
	Type   ObjectType
	HasType bool
	Object msgpack.Value
}

// Walk performs a depth-first, pre-order traversal of a scene's dicObject
// tree: root is a map from object-id string to dicObject map, and each
// dicObject may itself carry a "child" key holding a nested map of the
// same shape. The traversal is stack-based rather than recursive so a
// pathologically deep folder nesting cannot blow the call stack.
//
// filter, if non-nil, restricts the returned nodes to a single ObjectType;
// every node is still visited (so folder children are reached) but only
// matching ones are appended to the result.
func Walk(root msgpack.Value, filter *ObjectType) []SceneNode {
	type frame struct {
		path string
		depth int
		obj  msgpack.Value
	}

	var stack []frame
	pushChildren := func(prefix string, depth int, objMap msgpack.Value) {
		// push in reverse so the first child is popped (and thus visited)
		// first, preserving left-to-right pre-order.
		for i := len(objMap.Map) - 1; i >= 0; i-- {
			pair := objMap.Map[i]
			id := keyString(pair.Key)
			path := id
			if prefix != "" {
				path = prefix + "." + id
			}
			stack = append(stack, frame{path: path, depth: depth, obj: pair.Value})
		}
	}

	pushChildren("", 0, root)

	var out []SceneNode
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := SceneNode{Path: f.path, Depth: f.depth, Object: f.obj}
		if tv, ok := f.obj.MapGet("type"); ok {
			node.HasType = true
			switch tv.Kind {
			case msgpack.KindInt:
				node.Type = ObjectType(tv.Int)
			case msgpack.KindUint:
				node.Type = ObjectType(tv.Uint)
			}
		}
		if filter == nil || (node.HasType && node.Type == *filter) {
			out = append(out, node)
		}

		if childVal, ok := f.obj.MapGet("child"); ok && childVal.Kind == msgpack.KindMap {
			pushChildren(f.path, f.depth+1, childVal)
		}
	}
	return out
}

func keyString(k msgpack.Value) string {
	switch k.Kind {
	case msgpack.KindString:
		return k.Str
	case msgpack.KindInt:
		return strconv.FormatInt(k.Int, 10)
	case msgpack.KindUint:
		return strconv.FormatUint(k.Uint, 10)
	}
	return ""
}

// PathIDs splits a SceneNode.Path back into its component object ids.
func PathIDs(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// DecryptSceneTailBlock reverses the AES-128-CBC encryption
// HoneycomeSceneData.py applies to its unknown_2/unknown_tail_1..11
// blocks (_decrypt_unknown). Those blocks sit past the part of a
// HoneycomeScene file this module already decodes into a Document — they
// are never in Blocks or Trailer — so callers that have extracted one of
// these spans from a raw HoneycomeScene body by some other means can
// still decrypt it here. There is no padding to strip: as in the source,
// ciphertext must already be a whole number of AES blocks.
func DecryptSceneTailBlock(ciphertext, key, iv []byte) ([]byte, error) {
	if len(key) != 16 || len(iv) != 16 {
		return nil, fmt.Errorf("card: invalid decryption key or initialization vector")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("card: %w", err)
	}
	if len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("card: tail block length %d is not a multiple of the AES block size", len(ciphertext))
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

// EncryptSceneTailBlock is the inverse of DecryptSceneTailBlock, mirroring
// HoneycomeSceneData.py's _encrypt_unknown.
func EncryptSceneTailBlock(plaintext, key, iv []byte) ([]byte, error) {
	if len(key) != 16 || len(iv) != 16 {
		return nil, fmt.Errorf("card: invalid decryption key or initialization vector")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("card: %w", err)
	}
	if len(plaintext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("card: tail block length %d is not a multiple of the AES block size", len(plaintext))
	}
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)
	return ciphertext, nil
}
