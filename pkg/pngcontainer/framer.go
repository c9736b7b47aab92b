// Package pngcontainer splits a PNG byte stream into the image prefix (up
// to and including the IEND chunk) and whatever payload is appended after
// it, and recomposes the two on save. This is the framing the card family
// of game titles uses to embed block data inside a PNG screenshot.
package pngcontainer

import (
	"encoding/binary"
	"fmt"
)

// Signature is the fixed 8-byte PNG header every chunked image starts with.
var Signature = [8]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// ErrMalformedContainer is returned when a PNG signature or IEND chunk
// cannot be located where the framer expects one.
type ErrMalformedContainer struct {
	Reason string
}

func (e *ErrMalformedContainer) Error() string {
	return fmt.Sprintf("pngcontainer: malformed container: %s", e.Reason)
}

// Frame is the result of splitting a byte stream at PNG boundaries.
type Frame struct {
	// ImageBytes is the primary PNG, verbatim, signature through IEND CRC.
	ImageBytes []byte
	// FaceImageBytes is a second, optional embedded PNG (present in some
	// variants) immediately following ImageBytes.
	FaceImageBytes []byte
	// Tail is whatever bytes remain after the image(s) — the payload.
	Tail []byte
}

// Split locates the image prefix of data and returns it split from the
// trailing payload. It attempts to consume a second PNG (a face thumbnail)
// immediately after the first; if the bytes following the first PNG don't
// also start with the PNG signature, Tail begins right after the first PNG.
func Split(data []byte) (Frame, error) {
	imgLen, err := imageLength(data, 0)
	if err != nil {
		return Frame{}, err
	}
	frame := Frame{ImageBytes: data[:imgLen]}
	rest := data[imgLen:]

	if len(rest) >= len(Signature) && hasSignature(rest) {
		faceLen, err := imageLength(data, imgLen)
		if err != nil {
			return Frame{}, err
		}
		frame.FaceImageBytes = data[imgLen : imgLen+faceLen]
		frame.Tail = data[imgLen+faceLen:]
		return frame, nil
	}

	frame.Tail = rest
	return frame, nil
}

// SplitNoImage treats all of data as payload with no leading PNG.
func SplitNoImage(data []byte) Frame {
	return Frame{Tail: data}
}

func hasSignature(data []byte) bool {
	if len(data) < len(Signature) {
		return false
	}
	for i, b := range Signature {
		if data[i] != b {
			return false
		}
	}
	return true
}

// imageLength returns the byte length of the PNG image starting at orig,
// walking chunks until (and including) IEND.
func imageLength(data []byte, orig int) (int, error) {
	if orig+len(Signature) > len(data) || !hasSignature(data[orig:]) {
		return 0, &ErrMalformedContainer{Reason: "missing PNG signature"}
	}

	idx := orig + len(Signature)
	for {
		if idx+8 > len(data) {
			return 0, &ErrMalformedContainer{Reason: "missing IEND chunk"}
		}
		chunkLen := int(binary.BigEndian.Uint32(data[idx : idx+4]))
		chunkType := string(data[idx+4 : idx+8])
		idx += 8 + chunkLen + 4 // length + type + data + crc
		if idx > len(data) {
			return 0, &ErrMalformedContainer{Reason: "chunk runs past end of buffer"}
		}
		if chunkType == "IEND" {
			break
		}
	}
	return idx - orig, nil
}

// Join recomposes a Frame back into a single byte stream: image, optional
// face image, then tail. The image bytes are opaque and emitted verbatim.
func Join(frame Frame) []byte {
	total := len(frame.ImageBytes) + len(frame.FaceImageBytes) + len(frame.Tail)
	out := make([]byte, 0, total)
	out = append(out, frame.ImageBytes...)
	out = append(out, frame.FaceImageBytes...)
	out = append(out, frame.Tail...)
	return out
}
