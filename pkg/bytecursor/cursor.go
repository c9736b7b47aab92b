// Package bytecursor provides a positioned reader/writer over a contiguous
// byte buffer, with width-tagged integer, length-prefixed string, and
// fixed-length span primitives used throughout the card container codec.
package bytecursor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ErrShortRead is returned when a read would run past the end of the buffer.
var ErrShortRead = fmt.Errorf("bytecursor: short read")

// Reader is a positioned reader over an in-memory buffer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential reads starting at position 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current read position.
func (r *Reader) Pos() int {
	return r.pos
}

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

// Seek moves the read position to an absolute offset.
func (r *Reader) Seek(pos int) error {
	if pos < 0 || pos > len(r.buf) {
		return fmt.Errorf("bytecursor: seek out of range: %d", pos)
	}
	r.pos = pos
	return nil
}

func (r *Reader) need(n int) error {
	if n < 0 || r.pos+n > len(r.buf) {
		return ErrShortRead
	}
	return nil
}

// Peek returns the next n bytes without advancing the position.
func (r *Reader) Peek(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	return r.buf[r.pos : r.pos+n], nil
}

// ReadBytes reads and returns the next n raw bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.ReadByte()
	return uint8(b), err
}

// ReadInt8 reads a signed 8-bit integer.
func (r *Reader) ReadInt8() (int8, error) {
	b, err := r.ReadByte()
	return int8(b), err
}

// ReadUint16LE reads a little-endian unsigned 16-bit integer.
func (r *Reader) ReadUint16LE() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32LE reads a little-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32LE() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadInt32LE reads a little-endian signed 32-bit integer.
func (r *Reader) ReadInt32LE() (int32, error) {
	v, err := r.ReadUint32LE()
	return int32(v), err
}

// ReadUint64LE reads a little-endian unsigned 64-bit integer.
func (r *Reader) ReadUint64LE() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadInt64LE reads a little-endian signed 64-bit integer.
func (r *Reader) ReadInt64LE() (int64, error) {
	v, err := r.ReadUint64LE()
	return int64(v), err
}

// ReadUint16BE reads a big-endian unsigned 16-bit integer.
func (r *Reader) ReadUint16BE() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint32BE reads a big-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32BE() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadUint64BE reads a big-endian unsigned 64-bit integer.
func (r *Reader) ReadUint64BE() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadFloat32BE reads a big-endian IEEE-754 32-bit float, as used by the
// object codec's float32 tag.
func (r *Reader) ReadFloat32BE() (float32, error) {
	v, err := r.ReadUint32BE()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadFloat64BE reads a big-endian IEEE-754 64-bit float, as used by the
// object codec's float64 tag.
func (r *Reader) ReadFloat64BE() (float64, error) {
	v, err := r.ReadUint64BE()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadLengthPrefixed32 reads a 32-bit little-endian length prefix followed
// by that many raw bytes (the framing of FieldLenString32/FieldLenBytes32
// header fields, such as SummerVacationSave's meta blob), distinct from the
// object codec's own string tags and from the 8-bit prefix of chara header
// strings.
func (r *Reader) ReadLengthPrefixed32() ([]byte, error) {
	n, err := r.ReadInt32LE()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("bytecursor: negative length prefix: %d", n)
	}
	return r.ReadBytes(int(n))
}

// ReadLengthPrefixed8 reads a chara-header style string: a single signed
// byte length prefix followed by that many raw bytes. This is the framing
// load_length(data, "b") uses for a chara file's header/version/userid/
// dataid/title/comment fields, distinct from the block catalog's 32-bit
// length prefix and from the save-file varint form.
func (r *Reader) ReadLengthPrefixed8() ([]byte, error) {
	n, err := r.ReadInt8()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("bytecursor: negative length prefix: %d", n)
	}
	return r.ReadBytes(int(n))
}

// ReadVarString reads the 7-bit variable-length-encoded string form used by
// save-file variants: each length byte's MSB signals continuation, low 7
// bits contribute to the length, least-significant group first.
func (r *Reader) ReadVarString() ([]byte, error) {
	var length uint64
	for i := 0; ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		length |= uint64(b&0x7f) << (7 * uint(i))
		if b>>7 != 1 {
			break
		}
	}
	return r.ReadBytes(int(length))
}

// Writer is an append-only byte buffer writer.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// NewWriterSize creates an empty Writer with a pre-sized backing buffer.
func NewWriterSize(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteByte appends a single byte.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// WriteUint8 appends an unsigned 8-bit integer.
func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

// WriteInt8 appends a signed 8-bit integer.
func (w *Writer) WriteInt8(v int8) {
	w.buf = append(w.buf, byte(v))
}

// WriteUint16LE appends a little-endian unsigned 16-bit integer.
func (w *Writer) WriteUint16LE(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint32LE appends a little-endian unsigned 32-bit integer.
func (w *Writer) WriteUint32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteInt32LE appends a little-endian signed 32-bit integer.
func (w *Writer) WriteInt32LE(v int32) {
	w.WriteUint32LE(uint32(v))
}

// WriteUint64LE appends a little-endian unsigned 64-bit integer.
func (w *Writer) WriteUint64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteInt64LE appends a little-endian signed 64-bit integer.
func (w *Writer) WriteInt64LE(v int64) {
	w.WriteUint64LE(uint64(v))
}

// WriteUint16BE appends a big-endian unsigned 16-bit integer.
func (w *Writer) WriteUint16BE(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint32BE appends a big-endian unsigned 32-bit integer.
func (w *Writer) WriteUint32BE(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint64BE appends a big-endian unsigned 64-bit integer.
func (w *Writer) WriteUint64BE(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteFloat32BE appends a big-endian IEEE-754 32-bit float.
func (w *Writer) WriteFloat32BE(v float32) {
	w.WriteUint32BE(math.Float32bits(v))
}

// WriteFloat64BE appends a big-endian IEEE-754 64-bit float.
func (w *Writer) WriteFloat64BE(v float64) {
	w.WriteUint64BE(math.Float64bits(v))
}

// WriteLengthPrefixed32 appends a 32-bit little-endian length prefix
// followed by the raw bytes, mirroring ReadLengthPrefixed32.
func (w *Writer) WriteLengthPrefixed32(b []byte) {
	w.WriteInt32LE(int32(len(b)))
	w.WriteBytes(b)
}

// WriteLengthPrefixed8 appends a single signed byte length prefix followed
// by the raw bytes, mirroring ReadLengthPrefixed8.
func (w *Writer) WriteLengthPrefixed8(b []byte) {
	w.WriteInt8(int8(len(b)))
	w.WriteBytes(b)
}

// WriteVarString appends the 7-bit variable-length-encoded string form used
// by save-file variants, mirroring ReadVarString.
func (w *Writer) WriteVarString(b []byte) {
	length := len(b)
	for {
		chunk := byte(length & 0x7f)
		length >>= 7
		if length != 0 {
			w.buf = append(w.buf, 0x80|chunk)
		} else {
			w.buf = append(w.buf, chunk)
			break
		}
	}
	w.WriteBytes(b)
}
