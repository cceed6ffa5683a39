package signature

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"gowinmd/internal/token"
)

// Reader is a cursor over a signature blob. Multi-byte fixed-width values are
// little-endian; counts and tokens use the compressed encoding.
type Reader struct {
	data   []byte
	offset int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.offset }

func (r *Reader) Remaining() int {
	if r.offset >= len(r.data) {
		return 0
	}
	return len(r.data) - r.offset
}

func (r *Reader) need(n int) error {
	if r.offset+n > len(r.data) {
		return errEOF(r.offset)
	}
	return nil
}

func (r *Reader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.offset]
	r.offset++
	return v, nil
}

func (r *Reader) PeekU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	return r.data[r.offset], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.offset:])
	r.offset += 2
	return v, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.offset:])
	r.offset += 4
	return v, nil
}

func (r *Reader) ReadU64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.offset:])
	r.offset += 8
	return v, nil
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.data[r.offset : r.offset+n]
	r.offset += n
	return v, nil
}

// ReadCompressed reads an unsigned compressed integer (§II.23.2): one byte for
// 0x00-0x7f, two bytes with prefix 10 for up to 0x3fff, four bytes with prefix
// 110 for up to 0x1fffffff.
func (r *Reader) ReadCompressed() (uint32, error) {
	v, _, err := r.readCompressed()
	return v, err
}

func (r *Reader) readCompressed() (uint32, int, error) {
	start := r.offset
	b0, err := r.ReadU8()
	if err != nil {
		return 0, 0, err
	}

	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, nil
	case b0&0xc0 == 0x80:
		b1, err := r.ReadU8()
		if err != nil {
			return 0, 0, err
		}
		return uint32(b0&0x3f)<<8 | uint32(b1), 2, nil
	case b0&0xe0 == 0xc0:
		rest, err := r.ReadBytes(3)
		if err != nil {
			return 0, 0, err
		}
		return uint32(b0&0x1f)<<24 | uint32(rest[0])<<16 | uint32(rest[1])<<8 | uint32(rest[2]), 4, nil
	default:
		return 0, 0, errAt(start, b0, "invalid compressed integer prefix")
	}
}

// ReadCompressedSigned reads a signed compressed integer, where the sign is
// rotated into the least significant bit of the encoded width.
func (r *Reader) ReadCompressedSigned() (int32, error) {
	u, width, err := r.readCompressed()
	if err != nil {
		return 0, err
	}

	v := u >> 1
	if u&1 == 0 {
		return int32(v), nil
	}
	switch width {
	case 1:
		v |= 0xffffffc0
	case 2:
		v |= 0xffffe000
	default:
		v |= 0xf0000000
	}
	return int32(v), nil
}

// ReadCompressedToken reads a TypeDefOrRefOrSpecEncoded token.
func (r *Reader) ReadCompressedToken() (token.Token, error) {
	start := r.offset
	v, err := r.ReadCompressed()
	if err != nil {
		return 0, err
	}
	t, err := token.DecodeTypeDefOrRef(v)
	if err != nil {
		return 0, errAt(start, r.data[start], "invalid TypeDefOrRef tag %d", v&0x3)
	}
	return t, nil
}

// ReadSerString reads a custom attribute SerString. A lone 0xff is the null
// string and yields ok == false.
func (r *Reader) ReadSerString() (s string, ok bool, err error) {
	b, err := r.PeekU8()
	if err != nil {
		return "", false, err
	}
	if b == 0xff {
		r.offset++
		return "", false, nil
	}

	start := r.offset
	n, err := r.ReadCompressed()
	if err != nil {
		return "", false, err
	}
	raw, err := r.ReadBytes(int(n))
	if err != nil {
		return "", false, err
	}
	if !utf8.Valid(raw) {
		return "", false, errAt(start, b, "SerString is not valid UTF-8")
	}
	return string(raw), true, nil
}

// EncodeCompressed returns the shortest compressed encoding of v.
func EncodeCompressed(v uint32) ([]byte, error) {
	switch {
	case v <= 0x7f:
		return []byte{byte(v)}, nil
	case v <= 0x3fff:
		return []byte{byte(v>>8) | 0x80, byte(v)}, nil
	case v <= 0x1fffffff:
		return []byte{byte(v>>24) | 0xc0, byte(v >> 16), byte(v >> 8), byte(v)}, nil
	default:
		return nil, ErrCompressedRange
	}
}

// EncodeCompressedToken is the inverse of Reader.ReadCompressedToken.
func EncodeCompressedToken(t token.Token) ([]byte, error) {
	v, err := token.EncodeTypeDefOrRef(t)
	if err != nil {
		return nil, err
	}
	return EncodeCompressed(v)
}
