// Package z85 implements the Z85 binary-to-text encoding (ZeroMQ RFC 32).
//
// Deletion vector descriptors use Z85 both for the UUID embedded in relative
// paths and for inline bitmap payloads. Input lengths must be multiples of 4
// (encode) or 5 (decode); Z85 has no padding.
package z85

import (
	"errors"
	"fmt"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ.-:+=^!/*?&<>()[]{}@%$#"

// ErrLength indicates input whose length is not a valid Z85 block multiple.
var ErrLength = errors.New("z85: invalid input length")

var decodeTable = buildDecodeTable()

func buildDecodeTable() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = int8(i)
	}
	return t
}

// EncodedLen returns the encoded length for n source bytes.
func EncodedLen(n int) int { return n / 4 * 5 }

// DecodedLen returns the decoded length for n encoded characters.
func DecodedLen(n int) int { return n / 5 * 4 }

// Encode returns the Z85 encoding of src. len(src) must be a multiple of 4.
func Encode(src []byte) (string, error) {
	if len(src)%4 != 0 {
		return "", fmt.Errorf("%w: %d bytes, want a multiple of 4", ErrLength, len(src))
	}
	dst := make([]byte, 0, EncodedLen(len(src)))
	for i := 0; i < len(src); i += 4 {
		v := uint32(src[i])<<24 | uint32(src[i+1])<<16 | uint32(src[i+2])<<8 | uint32(src[i+3])
		var block [5]byte
		for j := 4; j >= 0; j-- {
			block[j] = alphabet[v%85]
			v /= 85
		}
		dst = append(dst, block[:]...)
	}
	return string(dst), nil
}

// Decode returns the bytes encoded by s. len(s) must be a multiple of 5.
func Decode(s string) ([]byte, error) {
	if len(s)%5 != 0 {
		return nil, fmt.Errorf("%w: %d chars, want a multiple of 5", ErrLength, len(s))
	}
	dst := make([]byte, 0, DecodedLen(len(s)))
	for i := 0; i < len(s); i += 5 {
		var v uint64
		for j := 0; j < 5; j++ {
			d := decodeTable[s[i+j]]
			if d < 0 {
				return nil, fmt.Errorf("z85: invalid character %q at position %d", s[i+j], i+j)
			}
			v = v*85 + uint64(d)
		}
		if v > 0xFFFFFFFF {
			return nil, fmt.Errorf("z85: block overflow at position %d", i)
		}
		dst = append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return dst, nil
}
