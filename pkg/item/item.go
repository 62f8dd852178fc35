package item

import (
	"encoding/binary"
	"errors"
	"fmt"

	"slabindex/pkg/common"
)

// Item layout:
// [rdt 8B] [key_size 8B] [value_size 8B] [key NB] [value MB]
//
// The index only ever looks at the 8 bytes that follow the header.

const (
	HeaderSize = 8 + 8 + 8 // 24 Bytes
	PrefixSize = 8
	MinSize    = HeaderSize + PrefixSize
)

var ErrShortItem = errors.New("item shorter than header plus key prefix")

// Metadata is the fixed-size header in front of every item.
type Metadata struct {
	RDT       uint64
	KeySize   uint64
	ValueSize uint64
}

// SortKey returns the raw 8 bytes following the header in machine byte
// order. Items whose keys share these bytes map to the same index entry.
func SortKey(buf []byte) (common.SortKey, error) {
	if len(buf) < MinSize {
		return 0, fmt.Errorf("%w: got %d bytes, need %d", ErrShortItem, len(buf), MinSize)
	}
	return common.SortKey(binary.NativeEndian.Uint64(buf[HeaderSize:MinSize])), nil
}

// Encode builds an item from key and value. Keys shorter than the prefix are
// zero padded so the item is always long enough to be indexed; KeySize still
// records the real length.
func Encode(key, value []byte) []byte {
	area := len(key)
	if area < PrefixSize {
		area = PrefixSize
	}
	buf := make([]byte, HeaderSize+area+len(value))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(len(key)))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(value)))
	copy(buf[HeaderSize:], key)
	copy(buf[HeaderSize+area:], value)
	return buf
}

// KeyFromUint64 returns an item whose sort key is k.
func KeyFromUint64(k uint64) []byte {
	var key [PrefixSize]byte
	binary.NativeEndian.PutUint64(key[:], k)
	return Encode(key[:], nil)
}

func ReadMetadata(buf []byte) (Metadata, error) {
	if len(buf) < HeaderSize {
		return Metadata{}, fmt.Errorf("%w: got %d bytes", ErrShortItem, len(buf))
	}
	return Metadata{
		RDT:       binary.LittleEndian.Uint64(buf[0:8]),
		KeySize:   binary.LittleEndian.Uint64(buf[8:16]),
		ValueSize: binary.LittleEndian.Uint64(buf[16:24]),
	}, nil
}

func keyArea(meta Metadata) uint64 {
	if meta.KeySize < PrefixSize {
		return PrefixSize
	}
	return meta.KeySize
}

// Key returns the key bytes of an encoded item.
func Key(buf []byte) ([]byte, error) {
	meta, err := ReadMetadata(buf)
	if err != nil {
		return nil, err
	}
	if uint64(len(buf)) < HeaderSize+keyArea(meta) {
		return nil, fmt.Errorf("%w: key_size %d exceeds buffer", ErrShortItem, meta.KeySize)
	}
	return buf[HeaderSize : HeaderSize+meta.KeySize], nil
}

// Value returns the value bytes of an encoded item.
func Value(buf []byte) ([]byte, error) {
	meta, err := ReadMetadata(buf)
	if err != nil {
		return nil, err
	}
	start := HeaderSize + keyArea(meta)
	if uint64(len(buf)) < start+meta.ValueSize {
		return nil, fmt.Errorf("%w: value_size %d exceeds buffer", ErrShortItem, meta.ValueSize)
	}
	return buf[start : start+meta.ValueSize], nil
}
