// Package rscontainer implements the v4 RS container format: global,
// frame and slice headers, the interleaved pack encoder, the
// resync-tolerant unpack decoder, and the statistics/progress/cancel
// surface described by the container's on-disk contract.
package rscontainer

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Fixed geometry constants. k, shard_len and the magics are format
// invariants; r is the only per-container tunable among them.
const (
	KShards   = 192
	ShardLen  = 64
	FrameBytes = KShards * ShardLen // 12288
	MaxR      = 63

	GlobalMagic = 0x54435352 // "RSCT"
	FrameMagic  = 0x34534652 // "RSF4"
	SliceMagic  = 0x344C5352 // "RSL4"

	ILDepthDefault   = 16
	SliceBytesDefault = 512
)

// ErrShortHeader and ErrBadMagic are returned by UnmarshalBinary when a
// buffer is truncated or does not start with the expected magic.
var (
	ErrShortHeader = errors.New("rscontainer: short header")
	ErrBadMagic    = errors.New("rscontainer: bad magic")
	ErrBadVersion  = errors.New("rscontainer: unsupported version")
	ErrBadGeometry = errors.New("rscontainer: unexpected k/shard_len")
)

// GlobalHeader is the 36-byte record at the start of every container.
type GlobalHeader struct {
	Version      uint16
	K            uint16
	R            uint16
	ShardLen     uint16
	Pad          uint16
	OriginalSize uint64
	FrameCount   uint64
	ILDepth      uint16
	SliceBytes   uint16
}

// GlobalHeaderLen is the packed, little-endian on-disk size of GlobalHeader.
const GlobalHeaderLen = 4 + 2 + 2 + 2 + 2 + 2 + 8 + 8 + 2 + 2 + 2

// MarshalBinary encodes h in the container's packed little-endian layout.
func (h *GlobalHeader) MarshalBinary() []byte {
	b := make([]byte, GlobalHeaderLen)
	binary.LittleEndian.PutUint32(b[0:4], GlobalMagic)
	binary.LittleEndian.PutUint16(b[4:6], h.Version)
	binary.LittleEndian.PutUint16(b[6:8], h.K)
	binary.LittleEndian.PutUint16(b[8:10], h.R)
	binary.LittleEndian.PutUint16(b[10:12], h.ShardLen)
	binary.LittleEndian.PutUint16(b[12:14], h.Pad)
	binary.LittleEndian.PutUint64(b[14:22], h.OriginalSize)
	binary.LittleEndian.PutUint64(b[22:30], h.FrameCount)
	binary.LittleEndian.PutUint16(b[30:32], h.ILDepth)
	binary.LittleEndian.PutUint16(b[32:34], h.SliceBytes)
	// reserved zeros at b[34:36]
	return b
}

// UnmarshalBinary decodes b into h, validating the magic only; callers
// validate version/geometry separately since those are policy, not wire
// framing.
func (h *GlobalHeader) UnmarshalBinary(b []byte) error {
	if len(b) < GlobalHeaderLen {
		return ErrShortHeader
	}
	if binary.LittleEndian.Uint32(b[0:4]) != GlobalMagic {
		return ErrBadMagic
	}
	h.Version = binary.LittleEndian.Uint16(b[4:6])
	h.K = binary.LittleEndian.Uint16(b[6:8])
	h.R = binary.LittleEndian.Uint16(b[8:10])
	h.ShardLen = binary.LittleEndian.Uint16(b[10:12])
	h.Pad = binary.LittleEndian.Uint16(b[12:14])
	h.OriginalSize = binary.LittleEndian.Uint64(b[14:22])
	h.FrameCount = binary.LittleEndian.Uint64(b[22:30])
	h.ILDepth = binary.LittleEndian.Uint16(b[30:32])
	h.SliceBytes = binary.LittleEndian.Uint16(b[32:34])
	return nil
}

// Validate checks the fields that make a global header usable: version 4,
// the fixed k/shard_len geometry, and r in [1,MaxR].
func (h *GlobalHeader) Validate() error {
	if h.Version != 4 {
		return fmt.Errorf("%w: got %d", ErrBadVersion, h.Version)
	}
	if h.K != KShards || h.ShardLen != ShardLen {
		return fmt.Errorf("%w: k=%d shard_len=%d", ErrBadGeometry, h.K, h.ShardLen)
	}
	if h.R == 0 || int(h.R) > MaxR {
		return fmt.Errorf("rscontainer: r=%d out of range [1,%d]", h.R, MaxR)
	}
	return nil
}

// FrameHeader is the 24-byte record preceding a frame's slices.
type FrameHeader struct {
	Index      uint64
	DataLen    uint16
	ParityLen  uint16
	CRC32Data  uint32
	CRC32Par   uint32
}

// FrameHeaderLen is the packed on-disk size of FrameHeader (magic included).
const FrameHeaderLen = 4 + 8 + 2 + 2 + 4 + 4

func (h *FrameHeader) MarshalBinary() []byte {
	b := make([]byte, FrameHeaderLen)
	binary.LittleEndian.PutUint32(b[0:4], FrameMagic)
	binary.LittleEndian.PutUint64(b[4:12], h.Index)
	binary.LittleEndian.PutUint16(b[12:14], h.DataLen)
	binary.LittleEndian.PutUint16(b[14:16], h.ParityLen)
	binary.LittleEndian.PutUint32(b[16:20], h.CRC32Data)
	binary.LittleEndian.PutUint32(b[20:24], h.CRC32Par)
	return b
}

// UnmarshalBinaryBody decodes the 20 bytes following the magic (the
// caller has already consumed and matched the 4-byte magic while
// resynchronizing).
func (h *FrameHeader) UnmarshalBinaryBody(b []byte) error {
	if len(b) < FrameHeaderLen-4 {
		return ErrShortHeader
	}
	h.Index = binary.LittleEndian.Uint64(b[0:8])
	h.DataLen = binary.LittleEndian.Uint16(b[8:10])
	h.ParityLen = binary.LittleEndian.Uint16(b[10:12])
	h.CRC32Data = binary.LittleEndian.Uint32(b[12:16])
	h.CRC32Par = binary.LittleEndian.Uint32(b[16:20])
	return nil
}

// SliceHeader is the 22-byte record preceding a slice's payload bytes.
type SliceHeader struct {
	FrameIndex uint64
	Offset     uint32
	Size       uint16
	CRC32Slice uint32
}

// SliceHeaderLen is the packed on-disk size of SliceHeader (magic included).
const SliceHeaderLen = 4 + 8 + 4 + 2 + 4

func (h *SliceHeader) MarshalBinary() []byte {
	b := make([]byte, SliceHeaderLen)
	binary.LittleEndian.PutUint32(b[0:4], SliceMagic)
	binary.LittleEndian.PutUint64(b[4:12], h.FrameIndex)
	binary.LittleEndian.PutUint32(b[12:16], h.Offset)
	binary.LittleEndian.PutUint16(b[16:18], h.Size)
	binary.LittleEndian.PutUint32(b[18:22], h.CRC32Slice)
	return b
}

// UnmarshalBinaryBody decodes the 18 bytes following the magic.
func (h *SliceHeader) UnmarshalBinaryBody(b []byte) error {
	if len(b) < SliceHeaderLen-4 {
		return ErrShortHeader
	}
	h.FrameIndex = binary.LittleEndian.Uint64(b[0:8])
	h.Offset = binary.LittleEndian.Uint32(b[8:12])
	h.Size = binary.LittleEndian.Uint16(b[12:14])
	h.CRC32Slice = binary.LittleEndian.Uint32(b[14:18])
	return nil
}

// ComputePad returns 255-(KShards+r), the virtual shortening count for a
// given parity width.
func ComputePad(r int) int {
	return 255 - (KShards + r)
}

// PayloadLen returns the byte length of one frame's virtual payload
// (data || parity || per-data-shard CRC-16 table || per-parity-shard
// CRC-16 table).
func PayloadLen(r int) int {
	return FrameBytes + r*ShardLen + KShards*2 + r*2
}
