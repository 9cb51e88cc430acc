// Package wrap implements the bit-wrap encoder: it frames a file's bit
// sequence between arbitrary start/end sentinel patterns, padding both
// sides with deterministic or OS-seeded dummy bits.
package wrap

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hub10com/rscontainer/bitio"
	"github.com/hub10com/rscontainer/mt64"
)

// Legacy integer result codes, preserved from the original DLL interface
// for cmd/bit-wrap's process exit code.
const (
	CodeOK            = 0
	CodeInputOpen     = -1
	CodeOutputOpen    = -2
	CodeInvalidPattern = -3
	CodeInvalidRatio  = -4
	CodeFault         = -99
)

var (
	// ErrInputOpen is returned when the input file cannot be opened.
	ErrInputOpen = errors.New("wrap: cannot open input")
	// ErrOutputOpen is returned when the output file cannot be opened.
	ErrOutputOpen = errors.New("wrap: cannot open output")
	// ErrInvalidPattern is returned for a non-binary sentinel string.
	ErrInvalidPattern = errors.New("wrap: pattern must contain only '0'/'1'")
	// ErrInvalidRatio is returned for a non-positive ratio divisor or
	// an empty/unreadable input in the ratio variant.
	ErrInvalidRatio = errors.New("wrap: invalid ratio divisor or input size")
)

// Code maps a wrap error back to its legacy integer result code.
func Code(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInputOpen):
		return CodeInputOpen
	case errors.Is(err, ErrOutputOpen):
		return CodeOutputOpen
	case errors.Is(err, ErrInvalidPattern):
		return CodeInvalidPattern
	case errors.Is(err, ErrInvalidRatio):
		return CodeInvalidRatio
	default:
		return CodeFault
	}
}

func parseBitstring(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
			out[i] = 0
		case '1':
			out[i] = 1
		default:
			return nil, ErrInvalidPattern
		}
	}
	return out, nil
}

// File wraps inPath's bit sequence with startPattern/endPattern and
// dummyLeft/dummyRight random bits, writing the result to outPath. A
// seed of 0 uses OS entropy; any other value seeds a deterministic
// Mersenne Twister generator.
func File(inPath, outPath, startPattern, endPattern string, dummyLeft, dummyRight uint64, seed uint32) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInputOpen, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputOpen, err)
	}
	defer out.Close()

	startBits, err := parseBitstring(startPattern)
	if err != nil {
		return err
	}
	endBits, err := parseBitstring(endPattern)
	if err != nil {
		return err
	}

	var rng *mt64.Rng
	if seed == 0 {
		rng = mt64.NewFromOSEntropy()
	} else {
		rng = mt64.New(uint64(seed))
	}

	bw := bitio.NewWriter(out)

	if err := writeDummyBits(bw, dummyLeft, rng); err != nil {
		return fmt.Errorf("wrap: %w", err)
	}
	if len(startBits) > 0 {
		if err := bw.WriteBits(startBits); err != nil {
			return fmt.Errorf("wrap: %w", err)
		}
	}

	chunk := make([]byte, 8<<20)
	for {
		n, rerr := in.Read(chunk)
		if n > 0 {
			if err := bw.WriteFullBytes(chunk[:n]); err != nil {
				return fmt.Errorf("wrap: %w", err)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fmt.Errorf("wrap: %w", rerr)
		}
	}

	if len(endBits) > 0 {
		if err := bw.WriteBits(endBits); err != nil {
			return fmt.Errorf("wrap: %w", err)
		}
	}
	if err := writeDummyBits(bw, dummyRight, rng); err != nil {
		return fmt.Errorf("wrap: %w", err)
	}
	if err := bw.PadToByte(); err != nil {
		return fmt.Errorf("wrap: %w", err)
	}
	return bw.Flush()
}

// FileRatio computes dummy_left = dummy_right = floor(8*size(in) /
// (2*ratioDivisor)) and delegates to File.
func FileRatio(inPath, outPath, startPattern, endPattern string, ratioDivisor float64, seed uint32) error {
	if ratioDivisor <= 0 {
		return ErrInvalidRatio
	}
	fi, err := os.Stat(inPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInputOpen, err)
	}
	size := fi.Size()
	if size <= 0 {
		return ErrInvalidRatio
	}
	nBits := float64(size) * 8
	dummyEach := uint64(nBits / (2 * ratioDivisor))
	return File(inPath, outPath, startPattern, endPattern, dummyEach, dummyEach, seed)
}

func writeDummyBits(bw *bitio.Writer, nbits uint64, rng *mt64.Rng) error {
	if nbits == 0 {
		return nil
	}
	fullBytes := nbits / 8
	tailBits := nbits % 8

	const bufSize = 1 << 20
	tmp := make([]byte, bufSize)
	for fullBytes > 0 {
		n := bufSize
		if uint64(n) > fullBytes {
			n = int(fullBytes)
		}
		for i := 0; i < n; i++ {
			tmp[i] = rng.Byte()
		}
		if err := bw.WriteFullBytes(tmp[:n]); err != nil {
			return err
		}
		fullBytes -= uint64(n)
	}
	if tailBits > 0 {
		last := rng.Byte()
		for b := 7; b >= 8-int(tailBits); b-- {
			if err := bw.WriteBit((last >> uint(b)) & 1); err != nil {
				return err
			}
		}
	}
	return nil
}
