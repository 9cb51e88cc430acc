// Package unwrap implements the bit-unwrap decoder: it scans a
// bit-wrapped file for a start sentinel, streams payload bits to output
// while watching for the end sentinel, and strips both sentinels plus
// any dummy padding.
package unwrap

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/hub10com/rscontainer/bitio"
	"github.com/hub10com/rscontainer/bitkmp"
)

// Legacy integer result codes, preserved from the original DLL interface.
const (
	CodeOK             = 0
	CodeInputOpen      = -1
	CodeOutputOpen     = -2
	CodeInvalidPattern = -3
	CodeNoMatch        = -4
	CodeFault          = -99
)

var (
	// ErrInputOpen is returned when the input file cannot be opened.
	ErrInputOpen = errors.New("unwrap: cannot open input")
	// ErrOutputOpen is returned when the output file cannot be opened.
	ErrOutputOpen = errors.New("unwrap: cannot open output")
	// ErrInvalidPattern is returned for an empty or non-binary sentinel.
	ErrInvalidPattern = errors.New("unwrap: start/end patterns must be non-empty '0'/'1' strings")
	// ErrNoMatch is returned when the input stream ends before a
	// sentinel pattern is matched.
	ErrNoMatch = errors.New("unwrap: sentinel pattern not found before EOF")
)

// Code maps an unwrap error back to its legacy integer result code.
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
	case errors.Is(err, ErrNoMatch):
		return CodeNoMatch
	default:
		return CodeFault
	}
}

// lastStartFlagPos and lastEndFlagPos mirror the original codec's
// process-wide diagnostic globals (g_last_start_flag_pos /
// g_last_end_flag_pos), reset at the start of every File call.
var (
	lastStartFlagPos uint64
	lastEndFlagPos   uint64
)

// LastStartFlagPos returns the 1-based bit position at which the start
// sentinel began in the most recently completed File call.
func LastStartFlagPos() uint64 { return atomic.LoadUint64(&lastStartFlagPos) }

// LastEndFlagPos returns the 1-based bit position at which the end
// sentinel began in the most recently completed File call.
func LastEndFlagPos() uint64 { return atomic.LoadUint64(&lastEndFlagPos) }

func parseBitstring(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrInvalidPattern
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

// File extracts the payload framed between startPattern and endPattern
// in inPath's bit sequence and writes it to outPath. The payload ends at
// the first occurrence of endPattern after the start match, so a payload
// whose own bits contain endPattern is cut short at that point.
func File(inPath, outPath, startPattern, endPattern string) error {
	atomic.StoreUint64(&lastStartFlagPos, 0)
	atomic.StoreUint64(&lastEndFlagPos, 0)

	startBits, err := parseBitstring(startPattern)
	if err != nil {
		return err
	}
	endBits, err := parseBitstring(endPattern)
	if err != nil {
		return err
	}

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

	kmpStart := bitkmp.New(startBits)
	kmpEnd := bitkmp.New(endBits)

	br := bitio.NewReader(in)
	bw := bitio.NewWriter(out)

	var bitIndex uint64
	found := false
	for {
		bit := br.NextBit()
		if bit < 0 {
			break
		}
		bitIndex++
		if kmpStart.Feed(byte(bit)) {
			atomic.StoreUint64(&lastStartFlagPos, bitIndex-uint64(kmpStart.Len())+1)
			found = true
			break
		}
	}
	if !found {
		return ErrNoMatch
	}

	lend := kmpEnd.Len()
	tail := make([]byte, 0, lend+1)

	found = false
	for {
		bit := br.NextBit()
		if bit < 0 {
			break
		}
		bitIndex++
		b := byte(bit)

		tail = append(tail, b)
		if kmpEnd.Feed(b) {
			atomic.StoreUint64(&lastEndFlagPos, bitIndex-uint64(lend)+1)
			if len(tail) >= lend {
				tail = tail[:len(tail)-lend]
			} else {
				tail = tail[:0]
			}
			found = true
			break
		}

		if len(tail) > lend {
			outBit := tail[0]
			tail = tail[1:]
			if err := bw.WriteBit(outBit); err != nil {
				return fmt.Errorf("unwrap: %w", err)
			}
		}
	}
	if !found {
		return ErrNoMatch
	}

	for _, b := range tail {
		if err := bw.WriteBit(b); err != nil {
			return fmt.Errorf("unwrap: %w", err)
		}
	}
	if err := bw.PadToByte(); err != nil {
		return fmt.Errorf("unwrap: %w", err)
	}
	return bw.Flush()
}
