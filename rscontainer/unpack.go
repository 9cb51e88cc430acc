package rscontainer

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hub10com/rscontainer/crc"
	"github.com/hub10com/rscontainer/rscodec"
)

// Sentinel errors for the unpack stages, mirroring rs_unpack_internal's
// negative-code taxonomy.
var (
	ErrUnpackInputOpen  = errors.New("rscontainer: cannot open input")
	ErrUnpackOutputOpen = errors.New("rscontainer: cannot open output")
	ErrUnpackHeader     = errors.New("rscontainer: bad or missing global header")
	ErrUnpackRSInit     = errors.New("rscontainer: rs codec init failed")
)

// UnpackCode maps an Unpack/UnpackEx error back to a legacy integer
// result code.
func UnpackCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrCanceled):
		return 1
	case errors.Is(err, ErrUnpackInputOpen):
		return -2
	case errors.Is(err, ErrUnpackOutputOpen):
		return -3
	case errors.Is(err, ErrUnpackHeader):
		return -6
	case errors.Is(err, ErrUnpackRSInit):
		return -1
	default:
		return -101
	}
}

type frameBuf struct {
	hasHeader    bool
	hdr          FrameHeader
	dataLenKnown bool   // hdr.DataLen holds a real value, from a header or a lazy slice-time guess
	data         []byte // FrameBytes
	par          []byte // r*ShardLen
	crcD         []byte // KShards*2, little-endian CRC-16 table
	crcP         []byte // r*2, little-endian CRC-16 table
	covered      []bool // len == PayloadLen(r), true where a slice byte landed
}

func newFrameBuf(r int) *frameBuf {
	return &frameBuf{
		data:    make([]byte, FrameBytes),
		par:     make([]byte, r*ShardLen),
		crcD:    make([]byte, KShards*2),
		crcP:    make([]byte, r*2),
		covered: make([]bool, PayloadLen(r)),
	}
}

// Unpack decodes a v4 container at inputPath back to outputPath, using
// PadRaw for any column RS cannot correct.
func Unpack(inputPath, outputPath string) (Stats, error) {
	return UnpackEx(inputPath, outputPath, PadRaw)
}

// UnpackEx is Unpack with an explicit pad policy for uncorrectable columns.
func UnpackEx(inputPath, outputPath string, padMode PadMode) (Stats, error) {
	var stats Stats
	stats.PadModeUsed = padMode

	fin, err := os.Open(inputPath)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnpackInputOpen, err)
	}
	defer fin.Close()

	fout, err := os.Create(outputPath)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnpackOutputOpen, err)
	}
	defer fout.Close()

	br := bufio.NewReaderSize(fin, 1<<20)

	ghBytes := make([]byte, GlobalHeaderLen)
	if _, err := io.ReadFull(br, ghBytes); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnpackHeader, err)
	}
	var gh GlobalHeader
	if err := gh.UnmarshalBinary(ghBytes); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnpackHeader, err)
	}
	if err := gh.Validate(); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnpackHeader, err)
	}

	r := int(gh.R)
	pad := int(gh.Pad)
	codec, err := rscodec.New(KShards, r, pad)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrUnpackRSInit, err)
	}

	pay := PayloadLen(r)
	parBytes := r * ShardLen
	crcDOff := FrameBytes + parBytes
	crcDBytes := KShards * 2
	crcPOff := FrameBytes + parBytes + crcDBytes
	crcPBytes := r * 2

	frames := make(map[uint64]*frameBuf)
	getFrame := func(idx uint64) *frameBuf {
		fb := frames[idx]
		if fb == nil {
			fb = newFrameBuf(r)
			frames[idx] = fb
		}
		return fb
	}

	stats.FramesTotal = gh.FrameCount
	if gh.SliceBytes > 0 {
		slicesPerFrame := uint64((pay + int(gh.SliceBytes) - 1) / int(gh.SliceBytes))
		stats.SlicesTotalEst = gh.FrameCount * slicesPerFrame
	}

	var wasCanceled bool
	var doneSlices uint64
	scanPos := int64(GlobalHeaderLen)

	magicBuf := make([]byte, 4)
scan:
	for {
		if canceled() {
			wasCanceled = true
			break scan
		}
		peek, perr := br.Peek(4)
		if perr != nil {
			break scan
		}
		copy(magicBuf, peek)
		magic := binary.LittleEndian.Uint32(magicBuf)

		switch magic {
		case FrameMagic:
			if _, err := br.Discard(4); err != nil {
				break scan
			}
			body := make([]byte, FrameHeaderLen-4)
			if _, err := io.ReadFull(br, body); err != nil {
				break scan
			}
			var fh FrameHeader
			if err := fh.UnmarshalBinaryBody(body); err != nil {
				continue scan
			}
			fb := getFrame(fh.Index)
			fb.hasHeader = true
			fb.hdr = fh
			fb.dataLenKnown = true
			scanPos += int64(FrameHeaderLen)
			logMilestone("rscontainer: frame header %d at offset %d", fh.Index, scanPos)

		case SliceMagic:
			if _, err := br.Discard(4); err != nil {
				break scan
			}
			body := make([]byte, SliceHeaderLen-4)
			if _, err := io.ReadFull(br, body); err != nil {
				break scan
			}
			var sh SliceHeader
			if err := sh.UnmarshalBinaryBody(body); err != nil {
				continue scan
			}
			payload := make([]byte, sh.Size)
			if _, err := io.ReadFull(br, payload); err != nil {
				break scan
			}
			scanPos += int64(SliceHeaderLen) + int64(sh.Size)
			if crc.CRC32(payload) != sh.CRC32Slice {
				stats.SlicesBad++
				continue scan
			}
			stats.SlicesOK++
			doneSlices++
			reportProgress(doneSlices, stats.SlicesTotalEst)
			fb := getFrame(sh.FrameIndex)
			if !fb.hasHeader && !fb.dataLenKnown {
				// No header has been seen for this frame yet: guess its
				// data_len the way rs_unpack_internal does on first
				// slice-touch, good enough to drive the trailing/boundary
				// erasure rule until (if ever) a real header arrives and
				// overwrites it.
				if sh.FrameIndex == gh.FrameCount-1 {
					lastBytes := gh.OriginalSize - (gh.FrameCount-1)*uint64(FrameBytes)
					if lastBytes > uint64(FrameBytes) {
						lastBytes = uint64(FrameBytes)
					}
					fb.hdr.DataLen = uint16(lastBytes)
				} else {
					fb.hdr.DataLen = uint16(FrameBytes)
				}
				fb.dataLenKnown = true
			}
			scatterVirtualPayload(fb, int(sh.Offset), payload, parBytes, crcDOff, crcDBytes, crcPOff, crcPBytes)

		default:
			// resync: slide the window forward one byte, libfec-style.
			if _, err := br.Discard(1); err != nil {
				break scan
			}
			scanPos++
			logMilestone("rscontainer: resync: unrecognized magic %#x near offset %d, sliding window", magic, scanPos)
		}
	}

	var prevData []byte
	written := uint64(0)
	var residualBadBytes float64
	cw := make([]byte, KShards+r)

	for idx := uint64(0); idx < gh.FrameCount; idx++ {
		if canceled() {
			wasCanceled = true
			break
		}

		outLen := FrameBytes
		if idx == gh.FrameCount-1 {
			remain := gh.OriginalSize - written
			if remain < uint64(FrameBytes) {
				outLen = int(remain)
			}
		}

		fb := frames[idx]
		if fb == nil {
			// Frame never received a header nor a single slice: emit the
			// zero-fill directly, matching rs_unpack_internal's !fb->init
			// short-circuit, and never touch the codeword/erasure/
			// correction counters for it.
			zero := make([]byte, outLen)
			if _, err := fout.Write(zero); err != nil {
				return stats, fmt.Errorf("rscontainer: write output: %v", err)
			}
			written += uint64(outLen)
			prevData = make([]byte, FrameBytes)
			logMilestone("rscontainer: frame %d never touched, zero-filled", idx)
			continue
		}

		erasures := deriveErasures(fb, r, codec, crcDOff, crcDBytes, crcPOff, crcPBytes)
		if len(erasures) > r {
			erasures = truncateErasures(erasures, r)
		}

		stats.CodewordsTotal += ShardLen
		stats.SymbolsTotal += uint64(ShardLen * (KShards + r))
		stats.DataSymbolsTotal += uint64(ShardLen * KShards)

		if len(erasures) > 0 {
			stats.UsedErasuresCols += ShardLen
		}

		for i := 0; i < ShardLen; i++ {
			for j := 0; j < KShards; j++ {
				cw[j] = fb.data[j*ShardLen+i]
			}
			for j := 0; j < r; j++ {
				cw[KShards+j] = fb.par[j*ShardLen+i]
			}
			n, derr := codec.Decode(cw, erasures, len(erasures))
			if derr != nil || n < 0 {
				stats.RSFailColumns++
				applyPadPolicy(fb, i, erasures, padMode, prevData, r)
				continue
			}
			stats.CorrectedSymbols += uint64(n)
			for j := 0; j < KShards; j++ {
				fb.data[j*ShardLen+i] = cw[j]
			}
			for j := 0; j < r; j++ {
				fb.par[j*ShardLen+i] = cw[KShards+j]
			}
		}

		if _, err := fout.Write(fb.data[:outLen]); err != nil {
			return stats, fmt.Errorf("rscontainer: write output: %v", err)
		}
		written += uint64(outLen)

		// Residual-BER bookkeeping: for each data shard whose CRC-16 table
		// entry was actually received, recheck it against the post-decode
		// bytes. A shard that still mismatches contributes shardLen*
		// residualCoeff bad-byte-equivalents, the same accounting
		// rs_unpack_internal does after its own decode pass.
		for j := 0; j < KShards; j++ {
			if !shardCovered(fb.covered, crcDOff+j*2, 2) {
				continue
			}
			base := j * ShardLen
			want := binary.LittleEndian.Uint16(fb.crcD[j*2 : j*2+2])
			got := crc.CRC16CCITT(fb.data[base : base+ShardLen])
			if got != want {
				residualBadBytes += float64(ShardLen) * residualCoeff()
			}
		}

		prevData = fb.data
		logMilestone("rscontainer: frame %d decoded (erasures=%d fail_columns=%d)", idx, len(erasures), stats.RSFailColumns)
	}

	stats.BerEst = clampUnit(residualBadBytesRatio(residualBadBytes, written))
	currentMetrics().ObserveStats(stats)
	if wasCanceled {
		return stats, fmt.Errorf("%w: unpack stopped early", ErrCanceled)
	}
	return stats, nil
}

// scatterVirtualPayload is copyVirtualPayload's inverse: it writes
// payload's bytes, which cover the virtual-frame range
// [off, off+len(payload)), into fb's data/parity regions and marks
// those bytes covered.
func scatterVirtualPayload(fb *frameBuf, off int, payload []byte, parBytes, crcDOff, crcDBytes, crcPOff, crcPBytes int) {
	for k, b := range payload {
		pos := off + k
		if pos < len(fb.covered) {
			fb.covered[pos] = true
		}
		switch {
		case pos < FrameBytes:
			fb.data[pos] = b
		case pos < FrameBytes+parBytes:
			fb.par[pos-FrameBytes] = b
		case pos >= crcDOff && pos < crcDOff+crcDBytes:
			fb.crcD[pos-crcDOff] = b
		case pos >= crcPOff && pos < crcPOff+crcPBytes:
			fb.crcP[pos-crcPOff] = b
		}
	}
}

// deriveErasures decides which of the K+r shards in frame fb should be
// treated as erased for this column decode: the trailing/boundary data
// shards implied by a short data_len, shards whose data/parity bytes
// were never fully covered by a received slice, and shards whose
// received bytes came through but fail their own CRC-16. Data shards
// are listed before parity shards, matching the container's codeword
// layout.
func deriveErasures(fb *frameBuf, r int, _ *rscodec.Codec, crcDOff, crcDBytes, crcPOff, crcPBytes int) []int {
	dataErased := make([]bool, KShards)
	parErased := make([]bool, r)

	// A frame whose data_len doesn't fill all 192 shards has no real
	// bytes past data_len: the trailing k-ceil(data_len/64) shards are
	// erasures, plus the single boundary shard floor(data_len/64) when
	// data_len isn't a multiple of 64.
	dlen := int(fb.hdr.DataLen)
	if dlen > FrameBytes {
		dlen = FrameBytes
	}
	if dlen < FrameBytes {
		full := dlen / ShardLen
		rem := dlen % ShardLen
		cutoff := full
		if rem != 0 {
			cutoff++
		}
		for j := cutoff; j < KShards; j++ {
			dataErased[j] = true
		}
		if rem != 0 {
			dataErased[full] = true
		}
	}

	for j := 0; j < KShards; j++ {
		base := j * ShardLen
		if !shardCovered(fb.covered, base, ShardLen) {
			dataErased[j] = true
			continue
		}
		if shardCovered(fb.covered, crcDOff+j*2, 2) {
			want := binary.LittleEndian.Uint16(fb.crcD[j*2 : j*2+2])
			got := crc.CRC16CCITT(fb.data[base : base+ShardLen])
			if got != want {
				dataErased[j] = true
			}
		}
	}
	for j := 0; j < r; j++ {
		base := j * ShardLen
		if !shardCovered(fb.covered, FrameBytes+base, ShardLen) {
			parErased[j] = true
			continue
		}
		if shardCovered(fb.covered, crcPOff+j*2, 2) {
			want := binary.LittleEndian.Uint16(fb.crcP[j*2 : j*2+2])
			got := crc.CRC16CCITT(fb.par[base : base+ShardLen])
			if got != want {
				parErased[j] = true
			}
		}
	}

	var erasures []int
	for j, bad := range dataErased {
		if bad {
			erasures = append(erasures, j)
		}
	}
	for j, bad := range parErased {
		if bad {
			erasures = append(erasures, KShards+j)
		}
	}
	return erasures
}

// shardCovered reports whether every byte in covered[base:base+length] was
// marked received by scatterVirtualPayload.
func shardCovered(covered []bool, base, length int) bool {
	for i := 0; i < length; i++ {
		if base+i >= len(covered) || !covered[base+i] {
			return false
		}
	}
	return true
}

// truncateErasures drops parity-shard erasures first (parity is only
// needed to recover data, never the other way around) until the count
// fits the r-erasure correction budget.
func truncateErasures(erasures []int, r int) []int {
	var data, parity []int
	for _, e := range erasures {
		if e < KShards {
			data = append(data, e)
		} else {
			parity = append(parity, e)
		}
	}
	out := append([]int{}, data...)
	budget := r - len(out)
	for _, e := range parity {
		if budget <= 0 {
			break
		}
		out = append(out, e)
		budget--
	}
	if len(out) > r {
		out = out[:r]
	}
	return out
}

// applyPadPolicy fills the data portion of column i for shards listed in
// erasures once RS decode has failed outright for that column.
func applyPadPolicy(fb *frameBuf, col int, erasures []int, mode PadMode, prevData []byte, r int) {
	for _, e := range erasures {
		if e >= KShards {
			continue // parity shards aren't emitted to output
		}
		pos := e*ShardLen + col
		switch mode {
		case PadRaw:
			// leave whatever bytes are already present untouched
		case PadZero:
			fb.data[pos] = 0
		case PadTemporal:
			if prevData != nil && pos < len(prevData) {
				fb.data[pos] = prevData[pos]
			} else {
				fb.data[pos] = 0
			}
		}
	}
	_ = r
}

// residualBadBytesRatio turns the accumulated residual-bad-byte estimate
// into a fraction of the total bytes written, matching
// rs_unpack_internal's final residual_bad_bytes_est/total_written_bytes
// division.
func residualBadBytesRatio(residualBadBytes float64, written uint64) float64 {
	if written == 0 {
		return 0
	}
	return residualBadBytes / float64(written)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
