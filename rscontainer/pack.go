package rscontainer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/hub10com/rscontainer/crc"
	"github.com/hub10com/rscontainer/rscodec"
)

// Sentinel errors for the pack stages, preserved from the original
// encoder's negative-code taxonomy (§7 of the format spec) so a CLI
// layer can still map failures back to a legacy exit code via PackCode.
var (
	ErrPackRSInit      = errors.New("rscontainer: rs codec init failed")
	ErrPackInputOpen   = errors.New("rscontainer: cannot open input")
	ErrPackOutputOpen  = errors.New("rscontainer: cannot open output")
	ErrPackStatInput   = errors.New("rscontainer: cannot stat input")
	ErrPackWriteHeader = errors.New("rscontainer: cannot write header")
	ErrPackEncode      = errors.New("rscontainer: frame encode failed")
	ErrPackWriteFrame  = errors.New("rscontainer: cannot write frame")
	ErrPackWriteSlice  = errors.New("rscontainer: cannot write slice")
	ErrCanceled        = errors.New("rscontainer: canceled")
)

// PackCode maps a Pack/PackEx error back to the legacy integer result
// code (0 ok, negative error, 1 canceled).
func PackCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrCanceled):
		return 1
	case errors.Is(err, ErrPackRSInit):
		return -1
	case errors.Is(err, ErrPackInputOpen):
		return -2
	case errors.Is(err, ErrPackOutputOpen):
		return -3
	case errors.Is(err, ErrPackStatInput):
		return -4
	case errors.Is(err, ErrPackWriteHeader):
		return -5
	case errors.Is(err, ErrPackEncode):
		return -8
	case errors.Is(err, ErrPackWriteFrame):
		return -9
	case errors.Is(err, ErrPackWriteSlice):
		return -11
	default:
		return -101
	}
}

// Pack encodes inputPath into a v4 container at outputPath using r
// parity shards per frame, with compiled-in interleave/slice defaults
// (matching rs_pack_container's call graph onto pack_impl).
func Pack(inputPath, outputPath string, r int) error {
	return PackEx(inputPath, outputPath, r, ILDepthDefault, SliceBytesDefault)
}

// PackEx is Pack with explicit interleave depth and slice size.
func PackEx(inputPath, outputPath string, r, ilDepth, sliceBytes int) error {
	if r <= 0 || r > MaxR {
		r = 16
	}
	if ilDepth <= 0 {
		ilDepth = ILDepthDefault
	}
	if sliceBytes <= 0 {
		sliceBytes = SliceBytesDefault
	}

	pad := ComputePad(r)
	if pad < 0 {
		return fmt.Errorf("%w: r=%d leaves negative pad", ErrPackRSInit, r)
	}

	codec, err := rscodec.New(KShards, r, pad)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPackRSInit, err)
	}

	fin, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPackInputOpen, err)
	}
	defer fin.Close()

	fout, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPackOutputOpen, err)
	}
	defer fout.Close()

	fi, err := fin.Stat()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPackStatInput, err)
	}
	orig := uint64(fi.Size())
	frames := (orig + FrameBytes - 1) / FrameBytes

	gh := GlobalHeader{
		Version:      4,
		K:            KShards,
		R:            uint16(r),
		ShardLen:     ShardLen,
		Pad:          uint16(pad),
		OriginalSize: orig,
		FrameCount:   frames,
		ILDepth:      uint16(ilDepth),
		SliceBytes:   uint16(sliceBytes),
	}
	if _, err := fout.Write(gh.MarshalBinary()); err != nil {
		return fmt.Errorf("%w: %v", ErrPackWriteHeader, err)
	}

	pay := PayloadLen(r)
	slicesPerFrame := uint64((pay + sliceBytes - 1) / sliceBytes)
	totalSlices := frames * slicesPerFrame
	var doneSlices uint64

	type encodedFrame struct {
		data []byte
		par  []byte
		crcD []uint16
		crcP []uint16
		hdr  FrameHeader
	}

	var fbase uint64
	for fbase < frames {
		if canceled() {
			return ErrCanceled
		}

		inGrp := frames - fbase
		if inGrp > uint64(ilDepth) {
			inGrp = uint64(ilDepth)
		}
		logMilestone("rscontainer: interleave group frames [%d,%d) encoding", fbase, fbase+inGrp)

		group := make([]*encodedFrame, inGrp)
		g := new(errgroup.Group)
		for gi := uint64(0); gi < inGrp; gi++ {
			gi := gi
			fidx := fbase + gi
			g.Go(func() error {
				ef := &encodedFrame{
					data: make([]byte, FrameBytes),
					par:  make([]byte, r*ShardLen),
					crcD: make([]uint16, KShards),
					crcP: make([]uint16, r),
				}
				toRead := FrameBytes
				if fidx == frames-1 {
					remain := orig - fidx*uint64(FrameBytes)
					if remain < uint64(FrameBytes) {
						toRead = int(remain)
					}
				}
				// Each group member reads its own frame's window of the
				// input independently, since frames are processed
				// concurrently within a group.
				sec := io.NewSectionReader(fin, int64(fidx)*int64(FrameBytes), int64(toRead))
				got, rerr := io.ReadFull(sec, ef.data[:toRead])
				if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
					return fmt.Errorf("%w: %v", ErrPackEncode, rerr)
				}
				_ = got

				if err := encodeFrameParity(codec, ef.data, r, ef.par); err != nil {
					return fmt.Errorf("%w: %v", ErrPackEncode, err)
				}
				for j := 0; j < KShards; j++ {
					ef.crcD[j] = crc.CRC16CCITT(ef.data[j*ShardLen : (j+1)*ShardLen])
				}
				for j := 0; j < r; j++ {
					ef.crcP[j] = crc.CRC16CCITT(ef.par[j*ShardLen : (j+1)*ShardLen])
				}
				ef.hdr = FrameHeader{
					Index:     fidx,
					DataLen:   uint16(toRead),
					ParityLen: uint16(r * ShardLen),
					CRC32Data: crc.CRC32(ef.data),
					CRC32Par:  crc.CRC32(ef.par),
				}
				group[gi] = ef
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		mx := currentMetrics()
		for _, ef := range group {
			if _, err := fout.Write(ef.hdr.MarshalBinary()); err != nil {
				return fmt.Errorf("%w: %v", ErrPackWriteFrame, err)
			}
			mx.ObservePackFrame()
			logMilestone("rscontainer: packed frame %d (data=%d parity=%d)", ef.hdr.Index, ef.hdr.DataLen, ef.hdr.ParityLen)
		}

		parBytes := r * ShardLen
		crcDBytes := KShards * 2
		crcPBytes := r * 2

		for off := 0; off < pay; off += sliceBytes {
			if canceled() {
				return ErrCanceled
			}
			chunk := sliceBytes
			if off+chunk > pay {
				chunk = pay - off
			}

			for gi := 0; gi < int(inGrp); gi++ {
				ef := group[gi]
				buf := make([]byte, chunk)
				copyVirtualPayload(buf, off, ef.data, ef.par, ef.crcD, ef.crcP, parBytes, crcDBytes, crcPBytes)

				sh := SliceHeader{
					FrameIndex: ef.hdr.Index,
					Offset:     uint32(off),
					Size:       uint16(chunk),
					CRC32Slice: crc.CRC32(buf),
				}
				if _, err := fout.Write(sh.MarshalBinary()); err != nil {
					return fmt.Errorf("%w: %v", ErrPackWriteSlice, err)
				}
				if _, err := fout.Write(buf); err != nil {
					return fmt.Errorf("%w: %v", ErrPackWriteSlice, err)
				}
				doneSlices++
				reportProgress(doneSlices, totalSlices)
			}
		}

		fbase += inGrp
	}

	return nil
}

// encodeFrameParity performs the column-wise RS encode described in
// spec.md §4.7 step 1: for each in-shard offset i, the codeword is the k
// data bytes at that offset across all shards, plus the r parity bytes
// the codec computes for it.
func encodeFrameParity(codec *rscodec.Codec, frame []byte, r int, parOut []byte) error {
	cw := make([]byte, KShards+r)
	parity := make([]byte, r)
	for i := 0; i < ShardLen; i++ {
		for j := 0; j < KShards; j++ {
			cw[j] = frame[j*ShardLen+i]
		}
		if err := codec.Encode(cw[:KShards], parity); err != nil {
			return err
		}
		for j := 0; j < r; j++ {
			parOut[j*ShardLen+i] = parity[j]
		}
	}
	return nil
}

// copyVirtualPayload gathers [off, off+len(dst)) of the virtual frame
// payload (data || parity || crcD table || crcP table) into dst,
// matching copy_slice_into_frame's region arithmetic in reverse.
func copyVirtualPayload(dst []byte, off int, data, par []byte, crcD, crcP []uint16, parBytes, crcDBytes, crcPBytes int) {
	copied := 0
	need := len(dst)

	if off < FrameBytes {
		m := FrameBytes - off
		take := min(need-copied, m)
		copy(dst[copied:copied+take], data[off:off+take])
		copied += take
	}
	base := FrameBytes
	if off+copied < base+parBytes && copied < need {
		if off+copied >= base {
			soff := off + copied - base
			m := parBytes - soff
			take := min(need-copied, m)
			copy(dst[copied:copied+take], par[soff:soff+take])
			copied += take
		}
	}
	base = FrameBytes + parBytes
	if off+copied < base+crcDBytes && copied < need {
		if off+copied >= base {
			soff := off + copied - base
			m := crcDBytes - soff
			take := min(need-copied, m)
			copy(dst[copied:copied+take], crc16TableBytes(crcD)[soff:soff+take])
			copied += take
		}
	}
	base = FrameBytes + parBytes + crcDBytes
	if copied < need {
		if off+copied >= base {
			soff := off + copied - base
			m := crcPBytes - soff
			take := min(need-copied, m)
			copy(dst[copied:copied+take], crc16TableBytes(crcP)[soff:soff+take])
			copied += take
		}
	}
}

// crc16TableBytes views a little-endian uint16 CRC table as bytes, the
// same in-memory layout the original's uint8_t* aliasing relies on.
func crc16TableBytes(tab []uint16) []byte {
	out := make([]byte, len(tab)*2)
	for i, v := range tab {
		out[2*i] = byte(v)
		out[2*i+1] = byte(v >> 8)
	}
	return out
}
