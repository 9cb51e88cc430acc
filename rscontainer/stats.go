package rscontainer

import (
	"log"
	"math"
	"sync/atomic"
)

// Stats is the statistics record produced by an Unpack/UnpackEx run,
// mirroring rs_stats_v1_t from the original decoder.
type Stats struct {
	FramesTotal       uint64
	SlicesTotalEst    uint64
	SlicesOK          uint64
	SlicesBad         uint64
	CodewordsTotal    uint64
	SymbolsTotal      uint64
	DataSymbolsTotal  uint64
	CorrectedSymbols  uint64
	UsedErasuresCols  uint64
	RSFailColumns     uint64
	PadModeUsed       PadMode
	BerEst            float64
}

// PadMode selects the policy applied to a column whose RS decode fails.
type PadMode int

const (
	PadRaw      PadMode = 0
	PadZero     PadMode = 1
	PadTemporal PadMode = 2
)

// Process-wide state, matching spec.md §5/§9: CRC tables are lazily
// initialized elsewhere (package crc); what's left here are the atomics
// a host uses to drive a long-running pack/unpack call: the progress
// callback, the cancellation flag, and the residual BER coefficient.
var (
	residualCoeffBits uint64 // float64 bits, default 0.40
	cancelFlag        int32
	progressCB        atomic.Value // stores progressFunc
	metricsHook       atomic.Value // stores *Metrics
)

// SetMetrics installs the Metrics a host wants Pack/PackEx and
// Unpack/UnpackEx to report into. Pass nil to clear it.
func SetMetrics(m *Metrics) {
	metricsHook.Store(metricsBox{m})
}

type metricsBox struct{ m *Metrics }

func currentMetrics() *Metrics {
	v := metricsHook.Load()
	if v == nil {
		return nil
	}
	return v.(metricsBox).m
}

type progressFunc func(done, total uint64)

func init() {
	SetResidualCoeff(0.40)
}

// SetResidualCoeff sets the fraction of a shard's bytes assumed still bad
// after decode when its CRC-16 still mismatches, clamped to [0,1] exactly
// as rs_set_residual_coeff does.
func SetResidualCoeff(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	atomic.StoreUint64(&residualCoeffBits, math.Float64bits(v))
}

func residualCoeff() float64 {
	return math.Float64frombits(atomic.LoadUint64(&residualCoeffBits))
}

// SetProgressCallback installs a callback invoked as (done, total) slice
// counts during pack/unpack. Pass nil to clear it.
func SetProgressCallback(cb func(done, total uint64)) {
	if cb == nil {
		progressCB.Store(progressFunc(nil))
		return
	}
	progressCB.Store(progressFunc(cb))
}

func reportProgress(done, total uint64) {
	v := progressCB.Load()
	if v == nil {
		return
	}
	if cb, ok := v.(progressFunc); ok && cb != nil {
		cb(done, total)
	}
}

// RequestCancel sets or clears the cooperative cancellation flag. Pack
// and unpack poll it at group/slice/frame boundaries.
func RequestCancel(yes bool) {
	if yes {
		atomic.StoreInt32(&cancelFlag, 1)
	} else {
		atomic.StoreInt32(&cancelFlag, 0)
	}
}

func canceled() bool {
	return atomic.LoadInt32(&cancelFlag) != 0
}

var verboseFlag int32

// SetVerbose turns on/off the group/frame-boundary and resync milestone
// logging that Pack/PackEx and Unpack/UnpackEx emit via the standard log
// package. Off by default, matching a quiet library call.
func SetVerbose(yes bool) {
	if yes {
		atomic.StoreInt32(&verboseFlag, 1)
	} else {
		atomic.StoreInt32(&verboseFlag, 0)
	}
}

func verbose() bool {
	return atomic.LoadInt32(&verboseFlag) != 0
}

func logMilestone(format string, args ...interface{}) {
	if verbose() {
		log.Printf(format, args...)
	}
}
