package rscontainer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the optional Prometheus collectors a host process can
// register to observe pack/unpack activity. Nil until NewMetrics is
// called; ObserveStats and ObservePackFrame are no-ops on a nil receiver.
type Metrics struct {
	framesPacked     prometheus.Counter
	slicesOK         prometheus.Counter
	slicesBad        prometheus.Counter
	correctedSymbols prometheus.Counter
	rsFailColumns    prometheus.Counter
	berEstGauge      prometheus.Gauge
}

// NewMetrics constructs a Metrics and registers its collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesPacked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rscontainer_frames_packed_total",
			Help: "Frames written by Pack/PackEx.",
		}),
		slicesOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rscontainer_slices_ok_total",
			Help: "Slices whose CRC-32 matched during Unpack/UnpackEx.",
		}),
		slicesBad: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rscontainer_slices_bad_total",
			Help: "Slices discarded for a CRC-32 mismatch during Unpack/UnpackEx.",
		}),
		correctedSymbols: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rscontainer_corrected_symbols_total",
			Help: "Symbols repaired by Reed-Solomon decode.",
		}),
		rsFailColumns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rscontainer_rs_fail_columns_total",
			Help: "Columns RS could not correct given the erasure/error budget.",
		}),
		berEstGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rscontainer_residual_ber_estimate",
			Help: "Residual bit-error-rate estimate from the most recent Unpack/UnpackEx call.",
		}),
	}
	reg.MustRegister(m.framesPacked, m.slicesOK, m.slicesBad, m.correctedSymbols, m.rsFailColumns, m.berEstGauge)
	return m
}

// ObservePackFrame records one frame having been packed.
func (m *Metrics) ObservePackFrame() {
	if m == nil {
		return
	}
	m.framesPacked.Inc()
}

// ObserveStats folds the deltas in an Unpack/UnpackEx Stats result into
// the registered collectors.
func (m *Metrics) ObserveStats(s Stats) {
	if m == nil {
		return
	}
	m.slicesOK.Add(float64(s.SlicesOK))
	m.slicesBad.Add(float64(s.SlicesBad))
	m.correctedSymbols.Add(float64(s.CorrectedSymbols))
	m.rsFailColumns.Add(float64(s.RSFailColumns))
	m.berEstGauge.Set(s.BerEst)
}
