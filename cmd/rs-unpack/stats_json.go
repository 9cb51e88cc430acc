package main

import (
	"io"

	"github.com/francoispqt/gojay"

	"github.com/hub10com/rscontainer/rscontainer"
)

// statsJSON adapts rscontainer.Stats to gojay's streaming encoder for
// the -json flag, avoiding a reflection-based encoding/json pass over a
// struct that's printed on every run.
type statsJSON struct {
	s rscontainer.Stats
}

func (j *statsJSON) IsNil() bool { return false }

func (j *statsJSON) MarshalJSONObject(enc *gojay.Encoder) {
	enc.AddUint64Key("frames_total", j.s.FramesTotal)
	enc.AddUint64Key("slices_total_est", j.s.SlicesTotalEst)
	enc.AddUint64Key("slices_ok", j.s.SlicesOK)
	enc.AddUint64Key("slices_bad", j.s.SlicesBad)
	enc.AddUint64Key("codewords_total", j.s.CodewordsTotal)
	enc.AddUint64Key("symbols_total", j.s.SymbolsTotal)
	enc.AddUint64Key("data_symbols_total", j.s.DataSymbolsTotal)
	enc.AddUint64Key("corrected_symbols", j.s.CorrectedSymbols)
	enc.AddUint64Key("used_erasures_cols", j.s.UsedErasuresCols)
	enc.AddUint64Key("rs_fail_columns", j.s.RSFailColumns)
	enc.AddIntKey("pad_mode_used", int(j.s.PadModeUsed))
	enc.AddFloat64Key("ber_est", j.s.BerEst)
}

func printStatsJSON(w io.Writer, s rscontainer.Stats) error {
	return gojay.NewEncoder(w).EncodeObject(&statsJSON{s: s})
}
