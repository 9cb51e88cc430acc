package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hub10com/rscontainer/rscontainer"
)

func padModeFromFlag(s string) rscontainer.PadMode {
	switch s {
	case "zero":
		return rscontainer.PadZero
	case "raw":
		return rscontainer.PadRaw
	case "temporal":
		return rscontainer.PadTemporal
	default:
		return rscontainer.PadZero
	}
}

func main() {
	var (
		in            = flag.String("in", "", "container path")
		out           = flag.String("out", "", "output file path")
		padMode       = flag.String("pad-mode", "zero", "uncorrectable column policy: raw|zero|temporal")
		residualCoeff = flag.Float64("residual-coeff", 0.40, "residual-bad-byte fraction used in the BER estimate")
		metricsAddr   = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")
		jsonStats     = flag.Bool("json", false, "print the resulting Stats as JSON")
		verbose       = flag.Bool("v", false, "log frame-boundary and resync milestones")
	)
	flag.Parse()

	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "rs-unpack: -in and -out are required")
		os.Exit(-101)
	}

	rscontainer.SetVerbose(*verbose)
	rscontainer.SetResidualCoeff(*residualCoeff)

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		rscontainer.SetMetrics(rscontainer.NewMetrics(reg))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			_ = http.ListenAndServe(*metricsAddr, mux)
		}()
	}

	stats, err := rscontainer.UnpackEx(*in, *out, padModeFromFlag(*padMode))
	code := rscontainer.UnpackCode(err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rs-unpack: %v\n", err)
		os.Exit(code)
	}

	if *jsonStats {
		if err := printStatsJSON(os.Stdout, stats); err != nil {
			fmt.Fprintf(os.Stderr, "rs-unpack: %v\n", err)
		}
	} else {
		fmt.Fprintf(os.Stderr, "rs-unpack: frames=%d slices_ok=%d slices_bad=%d corrected=%d rs_fail_cols=%d ber_est=%.6f\n",
			stats.FramesTotal, stats.SlicesOK, stats.SlicesBad, stats.CorrectedSymbols, stats.RSFailColumns, stats.BerEst)
	}
	os.Exit(code)
}
