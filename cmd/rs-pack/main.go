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

func main() {
	var (
		in          = flag.String("in", "", "input file path")
		out         = flag.String("out", "", "output container path")
		r           = flag.Int("r", 16, "parity shards per frame (1..63)")
		ilDepth     = flag.Int("il-depth", rscontainer.ILDepthDefault, "interleave group depth")
		sliceBytes  = flag.Int("slice-bytes", rscontainer.SliceBytesDefault, "slice payload size")
		metricsAddr = flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")
		quiet       = flag.Bool("quiet", false, "suppress progress output")
		verbose     = flag.Bool("v", false, "log group/frame-boundary milestones")
	)
	flag.Parse()

	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "rs-pack: -in and -out are required")
		os.Exit(-101)
	}

	rscontainer.SetVerbose(*verbose)

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		rscontainer.SetMetrics(rscontainer.NewMetrics(reg))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			_ = http.ListenAndServe(*metricsAddr, mux)
		}()
	}

	if !*quiet {
		rscontainer.SetProgressCallback(func(done, total uint64) {
			fmt.Fprintf(os.Stderr, "\rrs-pack: %d/%d slices", done, total)
		})
	}

	err := rscontainer.PackEx(*in, *out, *r, *ilDepth, *sliceBytes)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	code := rscontainer.PackCode(err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rs-pack: %v\n", err)
	}
	os.Exit(code)
}
