package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hub10com/rscontainer/wrap"
)

func main() {
	var (
		in      = flag.String("in", "", "input file path")
		out     = flag.String("out", "", "output file path")
		start   = flag.String("start", "", "start sentinel, a string of 0/1 (optional)")
		end     = flag.String("end", "", "end sentinel, a string of 0/1 (optional)")
		seed    = flag.Uint("seed", 0, "dummy-bit PRNG seed (0 = OS entropy)")
		dummyL  = flag.Uint64("dummy-left", 0, "dummy bits to emit before start sentinel")
		dummyR  = flag.Uint64("dummy-right", 0, "dummy bits to emit after end sentinel")
		ratio   = flag.Float64("ratio", 0, "if >0, emit floor(input_bits/(2*ratio)) dummy bits on each side instead of -dummy-left/-dummy-right")
		verbose = flag.Bool("v", false, "log progress milestones")
	)
	flag.Parse()

	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "bit-wrap: -in and -out are required")
		os.Exit(wrap.CodeFault)
	}

	if *verbose {
		log.Printf("bit-wrap: wrapping %s -> %s (seed=%d)", *in, *out, *seed)
	}

	var err error
	if *ratio > 0 {
		err = wrap.FileRatio(*in, *out, *start, *end, *ratio, uint32(*seed))
	} else {
		err = wrap.File(*in, *out, *start, *end, *dummyL, *dummyR, uint32(*seed))
	}
	code := wrap.Code(err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bit-wrap: %v\n", err)
	} else if *verbose {
		log.Printf("bit-wrap: done")
	}
	os.Exit(code)
}
