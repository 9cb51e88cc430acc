package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/hub10com/rscontainer/unwrap"
)

func main() {
	var (
		in      = flag.String("in", "", "input file path")
		out     = flag.String("out", "", "output file path")
		start   = flag.String("start", "", "start sentinel, a non-empty string of 0/1")
		end     = flag.String("end", "", "end sentinel, a non-empty string of 0/1")
		verbose = flag.Bool("v", false, "log progress milestones")
	)
	flag.Parse()

	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "bit-unwrap: -in and -out are required")
		os.Exit(unwrap.CodeFault)
	}

	if *verbose {
		log.Printf("bit-unwrap: scanning %s -> %s", *in, *out)
	}

	err := unwrap.File(*in, *out, *start, *end)
	code := unwrap.Code(err)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bit-unwrap: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "bit-unwrap: start_flag_pos=%d end_flag_pos=%d\n",
			unwrap.LastStartFlagPos(), unwrap.LastEndFlagPos())
		if *verbose {
			log.Printf("bit-unwrap: done")
		}
	}
	os.Exit(code)
}
