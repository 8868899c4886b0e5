// © 2025 chunktable authors. MIT License.

package main

import (
	"flag"
	"time"
)

// options holds the parsed command-line flags.
type options struct {
	target  string
	watch   bool
	json    bool
	version bool

	interval time.Duration

	heapProfile      string
	goroutineProfile string
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.target, "target", "http://localhost:6060", "base URL of the process exposing /debug/chunktable/snapshot")
	flag.BoolVar(&opts.watch, "watch", false, "poll the snapshot endpoint repeatedly instead of a one-shot fetch")
	flag.DurationVar(&opts.interval, "interval", 2*time.Second, "poll interval when -watch is set")
	flag.BoolVar(&opts.json, "json", false, "print the raw snapshot JSON instead of a formatted summary")
	flag.BoolVar(&opts.version, "version", false, "print the inspector's version and exit")
	flag.StringVar(&opts.heapProfile, "heap-profile", "", "download a heap pprof profile to this path and exit")
	flag.StringVar(&opts.goroutineProfile, "goroutine-profile", "", "download a goroutine pprof profile to this path and exit")
	flag.Parse()
	return opts
}
