package main

// dataset_gen.go generates deterministic key datasets for standalone
// benchmarking of chunktable (outside `go test`). With -dist=uniform or
// -dist=zipf it emits newline-separated uint64 numbers; with -dist=collide
// it emits string keys chosen to land in the same anchor chunk, the same
// fixture shape internal/chunktable's overflow tests build by brute force,
// useful for reproducing worst-case overflow-chain behavior outside the
// test binary.
//
// Usage:
//   go run ./tools/dataset_gen -n 1000000 -dist=zipf -seed=42 -out keys.txt
//   go run ./tools/dataset_gen -n 50 -dist=collide -buckets=128 -out collide.txt
//
// Flags:
//   -n        number of keys to generate (default 1e6)
//   -dist     distribution: "uniform", "zipf", or "collide" (default uniform)
//   -zipfs    Zipf s parameter (>1)  (default 1.2)
//   -zipfv    Zipf v parameter (>=1) (default 1.0)
//   -buckets  bucket count to target for -dist=collide (default 128)
//   -seed     RNG seed (default current time)
//   -out      output file (default stdout)
//
// © 2025 chunktable authors. MIT License.

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/kvcore/chunktable/internal/hashfn"
	"github.com/kvcore/chunktable/internal/unsafehelpers"
)

func main() {
	var (
		n       = flag.Int("n", 1_000_000, "number of keys to generate")
		dist    = flag.String("dist", "uniform", "distribution: uniform, zipf, or collide")
		zipfS   = flag.Float64("zipfs", 1.2, "zipf s parameter (>1)")
		zipfV   = flag.Float64("zipfv", 1.0, "zipf v parameter (>=1)")
		buckets = flag.Uint64("buckets", 128, "bucket count to target for -dist=collide")
		seedVal = flag.Int64("seed", time.Now().UnixNano(), "PRNG seed")
		outPath = flag.String("out", "", "output file (default stdout)")
	)
	flag.Parse()

	var out *os.File
	var err error
	if *outPath == "" {
		out = os.Stdout
	} else {
		out, err = os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot create file:", err)
			os.Exit(1)
		}
		defer out.Close()
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	if *dist == "collide" {
		genCollide(w, *n, unsafehelpers.NextPowerOfTwo(*buckets))
		return
	}

	rnd := rand.New(rand.NewSource(*seedVal))
	var gen func() uint64
	switch *dist {
	case "uniform":
		gen = rnd.Uint64
	case "zipf":
		if *zipfS <= 1.0 || *zipfV < 1 {
			fmt.Fprintln(os.Stderr, "zipfs must be >1 and zipfv >=1")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, ^uint64(0))
		gen = z.Uint64
	default:
		fmt.Fprintln(os.Stderr, "unknown dist:", *dist)
		os.Exit(1)
	}

	for i := 0; i < *n; i++ {
		fmt.Fprintln(w, gen())
	}
}

// genCollide writes n string keys that all hash to the same anchor chunk
// for a table sized to bucketsCount buckets, by brute-force enumeration.
func genCollide(w *bufio.Writer, n int, bucketsCount uint64) {
	anchorOf := func(key []byte) uint64 {
		return (hashfn.Hash(key) & (bucketsCount - 1)) / 14
	}

	target := anchorOf([]byte("collide-0"))
	written := 0
	for i := 0; written < n; i++ {
		k := fmt.Sprintf("collide-%d", i)
		if anchorOf([]byte(k)) == target {
			fmt.Fprintln(w, k)
			written++
		}
	}
}
