package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/minseok127/bmslab/slab"
	"github.com/spf13/cobra"
)

var (
	benchObjSize int
	benchPages   int
	benchIters   int
	benchProcs   int
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVar(&benchObjSize, "obj-size", 64, "Object size in bytes (8..4096)")
	cmd.Flags().IntVar(&benchPages, "pages", 64, "Page cap for the instance")
	cmd.Flags().IntVar(&benchIters, "iters", 1_000_000, "Alloc/free pairs per worker")
	cmd.Flags().IntVar(&benchProcs, "procs", runtime.GOMAXPROCS(0), "Concurrent workers")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Measure alloc/free throughput",
		Long: `The bench command runs alloc-then-free pairs across the requested
number of workers and reports wall time, ns per pair, and the final
instance statistics.

Example:
  slabctl bench --obj-size 64 --pages 64 --iters 1000000 --procs 8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
}

type benchResult struct {
	ObjSize   int           `json:"obj_size"`
	Pages     int           `json:"pages"`
	Workers   int           `json:"workers"`
	Pairs     int           `json:"pairs"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	NsPerPair float64       `json:"ns_per_pair"`
	Stats     slab.Stats    `json:"final_stats"`
}

func runBench() error {
	s, err := slab.New(benchObjSize, benchPages)
	if err != nil {
		return err
	}
	defer s.Close()

	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < benchProcs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < benchIters; i++ {
				if buf := s.Alloc(); buf != nil {
					s.Free(buf)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	pairs := benchProcs * benchIters
	res := benchResult{
		ObjSize:   benchObjSize,
		Pages:     benchPages,
		Workers:   benchProcs,
		Pairs:     pairs,
		Elapsed:   elapsed,
		NsPerPair: float64(elapsed.Nanoseconds()) / float64(pairs),
		Stats:     s.Stats(),
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(res)
	}
	printInfo("%d workers x %d pairs of %d-byte objects over %d pages\n",
		res.Workers, benchIters, res.ObjSize, res.Pages)
	printInfo("elapsed %v, %.1f ns/pair\n", res.Elapsed, res.NsPerPair)
	printInfo("final: %d pages live, %d slots allocated\n",
		res.Stats.PhysPages, res.Stats.AllocatedSlots)
	if res.Stats.AllocatedSlots != 0 {
		return fmt.Errorf("slabctl: %d slots leaked", res.Stats.AllocatedSlots)
	}
	return nil
}
