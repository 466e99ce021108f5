package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/minseok127/bmslab/slab"
	"github.com/spf13/cobra"
)

var (
	stressObjSize  int
	stressPages    int
	stressDuration time.Duration
	stressProcs    int
	stressBatch    int
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressObjSize, "obj-size", 64, "Object size in bytes (8..4096)")
	cmd.Flags().IntVar(&stressPages, "pages", 16, "Page cap for the instance")
	cmd.Flags().DurationVar(&stressDuration, "duration", 10*time.Second, "How long to churn")
	cmd.Flags().IntVar(&stressProcs, "procs", runtime.GOMAXPROCS(0), "Concurrent workers")
	cmd.Flags().IntVar(&stressBatch, "batch", 32, "Slots each worker holds per round")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stress",
		Short: "Run concurrent churn with invariant verification",
		Long: `The stress command churns batches of allocations across workers for
the requested duration. Every claimed slot is registered in a shared set;
a second claim of a live slot means the allocator broke slot exclusivity
and the command exits non-zero.

Example:
  slabctl stress --obj-size 64 --pages 16 --duration 30s --procs 16`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
}

type stressResult struct {
	ObjSize    int        `json:"obj_size"`
	Pages      int        `json:"pages"`
	Workers    int        `json:"workers"`
	Rounds     int64      `json:"rounds"`
	Violations int64      `json:"violations"`
	Stats      slab.Stats `json:"final_stats"`
}

func runStress() error {
	s, err := slab.New(stressObjSize, stressPages)
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		outstanding sync.Map
		rounds      atomic.Int64
		violations  atomic.Int64
		wg          sync.WaitGroup
	)
	deadline := time.Now().Add(stressDuration)

	for w := 0; w < stressProcs; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			batch := make([][]byte, 0, stressBatch)
			for time.Now().Before(deadline) {
				for len(batch) < cap(batch) {
					buf := s.Alloc()
					if buf == nil {
						break
					}
					addr := uintptr(unsafe.Pointer(&buf[0]))
					if _, loaded := outstanding.LoadOrStore(addr, id); loaded {
						violations.Add(1)
					}
					buf[0] = byte(id)
					batch = append(batch, buf)
				}
				for _, buf := range batch {
					outstanding.Delete(uintptr(unsafe.Pointer(&buf[0])))
					s.Free(buf)
				}
				batch = batch[:0]
				rounds.Add(1)
			}
		}(w)
	}
	wg.Wait()

	res := stressResult{
		ObjSize:    stressObjSize,
		Pages:      stressPages,
		Workers:    stressProcs,
		Rounds:     rounds.Load(),
		Violations: violations.Load(),
		Stats:      s.Stats(),
	}

	if jsonOut {
		if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
			return err
		}
	} else {
		printInfo("%d workers, %d rounds in %v\n", res.Workers, res.Rounds, stressDuration)
		printInfo("final: %d pages live, %d slots allocated\n",
			res.Stats.PhysPages, res.Stats.AllocatedSlots)
	}

	if res.Violations != 0 {
		return fmt.Errorf("slabctl: %d slot exclusivity violations", res.Violations)
	}
	if res.Stats.AllocatedSlots != 0 {
		return fmt.Errorf("slabctl: %d slots leaked", res.Stats.AllocatedSlots)
	}
	return nil
}
