package main

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kolkov/allocctx/allocctx"
	"github.com/kolkov/allocctx/internal/allocctx/depot"
	"github.com/kolkov/allocctx/internal/allocctx/metrics"
	"github.com/kolkov/allocctx/internal/config"
	"github.com/kolkov/allocctx/internal/heapprofile"
	"github.com/kolkov/allocctx/internal/logging"
)

type demoOptions struct {
	workers    int
	depth      int
	allocs     int
	sampleRate uint64
	metrics    bool
}

var demoOpts demoOptions

func init() {
	cmd := newDemoCmd()
	cmd.Flags().IntVar(&demoOpts.workers, "workers", 4, "Number of worker goroutines")
	cmd.Flags().IntVar(&demoOpts.depth, "depth", 3, "Nested scopes entered by each worker")
	cmd.Flags().IntVar(&demoOpts.allocs, "allocs", 100, "Allocations made by each worker")
	cmd.Flags().Uint64Var(&demoOpts.sampleRate, "sample-rate", 0, "Record 1 in N allocations (default from ALLOCCTX_SAMPLE_RATE)")
	cmd.Flags().BoolVar(&demoOpts.metrics, "metrics", false, "Print Prometheus metrics after the summary")
	rootCmd.AddCommand(cmd)
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run traced workers and print the heap profile by context",
		Long: `The demo command enables context capture, runs worker goroutines that
enter nested traced scopes and report synthetic allocations, then prints
the live allocations grouped by allocation context.

Example:
  allocctx demo --workers 8 --depth 4 --allocs 1000
  allocctx demo --sample-rate 10 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.OutOrStdout(), demoOpts)
		},
	}
}

func runDemo(w io.Writer, opts demoOptions) error {
	if opts.workers < 1 || opts.depth < 0 || opts.allocs < 0 {
		return fmt.Errorf("invalid demo size: workers=%d depth=%d allocs=%d",
			opts.workers, opts.depth, opts.allocs)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logCfg := cfg.LoggingConfig()
	if verbose {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	apiOpts := cfg.APIOptions()
	apiOpts.Logger = logger
	allocctx.Init(apiOpts)
	defer allocctx.Fini()

	rate := opts.sampleRate
	if rate == 0 {
		rate = cfg.Profile.SampleRate
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector("demo"))
	recorder := heapprofile.NewRecorder(
		heapprofile.WithSampleRate(rate),
		heapprofile.WithLogger(logger),
		heapprofile.WithMetrics(heapprofile.NewMetrics(reg)),
	)

	recorder.Start()
	runWorkers(recorder, opts)
	recorder.Stop()

	logger.Debug("demo finished",
		zap.Int("workers", opts.workers),
		zap.Int("trackers_released", int(allocctx.GetStats().ReleasedTrackers)))

	summary := recorder.Summary()
	if jsonOut {
		return printJSON(w, summary)
	}
	printSummary(w, summary)
	if opts.metrics {
		return printMetrics(w, reg)
	}
	return nil
}

// stageFrames are the static frame names entered by workers.
func stageFrames(depth int) []allocctx.Frame {
	frames := make([]allocctx.Frame, depth)
	for i := range frames {
		frames[i] = allocctx.Frame(fmt.Sprintf("demo.stage%d", i))
	}
	return frames
}

func runWorkers(recorder *heapprofile.Recorder, opts demoOptions) {
	stages := stageFrames(opts.depth)
	var nextAddr atomic.Uintptr

	var wg sync.WaitGroup
	for id := 0; id < opts.workers; id++ {
		wg.Add(1)
		allocctx.Go(func() {
			defer wg.Done()
			defer allocctx.Enter("demo.worker").End()

			role := "reader"
			if id%2 == 1 {
				role = "writer"
			}
			allocctx.SetContextField("role", role)
			defer allocctx.UnsetContextField("role")

			work(recorder, stages, opts.allocs, &nextAddr)
		})
	}
	wg.Wait()
}

// work enters the remaining stages one by one and allocates in the
// innermost one. Every second allocation is freed again.
func work(recorder *heapprofile.Recorder, stages []allocctx.Frame, allocs int, nextAddr *atomic.Uintptr) {
	if len(stages) > 0 {
		defer allocctx.Enter(stages[0]).End()
		work(recorder, stages[1:], allocs, nextAddr)
		return
	}
	for i := 0; i < allocs; i++ {
		addr := nextAddr.Add(1) << 4
		size := uint64(16) << (i % 6)
		recorder.OnAlloc(addr, size)
		if i%2 == 1 {
			recorder.OnFree(addr)
		}
	}
}

func printSummary(w io.Writer, s heapprofile.Summary) {
	fmt.Fprintf(w, "Session:          %s\n", s.Session)
	fmt.Fprintf(w, "Sample rate:      1/%d\n", s.SampleRate)
	fmt.Fprintf(w, "Live allocations: %d\n", s.LiveAllocations)
	fmt.Fprintf(w, "Live bytes:       %d\n", s.LiveBytes)
	fmt.Fprintf(w, "Contexts:         %d\n\n", len(s.Contexts))

	for _, cs := range s.Contexts {
		fmt.Fprintf(w, "%d bytes in %d allocations (mean %.1f, stddev %.1f)\n",
			cs.Bytes, cs.Count, cs.MeanSize, cs.StdDev)
		fmt.Fprint(w, depot.Format(cs.Context()))
		fmt.Fprintln(w)
	}
}

func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
