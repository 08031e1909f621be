package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/lanes/internal/crm"
	"github.com/dyluth/lanes/internal/daemon"
	"github.com/dyluth/lanes/internal/metrics"
	"github.com/dyluth/lanes/internal/settings"
	"github.com/dyluth/lanes/pkg/pipeline"
	"github.com/dyluth/lanes/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
)

func main() {
	// 1. Resolve settings from flags and LANES_* environment variables
	settings.RegisterFlags(pflag.CommandLine, true)
	pflag.Parse()

	s, err := settings.Load(pflag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// 2. Load pipeline configuration
	cfg, err := s.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load %s: %v\n", s.ConfigPath, err)
		os.Exit(1)
	}
	reg, err := cfg.Registry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// 3. Connect to the entity store
	ctx := context.Background()
	backend, err := s.OpenBackend(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer backend.Close()

	// 4. Metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewRegistry(promReg)

	// 5. Build one lane per configured pipeline
	opts := crm.OptionsFromConfig(cfg)
	opts.Observer = m
	opts.OnResult = func(p pipeline.PipelineType, r pipeline.TransitionResult) {
		log.Printf("[Daemon] %s: %s", p, r)
	}
	lanes, err := crm.NewLanes(reg, backend, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// 6. Syncer: event-driven refresh when the backend publishes events
	syncOpts := []daemon.SyncerOption{daemon.WithRefreshRecorder(m)}
	if n, ok := backend.(store.Notifier); ok {
		syncOpts = append(syncOpts, daemon.WithNotifier(n))
	} else {
		fmt.Printf("Backend %s publishes no events, relying on scheduled refresh\n", s.Backend)
	}
	schedule := ""
	if cfg.Engine != nil {
		schedule = cfg.Engine.RefreshSchedule
	}
	syncer, err := daemon.NewSyncer(lanes, schedule, syncOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// 7. Health, metrics and move endpoints
	health := daemon.NewHealthServer(backend, s.Backend, s.ListenAddr, promReg)
	health.Handle(daemon.MovePattern, daemon.NewMoveHandler(lanes))
	if err := health.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to start health server: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		health.Shutdown(shutdownCtx)
	}()

	fmt.Printf("lanesd starting for instance '%s' with %d pipelines on %s (%s backend)\n",
		s.Instance, len(lanes), s.ListenAddr, s.Backend)

	// 8. Run until SIGINT/SIGTERM; Run returns once in-flight commits resolve
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := syncer.Run(runCtx); err != nil {
		fmt.Fprintf(os.Stderr, "lanesd error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("lanesd stopped")
}
