package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/solgate-dev/solgate"
	"github.com/solgate-dev/solgate/cache"
	"github.com/solgate-dev/solgate/dispatch"
	"github.com/solgate-dev/solgate/ingest"
	"github.com/solgate-dev/solgate/meter"
	"github.com/solgate-dev/solgate/policy"
	"github.com/solgate-dev/solgate/provider/jsonrpc"
	sigextract "github.com/solgate-dev/solgate/signal"
	"github.com/solgate-dev/solgate/usage"
)

const healthCheckInterval = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway and webhook ingestion server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := solgate.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	breaker := solgate.NewCircuitBreaker(cfg.Breaker)

	states := make([]*solgate.ProviderState, 0, len(cfg.Providers))
	tracker := usage.NewMemoryTracker(cfg.QuotaReset)
	for _, pc := range cfg.Providers {
		states = append(states, &solgate.ProviderState{
			Config:  pc,
			Adapter: jsonrpc.FromConfig(pc),
		})
		if pc.MonthlyQuota > 0 {
			tracker.SetQuota(pc.Name, pc.MonthlyQuota)
		}
	}
	registry := solgate.NewRegistry(breaker, states...)

	pol, err := policy.ForStrategy(cfg.RoutingStrategy)
	if err != nil {
		return err
	}

	metrics := solgate.NewMetricsCollector()
	meters := meter.Multi{meter.NewLogMeter(logger), metrics}

	gw := solgate.NewGateway(registry,
		solgate.WithPolicy(pol),
		solgate.WithUsageTracker(tracker),
		solgate.WithCache(cache.NewMemory(cfg.CacheTTLs, cache.WithSweep(ctx, time.Minute))),
		solgate.WithMeter(meters),
		solgate.WithRetryConfig(cfg.Retry),
	)
	extractor := sigextract.NewExtractor(cfg.Extract)
	dispatcher := dispatch.New(
		dispatch.FromConfig(cfg.Targets),
		dispatch.WithMeter(meters),
	)

	server := ingest.NewServer(cfg.Webhook, extractor, dispatcher, metrics,
		ingest.WithMeter(meters),
		ingest.WithGateway(gw),
	)

	go healthLoop(ctx, registry, logger)

	logger.Info("starting solgate",
		"listen", cfg.Webhook.ListenAddr,
		"providers", len(cfg.Providers),
		"strategy", cfg.RoutingStrategy,
	)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("solgate stopped")
	return nil
}

// healthLoop probes every provider periodically so breakers reopen and
// stats stay warm even when request traffic is idle.
func healthLoop(ctx context.Context, registry *solgate.Registry, logger *slog.Logger) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			registry.HealthCheck(ctx)
			for _, st := range registry.List() {
				logger.Debug("provider health",
					"provider", st.Config.Name,
					"health", registry.Health(st.Config.Name).String(),
					"success_rate", st.SuccessRate(),
					"avg_latency_ms", st.AvgLatency().Milliseconds(),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}
