// Command scf runs the liquidity-pool market-intelligence pipeline.
//
// Subcommands:
//
//	diag          one-shot DB table listing plus a short log-stream sample
//	full          run every worker and the health monitor until interrupted
//
// Running without a subcommand is equivalent to diag.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scf-pipeline/internal/config"
	"scf-pipeline/internal/detector"
	"scf-pipeline/internal/executor"
	"scf-pipeline/internal/exitengine"
	"scf-pipeline/internal/features"
	"scf-pipeline/internal/ingest"
	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/parser"
	"scf-pipeline/internal/resolver"
	"scf-pipeline/internal/solana"
	"scf-pipeline/internal/storage"
	"scf-pipeline/internal/storage/clickhouse"
	"scf-pipeline/internal/storage/migrations"
	"scf-pipeline/internal/storage/postgres"
	"scf-pipeline/internal/supervisor"
)

const diagSampleSize = 10

func main() {
	config.LoadEnvFile()

	logger := log.New(os.Stdout, "[scf] ", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	cmd := "diag"
	args := []string{}
	if len(os.Args) > 1 {
		cmd = os.Args[1]
		args = os.Args[2:]
	}

	switch cmd {
	case "diag":
		if err := runDiag(cfg, logger); err != nil {
			logger.Fatalf("diag: %v", err)
		}
	case "full":
		fs := flag.NewFlagSet("full", flag.ExitOnError)
		execMode := fs.String("exec", string(config.ExecPaper), "executor mode: paper, live, or none")
		fs.Parse(args)

		mode := config.ExecMode(*execMode)
		switch mode {
		case config.ExecPaper, config.ExecLive, config.ExecNone:
		default:
			logger.Fatalf("unknown exec mode %q (want paper, live, or none)", *execMode)
		}

		if err := runFull(cfg, mode, logger); err != nil && err != context.Canceled {
			logger.Fatalf("full: %v", err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\nusage: scf [diag|full --exec paper|live|none]\n", cmd)
		os.Exit(2)
	}
}

// runDiag connects to the store, lists its tables, and samples a handful of
// live log notifications before exiting.
func runDiag(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}

	tables, err := postgres.NewHealthStore(pool).Tables(ctx)
	if err != nil {
		return err
	}
	logger.Printf("tables (%d):", len(tables))
	for _, t := range tables {
		logger.Printf("  %s", t)
	}

	if cfg.RPCWSURL == "" {
		logger.Printf("RPC_WS not set, skipping log sample")
		return nil
	}

	stream, err := solana.NewLogStream(ctx, cfg.RPCWSURL, solana.LogsFilter{
		Mention:    cfg.RaydiumAMM,
		Commitment: cfg.Commitment,
	}, nil, logger)
	if err != nil {
		return err
	}
	defer stream.Close()

	logger.Printf("sampling %d notifications from %s", diagSampleSize, cfg.RaydiumAMM)
	for i := 0; i < diagSampleSize; i++ {
		select {
		case <-ctx.Done():
			logger.Printf("timed out after %d notifications", i)
			return nil
		case notif, ok := <-stream.Notifications():
			if !ok {
				return nil
			}
			logger.Printf("  slot=%d sig=%s logs=%d", notif.Slot, notif.Signature, len(notif.Logs))
		}
	}
	return nil
}

// runFull wires every worker into the supervisor and blocks until a signal
// arrives.
func runFull(cfg *config.Config, mode config.ExecMode, logger *log.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return err
	}

	metrics := observability.DefaultMetrics

	queueStore := postgres.NewTxQueueStore(pool)
	rawStore := postgres.NewTxRawStore(pool)
	parsedStore := postgres.NewParsedSigStore(pool)
	swapStore := postgres.NewSwapEventStore(pool)
	lpStore := postgres.NewLpEventStore(pool)
	authStore := postgres.NewAuthorityEventStore(pool)
	cursorStore := postgres.NewCursorStore(pool)
	featureStore := postgres.NewFeatureStore(pool)
	signalStore := postgres.NewSignalStore(pool)
	positionStore := postgres.NewPositionStore(pool)
	healthStore := postgres.NewHealthStore(pool)

	var archive storage.FeatureArchive
	if cfg.ClickhouseDSN != "" {
		conn, err := clickhouse.NewConn(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		defer conn.Close()
		if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		archive = clickhouse.NewFeatureHistoryStore(conn)
		logger.Printf("feature history archive enabled")
	}

	if cfg.RPCWSURL == "" || cfg.RPCHTTPURL == "" {
		return fmt.Errorf("RPC_WS and RPC_HTTP (or HELIUS_KEY) are required for full mode")
	}

	rpcClient := solana.NewHTTPClient(cfg.RPCHTTPURL)
	ammPrograms := cfg.AMMPrograms()

	ingestWorker := ingest.NewWorker(ingest.Options{
		Programs:   cfg.Programs(),
		Commitment: cfg.Commitment,
		NewStream:  ingest.NewWSStreamFactory(cfg.RPCWSURL, cfg.Commitment, logger),
		Queue:      queueStore,
		Metrics:    metrics,
	})
	resolverWorker := resolver.NewWorker(resolver.Options{
		Queue:   queueStore,
		Raw:     rawStore,
		RPC:     rpcClient,
		Metrics: metrics,
	})

	newParserWorker := func(p parser.Parser) *parser.Worker {
		return parser.NewWorker(parser.Options{
			Parser:  p,
			Raw:     rawStore,
			Parsed:  parsedStore,
			Cursors: cursorStore,
			Poll:    cfg.ParserPoll,
			Batch:   cfg.ParserBatch,
			Metrics: metrics,
		})
	}
	swapWorker := newParserWorker(parser.NewSwapParser(swapStore, cfg.WSOLMint, ammPrograms, metrics))
	lpWorker := newParserWorker(parser.NewLpParser(lpStore, ammPrograms, metrics))
	authWorker := newParserWorker(parser.NewAuthorityParser(authStore, ammPrograms, metrics))

	featureWorker := features.NewWorker(features.Options{
		Swaps:   swapStore,
		Feats:   featureStore,
		Archive: archive,
		Poll:    cfg.FeaturePoll,
		Window:  cfg.FeatureWindow,
		Metrics: metrics,
	})
	detectorWorker := detector.NewWorker(detector.Options{
		Feats:   featureStore,
		Signals: signalStore,
		Thresholds: detector.Thresholds{
			VCMax:  cfg.VCMax,
			OFSMax: cfg.OFSMax,
			LTMax:  cfg.LTMax,
			WCMin:  cfg.WCMin,
			RQMax:  cfg.RQMax,
		},
		Poll:     cfg.DetectorPoll,
		Dedup:    cfg.DetectorDedup,
		RowLimit: cfg.DetectorRowLimit,
		Metrics:  metrics,
	})

	exitWorker, err := exitengine.NewWorker(exitengine.Options{
		Positions:  positionStore,
		Swaps:      swapStore,
		Poll:       cfg.ExitPoll,
		TPMult:     cfg.TPMult,
		SLMult:     cfg.SLMult,
		TPPartials: cfg.TPPartials,
		SLPartials: cfg.SLPartials,
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}

	health := supervisor.NewHealthMonitor(healthStore, supervisor.DefaultHealthInterval, nil)

	tasks := []supervisor.Task{
		{Name: "ingest", Run: ingestWorker.Run},
		{Name: "resolver", Run: resolverWorker.Run},
		{Name: "parser_swap", Run: swapWorker.Run},
		{Name: "parser_lp", Run: lpWorker.Run},
		{Name: "parser_auth", Run: authWorker.Run},
		{Name: "features", Run: featureWorker.Run},
		{Name: "detector", Run: detectorWorker.Run},
		{Name: "exit", Run: exitWorker.Run},
		health.Task(),
	}

	if mode != config.ExecNone {
		var strategy executor.Strategy = executor.PaperStrategy{}
		if mode == config.ExecLive {
			strategy = executor.NewLiveStubStrategy(swapStore)
		}
		executorWorker := executor.NewWorker(executor.Options{
			Signals:   signalStore,
			Positions: positionStore,
			Strategy:  strategy,
			Poll:      cfg.ExecutorPoll,
			Window:    cfg.ExecutorWindow,
			Batch:     cfg.ExecutorBatch,
			Metrics:   metrics,
		})
		tasks = append(tasks, supervisor.Task{Name: "executor", Run: executorWorker.Run})
	} else {
		logger.Printf("executor disabled (exec=none)")
	}

	go startMetricsServer(cfg.MetricsAddr, logger)
	go trackUptime(ctx, metrics)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("received signal %v, shutting down", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("received second signal %v, forcing exit", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		}
	}()

	logger.Printf("pipeline starting: exec=%s programs=%v", mode, cfg.Programs())
	return supervisor.New(tasks, metrics, logger).Run(ctx)
}

func startMetricsServer(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	logger.Printf("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Printf("metrics server: %v", err)
	}
}

func trackUptime(ctx context.Context, metrics *observability.Metrics) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UptimeSeconds.Inc()
		}
	}
}
