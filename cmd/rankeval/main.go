package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rankeval/internal/config"
	"github.com/kailas-cloud/rankeval/internal/db"
	dbRedis "github.com/kailas-cloud/rankeval/internal/db/redis"
	"github.com/kailas-cloud/rankeval/internal/domain"
	logpkg "github.com/kailas-cloud/rankeval/internal/logger"
	"github.com/kailas-cloud/rankeval/internal/metrics"
	"github.com/kailas-cloud/rankeval/internal/repository/corpus"
	"github.com/kailas-cloud/rankeval/internal/repository/embcache"
	"github.com/kailas-cloud/rankeval/internal/repository/results"
	chiTransport "github.com/kailas-cloud/rankeval/internal/transport/chi"
	openaiEnc "github.com/kailas-cloud/rankeval/internal/transport/openai"
	"github.com/kailas-cloud/rankeval/internal/usecase/benchmark"
	searchuc "github.com/kailas-cloud/rankeval/internal/usecase/search"
	"github.com/kailas-cloud/rankeval/internal/version"
)

func main() {
	serve := flag.Bool("serve", false, "run the HTTP evaluation API instead of a one-shot benchmark")
	flag.Parse()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting rankeval",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Bool("serve", *serve),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	ctx := logpkg.ContextWithLogger(context.Background(), logger)

	store := openStore(ctx, cfg, logger)
	if store != nil {
		defer store.Close()
	}

	docEncoder, queryEncoder := buildEncoders(cfg, store, logger)

	if *serve {
		runServer(cfg, docEncoder, store, logger)
		return
	}

	if err := runBenchmark(ctx, cfg, docEncoder, queryEncoder, logger); err != nil {
		logger.Fatal("Benchmark failed", zap.Error(err))
	}
}

// openStore connects the embedding cache store. No addrs disables caching.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) db.Store {
	if len(cfg.Cache.Addrs) == 0 {
		logger.Info("Embedding cache disabled")
		return nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache store not ready", zap.Error(err))
	}
	logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))
	return store
}

// buildEncoders assembles the encoder chain: OpenAI -> Cached -> Instruction.
// Instruction is outermost so cache keys include the instruction prefix.
func buildEncoders(cfg config.Config, store db.Store, logger *zap.Logger) (doc, query domain.Encoder) {
	var base domain.Encoder = openaiEnc.NewEncoder(&openaiEnc.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	logger.Info("Encoder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	if store != nil {
		base = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	doc, query = base, base
	if cfg.Embedding.DocumentInstruction != "" {
		doc = domain.NewInstructionEncoder(base, cfg.Embedding.DocumentInstruction)
	}
	if cfg.Embedding.QueryInstruction != "" {
		query = domain.NewInstructionEncoder(base, cfg.Embedding.QueryInstruction)
	}
	return doc, query
}

// runBenchmark executes one retrieval + evaluation run and prints the
// metric report as JSON to stdout.
func runBenchmark(
	ctx context.Context, cfg config.Config,
	docEncoder, queryEncoder domain.Encoder,
	logger *zap.Logger,
) error {
	qrels, err := corpus.ReadQrels(cfg.Dataset.Qrels)
	if err != nil {
		return fmt.Errorf("load qrels: %w", err)
	}

	var corpusItems, queryItems domain.Items
	if cfg.Dataset.PreviousResults == "" {
		if corpusItems, err = corpus.ReadItems(cfg.Dataset.Corpus); err != nil {
			return fmt.Errorf("load corpus: %w", err)
		}
		if queryItems, err = corpus.ReadItems(cfg.Dataset.Queries); err != nil {
			return fmt.Errorf("load queries: %w", err)
		}
		logger.Info("Dataset loaded",
			zap.Int("corpus", len(corpusItems)),
			zap.Int("queries", len(queryItems)),
			zap.Int("judged_queries", len(qrels)),
		)
	}

	retriever := searchuc.New(docEncoder,
		searchuc.WithChunkSize(cfg.Search.ChunkSize),
		searchuc.WithBatchSize(cfg.Embedding.BatchSize),
		searchuc.WithQueryEncoder(queryEncoder),
	)
	loader := results.New(cfg.Dataset.CacheDir, logger)

	opts := []benchmark.Option{
		benchmark.WithKValues(cfg.Evaluation.KValues),
		benchmark.WithTopK(cfg.Search.TopK),
		benchmark.WithScoreFunction(domain.ScoreFunction(cfg.Search.ScoreFunction)),
	}
	if cfg.Evaluation.IgnoreIdenticalIDs {
		opts = append(opts, benchmark.WithIgnoreIdenticalIDs())
	}
	if cfg.Dataset.PreviousResults != "" {
		opts = append(opts, benchmark.WithPreviousResults(cfg.Dataset.PreviousResults))
	}

	runner := benchmark.New(retriever, loader, opts...)
	report, err := runner.Run(ctx, corpusItems, queryItems, qrels)
	if err != nil {
		return fmt.Errorf("run benchmark: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// runServer starts the HTTP evaluation API with graceful shutdown.
func runServer(cfg config.Config, encoder domain.Encoder, store db.Store, logger *zap.Logger) {
	checkers := map[string]domain.HealthChecker{}
	if hc, ok := encoder.(domain.HealthChecker); ok {
		checkers["embedding"] = hc
	}
	if store != nil {
		checkers["cache"] = storeChecker{store}
	}

	server := chiTransport.NewServer(checkers, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// storeChecker adapts db.Store ping to the health contract.
type storeChecker struct {
	store db.Store
}

func (c storeChecker) HealthCheck(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}
