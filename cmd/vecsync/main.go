package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vecsync/internal/config"
	"github.com/kailas-cloud/vecsync/internal/db"
	dbMongo "github.com/kailas-cloud/vecsync/internal/db/mongo"
	dbRedis "github.com/kailas-cloud/vecsync/internal/db/redis"
	"github.com/kailas-cloud/vecsync/internal/domain"
	logpkg "github.com/kailas-cloud/vecsync/internal/logger"
	"github.com/kailas-cloud/vecsync/internal/metrics"
	"github.com/kailas-cloud/vecsync/internal/repository/cursor"
	"github.com/kailas-cloud/vecsync/internal/repository/embcache"
	"github.com/kailas-cloud/vecsync/internal/transport/openai"
	"github.com/kailas-cloud/vecsync/internal/transport/ops"
	"github.com/kailas-cloud/vecsync/internal/usecase/backfill"
	"github.com/kailas-cloud/vecsync/internal/usecase/discovery"
	indexuc "github.com/kailas-cloud/vecsync/internal/usecase/index"
	"github.com/kailas-cloud/vecsync/internal/usecase/orchestrator"
	"github.com/kailas-cloud/vecsync/internal/usecase/watch"
	"github.com/kailas-cloud/vecsync/internal/version"
)

func main() {
	var (
		runBackfill   = flag.Bool("backfill", false, "run a one-shot full-corpus backfill and exit")
		ensureIndexes = flag.Bool("ensure-indexes", false, "ensure vector indexes and exit")
		documentType  = flag.String("document-type", "", "restrict backfill to one document type")
		tenant        = flag.String("tenant", "", "restrict backfill to one tenant")
		force         = flag.Bool("force", false, "re-embed fresh documents too")
		dryRun        = flag.Bool("dry-run", false, "count work without embedding or writing")
	)
	flag.Parse()

	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecsync",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("database", cfg.Mongo.Database),
		zap.Int("workers", cfg.Pipeline.Workers),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := dbMongo.NewStore(ctx, dbMongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		logger.Fatal("Failed to connect to document store", zap.Error(err))
	}
	defer func() { _ = store.Close(context.Background()) }()
	logger.Info("Connected to document store")

	var kv db.KVStore
	if len(cfg.Redis.Addrs) > 0 {
		redisStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer redisStore.Close()
		readiness := time.Duration(cfg.Redis.ReadinessTimeout) * time.Second
		if err := redisStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		kv = redisStore
		logger.Info("Connected to redis")
	} else {
		logger.Info("Redis not configured; embedding cache and cursor persistence disabled")
	}

	metrics.Register()

	embedder := buildEmbedder(cfg, kv, logger)

	disco := discovery.New(store, cfg.Mongo.Collections, logger)
	orch := orchestrator.New(store, embedder, orchestrator.Config{
		ModelID:         cfg.Embedding.Model,
		FreshnessWindow: cfg.FreshnessWindow(),
		CallInterval:    cfg.CallInterval(),
		MaxAttempts:     cfg.Pipeline.MaxAttempts,
		Workers:         cfg.Pipeline.Workers,
	}, logger)
	indexSvc := indexuc.New(store, cfg.Embedding.Dimensions, cfg.Embedding.Similarity, logger)
	cursors := cursor.New(kv)

	if err := disco.Refresh(ctx); err != nil {
		logger.Fatal("Initial discovery failed", zap.Error(err))
	}

	switch {
	case *ensureIndexes:
		if err := indexSvc.EnsureAll(ctx, disco.Profiles()); err != nil {
			logger.Fatal("Index creation incomplete", zap.Error(err))
		}
	case *runBackfill:
		runBackfillMode(ctx, cfg, store, disco, orch, *documentType, *tenant, *force, *dryRun, logger)
	default:
		runWatchMode(ctx, cancel, cfg, store, disco, orch, indexSvc, cursors, logger)
	}
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached.
func buildEmbedder(cfg config.Config, kv db.KVStore, logger *zap.Logger) domain.Embedder {
	var embedder domain.Embedder = openai.NewEmbedder(&openai.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	if kv != nil {
		ttl := time.Duration(cfg.Embedding.CacheTTLH) * time.Hour
		embedder = embcache.New(embedder, kv, ttl, metrics.EmbeddingCacheTotal, logger)
	}
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cached", kv != nil),
	)
	return embedder
}

func runBackfillMode(
	ctx context.Context,
	cfg config.Config,
	store db.DocumentStore,
	disco *discovery.Service,
	orch *orchestrator.Service,
	documentType, tenant string,
	force, dryRun bool,
	logger *zap.Logger,
) {
	profiles := disco.Profiles()
	if documentType != "" {
		prof, ok := disco.Profile(documentType)
		if !ok {
			logger.Fatal("Unknown document type", zap.String("type", documentType))
		}
		profiles = profiles[:0]
		profiles = append(profiles, prof)
	}

	svc := backfill.New(store, orch, logger)
	result := svc.RunAll(ctx, profiles, backfill.Options{
		Tenant:   tenant,
		Force:    force,
		DryRun:   dryRun,
		PageSize: int64(cfg.Pipeline.PageSize),
	})

	logger.Info("Backfill finished",
		zap.Int("processed", result.Processed),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors),
	)
	if result.Errors > 0 {
		os.Exit(1)
	}
}

func runWatchMode(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg config.Config,
	store db.DocumentStore,
	disco *discovery.Service,
	orch *orchestrator.Service,
	indexSvc *indexuc.Service,
	cursors *cursor.Store,
	logger *zap.Logger,
) {
	// Indexes are best-effort at startup; the pipeline runs without them.
	if err := indexSvc.EnsureAll(ctx, disco.Profiles()); err != nil {
		logger.Warn("Some vector indexes could not be created", zap.Error(err))
	}

	pool := watch.NewPool(cfg.Pipeline.Workers, cfg.Pipeline.QueueSize,
		func() watch.Handler {
			worker := orch.NewWorker()
			return func(ctx context.Context, task watch.Task) {
				worker.Process(ctx, task.Collection, task.Document, task.Profile, orchestrator.Options{})
				// Saves from concurrent workers can land out of order; an
				// older token only replays events whose documents are
				// already fresh, and the replays are skipped.
				if err := cursors.Save(ctx, task.Cursor); err != nil {
					logger.Warn("Failed to persist watch cursor",
						zap.String("collection", task.Collection), zap.Error(err))
				}
			}
		}, logger)
	pool.Start(ctx)

	collections := watchedCollections(disco)
	coordCfg := watch.Config{
		Quiescence:     cfg.QuiescenceWindow(),
		ReconnectDelay: time.Duration(cfg.Pipeline.ReconnectDelaySec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, coll := range collections {
		coord := watch.NewCoordinator(coll, store, cursors, disco, pool, coordCfg, logger)
		g.Go(func() error { return coord.Run(gctx) })
	}
	logger.Info("Watchers started", zap.Strings("collections", collections))

	opsServer := ops.NewServer(cfg.Ops.Port, store, logger)
	g.Go(func() error { return opsServer.Start() })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("Received shutdown signal")
	cancel()

	grace := time.Duration(cfg.Pipeline.ShutdownGraceSec) * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), grace)
	defer shutdownCancel()

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during ops shutdown", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		pool.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("Stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown grace period expired, abandoning in-flight work")
	}
}

// watchedCollections derives the watch set from discovered profiles, so only
// collections that actually hold profiled documents get a subscription.
func watchedCollections(disco *discovery.Service) []string {
	seen := map[string]bool{}
	var out []string
	for _, prof := range disco.Profiles() {
		if !seen[prof.SourceCollection()] {
			seen[prof.SourceCollection()] = true
			out = append(out, prof.SourceCollection())
		}
	}
	return out
}
