package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/socailstream/social-stream-backend/internal/api"
	"github.com/socailstream/social-stream-backend/internal/circuitbreaker"
	"github.com/socailstream/social-stream-backend/internal/config"
	"github.com/socailstream/social-stream-backend/internal/cron"
	"github.com/socailstream/social-stream-backend/internal/dedup"
	"github.com/socailstream/social-stream-backend/internal/dispatcher"
	"github.com/socailstream/social-stream-backend/internal/leaderelection"
	"github.com/socailstream/social-stream-backend/internal/metrics"
	"github.com/socailstream/social-stream-backend/internal/platform"
	"github.com/socailstream/social-stream-backend/internal/scheduler"
	"github.com/socailstream/social-stream-backend/internal/store/postgres"
	"github.com/socailstream/social-stream-backend/internal/sweeper"
	"github.com/socailstream/social-stream-backend/internal/transport/channel"

	_ "github.com/lib/pq"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	// Load .env if present; real environment variables take precedence.
	if err := godotenv.Load(); err == nil {
		log.Println("socialstream: loaded .env")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`socialstream - scheduled multi-platform publish dispatcher

Usage:
  socialstream <command>

Commands:
  serve      Start the dispatcher, API, and background loops
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  DATABASE_URL              PostgreSQL connection string (required)
  REDIS_ADDR                Redis address for cross-instance dedup (optional)
  HTTP_ADDR                 HTTP server address (default: ":8080")

  TICK_INTERVAL             Due-job poll interval (default: "60s")
  CLAIM_BATCH_SIZE          Max jobs claimed per tick (default: "10")
  MAX_CONCURRENT_JOBS       Dispatch worker count (default: "50")
  DISPATCH_BUFFER_SIZE      Dispatch channel buffer (default: "100")
  ADAPTER_TIMEOUT           Per-platform publish deadline (default: "45s")
  RETRY_BACKOFF             Pause before the retry pass (default: "2s")
  DRAIN_TIMEOUT             Worker drain timeout on shutdown (default: "30s")

  DB_OP_TIMEOUT             Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS         Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS         Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME      Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME     Max connection idle time (default: "5m")

  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")
  METRICS_PORT              Metrics server port (default: "9090")

  SWEEP_ENABLED             Enable stuck-job recovery sweep (default: "true")
  SWEEP_INTERVAL            How often to scan for stuck jobs (default: "5m")
  SWEEP_GRACE               Claim age before a job counts as stuck (default: "10m")
  SWEEP_ABANDON_AFTER       Claim age before a stuck job is failed (default: "1h")
  SWEEP_BATCH_SIZE          Max stuck jobs per cycle (default: "100")

  DEDUP_RETENTION           Idempotency key retention window (default: "5m")
  CIRCUIT_BREAKER_THRESHOLD Consecutive failures to open a platform circuit
                            (default: "5", "0" disables)
  CIRCUIT_BREAKER_COOLDOWN  Open-circuit cooldown (default: "2m")

  LEADER_ELECTION_ENABLED   Run scheduler/sweeper on one instance only (default: "false")
  LEADER_LOCK_KEY           Advisory lock key shared by all instances (default: "842211")
  LEADER_RETRY_INTERVAL     Follower lock retry interval (default: "5s")
  LEADER_HEARTBEAT_INTERVAL Leader connection ping interval (default: "2s")`)
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	// Configure connection pool
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	log.Printf("socialstream: db pool configured (max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s)",
		cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		return exitRuntimeError
	}

	store := postgres.New(db, cfg.DBOpTimeout)

	// Initialize metrics sink (optional)
	var metricsSink *metrics.PrometheusSink
	var metricsServer *http.Server

	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Printf("socialstream: metrics enabled (port=%s, path=%s)", cfg.MetricsPort, cfg.MetricsPath)

		// Start metrics HTTP server on separate port
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    ":" + cfg.MetricsPort,
			Handler: metricsMux,
		}
		go func() {
			log.Printf("socialstream: metrics server listening on :%s", cfg.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("socialstream: metrics server error: %v", err)
			}
		}()
	} else {
		log.Println("socialstream: METRICS_ENABLED not set; metrics disabled")
	}

	// Idempotency guard: Redis-backed when configured so duplicates are
	// caught across instances, in-process otherwise.
	var guard dedup.Guard
	var guardJanitorCancel context.CancelFunc
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		guard = dedup.NewRedisGuard(redisClient, cfg.DedupRetention)
		log.Printf("socialstream: redis dedup enabled (redis=%s, retention=%s)", cfg.RedisAddr, cfg.DedupRetention)
	} else {
		memGuard := dedup.NewMemoryGuard(cfg.DedupRetention)
		var janitorCtx context.Context
		janitorCtx, guardJanitorCancel = context.WithCancel(context.Background())
		go memGuard.Run(janitorCtx)
		guard = memGuard
		log.Printf("socialstream: REDIS_ADDR not set; in-process dedup (retention=%s)", cfg.DedupRetention)
	}

	// One shared HTTP client for all platform adapters. Per-call deadlines
	// come from the coordinator's context, not the client.
	httpClient := &http.Client{}
	registry := platform.NewRegistry(
		platform.NewXAdapter(httpClient, ""),
		platform.NewLinkedInAdapter(httpClient, ""),
		platform.NewFacebookAdapter(httpClient, ""),
		platform.NewInstagramAdapter(httpClient, ""),
	)

	// Create dispatch bus with optional metrics
	var busOpts []channel.Option
	if metricsSink != nil {
		busOpts = append(busOpts, channel.WithMetrics(metricsSink))
	}
	bus := channel.NewBus(cfg.DispatchBufferSize, busOpts...)

	coord := dispatcher.New(
		dispatcher.Config{
			AdapterTimeout: cfg.AdapterTimeout,
			RetryBackoff:   cfg.RetryBackoff,
		},
		store,
		registry,
	).
		WithRecurrence(cron.NewParser()).
		WithDrainTimeout(cfg.DrainTimeout)
	if metricsSink != nil {
		coord = coord.WithMetrics(metricsSink)
	}

	if cfg.CircuitBreakerThreshold > 0 {
		coord = coord.WithBreaker(circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown))
		log.Printf("socialstream: circuit breaker enabled (threshold=%d, cooldown=%s)",
			cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown)
	} else {
		log.Println("socialstream: CIRCUIT_BREAKER_THRESHOLD=0; circuit breaker disabled")
	}

	sched := scheduler.New(
		scheduler.Config{
			TickInterval: cfg.TickInterval,
			BatchSize:    cfg.ClaimBatchSize,
		},
		store,
		bus,
	)
	if metricsSink != nil {
		sched = sched.WithMetrics(metricsSink)
	}

	var sweep *sweeper.Sweeper
	if cfg.SweepEnabled {
		sweep = sweeper.New(
			sweeper.Config{
				Interval:     cfg.SweepInterval,
				Grace:        cfg.SweepGrace,
				AbandonAfter: cfg.SweepAbandonAfter,
				BatchSize:    cfg.SweepBatchSize,
			},
			store,
			bus,
		)
		if metricsSink != nil {
			sweep = sweep.WithMetrics(metricsSink)
		}
	} else {
		log.Println("socialstream: SWEEP_ENABLED=false; recovery sweep disabled")
	}

	apiHandler := api.NewHandler(store, registry.Platforms()).
		WithIdempotencyGuard(guard).
		WithHealthChecker(db)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiHandler,
	}

	go func() {
		log.Printf("socialstream: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("socialstream: http server error: %v", err)
		}
	}()

	// Dispatch workers consume from the bus on every instance; leader
	// election only gates the polling loops.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	var workerWg sync.WaitGroup
	for i := 0; i < cfg.MaxConcurrentJobs; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			coord.Run(workerCtx, bus.Channel())
		}()
	}
	log.Printf("socialstream: %d dispatch workers started", cfg.MaxConcurrentJobs)

	// startLoops runs the scheduler and sweeper until ctx is cancelled and
	// returns a wait function. With leader election enabled it is invoked on
	// promotion; otherwise once at startup.
	startLoops := func(ctx context.Context) func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
		if sweep != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				sweep.Run(ctx)
			}()
		}
		return wg.Wait
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())

	var loopsWg sync.WaitGroup
	if cfg.LeaderElectionEnabled {
		var mu sync.Mutex
		var waitLoops func()

		elector := leaderelection.New(
			db,
			cfg.LeaderLockKey,
			cfg.LeaderRetryInterval,
			cfg.LeaderHeartbeatInterval,
			func(leaderCtx context.Context) {
				mu.Lock()
				waitLoops = startLoops(leaderCtx)
				mu.Unlock()
			},
			func() {
				mu.Lock()
				wait := waitLoops
				waitLoops = nil
				mu.Unlock()
				if wait != nil {
					wait()
				}
			},
		)
		if metricsSink != nil {
			elector = elector.WithMetrics(metricsSink)
		}

		loopsWg.Add(1)
		go func() {
			defer loopsWg.Done()
			elector.Run(rootCtx)
		}()
		log.Printf("socialstream: leader election enabled (lock_key=%d)", cfg.LeaderLockKey)
	} else {
		wait := startLoops(rootCtx)
		loopsWg.Add(1)
		go func() {
			defer loopsWg.Done()
			wait()
		}()
	}

	log.Printf("socialstream: started (tick=%s, batch=%d, workers=%d, http=%s)",
		cfg.TickInterval, cfg.ClaimBatchSize, cfg.MaxConcurrentJobs, cfg.HTTPAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("socialstream: received signal %v, shutting down", received)

	// Phase 1: Stop scheduler and sweeper (no new jobs emitted)
	log.Println("socialstream: stopping polling loops...")
	cancelRoot()
	loopsWg.Wait()
	log.Println("socialstream: polling loops stopped")

	// Phase 2: Stop workers (each drains buffered jobs before returning)
	log.Println("socialstream: stopping dispatch workers (draining jobs)...")
	cancelWorkers()
	workerWg.Wait()
	log.Println("socialstream: dispatch workers stopped")

	// Phase 3: Stop HTTP server with graceful shutdown
	log.Println("socialstream: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("socialstream: http server shutdown error: %v", err)
	}
	log.Println("socialstream: http server stopped")

	// Phase 4: Stop metrics server if running (with same timeout)
	if metricsServer != nil {
		log.Println("socialstream: stopping metrics server...")
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer metricsShutdownCancel()
		if err := metricsServer.Shutdown(metricsShutdownCtx); err != nil {
			log.Printf("socialstream: metrics server shutdown error: %v", err)
		}
		log.Println("socialstream: metrics server stopped")
	}

	if guardJanitorCancel != nil {
		guardJanitorCancel()
	}

	log.Println("socialstream: stopped")
	return exitSuccess
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("socialstream version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
