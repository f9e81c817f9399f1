package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pairscan/internal/alerting"
	"pairscan/internal/domain"
	"pairscan/internal/observability"
	"pairscan/internal/profile"
	"pairscan/internal/provider"
	"pairscan/internal/provider/dexscreener"
	"pairscan/internal/provider/wsfeed"
	"pairscan/internal/scanner"
	"pairscan/internal/storage"
	chstore "pairscan/internal/storage/clickhouse"
	"pairscan/internal/storage/memory"
	"pairscan/internal/storage/migrations"
	pgstore "pairscan/internal/storage/postgres"
	redisstore "pairscan/internal/storage/redis"
)

func main() {
	// Parse flags
	profiles := flag.String("profiles", "gem,alpha", "Comma-separated built-in profile names")
	profileDir := flag.String("profile-dir", "", "Directory of profile YAML files (overrides --profiles)")
	chains := flag.String("chains", "", "Comma-separated chain override applied to every profile")
	scanInterval := flag.Duration("scan-interval", 0, "Scan interval override applied to every profile (0 = per-profile)")
	wsEndpoint := flag.String("ws-endpoint", "", "Push feed WebSocket endpoint (optional)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for alert records")
	redisAddr := flag.String("redis-addr", "", "Redis address for alert records (overrides --postgres-dsn)")
	redisPassword := flag.String("redis-password", "", "Redis password")
	redisDB := flag.Int("redis-db", 0, "Redis database number")
	redisTTL := flag.Duration("redis-ttl", 7*24*time.Hour, "Redis alert record TTL (0 = no expiry)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the snapshot archive (optional)")
	webhookURL := flag.String("webhook-url", "", "Webhook URL for alert delivery (optional)")
	webhookRetries := flag.Int("webhook-retries", 3, "Webhook delivery retry count")
	queueSize := flag.Int("queue-size", 256, "Alert dispatch queue size")
	cycleTimeout := flag.Duration("cycle-timeout", 2*time.Minute, "Upper bound on one scan cycle")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory alert records instead of a database")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[scanner] ", log.LstdFlags|log.Lshortfile)

	// Load and validate profiles before touching any external system.
	profileList, err := loadProfiles(*profiles, *profileDir, *chains)
	if err != nil {
		logger.Fatalf("Invalid profile configuration: %v", err)
	}
	if *scanInterval > 0 {
		for i := range profileList {
			profileList[i].ScanInterval = *scanInterval
		}
	}
	for _, p := range profileList {
		logger.Printf("Profile %s: chains=%v interval=%s cooldown=%s", p.Name, p.Chains, p.ScanInterval, p.Cooldown)
	}

	// Start metrics server if enabled
	metrics := observability.NewMetrics(nil, "pairscan")
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	// The grace period must outlast an in-flight cycle, which runs to
	// completion on its own timeout after cancellation.
	gracePeriod := *cycleTimeout + 30*time.Second

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(gracePeriod):
			logger.Printf("Graceful shutdown timed out after %s, forcing exit", gracePeriod)
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, logger, metrics, profileList, runOptions{
		cycleTimeout:   *cycleTimeout,
		wsEndpoint:     *wsEndpoint,
		postgresDSN:    *postgresDSN,
		redisAddr:      *redisAddr,
		redisPassword:  *redisPassword,
		redisDB:        *redisDB,
		redisTTL:       *redisTTL,
		clickhouseDSN:  *clickhouseDSN,
		webhookURL:     *webhookURL,
		webhookRetries: *webhookRetries,
		queueSize:      *queueSize,
		useMemory:      *useMemory,
	})

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type runOptions struct {
	cycleTimeout   time.Duration
	wsEndpoint     string
	postgresDSN    string
	redisAddr      string
	redisPassword  string
	redisDB        int
	redisTTL       time.Duration
	clickhouseDSN  string
	webhookURL     string
	webhookRetries int
	queueSize      int
	useMemory      bool
}

// loadProfiles resolves the profile set from flags: a YAML directory when
// given, built-in names otherwise. An optional chain override replaces
// every profile's chain list.
func loadProfiles(names, dir, chainOverride string) ([]domain.Profile, error) {
	var (
		list []domain.Profile
		err  error
	)

	if dir != "" {
		list, err = profile.LoadDir(dir)
		if err != nil {
			return nil, err
		}
	} else {
		for _, name := range strings.Split(names, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			p, err := profile.Builtin(name)
			if err != nil {
				return nil, err
			}
			list = append(list, p)
		}
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("no profiles configured")
	}

	if chainOverride != "" {
		var override []string
		for _, c := range strings.Split(chainOverride, ",") {
			c = strings.TrimSpace(c)
			if c != "" {
				override = append(override, c)
			}
		}
		for i := range list {
			list[i].Chains = override
		}
	}

	for _, p := range list {
		if err := profile.Validate(p); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// run wires stores, adapters, sinks and one session per profile, then
// blocks until ctx is canceled and every session has drained.
func run(ctx context.Context, logger *log.Logger, metrics *observability.Metrics, profiles []domain.Profile, opts runOptions) error {
	// Alert record store: redis > postgres > memory.
	var recordStore storage.AlertRecordStore

	switch {
	case opts.redisAddr != "":
		store, err := redisstore.NewAlertRecordStore(ctx, redisstore.Options{
			Addr:     opts.redisAddr,
			Password: opts.redisPassword,
			DB:       opts.redisDB,
			TTL:      opts.redisTTL,
		})
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer store.Close()
		recordStore = store
		logger.Printf("Alert records: redis at %s", opts.redisAddr)

	case opts.postgresDSN != "":
		pool, err := pgstore.NewPool(ctx, opts.postgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := migrations.RunPostgresMigrations(ctx, pool.Pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}
		recordStore = pgstore.NewAlertRecordStore(pool)
		logger.Println("Alert records: postgres")

	case opts.useMemory:
		recordStore = memory.NewAlertRecordStore()
		logger.Println("Alert records: in-memory (not durable)")

	default:
		return fmt.Errorf("--redis-addr or --postgres-dsn is required (use --use-memory for in-memory records)")
	}

	// Snapshot archive is optional.
	var archive storage.SnapshotStore
	if opts.clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, opts.clickhouseDSN)
		if err != nil {
			return fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		if err := migrations.RunClickhouseMigrations(ctx, conn.Conn); err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		archive = chstore.NewSnapshotStore(conn)
		logger.Println("Snapshot archive: clickhouse")
	}

	// Adapters: DexScreener pull always, push feed when configured.
	adapters := []provider.Adapter{
		dexscreener.New(dexscreener.Options{Logger: logger}),
	}
	if opts.wsEndpoint != "" {
		feed, err := wsfeed.New(ctx, opts.wsEndpoint, nil)
		if err != nil {
			return fmt.Errorf("connect push feed: %w", err)
		}
		defer feed.Close()
		adapters = append(adapters, feed)
		logger.Printf("Push feed connected: %s", opts.wsEndpoint)
	}

	// Sinks: webhook when configured, log output otherwise.
	sinks := []alerting.Sink{alerting.NewLogSink(logger)}
	if opts.webhookURL != "" {
		sinks = append(sinks, alerting.NewWebhookSink(alerting.WebhookOptions{
			URL:        opts.webhookURL,
			RetryCount: opts.webhookRetries,
		}))
		logger.Printf("Webhook sink: %s", opts.webhookURL)
	}

	dispatcher := alerting.NewDispatcher(alerting.DispatcherOptions{
		QueueSize: opts.queueSize,
		Sinks:     sinks,
		Metrics:   metrics,
		Logger:    logger,
	})

	// One session per profile, each on its own cadence with its own
	// tracker. Trackers share the record store; records are keyed per
	// profile so the sessions never collide.
	sessions := make([]*scanner.Session, 0, len(profiles))
	for _, p := range profiles {
		tracker := alerting.NewTracker(alerting.TrackerOptions{
			Profile:       p.Name,
			Cooldown:      p.Cooldown,
			MinScoreDelta: p.MinScoreDelta,
			Store:         recordStore,
			Logger:        logger,
		})

		session, err := scanner.NewSession(scanner.Options{
			Profile:      p,
			Adapters:     adapters,
			Tracker:      tracker,
			Dispatcher:   dispatcher,
			Archive:      archive,
			Metrics:      metrics,
			Logger:       logger,
			CycleTimeout: opts.cycleTimeout,
		})
		if err != nil {
			return fmt.Errorf("create session %s: %w", p.Name, err)
		}
		sessions = append(sessions, session)
	}

	logger.Printf("Scanning with %d profile(s), %d adapter(s)", len(profiles), len(adapters))

	// The runner stops the dispatcher only after every session has
	// finished its in-flight cycle, so accepted alerts are not lost on
	// shutdown.
	scanner.NewRunner(dispatcher, sessions...).Run(ctx)

	stats := dispatcher.Stats()
	logger.Printf("Dispatch totals: enqueued=%d delivered=%d failed=%d dropped=%d",
		stats.Enqueued, stats.Delivered, stats.Failed, stats.Dropped)

	return ctx.Err()
}
