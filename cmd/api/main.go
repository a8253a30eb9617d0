package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"admin-actions/internal/audit"
	"admin-actions/internal/auth"
	"admin-actions/internal/backend"
	"admin-actions/internal/config"
	"admin-actions/internal/control"
	"admin-actions/internal/events"
	"admin-actions/internal/httpapi"
	"admin-actions/internal/metrics"
	"admin-actions/internal/panel"
	"admin-actions/internal/reporting"
	"admin-actions/internal/telemetry"
	"admin-actions/internal/ws"
	"admin-actions/pkg/logger"
	"admin-actions/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// auditStore is what the audit log backend must offer: appends from the
// panels and range reads for reports.
type auditStore interface {
	audit.Repository
	reporting.Repository
}

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadEnvFiles(); err != nil {
		slog.Error("env file load failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Telemetry.OTLPEndpoint != "" {
		ep, err := telemetry.ParseEndpoint(cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			log.Error("telemetry endpoint invalid", "err", err)
			os.Exit(1)
		}
		shutdownTracer, err := telemetry.InitTracer(rootCtx, cfg.Telemetry.ServiceName, version, ep)
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracer(ctx)
		}()
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	var (
		db        *sql.DB
		auditRepo auditStore = audit.NewMemoryRepo()
	)
	if cfg.HasDB() {
		db, err = utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := utils.ApplySchema(rootCtx, db, audit.SchemaStatements...); err != nil {
			log.Error("audit schema failed", "err", err)
			os.Exit(1)
		}
		auditRepo = audit.NewPostgresRepo(db)
	} else {
		log.Warn("DB_HOST not set, audit events kept in memory")
	}

	var lease panel.Lease
	if cfg.HasRedis() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		lease = panel.NewRedisLease(rdb, cfg.Redis.LeaseTTL)
	}

	client, err := newBackendClient(cfg.Backend)
	if err != nil {
		log.Error("backend client init failed", "err", err)
		os.Exit(1)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	hub := ws.NewHub(log, originChecker(cfg.App.AllowedOrigins))
	controls := control.NewRegistry()
	controls.Subscribe(hub)
	controls.Subscribe(m)
	fields := panel.NewFields(hub.FieldsReplaced)

	observers := panel.Observers{
		panel.AuditObserver{Service: audit.NewService(auditRepo)},
		panel.MetricsObserver{Metrics: m},
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka producer init failed", "err", err)
			os.Exit(1)
		}
		defer producer.Close()
		observers = append(observers, panel.EventsObserver{Publisher: producer})
	}

	h := httpapi.Handlers{
		Auth:     authManager,
		Controls: controls,
		Fields:   fields,
		Reports:  reporting.NewService(auditRepo),
		Calls: &panel.CallPanel{
			Controls: controls,
			Backend:  client,
			Lease:    lease,
			Fields:   fields,
			Endpoints: panel.Endpoints{
				ProgressURL: cfg.Backend.CallProgressURL,
				TriggerURL:  cfg.Backend.CallTriggerURL,
				StatusURL:   cfg.Backend.CallStatusURL,
			},
			Observer: observers,
		},
		Payments: &panel.PaymentPanel{
			Controls: controls,
			Backend:  client,
			Observer: observers,
		},
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		Handlers:  h,
		AuthMW:    auth.RequireAccessToken(authManager),
		Hub:       hub,
		Metrics:   promReg,
		Health:    healthCheck(db),
		DevTokens: !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           otelhttp.NewHandler(r, "admin-actions"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: a click waits for the backend without a deadline
		// and the websocket connections are long lived.
	}

	g, gctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("http server failed", "err", err)
	}
}

func newBackendClient(cfg config.BackendConfig) (*backend.Client, error) {
	hc := backend.NewHTTPClient()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	hc.Jar = jar

	var tokens backend.TokenSource = backend.StaticToken(cfg.CSRFToken)
	if cfg.CSRFPageURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		page, err := url.Parse(cfg.CSRFPageURL)
		if err != nil {
			return nil, err
		}
		tokens = &backend.FormTokenSource{Client: hc, PageURL: base.ResolveReference(page).String()}
	}
	return backend.NewClient(backend.Config{BaseURL: cfg.BaseURL, PaymentsPath: cfg.PaymentsPath}, hc, tokens)
}

// originChecker accepts websocket upgrades from the listed origins. With
// no list the upgrader's same-origin default applies.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

func healthCheck(db *sql.DB) func(ctx context.Context) error {
	if db == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return utils.HealthCheck(ctx, db, 2*time.Second)
	}
}
