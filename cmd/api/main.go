package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-faktur/internal/activity"
	"github.com/noah-isme/backend-faktur/internal/app"
	"github.com/noah-isme/backend-faktur/internal/cache"
	"github.com/noah-isme/backend-faktur/internal/common"
	"github.com/noah-isme/backend-faktur/internal/config"
	"github.com/noah-isme/backend-faktur/internal/customer"
	"github.com/noah-isme/backend-faktur/internal/dashboard"
	"github.com/noah-isme/backend-faktur/internal/dispatch"
	"github.com/noah-isme/backend-faktur/internal/document"
	"github.com/noah-isme/backend-faktur/internal/events"
	"github.com/noah-isme/backend-faktur/internal/health"
	"github.com/noah-isme/backend-faktur/internal/notify"
	"github.com/noah-isme/backend-faktur/internal/obs"
	"github.com/noah-isme/backend-faktur/internal/pdf"
	"github.com/noah-isme/backend-faktur/internal/ratelimit"
	"github.com/noah-isme/backend-faktur/internal/reminder"
	"github.com/noah-isme/backend-faktur/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "faktur")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "faktur-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancelInit := context.WithTimeout(ctx, 5*time.Second)
	defer cancelInit()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "faktur-api"

	pool, err := pgxpool.NewWithConfig(initCtx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	if err := pool.Ping(initCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(initCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	taskConn, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task client")
	}
	taskClient := asynq.NewClient(taskConn)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()

	validate := validator.New()

	documentStore := &document.PGStore{Pool: pool}
	customerStore := &customer.PGStore{Pool: pool}
	eventStore := &events.PGStore{Pool: pool}
	activityStore := &activity.PGStore{Pool: pool}
	dashboardStore := &dashboard.PGStore{Pool: pool}
	dispatchStore := dispatch.NewStore(pool)

	emailQueue := dispatch.Enqueuer{
		R:           redisClient,
		DedupTTL:    cfg.IdempotencyTTL,
		MaxAttempts: cfg.EmailMaxAttempts,
	}
	bus := &events.Bus{
		Store: eventStore,
		Scheduler: events.Schedulers{
			notify.EmailScheduler{Queue: emailQueue, Enabled: cfg.EmailEnabled, MaxAttempts: cfg.EmailMaxAttempts},
			&reminder.Scheduler{Client: taskClient, Lead: cfg.ReminderLead, Enabled: cfg.RemindersEnabled, Logger: &logger},
		},
		Notifiers: []events.Notifier{
			activity.Recorder{Store: activityStore, Enabled: true},
			cache.Invalidator{R: redisClient},
		},
	}

	documentSvc := &document.Service{
		Q:                documentStore,
		Bus:              bus,
		DefaultVatRate:   cfg.DefaultVatRate,
		DefaultCurrency:  cfg.Currency,
		PaymentTermDays:  cfg.PaymentTermDays,
		QuotationPrefix:  cfg.QuotationPrefix,
		InvoicePrefix:    cfg.InvoicePrefix,
		CreditNotePrefix: cfg.CreditNotePrefix,
	}
	documentHandler := &document.Handler{Svc: documentSvc, Validate: validate}

	customerSvc := &customer.Service{Q: customerStore}
	customerHandler := &customer.Handler{Svc: customerSvc, Validate: validate}

	pdfHandler := &pdf.Handler{
		Svc: documentSvc,
		Renderer: pdf.Renderer{Company: pdf.Company{
			Name:    cfg.CompanyName,
			Address: cfg.CompanyAddress,
			TaxID:   cfg.CompanyTaxID,
			Email:   cfg.CompanyEmail,
		}},
	}

	dashboardSvc := &dashboard.Service{
		Q:            dashboardStore,
		R:            redisClient,
		TTL:          cfg.DashboardCacheTTL,
		DefaultRange: cfg.DashboardDefaultRange,
	}
	dashboardHandler := &dashboard.Handler{Svc: dashboardSvc}

	activityHandler := activity.Handler{Store: activityStore}

	dispatchAdmin := &dispatch.AdminHandler{Store: dispatchStore, Queue: emailQueue, Logger: logger}

	limiterStore, err := app.NewLimiterStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise limiter store")
	}
	pdfLimiter := ratelimit.Middleware{
		Store:  limiterStore,
		Rate:   limiter.Rate{Period: cfg.PDFRateWindow, Limit: int64(cfg.PDFRateLimit)},
		Key:    ratelimit.ByClientIP,
		Logger: &logger,
	}
	listLimiter := ratelimit.Middleware{
		Store:  limiterStore,
		Rate:   limiter.Rate{Period: cfg.ListRateWindow, Limit: int64(cfg.ListRateLimit)},
		Key:    ratelimit.ByClientIP,
		Logger: &logger,
	}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enabled: cfg.SecurityHeaders, HSTS: cfg.HSTSEnabled}.Middleware)
	r.Use(security.MaxBody{Limit: cfg.MaxBodyBytes}.Middleware)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	pprofEnabled := envBool("OBS_ENABLE_PPROF", true)
	if pprofEnabled {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{DB: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/customers", func(c chi.Router) {
			c.With(listLimiter.Wrap).Get("/", customerHandler.List)
			c.With(idem.Middleware).Post("/", customerHandler.Create)
			c.Route("/{id}", func(cc chi.Router) {
				cc.Get("/", customerHandler.Get)
				cc.Put("/", customerHandler.Update)
				cc.Delete("/", customerHandler.Delete)
			})
		})

		v.Route("/documents", func(d chi.Router) {
			d.With(listLimiter.Wrap).Get("/", documentHandler.List)
			d.With(idem.Middleware).Post("/", documentHandler.Create)
			d.Post("/preview-totals", documentHandler.PreviewTotals)
			d.Route("/{documentId}", func(dd chi.Router) {
				dd.Get("/", documentHandler.Get)
				dd.Put("/", documentHandler.Update)
				dd.Delete("/", documentHandler.Delete)
				dd.Post("/issue", documentHandler.Issue)
				dd.Post("/void", documentHandler.Void)
				dd.Post("/convert", documentHandler.Convert)
				dd.Get("/payments", documentHandler.ListPayments)
				dd.With(idem.Middleware).Post("/payments", documentHandler.RecordPayment)
				dd.With(pdfLimiter.Wrap).Get("/pdf", pdfHandler.Render)
			})
		})

		v.Get("/dashboard/summary", dashboardHandler.Summary)
		v.Get("/activity", activityHandler.List)

		v.Route("/admin/dispatch", func(a chi.Router) {
			a.Get("/dlq", dispatchAdmin.ListDLQ)
			a.Post("/dlq/replay", dispatchAdmin.ReplayDLQ)
			a.Get("/stats", dispatchAdmin.Stats)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	stop()

	// flip readiness first so load balancers stop routing during the drain
	health.SetReady(false)
	logger.Info().Dur("grace", cfg.ShutdownGrace).Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown http server")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/allocs", pprof.Handler("allocs"))
	mux.Handle("/block", pprof.Handler("block"))
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	mux.Handle("/mutex", pprof.Handler("mutex"))
	mux.Handle("/threadcreate", pprof.Handler("threadcreate"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
