package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"clinic-register/internal/audit"
	"clinic-register/internal/auth"
	"clinic-register/internal/eventing"
	expenseapp "clinic-register/internal/expense/application"
	expenserepo "clinic-register/internal/expense/infrastructure/postgres"
	expensehttp "clinic-register/internal/expense/interfaces/http"
	"clinic-register/internal/observability/metrics"
	registerapp "clinic-register/internal/register/application"
	registerrepo "clinic-register/internal/register/infrastructure/postgres"
	registerhttp "clinic-register/internal/register/interfaces/http"
	registeradapter "clinic-register/internal/settlement/adapters/register"
	settlementapp "clinic-register/internal/settlement/application"
	settlementrepo "clinic-register/internal/settlement/infrastructure/postgres"
	settlementhttp "clinic-register/internal/settlement/interfaces/http"
	"clinic-register/internal/settlement/interfaces/notify"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	settlementCfg, err := settlementapp.LoadConfig()
	if err != nil {
		logger.Fatalf("settlement config error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	bus := eventing.NewInMemoryBus()

	consultationRepo := registerrepo.NewConsultationRepository(db)
	registerService, err := registerapp.NewService(consultationRepo, bus, registerapp.SystemClock{})
	if err != nil {
		logger.Fatalf("register service error: %v", err)
	}
	registerHandler, err := registerhttp.NewHandler(registerService, auditRepo)
	if err != nil {
		logger.Fatalf("register handler error: %v", err)
	}

	expenseRepo := expenserepo.NewExpenseRepository(db)
	expenseService, err := expenseapp.NewService(expenseRepo, expenseapp.SystemClock{})
	if err != nil {
		logger.Fatalf("expense service error: %v", err)
	}
	expenseHandler, err := expensehttp.NewHandler(expenseService, auditRepo)
	if err != nil {
		logger.Fatalf("expense handler error: %v", err)
	}

	var discrepancyNotifier settlementapp.DiscrepancyNotifier
	if settlementCfg.WebhookURL != "" {
		notifier, err := notify.NewWebhookNotifier(settlementCfg.WebhookURL)
		if err != nil {
			logger.Fatalf("discrepancy webhook error: %v", err)
		}
		discrepancyNotifier = notifier
	}
	revenueReader := registeradapter.NewDayRevenueReader(db)
	recordRepo := settlementrepo.NewSettlementRepository(db)
	settlementService, err := settlementapp.NewService(recordRepo, revenueReader, expenseService, bus, discrepancyNotifier, settlementapp.SystemClock{}, settlementCfg.Tolerance)
	if err != nil {
		logger.Fatalf("settlement service error: %v", err)
	}
	settlementHandler, err := settlementhttp.NewHandler(settlementService, auditRepo, settlementCfg.ClinicName, settlementCfg.Currency)
	if err != nil {
		logger.Fatalf("settlement handler error: %v", err)
	}

	bus.Subscribe(eventing.EventTypeOf[registerapp.ConsultationCancelled](), func(ctx context.Context, event any) error {
		evt, ok := event.(registerapp.ConsultationCancelled)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.Printf("consultation cancelled: id=%s day=%s freed_sequence=%d actor=%s",
			evt.ConsultationID, evt.DayStart.Format("2006-01-02"), evt.FreedSequence, evt.Actor)
		return nil
	})
	bus.Subscribe(eventing.EventTypeOf[registerapp.SequenceRepaired](), func(ctx context.Context, event any) error {
		evt, ok := event.(registerapp.SequenceRepaired)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.Printf("sequence repaired: day=%s changed=%d actor=%s",
			evt.DayStart.Format("2006-01-02"), evt.Changed, evt.Actor)
		return nil
	})
	bus.Subscribe(eventing.EventTypeOf[settlementapp.RegisterClosed](), func(ctx context.Context, event any) error {
		evt, ok := event.(settlementapp.RegisterClosed)
		if !ok {
			return eventing.ErrInvalidEventType
		}
		logger.Printf("register closed: day=%s version=%d overall=%s by=%s",
			evt.DayStart.Format("2006-01-02"), evt.Version, evt.Overall, evt.ClosedBy)
		return nil
	})

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/consultations", registerHandler)
	mux.Handle("/api/v1/consultations/", registerHandler)
	mux.Handle("/api/v1/sequence/repair", registerHandler)
	mux.Handle("/api/v1/expenses", expenseHandler)
	mux.Handle("/api/v1/expenses/", expenseHandler)
	mux.Handle("/api/v1/settlements", settlementHandler)
	mux.Handle("/api/v1/settlements/", settlementHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
