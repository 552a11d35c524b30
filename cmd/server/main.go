package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	miniosink "github.com/pixvend/credit-ledger/internal/archive/minio"
	"github.com/pixvend/credit-ledger/internal/auth"
	"github.com/pixvend/credit-ledger/internal/config"
	"github.com/pixvend/credit-ledger/internal/events/kafka"
	"github.com/pixvend/credit-ledger/internal/interfaces"
	"github.com/pixvend/credit-ledger/internal/ledger"
	"github.com/pixvend/credit-ledger/internal/notification"
	"github.com/pixvend/credit-ledger/internal/report"
	"github.com/pixvend/credit-ledger/internal/storage/memory"
	"github.com/pixvend/credit-ledger/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.Must(zap.NewDevelopment()).Fatal("load config", zap.Error(err))
	}

	log := newLogger(cfg.AppEnv)
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx := context.Background()

	var store interfaces.CreditStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		pg := postgres.NewStore(db)
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal("migrate database", zap.Error(err))
		}
		store = pg
		log.Info("using postgres credit store")
	} else {
		store = memory.NewStore()
		log.Warn("DATABASE_URL not set, using in-memory credit store")
	}

	opts := ledger.Options{UnitPrice: cfg.UnitPrice, Logger: log}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		opts.Publisher = publisher
		log.Info("event publishing enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	if cfg.MinioEndpoint != "" {
		sink, err := miniosink.NewSink(ctx, miniosink.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Secure:    cfg.MinioSecure,
		})
		if err != nil {
			log.Fatal("create archive sink", zap.Error(err))
		}
		opts.Archive = sink
		log.Info("receipt archival enabled", zap.String("bucket", cfg.MinioBucket))
	}

	service := ledger.NewService(store, opts)

	trust := auth.TrustConfig{
		InstitutionAddr: cfg.InstitutionAddr,
		Secret:          cfg.InstitutionSecret,
		SandboxPassword: cfg.SandboxPassword,
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/notifications", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		if err := auth.Verify(trust, authRequest(r)); err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, auth.ErrAddressNotAuthorized) {
				status = http.StatusForbidden
			}
			log.Warn("batch rejected", zap.Error(err), zap.String("remote", r.RemoteAddr))
			http.Error(w, err.Error(), status)
			return
		}

		batchID := uuid.New().String()
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "read request body", http.StatusBadRequest)
			return
		}

		// Once authenticated, the institution always gets a success
		// acknowledgment: malformed items are its data, not its fault.
		records, skipped, err := notification.ParseBatch(body)
		if err != nil {
			log.Warn("undecodable batch payload", zap.String("batch_id", batchID), zap.Error(err))
		}

		result := service.ProcessBatch(r.Context(), records)
		result.Skipped = skipped

		log.Info("batch processed",
			zap.String("batch_id", batchID),
			zap.Int("accrued", result.Accrued),
			zap.Int("duplicates", result.Duplicates),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})

	http.HandleFunc("/credit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		txid := r.URL.Query().Get("txid")
		if txid == "" {
			http.Error(w, "txid is a mandatory field", http.StatusBadRequest)
			return
		}

		amount, err := service.Consume(r.Context(), txid)
		if errors.Is(err, interfaces.ErrNotFound) {
			http.Error(w, "unknown txid", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			TxID   string `json:"txid"`
			Amount string `json:"amount"`
		}{TxID: txid, Amount: amount.StringFixed(2)})
	})

	http.HandleFunc("/pulses", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		txid := r.URL.Query().Get("txid")
		if txid == "" {
			http.Error(w, "txid is a mandatory field", http.StatusBadRequest)
			return
		}

		units, remainder, err := service.ConsumeUnits(r.Context(), txid)
		if errors.Is(err, interfaces.ErrNotFound) {
			http.Error(w, "unknown txid", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			TxID      string `json:"txid"`
			Units     int64  `json:"units"`
			Remainder string `json:"remainder"`
		}{TxID: txid, Units: units, Remainder: remainder.StringFixed(2)})
	})

	http.HandleFunc("/entries", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		entries, err := service.Entries(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		report.Render(w, entries)
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Info("starting server", zap.String("addr", cfg.ListenAddr))
	if err := server.ListenAndServe(); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// authRequest assembles the authentication context for one inbound batch.
// The observed source is the remote address unless a gateway forwarded the
// original via X-Source-Address. The sandbox password travels in the hidden
// "senha" query parameter.
func authRequest(r *http.Request) auth.Request {
	source := r.Header.Get("X-Source-Address")
	if source == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			source = host
		} else {
			source = r.RemoteAddr
		}
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	return auth.Request{
		SourceAddr:      source,
		Token:           token,
		SandboxPassword: r.URL.Query().Get("senha"),
	}
}

func newLogger(env string) *zap.Logger {
	if env != "production" {
		return zap.Must(zap.NewDevelopment())
	}

	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zap.Must(config.Build())
}
