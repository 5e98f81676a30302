package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"connectrpc.com/connect"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/api/option"

	"github.com/castlemilk/pfinance/insights/internal/auth"
	"github.com/castlemilk/pfinance/insights/internal/config"
	"github.com/castlemilk/pfinance/insights/internal/engine"
	"github.com/castlemilk/pfinance/insights/internal/logger"
	"github.com/castlemilk/pfinance/insights/internal/service"
	"github.com/castlemilk/pfinance/insights/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var storeImpl store.Store
	var verifier auth.TokenVerifier

	if cfg.UseMemoryStore {
		log.Info().Msg("using in-memory store with mock authentication")
		storeImpl = store.NewMemoryStore()
	} else {
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		firestoreClient, err := firestore.NewClient(ctx, cfg.GoogleCloudProject, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create Firestore client")
		}
		defer firestoreClient.Close()
		storeImpl = store.NewFirestoreStore(firestoreClient)

		if cfg.SkipAuth {
			log.Warn().Msg("SKIP_AUTH enabled, using mock authentication with Firestore")
		} else {
			firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.GoogleCloudProject, cfg.CredentialsFile)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to initialize Firebase Auth")
			}
			verifier = firebaseVerifier
		}
	}

	engineCfg := engine.DefaultConfig()
	engineCfg.Horizon = cfg.ForecastHorizon
	engineCfg.LookbackMonths = cfg.LookbackMonths
	eng := engine.New(engine.WithConfig(engineCfg), engine.WithLogger(log))

	insightsService := service.NewInsightsService(storeImpl, eng,
		service.WithFreeTierLimit(cfg.FreeTierTransactionLimit))

	// logging wraps auth so rejected calls are logged too
	interceptors := []connect.Interceptor{
		logger.Interceptor(log),
		auth.DebugInterceptor(cfg.SkipAuth || cfg.UseMemoryStore),
	}
	if verifier != nil {
		interceptors = append(interceptors, auth.NewAuthInterceptor(verifier))
	} else {
		interceptors = append(interceptors, auth.LocalDevInterceptor(auth.TierPro))
	}

	path, handler := service.NewHandler(insightsService, connect.WithInterceptors(interceptors...))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Content-Type",
			"User-Agent",
			"X-User-Agent",
			auth.HeaderImpersonateUser,
			auth.HeaderTier,
		},
		ExposedHeaders: []string{
			service.HeaderDataErrorCode,
			service.HeaderDataErrorTransaction,
		},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2c.NewHandler(c.Handler(mux), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go shutdownOnDone(ctx, srv, log)

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting insights server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func shutdownOnDone(ctx context.Context, srv *http.Server, log zerolog.Logger) {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return
	}
	log.Info().Msg("server stopped")
}
