package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tdnguyen/plantdoc/backend/internal/client/diagnosis"
	"github.com/tdnguyen/plantdoc/backend/internal/client/weather"
	"github.com/tdnguyen/plantdoc/backend/internal/config"
	"github.com/tdnguyen/plantdoc/backend/internal/handler"
	"github.com/tdnguyen/plantdoc/backend/internal/service/geo"
	"github.com/tdnguyen/plantdoc/backend/internal/service/pipeline"
	"github.com/tdnguyen/plantdoc/backend/internal/service/session"
	"github.com/tdnguyen/plantdoc/backend/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, err := newStore(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize session store: %v", err)
	}

	sessions := session.NewManager(store, cfg.Storage.SessionKey)

	timeout := time.Duration(cfg.Services.Timeout) * time.Second
	pipe := pipeline.New(
		sessions,
		diagnosis.New(cfg.Services.DiagnosisURL),
		weather.New(cfg.Services.WeatherURL),
		timeout,
	)

	router := handler.NewRouter(pipe, sessions, geo.NewStatic(""))

	startServer(ctx, cfg.Server, router)
}

// newStore picks Redis when an address is configured, the local file
// store otherwise.
func newStore(cfg config.StorageConfig) (storage.Store, error) {
	if cfg.RedisAddr != "" {
		log.Printf("using redis session store at %s", cfg.RedisAddr)
		return storage.NewRedisStore(cfg.RedisAddr)
	}
	log.Printf("using file session store under %s", cfg.DataDir)
	return storage.NewFileStore(cfg.DataDir)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("PlantDoc backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
