package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/people/backend/internal/config"
	"github.com/zhouzirui/people/backend/internal/handler"
	"github.com/zhouzirui/people/backend/internal/metrics"
	"github.com/zhouzirui/people/backend/internal/model/person"
	"github.com/zhouzirui/people/backend/internal/service/people"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run owns every deferred cleanup so it executes before main exits.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open person store: %w", err)
	}
	defer closeStore()

	seeded, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list seeded people: %w", err)
	}
	for _, p := range seeded {
		log.Printf("[people] seeded person id=%d name=%q", p.ID, p.Name)
	}

	m := metrics.New()
	hub := people.NewHub(cfg.Events.Buffer)
	defer hub.Close()
	peopleService := people.NewService(store, hub, m)

	router := handler.NewRouter(peopleService, m, handler.RouterOptions{
		CORSOrigins:   cfg.Server.CORSOrigins,
		TraceRequests: cfg.Server.TraceRequests,
	})

	return startServer(ctx, cfg.Server, router, hub)
}

// openStore builds the configured store and a func releasing it.
func openStore(ctx context.Context, cfg config.StoreConfig) (person.Store, func(), error) {
	if cfg.Driver == config.DriverMemory {
		log.Println("using in-memory person registry")
		return person.NewMemoryStore(person.SeedNames()), func() {}, nil
	}

	store, err := person.NewSQLStore(ctx, cfg.Driver, cfg.DSN, person.SeedNames())
	if err != nil {
		return nil, nil, err
	}
	log.Printf("using %s person store", cfg.Driver)
	return store, func() { closeQuietly(store) }, nil
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		log.Printf("warning: close failed: %v", err)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, hub *people.Hub) error {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Live feed handlers only return once their subscription closes.
	srv.RegisterOnShutdown(hub.Close)

	log.Printf("people backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
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
