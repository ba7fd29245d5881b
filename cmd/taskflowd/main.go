// Command taskflowd runs the task queue daemon: the HTTP API, the
// dispatcher with its simulated executor, and the configured storage
// and event backends.
//
// Run: taskflowd [-config taskflow.toml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/taskflow-go/taskflow/api"
	"github.com/taskflow-go/taskflow/config"
	"github.com/taskflow-go/taskflow/dispatch"
	"github.com/taskflow-go/taskflow/events"
	"github.com/taskflow-go/taskflow/logging"
	"github.com/taskflow-go/taskflow/ratelimit"
	"github.com/taskflow-go/taskflow/shutdown"
	"github.com/taskflow-go/taskflow/store"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "taskflowd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log := logging.New().WithComponent("taskflowd")
	log.SetLevel(logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	stream, err := openStream(cfg, log)
	if err != nil {
		st.Close()
		return err
	}

	var limiter ratelimit.Limiter
	if cfg.API.RateLimit > 0 {
		limiter = ratelimit.NewMemoryLimiter(
			ratelimit.WithDefaultCapacity(cfg.API.RateLimit, cfg.API.RateWindow.Std()),
		)
	}

	server := api.NewServer(st,
		api.WithAPIKey(cfg.API.APIKey),
		api.WithLimiter(limiter),
		api.WithEmitter(stream),
	)
	httpServer := &http.Server{
		Addr:         cfg.API.ListenAddr,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	var dispatcher *dispatch.Dispatcher
	if cfg.Worker.Enabled {
		exec := dispatch.NewSimExecutor()
		exec.FailureRate = cfg.Worker.SimFailureRate
		exec.TimeScale = cfg.Worker.SimTimeScale

		dispatcher = dispatch.NewDispatcher(st, exec, dispatch.Config{
			Concurrency:       cfg.Worker.Concurrency,
			PollInterval:      cfg.Worker.PollInterval.Std(),
			HeartbeatInterval: dispatch.DefaultHeartbeatInterval,
		}, dispatch.WithEmitter(stream))
		dispatcher.Start()
	}

	coord := shutdown.NewCoordinator()
	coord.RegisterFunc("http-server", shutdown.PhaseAPI, httpServer.Shutdown)
	if dispatcher != nil {
		coord.RegisterFunc("dispatcher", shutdown.PhaseDispatcher, dispatcher.Stop)
	}
	coord.RegisterFunc("event-stream", shutdown.PhaseInfra, func(context.Context) error {
		return stream.Close()
	})
	coord.RegisterFunc("store", shutdown.PhaseInfra, func(context.Context) error {
		return st.Close()
	})
	if limiter != nil {
		coord.RegisterFunc("rate-limiter", shutdown.PhaseInfra, func(context.Context) error {
			return limiter.Close()
		})
	}
	coord.HandleSignals()

	log.Info("listening", map[string]interface{}{"addr": cfg.API.ListenAddr})
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdown.DefaultTimeout)
		defer cancel()
		_ = coord.Shutdown(shutdownCtx)
		return err
	}

	<-coord.Done()
	return coord.Err()
}

func openStore(ctx context.Context, cfg config.Config, log *logging.Logger) (store.Store, error) {
	if cfg.Database.URL == "" {
		log.Info("using in-memory store")
		return store.NewMemoryStore(), nil
	}

	pool, err := store.Connect(ctx, cfg.Database.URL, int32(cfg.Database.MaxConns))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	pg := store.NewPgStore(pool)
	if err := pg.EnsureTable(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	log.Info("using postgres store")
	return pg, nil
}

func openStream(cfg config.Config, log *logging.Logger) (events.Stream, error) {
	if cfg.Events.NATSURL == "" {
		return events.NewMemoryStream(), nil
	}

	stream, err := events.NewNATSStream(events.NATSConfig{URL: cfg.Events.NATSURL})
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	log.Info("publishing events to nats", map[string]interface{}{"url": cfg.Events.NATSURL})
	return stream, nil
}
