/*
main.go - Application entry point

PURPOSE:
  Starts the offline-first data-access service: opens the durable store,
  loads the persisted operation mode, starts the connectivity prober, and
  serves the local API with graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (configs/config.yaml + environment)
  2. Open the SQLite store and migrate the schema
  3. Load the persisted operation mode into the cached flag
  4. Start the background connectivity prober
  5. Assemble adapters, syncer, and router; serve

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the prober, close the database
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration keys and defaults
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/erp-offline/api"
	"github.com/warp/erp-offline/config"
	"github.com/warp/erp-offline/erp"
	"github.com/warp/erp-offline/generic"
	"github.com/warp/erp-offline/store/sqlite"
	"github.com/warp/erp-offline/syncer"
	"github.com/warp/erp-offline/transport"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()

	store, err := sqlite.New(cfg.Database.Path, erp.IndexFields())
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer store.Close()

	remote := transport.New(cfg.Remote.BaseURL,
		transport.WithToken(func() string { return cfg.Remote.Token }),
		transport.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Remote.TimeoutSeconds) * time.Second,
		}),
	)

	// Persisted operator mode, cached for per-operation reads.
	mode, err := store.GetSetting(context.Background(), generic.SettingOperationMode)
	if err != nil {
		log.WithError(err).Fatal("failed to load operation mode")
	}
	flag := generic.NewFlag(generic.Mode(mode))
	conn := generic.NewSignal()
	detector := generic.NewModeDetector(flag, conn)

	// Background connectivity prober feeding the live signal.
	probeCtx, stopProbe := context.WithCancel(context.Background())
	defer stopProbe()
	go probeLoop(probeCtx, remote, conn,
		time.Duration(cfg.Sync.ProbeIntervalSeconds)*time.Second, log)

	client := erp.New(erp.Deps{
		Local:    store,
		Queue:    store,
		Remote:   remote,
		Detector: detector,
		Log:      log,
	})
	sync := syncer.New(store, store, remote, store, log)

	handler := &api.Handler{
		Client:   client,
		Sync:     sync,
		Local:    store,
		Queue:    store,
		Settings: store,
		Flag:     flag,
		Detector: detector,
		Log:      log,
	}
	router := api.NewRouter(handler, cfg.Server.CorsAllowedOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("data-access service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}

// probeLoop keeps the connectivity signal current.
func probeLoop(ctx context.Context, remote *transport.Client, sig *generic.Signal, interval time.Duration, log *logrus.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		up := remote.Probe(probeCtx)
		cancel()
		if up != sig.Connected() {
			log.WithField("connected", up).Info("connectivity changed")
		}
		sig.SetConnected(up)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
