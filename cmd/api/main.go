package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"refpay.org/internal/assignment"
	"refpay.org/internal/catalog"
	"refpay.org/internal/config"
	"refpay.org/internal/httpapi"
	"refpay.org/internal/obs"
	"refpay.org/internal/rates"
	"refpay.org/internal/settlement"
	"refpay.org/internal/store/pg"
	"refpay.org/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	// Postgres when a DSN is configured, in-memory otherwise. The
	// in-memory mode serves local development and the simulator.
	var (
		registry  assignment.Service
		rateTable rates.Service
		cat       catalog.Store
		probe     httpapi.ReadyProbe
		pgStore   *pg.Store
	)
	if cfg.PostgresDSN != "" {
		pgStore, err = pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		registry = pgStore
		rateTable = pgStore.Rates()
		cat = pgStore
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		memCat := catalog.NewInMemory()
		cat = memCat
		registry = assignment.NewInMemory(memCat)
		rateTable = rates.NewInMemory()
		obs.Log("warn", "running with in-memory stores", nil)
	}

	calc := settlement.NewCalculator(registry, rateTable, cat)
	events := stream.New()

	api := httpapi.New(probe, version, registry, rateTable, calc, events)
	api.SetLimits(cfg.RateBurst, cfg.RatePerSec, cfg.MaxBodyBytes)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second, // SSE subscribers hold the response open
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if cfg.GRPCAddr != "" {
		healthSrv := httpapi.NewGRPCHealth(probe)
		go func() {
			log.Printf("gRPC health on %s", cfg.GRPCAddr)
			if err := healthSrv.Serve(rootCtx, cfg.GRPCAddr); err != nil {
				log.Printf("grpc health: %v", err)
			}
		}()
	}

	log.Printf("Starting refpay-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-rootCtx.Done()
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}
