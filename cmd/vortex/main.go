// Package main is the entrypoint for the Vortex API server: the execution
// plane behind function deploys, synchronous invocations, and streaming
// log subscriptions.
package main

import (
	"context"
	"log"
	"os"

	"github.com/divitsinghall/Vortex/internal/api"
	"github.com/divitsinghall/Vortex/internal/config"
	"github.com/divitsinghall/Vortex/internal/engine"
	"github.com/divitsinghall/Vortex/internal/runner"
	"github.com/divitsinghall/Vortex/internal/runner/isolate"
	"github.com/divitsinghall/Vortex/internal/runner/process"
	"github.com/divitsinghall/Vortex/internal/store"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("vortex: starting",
		"listen_addr", cfg.ListenAddr,
		"runtime", cfg.Runtime,
		"store", cfg.Store,
		"max_concurrent", cfg.MaxConcurrent,
		"exec_timeout", cfg.ExecTimeout.String(),
	)

	ctx := context.Background()

	var blobs store.BlobStore
	var err error
	switch cfg.Store {
	case config.StoreMinio:
		blobs, err = store.NewMinioStore(ctx, store.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			UseSSL:    cfg.Minio.UseSSL,
		}, logger)
	default:
		blobs, err = store.NewLocalStore(cfg.StoreDir)
	}
	if err != nil {
		log.Fatalf("failed to open blob store: %v", err)
	}

	var bus engine.Bus
	if cfg.RedisAddr != "" {
		redisBus, rErr := engine.NewRedisBus(ctx, cfg.RedisAddr, logger)
		if rErr != nil {
			log.Fatalf("failed to connect event bus broker: %v", rErr)
		}
		defer redisBus.Shutdown()
		bus = redisBus
	} else {
		bus = engine.NewMemoryBus(cfg.SubscribeGrace)
	}

	var r runner.Runner
	if cfg.Runtime == config.RuntimeProcess {
		r = process.New(cfg.RuntimeBinary, cfg.RedisAddr, logger)
	} else {
		r = isolate.New()
	}

	eng := engine.New(
		engine.NewWorkerPool(cfg.MaxConcurrent),
		bus,
		r,
		logger,
		cfg.ExecTimeout,
	)

	srv := api.NewServer(cfg.ListenAddr, blobs, eng, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
