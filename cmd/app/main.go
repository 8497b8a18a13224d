package main

import (
	"VisionAid/internal/catalog"
	"VisionAid/internal/config"
	"VisionAid/pkg/detector/onnx"
	"VisionAid/pkg/log"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envErr := godotenv.Load()

	logger := log.NewLogger()
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Fatalf("Error loading .env file: %v", envErr)
	} else if envErr != nil {
		logger.Info("No .env file found, using process environment")
	}

	validator := config.NewValidator()
	env, err := config.LoadEnv(validator)
	if err != nil {
		logger.Fatal(err)
	}

	objects, err := catalog.Load(env.CatalogPath)
	if err != nil {
		logger.Fatalf("Error loading object catalog: %v", err)
	}
	logger.Infof("Loaded %d object widths", objects.Objects.Len())

	det, err := config.NewDetector(env, logger)
	if err != nil {
		logger.Fatalf("Error creating %s detector: %v", env.DetectorBackend, err)
	}
	defer func() {
		if err := onnx.DestroyEnvironment(); err != nil {
			logger.Errorf("Error releasing onnx runtime: %v", err)
		}
	}()

	fiberApp := config.NewFiber(logger)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithEnv(env),
		config.WithMiddleware(),
		config.WithDetector(det),
		config.WithCatalog(objects),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("Server starting on port %s with %s detector", env.AppPort, env.DetectorBackend)
		return server.Run()
	})

	g.Go(func() error {
		return server.WatchProcess(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		return server.Shutdown(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
	}
	logger.Info("Server stopped")
}
