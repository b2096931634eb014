package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ironsheep/product-vision/internal/config"
	"github.com/ironsheep/product-vision/internal/detection"
	"github.com/ironsheep/product-vision/internal/server"
	"github.com/ironsheep/product-vision/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("product-vision %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		}
	}

	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func run(cfg *config.Config) error {
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	images, err := store.NewImageDir(cfg.DataDir)
	if err != nil {
		return err
	}

	opts := detection.Options{
		ConfidenceThreshold:      cfg.Detection.ConfidenceThreshold,
		MaxMatches:               cfg.Detection.MaxMatches,
		MinTrainingImages:        cfg.Detection.MinTrainingImages,
		ExtractionTimeout:        cfg.Detection.ExtractionTimeout(),
		MaxConcurrentExtractions: cfg.Detection.MaxConcurrentExtractions,
	}

	detector := detection.NewDetector(st, opts)
	trainer := detection.NewTrainer(st, images, opts)
	handler := server.New(detector, trainer, st, cfg.MaxUploadBytes)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("product-vision %s listening on :%d", Version, cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
