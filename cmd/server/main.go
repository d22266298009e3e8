package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docextract/internal/config"
	"docextract/internal/extractor"
	"docextract/internal/handler"
	"docextract/internal/llm"
	"docextract/internal/llm/openai"
	"docextract/internal/llm/openrouter"
	"docextract/internal/logger"
	"docextract/internal/ocr"
	"docextract/internal/port"
	"docextract/internal/router"
	"docextract/internal/service"
	s3storage "docextract/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register LLM providers
	llm.RegisterProvider("openrouter", openrouter.NewChatCompleter)
	llm.RegisterProvider("openai", openai.NewChatCompleter)

	var chat port.ChatCompleter
	if cfg.LLM.Enabled() {
		chat, err = llm.NewChatCompleter(&cfg.LLM, zl)
		if err != nil {
			zl.Error("llm provider unavailable, using heuristic extraction only",
				zap.String("provider", cfg.LLM.Provider), zap.Error(err))
			chat = nil
		} else {
			zl.Info("llm extraction enabled",
				zap.String("provider", cfg.LLM.Provider), zap.String("model", cfg.LLM.Model))
		}
	}
	fields := extractor.New(chat, &cfg.LLM, cfg.Extract.TextExcerptChars, zl)

	// OCR adapter
	adapter := ocr.NewAdapter(cfg.OCR, zl)
	if err := adapter.CheckBinaries(); err != nil {
		zl.Warn("ocr binaries missing; extraction requests will fail until installed", zap.Error(err))
	}

	// Object storage is optional
	var storage port.ObjectStorage
	if cfg.S3.Enabled() {
		storage, err = s3storage.NewS3Client(&cfg.S3, cfg.Extract.MaxFileSizeMB*1024*1024)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		zl.Info("s3 source enabled", zap.String("bucket", cfg.S3.Bucket))
	}

	extractionSvc := service.NewExtractionService(adapter, fields, storage, service.ExtractionOptions{
		OCRConcurrency: cfg.OCR.Concurrency,
		TotalTolerance: cfg.Extract.TotalTolerance,
		DefaultBucket:  cfg.S3.Bucket,
	}, zl)

	// Initialize handlers
	extractH := handler.NewExtractHandler(extractionSvc, cfg.Extract.MaxFileSizeMB, zl)
	healthH := handler.NewHealthHandler(adapter)

	// Setup router
	r := router.Setup(cfg, zl, extractH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
