// Package main is the entry point for serverbookd.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/grayfold/serverbook/config"
	"github.com/grayfold/serverbook/internal/api"
	"github.com/grayfold/serverbook/internal/metrics"
	"github.com/grayfold/serverbook/internal/serverbook"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultAPIPort       = 8888
	defaultLogMaxSize    = 100
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "missing required flag: -config")
		os.Exit(1)
	}

	cfg, err := config.NewFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		logger.Fatal("create data dir", zap.String("dir", cfg.DataDir), zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	metricsProvider, err := metrics.NewProvider()
	if err != nil {
		logger.Fatal("metrics provider", zap.Error(err))
	}
	defer func() {
		_ = metricsProvider.Shutdown(context.Background())
	}()

	recorder, err := metrics.NewStoreRecorder()
	if err != nil {
		logger.Fatal("metrics recorder", zap.Error(err))
	}

	book := serverbook.New(serverbook.Options{
		DataDir:               cfg.DataDir,
		FavoritesCapacity:     cfg.Stores.Favorites.Capacity,
		HistoryCapacity:       cfg.Stores.History.Capacity,
		RecentServersCapacity: cfg.Stores.RecentServers.Capacity,
		Logger:                logger.With(zap.String("module", "store")),
		Recorder:              recorder,
	})
	book.Load()

	apiHost := ""
	apiPort := defaultAPIPort
	if cfg.API != nil {
		apiHost = cfg.API.Host
		if cfg.API.Port != 0 {
			apiPort = cfg.API.Port
		}
	}

	apiServer := api.NewServer(
		net.JoinHostPort(apiHost, strconv.Itoa(apiPort)),
		metricsProvider.Handler(),
		book,
	)
	go func() {
		logger.Info("API server listening", zap.String("addr", apiServer.Addr), zap.String("metrics", api.MetricsPath))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server", zap.Error(err))
			cancel()
		}
	}()

	<-signalCtx.Done()
	logger.Info("shutdown signal received")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = apiServer.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}

func setupLogger(logPath string) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.CallerKey = ""
	encoderConfig.StacktraceKey = ""
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	writer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    defaultLogMaxSize,
		MaxBackups: defaultLogMaxBackups,
		MaxAge:     defaultLogMaxAge,
		Compress:   true,
	})

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		writer,
		zap.DebugLevel,
	)
	return zap.New(core), nil
}
