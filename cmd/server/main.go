package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/j-jorge/bim-sub001/internal/engine"
	"github.com/j-jorge/bim-sub001/internal/network"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/internal/server"
	"github.com/j-jorge/bim-sub001/internal/version"
	"github.com/j-jorge/bim-sub001/pkg/config"
	"github.com/j-jorge/bim-sub001/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Конфигурация: .env, затем BIM_*, затем флаги
	var envFile, port, timelines string
	flag.StringVar(&envFile, "env", ".env", "Path to the .env file")
	flag.StringVar(&port, "port", "", "HTTP port (overrides BIM_PORT)")
	flag.StringVar(&timelines, "timelines", "", "Directory for game timelines (overrides BIM_TIMELINE_DIR)")
	flag.Parse()

	logger.Log.Info("Starting bim server...")
	logger.Log.Info(version.String())

	if err := config.Load(envFile); err != nil {
		logger.Log.Fatal("Failed to load env file: ", err)
	}
	cfg, err := engine.LoadConfig()
	if err != nil {
		logger.Log.Fatal("Invalid configuration: ", err)
	}
	if port != "" {
		cfg.Port = port
	}
	if timelines != "" {
		cfg.TimelineDir = timelines
	}

	// 2. Ядро: планировщик, хаб и сервисы
	s := scheduler.New()
	hub := network.NewHub()
	svc, err := engine.NewService(cfg, s, hub)
	if err != nil {
		logger.Log.Fatal("Failed to create service: ", err)
	}
	svc.Start()

	ctx, cancel := context.WithCancel(context.Background())
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		_ = s.Run(ctx)
	}()

	// Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 3. Запуск сервера
	srv := server.New(svc, hub, s, cfg.Port)
	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.Fatal("Server start error: ", err)
		}
	}()

	<-stop
	logger.Log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("http shutdown")
	}

	// Записи партий закрываются в горутине планировщика.
	closed := make(chan struct{})
	s.Post(func() {
		svc.Close()
		close(closed)
	})
	select {
	case <-closed:
	case <-shutdownCtx.Done():
		logger.Log.Warn("service close timed out")
	}
	cancel()
	<-schedulerDone

	logger.Log.Info("Done.")
}
