package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/j-jorge/bim-sub001/internal/agent"
	"github.com/j-jorge/bim-sub001/internal/client"
	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/config"
	"github.com/j-jorge/bim-sub001/pkg/logger"
)

func main() {
	var envFile, serverURL, features string
	var count int
	flag.StringVar(&envFile, "env", ".env", "Path to the .env file")
	flag.StringVar(&serverURL, "server", "", "Server websocket URL (default BIM_SERVER_URL or ws://localhost:8080/ws)")
	flag.StringVar(&features, "features", "", "Comma separated game features")
	flag.IntVar(&count, "count", 1, "Number of bots")
	flag.Parse()

	logger.Init()
	if err := config.Load(envFile); err != nil {
		logger.Log.WithError(err).Fatal("failed to load configuration")
	}
	if serverURL == "" {
		serverURL = config.String("BIM_SERVER_URL", "ws://localhost:8080/ws")
	}
	ff, err := domain.ParseFeatures(features)
	if err != nil {
		logger.Log.WithError(err).Fatal("bad features")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Подключение ботов
	s := scheduler.New()
	var bots []*agent.Bot
	var conns []*client.WSConn
	for i := 0; i < count; i++ {
		var bot *agent.Bot
		conn, err := client.Dial(ctx, serverURL, s, func(e api.Envelope) { bot.Deliver(e) })
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to connect")
		}
		defer conn.Close()
		bot = agent.NewBot(s, conn, ff, uint64(time.Now().UnixNano())+uint64(i))
		bots = append(bots, bot)
		conns = append(conns, conn)
		s.Post(bot.Start)
	}
	logger.Log.WithField("count", count).Info("bots connected")

	// 2. Ожидание конца партий
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.Run(runCtx)

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("interrupted")
			return
		case <-ticker.C:
		}

		done := make(chan bool, 1)
		s.Post(func() {
			all := true
			for _, b := range bots {
				all = all && b.Done()
			}
			done <- all
		})
		if <-done {
			logger.Log.Info("all bots finished")
			return
		}
		for _, c := range conns {
			select {
			case <-c.Done():
				logger.Log.Warn("connection lost")
				return
			default:
			}
		}
	}
}
