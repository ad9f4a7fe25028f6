package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/j-jorge/bim-sub001/internal/audio"
	"github.com/j-jorge/bim-sub001/internal/client"
	"github.com/j-jorge/bim-sub001/internal/domain"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/internal/ui"
	"github.com/j-jorge/bim-sub001/pkg/api"
	"github.com/j-jorge/bim-sub001/pkg/config"
	"github.com/j-jorge/bim-sub001/pkg/logger"
)

const frameInterval = 33 * time.Millisecond

func main() {
	var envFile, serverURL, features, logPath string
	var volume float64
	flag.StringVar(&envFile, "env", ".env", "Path to the .env file")
	flag.StringVar(&serverURL, "server", "", "Server websocket URL (default BIM_SERVER_URL or ws://localhost:8080/ws)")
	flag.StringVar(&features, "features", "", "Comma separated game features: falling_blocks, fog_of_war, shield, invisibility")
	flag.StringVar(&logPath, "log", "bim-client.log", "Log file, the terminal is used by the game")
	flag.Float64Var(&volume, "volume", 0.5, "Sound volume in 0..1, 0 disables sound")
	flag.Parse()

	if err := run(envFile, serverURL, features, logPath, volume); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(envFile, serverURL, features, logPath string, volume float64) error {
	// 1. Конфигурация и лог в файл
	if err := config.Load(envFile); err != nil {
		return err
	}
	if serverURL == "" {
		serverURL = config.String("BIM_SERVER_URL", "ws://localhost:8080/ws")
	}
	ff, err := domain.ParseFeatures(features)
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger.InitWithOutput(logFile)

	// 2. Соединение и сессия
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := scheduler.New()
	var sess *client.Session
	conn, err := client.Dial(ctx, serverURL, s, func(e api.Envelope) { sess.Deliver(e) })
	if err != nil {
		return fmt.Errorf("connect to %s: %w", serverURL, err)
	}
	defer conn.Close()

	var snapshots atomic.Pointer[client.SnapshotBuffer]
	var status atomic.Value
	status.Store("connecting to " + serverURL)

	sess = client.NewSession(s, conn, ff)
	sess.Launched = func(m api.LaunchGame, b *client.SnapshotBuffer) {
		snapshots.Store(b)
	}
	sess.Finished = func(r domain.ContestResult) {
		status.Store(describeResult(r, sess))
	}
	sess.Failed = func(err error) {
		status.Store("error: " + err.Error())
	}
	s.Post(sess.Start)
	go s.Run(ctx)

	// 3. Экран и звук
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	sound := audio.NewSoundManager(volume)
	if volume > 0 {
		if err := sound.Initialize(); err != nil {
			// Non-fatal, game can run without sound
			logger.Log.WithError(err).Warn("audio initialization failed")
		}
	}
	defer sound.Cleanup()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)
	defer close(quit)

	renderer := ui.NewRenderer(screen)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	var (
		prev    *client.Snapshot
		version uint64
	)
	for {
		select {
		case <-conn.Done():
			return fmt.Errorf("connection to %s lost", serverURL)

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
			case *tcell.EventKey:
				cmd, ok := ui.Translate(ev)
				if !ok {
					continue
				}
				if cmd.Quit {
					return nil
				}
				s.Post(func() {
					if cmd.Move {
						sess.SetMovement(cmd.Movement)
					}
					if cmd.Bomb {
						sess.DropBomb()
					}
				})
			}

		case <-ticker.C:
			s.Post(func() {
				if st := sess.State(); st != client.SessionFinished && st != client.SessionFailed {
					status.Store(st.String())
				}
			})

			var cur *client.Snapshot
			if b := snapshots.Load(); b != nil {
				var v uint64
				cur, v = b.Latest()
				if v == version && cur != nil {
					continue
				}
				version = v
			}
			for _, c := range ui.Cues(prev, cur) {
				sound.Play(c)
			}
			prev = cur
			renderer.Draw(cur, status.Load().(string))
		}
	}
}

func describeResult(r domain.ContestResult, sess *client.Session) string {
	var verdict string
	switch {
	case r.IsDraw():
		verdict = "draw!"
	case r.HasAWinner() && sess.Runner() != nil && r.WinningPlayer() == sess.Runner().Local():
		verdict = "you win!"
	default:
		verdict = fmt.Sprintf("player %d wins,", r.WinningPlayer()+1)
	}
	return fmt.Sprintf("%s +%d coins, press q to quit", verdict, sess.Reward())
}
