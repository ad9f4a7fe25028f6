package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/j-jorge/bim-sub001/internal/contest"
	"github.com/j-jorge/bim-sub001/internal/infrastructure/storage"
)

func main() {
	if len(os.Args) < 3 {
		printHelp()
		return
	}

	tl, err := storage.LoadTimelineFile(os.Args[2])
	if err != nil {
		fmt.Printf("Cannot read timeline: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "info":
		fmt.Println(tl.Fingerprint)
		fmt.Printf("ticks=%d\n", tl.TickCount())
	case "dump":
		for i, rec := range tl.Ticks {
			actions := make([]string, len(rec.Actions))
			for j, a := range rec.Actions {
				actions[j] = a.String()
			}
			line := fmt.Sprintf("%6d  %s", i, strings.Join(actions, " "))
			if len(rec.Kicked) > 0 {
				line += fmt.Sprintf("  kicked=%v", rec.Kicked)
			}
			fmt.Println(line)
		}
	case "replay":
		c, err := replay(tl, os.Args[3:])
		if err != nil {
			fmt.Printf("Replay failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("tick=%d remaining=%d result=%s\n", c.TickIndex(), c.RemainingTicks(), c.Result())
		fmt.Printf("alive=%v\n", c.AlivePlayers())
	case "snapshot":
		c, err := replay(tl, os.Args[3:])
		if err != nil {
			fmt.Printf("Replay failed: %v\n", err)
			os.Exit(1)
		}
		b, err := c.Snapshot()
		if err != nil {
			fmt.Printf("Snapshot failed: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(b)
	default:
		printHelp()
	}
}

// replay проигрывает запись целиком или до тика из аргументов.
func replay(tl *storage.Timeline, args []string) (*contest.Contest, error) {
	if len(args) == 0 {
		return storage.Replay(tl)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 || n > tl.TickCount() {
		return nil, fmt.Errorf("invalid tick %q, timeline has %d ticks", args[0], tl.TickCount())
	}
	c := contest.New(tl.Fingerprint)
	for i := 0; i < n && c.Result().StillRunning(); i++ {
		if err := tl.LoadTick(i, c); err != nil {
			return nil, err
		}
		c.Tick()
	}
	return c, nil
}

func printHelp() {
	fmt.Println(`Timeline Utility - просмотр записей партий (.bim)
Commands:
  info <file>               - параметры партии и число тиков
  dump <file>               - действия игроков по тикам
  replay <file> [tick]      - проиграть запись и вывести результат
  snapshot <file> [tick]    - состояние партии в JSON после проигрыша`)
}
