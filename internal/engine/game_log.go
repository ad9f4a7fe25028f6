package engine

import (
	"github.com/sirupsen/logrus"
)

// maxGameEvents - сколько последних событий партии хранится для отладки.
const maxGameEvents = 64

// GameEvent - запись в журнале партии.
type GameEvent struct {
	Tick      uint32 `json:"tick"`
	Text      string `json:"text"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// addEvent добавляет событие в журнал партии и пишет его в лог
func (gs *GameService) addEvent(g *game, text, eventType string, fields logrus.Fields) {
	g.events = append(g.events, GameEvent{
		Tick:      g.simulationTick,
		Text:      text,
		Type:      eventType,
		Timestamp: gs.s.Now().UnixMilli(),
	})
	if len(g.events) > maxGameEvents {
		g.events = g.events[len(g.events)-maxGameEvents:]
	}

	entry := g.log.WithFields(fields).WithFields(logrus.Fields{
		"tick":     g.simulationTick,
		"log_type": eventType,
	})
	switch eventType {
	case "WARN":
		entry.Warn(text)
	default:
		entry.Info(text)
	}
}
