package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/j-jorge/bim-sub001/internal/engine"
	"github.com/j-jorge/bim-sub001/pkg/api"
)

const inspectTimeout = 2 * time.Second

// DebugHandler предоставляет доступ к внутреннему состоянию сервиса
type DebugHandler struct {
	Service *engine.Service
}

func NewDebugHandler(s *engine.Service) *DebugHandler {
	return &DebugHandler{Service: s}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/games", h.handleListGames)
	mux.HandleFunc("/debug/game", h.handleGame)
	mux.HandleFunc("/debug/stats", h.handleStats)
}

// inspect читает состояние в горутине планировщика.
func (h *DebugHandler) inspect(r *http.Request, fn func(*engine.Service)) error {
	ctx, cancel := context.WithTimeout(r.Context(), inspectTimeout)
	defer cancel()
	return h.Service.Inspect(ctx, fn)
}

// /debug/games - сводка по всем партиям
func (h *DebugHandler) handleListGames(w http.ResponseWriter, r *http.Request) {
	var games []engine.GameInfo
	if err := h.inspect(r, func(s *engine.Service) { games = s.Games.Games() }); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, games)
}

// /debug/game?channel=3 - одна партия с журналом событий
func (h *DebugHandler) handleGame(w http.ResponseWriter, r *http.Request) {
	channel, err := strconv.ParseUint(r.URL.Query().Get("channel"), 10, 32)
	if err != nil {
		http.Error(w, "bad channel", http.StatusBadRequest)
		return
	}

	var (
		info  engine.GameInfo
		found bool
	)
	err = h.inspect(r, func(s *engine.Service) {
		for _, g := range s.Games.Games() {
			if g.Channel == uint32(channel) {
				info, found = g, true
				return
			}
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}
	writeJSON(w, info)
}

// /debug/stats - то же, что получает клиент в hello_ok
func (h *DebugHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	var stats api.ServerStats
	if err := h.inspect(r, func(s *engine.Service) { stats = s.Sessions.Stats() }); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	// Разрешаем запросы с любого источника
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
