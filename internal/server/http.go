package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	_ "net/http/pprof" // Profiling

	"github.com/j-jorge/bim-sub001/internal/engine"
	"github.com/j-jorge/bim-sub001/internal/network"
	"github.com/j-jorge/bim-sub001/internal/scheduler"
	"github.com/j-jorge/bim-sub001/internal/version"
	"github.com/j-jorge/bim-sub001/pkg/logger"
	"github.com/j-jorge/bim-sub001/pkg/utils"
)

type Server struct {
	Service   *engine.Service
	Hub       *network.Hub
	Scheduler *scheduler.Scheduler
	Port      string

	http *http.Server
}

func New(svc *engine.Service, hub *network.Hub, s *scheduler.Scheduler, port string) *Server {
	return &Server{
		Service:   svc,
		Hub:       hub,
		Scheduler: s,
		Port:      port,
	}
}

// Handler возвращает маршруты сервера.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	// pprof регистрируется в DefaultServeMux
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	// Регистрируем роуты
	mux.HandleFunc("/ws", enableCORS(s.handleWS))
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))

	debugHandler := NewDebugHandler(s.Service)
	debugHandler.RegisterRoutes(mux)
	return mux
}

// Run запускает HTTP сервер и блокирует до Shutdown.
func (s *Server) Run() error {
	s.http = &http.Server{Addr: ":" + s.Port, Handler: s.Handler()}

	logger.Log.Infof("bim server running on :%s", s.Port)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown перестает принимать соединения.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		// Разрешаем заголовки, если фронт шлет что-то нестандартное
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next(w, r)
	}
}

// handleWS обрабатывает подключение по WebSocket. Идентификатор сессии
// назначается здесь.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("Upgrade error:", err)
		return
	}

	client := NewClient(s, conn, utils.NewSessionID())
	client.log.WithField("remote", r.RemoteAddr).Info("client connected")

	// Адрес известен сервису раньше первой датаграммы: Post сохраняет порядок.
	session, address := client.SessionID, clientAddress(r)
	s.Scheduler.Post(func() { s.Service.Identify(session, address) })

	// Запускаем пампы
	go client.writePump()
	go client.readPump()
}

// clientAddress возвращает адрес клиента без порта.
func clientAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version.Info())
}
