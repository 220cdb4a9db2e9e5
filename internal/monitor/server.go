package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/RuneMirror/RuneMirror/internal/version"
	"github.com/RuneMirror/RuneMirror/pkg/logger"
	"github.com/RuneMirror/RuneMirror/pkg/protocol"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 2 * time.Second

// Server - HTTP-наблюдатель узла: здоровье, версия, статус и живая лента событий.
type Server struct {
	Addr string

	hub     *Hub
	sources Sources
	log     *logrus.Entry
	srv     *http.Server
}

func New(addr string, hub *Hub, sources Sources, log *logrus.Entry) *Server {
	return &Server{
		Addr:    addr,
		hub:     hub,
		sources: sources,
		log:     logger.OrDefault(log, "monitor"),
	}
}

// Handler собирает роуты. Отдельно от Run, чтобы тесты могли поднять httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Регистрируем роуты
	mux.HandleFunc("/ws", enableCORS(s.handleWS))
	mux.HandleFunc("/health", enableCORS(s.handleHealth))
	mux.HandleFunc("/version", enableCORS(s.handleVersion))
	mux.HandleFunc("/debug/status", enableCORS(s.handleStatus))

	return mux
}

// Run запускает HTTP сервер и блокируется до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{Handler: s.Handler()}

	s.log.WithField("addr", ln.Addr().String()).Info("Monitor running")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	// Сначала закрываем ленты, иначе Shutdown ждёт хиджекнутые соединения.
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Warn("monitor shutdown")
	}
	return nil
}

func enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next(w, r)
	}
}

// handleWS подписывает браузер на ленту событий
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Error("Upgrade error")
		return
	}

	c := newClient(s.hub, conn, s.log)
	s.log.WithFields(logrus.Fields{
		"subscriber": c.id,
		"remote":     r.RemoteAddr,
	}).Info("Feed subscriber connected")

	// Запускаем пампы
	go c.writePump()
	go c.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(version.Info(protocol.Version))
}
