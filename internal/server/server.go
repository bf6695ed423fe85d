package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
	"golang.org/x/sync/errgroup"

	"keysynth/internal/clients"
	in "keysynth/internal/input"
	t "keysynth/internal/types"
)

type Config struct {
	Addr            string
	ReadLimit       int64
	PongTimeout     time.Duration
	ShutdownTimeout time.Duration
	Manager         *clients.Manager
	Dispatcher      *in.Dispatcher
	Logger          logging.LeveledLogger
}

type Server struct {
	cfg      Config
	log      logging.LeveledLogger
	upgrader websocket.Upgrader
}

func New(cfg Config) *Server {
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = 8 << 20
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Manager == nil {
		cfg.Manager = clients.NewManager()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.NewDefaultLoggerFactory().NewLogger("server")
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// Handler returns the HTTP routes: /healthz, /ws and /api/events.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/api/events", s.HandleEvent)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.cfg.Addr, Handler: s.Handler()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Infof("http server started on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.cfg.Manager.CloseAll()
		return err
	})
	return g.Wait()
}

// HandleEvent accepts a single Event as a JSON POST body.
func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeReply(w, http.StatusMethodNotAllowed, t.Reply{Error: "method not allowed"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.ReadLimit))
	if err != nil {
		writeReply(w, http.StatusBadRequest, t.Reply{Error: err.Error()})
		return
	}
	var ev t.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		writeReply(w, http.StatusBadRequest, t.Reply{Error: "invalid event: " + err.Error()})
		return
	}
	if err := s.cfg.Dispatcher.HandleEvent(ev); err != nil {
		status := http.StatusInternalServerError
		if in.IsInvalid(err) {
			status = http.StatusBadRequest
		}
		s.log.Warnf("event %s failed: %v", ev.Type, err)
		writeReply(w, status, t.Reply{Error: err.Error()})
		return
	}
	writeReply(w, http.StatusOK, t.Reply{OK: true})
}

func writeReply(w http.ResponseWriter, status int, reply t.Reply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(reply)
}

// HandleWS upgrades to a control websocket. Each text message is an Event and
// is answered with a Reply.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		clientID = clients.NewClientID()
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("upgrade error: %v", err)
		return
	}

	ws.SetReadLimit(s.cfg.ReadLimit)
	ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	ws.SetPongHandler(func(appData string) error {
		ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		return nil
	})

	s.log.Infof("new control connection client=%s", clientID)

	if old := s.cfg.Manager.SetControl(clientID, ws); old != nil {
		old.Close()
	}
	go s.handleInput(clientID, ws)
}

func (s *Server) handleInput(clientID string, ws *websocket.Conn) {
	done := make(chan struct{})
	defer func() {
		close(done)
		s.cfg.Manager.RemoveControl(clientID, ws)
		ws.Close()
	}()
	go s.ping(ws, done)

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warnf("control read error client=%s: %v", clientID, err)
			} else {
				s.log.Debugf("control closed client=%s: %v", clientID, err)
			}
			return
		}
		reply := t.Reply{OK: true}
		var ev t.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			reply = t.Reply{Error: "invalid event: " + err.Error()}
		} else if err := s.cfg.Dispatcher.HandleEvent(ev); err != nil {
			s.log.Warnf("event %s failed client=%s: %v", ev.Type, clientID, err)
			reply = t.Reply{Error: err.Error()}
		}
		ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := ws.WriteJSON(reply); err != nil {
			s.log.Warnf("write error client=%s: %v", clientID, err)
			return
		}
	}
}

// ping keeps the read deadline alive on clients that answer pings.
func (s *Server) ping(ws *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PongTimeout * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
