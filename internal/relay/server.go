package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/signaling"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10

	// enough for SDP offers with a full candidate set
	maxBodyBytes = 64 * 1024
)

// Server exposes the relay over HTTP: publish and poll endpoints per the
// signaling API, a WebSocket push endpoint, and a health check. The relay
// never inspects message payloads; file bytes never touch it.
type Server struct {
	store    Store
	hub      *Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a relay server around the given store.
func NewServer(store Store, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		store: store,
		hub:   NewHub(),
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxBodyBytes,
			WriteBufferSize: maxBodyBytes,
			// The short code is the only admission control; origin
			// checks would break non-browser clients.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes returns the relay's HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/signal", s.handleSignal)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling relay is healthy."))
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePublish(w, r)
	case http.MethodGet:
		s.handlePoll(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var msg signaling.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&msg); err != nil {
		http.Error(w, "invalid message body", http.StatusBadRequest)
		return
	}

	if msg.ShortCode == "" || msg.SessionID == "" || msg.Type == "" {
		http.Error(w, "short_code, session_id and type are required", http.StatusBadRequest)
		return
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}

	channel := signaling.ChannelKey(msg.ShortCode)
	s.store.Publish(channel, msg)
	s.hub.Broadcast(channel, msg)

	s.log.Debug("signal published", "channel", channel, "type", msg.Type)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	session := r.URL.Query().Get("session")
	if code == "" || session == "" {
		http.Error(w, "code and session are required", http.StatusBadRequest)
		return
	}

	since := int64(0)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid since value", http.StatusBadRequest)
			return
		}
		since = parsed
	}

	msgs := s.store.Poll(signaling.ChannelKey(code), since, session)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msgs)
}

// handleWebSocket upgrades the connection and streams published channel
// messages to the subscriber as msgpack binary frames.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	session := r.URL.Query().Get("session")
	if code == "" || session == "" {
		http.Error(w, "code and session are required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := s.hub.Subscribe(signaling.ChannelKey(code), session)
	s.log.Debug("subscriber joined", "channel", signaling.ChannelKey(code))

	go s.writePump(conn, sub)
	go s.readPump(conn, sub)
}

// writePump forwards hub messages and keeps the connection alive with
// periodic pings.
func (s *Server) writePump(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		sub.Cancel()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := msgpack.Marshal(msg)
			if err != nil {
				s.log.Warn("encode push message", "error", err)
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so pongs and close frames are processed;
// clients publish over HTTP, not the socket.
func (s *Server) readPump(conn *websocket.Conn, sub *Subscription) {
	defer func() {
		sub.Cancel()
		conn.Close()
	}()

	conn.SetReadLimit(maxBodyBytes)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
