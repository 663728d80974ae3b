package realtime

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Server upgrades HTTP requests and runs the read and write pumps for each
// connection.
type Server struct {
	hub       *Hub
	lifecycle *Lifecycle
	log       zerolog.Logger
	upgrader  websocket.Upgrader
}

func NewServer(hub *Hub, lifecycle *Lifecycle, allowedOrigin string, log zerolog.Logger) *Server {
	return &Server{
		hub:       hub,
		lifecycle: lifecycle,
		log:       log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
	}
}

// ServeWS blocks until the connection closes. userID is the identity
// verified by the caller.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	id := ConnID(uuid.NewString())
	client := NewClient(id, userID, sendBuffer)
	s.hub.Register(client)
	session := s.lifecycle.Connect(id, userID)

	go s.writePump(conn, client, session)
	s.readPump(conn, session)
}

func (s *Server) readPump(conn *websocket.Conn, session *Session) {
	defer func() {
		session.Disconnect()
		s.hub.Unregister(session.Conn())
		_ = conn.Close()
	}()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				session.TransportError(err)
			}
			return
		}
		session.Handle(data)
	}
}

func (s *Server) writePump(conn *websocket.Conn, client *Client, session *Session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Outbound():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				session.TransportError(err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
