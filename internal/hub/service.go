// internal/hub/service.go
package hub

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mfjones/chatter/internal/auth"
	"github.com/mfjones/chatter/internal/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Service exposes the hub over HTTP as a websocket endpoint.
type Service struct {
	hub  *Hub
	auth *auth.Service
}

func NewService(h *Hub, authSvc *auth.Service) *Service {
	return &Service{hub: h, auth: authSvc}
}

// Hub returns the underlying hub, for REST handlers that publish realtime
// side effects.
func (s *Service) Hub() *Hub { return s.hub }

// HandleWebSocket authenticates the token query parameter, upgrades the
// connection and runs the read loop until the client goes away. Browsers
// cannot set headers on websocket dials, hence the query parameter.
func (s *Service) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.URL.Query().Get("apikey")
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := s.auth.UserIDFromToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	user, err := s.auth.GetUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "unknown user", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := newConn(uuid.New().String(), user.ID, user.Username, ws)
	s.hub.HandleConnect(r.Context(), c)

	go c.WritePump()
	c.ReadPump(func(c *Conn, evt *Event) {
		s.hub.Dispatch(r.Context(), c, evt)
	})

	s.hub.HandleDisconnect(r.Context(), c)
}
