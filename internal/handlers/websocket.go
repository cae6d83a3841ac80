package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"bart-backend/internal/models"
	"bart-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams HUD frames and trial events to the frontend so
// every open view of a session renders the same balloon.
type WebSocketHandler struct {
	sessionService *services.SessionService
	hub            *WebSocketHub
}

type WebSocketHub struct {
	clients    map[string]*websocket.Conn // keyed by session id
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	SessionID string
	Conn      *websocket.Conn
}

type Message struct {
	Type      string      `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data"`
}

func NewWebSocketHandler(sessionService *services.SessionService) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[string]*websocket.Conn),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
	}

	go hub.run()

	h := &WebSocketHandler{
		sessionService: sessionService,
		hub:            hub,
	}
	sessionService.SetBroadcaster(h)
	return h
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.SessionID] = client.Conn

		case client := <-hub.unregister:
			if conn, ok := hub.clients[client.SessionID]; ok && conn == client.Conn {
				delete(hub.clients, client.SessionID)
			}

		case msg := <-hub.broadcast:
			conn, ok := hub.clients[msg.SessionID]
			if !ok {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[WARN] websocket write to %s failed: %v", msg.SessionID, err)
				conn.Close()
				delete(hub.clients, msg.SessionID)
			}
		}
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	sessionID := c.GetString("session_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WARN] failed to upgrade to WebSocket: %v", err)
		return
	}

	client := &Client{
		SessionID: sessionID,
		Conn:      conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	// Initial frame, written directly so a reconnecting client repaints
	// before the hub registration settles.
	if hud, err := h.sessionService.State(sessionID); err == nil {
		conn.WriteJSON(&Message{Type: "hud", SessionID: sessionID, Data: hud})
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WARN] websocket error: %v", err)
			}
			break
		}

		// The socket is one-directional: actions go through the HTTP API. A
		// "state" message just asks for a fresh frame.
		if msg.Type == "state" {
			if hud, err := h.sessionService.State(sessionID); err == nil {
				h.BroadcastHUD(sessionID, hud)
			}
		}
	}
}

func (h *WebSocketHandler) BroadcastHUD(sessionID string, hud models.HUDState) {
	h.hub.broadcast <- &Message{Type: "hud", SessionID: sessionID, Data: hud}
}

func (h *WebSocketHandler) BroadcastPop(sessionID string, trialIndex, pumps int) {
	h.hub.broadcast <- &Message{Type: "pop", SessionID: sessionID, Data: gin.H{
		"trial_index": trialIndex,
		"pumps":       pumps,
	}}
}

func (h *WebSocketHandler) BroadcastBank(sessionID string, earned, banked float64) {
	h.hub.broadcast <- &Message{Type: "bank", SessionID: sessionID, Data: gin.H{
		"earned": earned,
		"banked": banked,
	}}
}

func (h *WebSocketHandler) BroadcastPhase(sessionID string, phase models.SessionPhase) {
	h.hub.broadcast <- &Message{Type: "phase", SessionID: sessionID, Data: gin.H{
		"phase": phase,
	}}
}
