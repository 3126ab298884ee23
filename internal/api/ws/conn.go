package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// CORS API открыт для всех источников, WebSocket тоже
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handle подключает клиента и сразу отправляет ему текущий снимок курсов
//
// @Summary Live rates stream
// @Description WebSocket: rates_update messages with every currency of the latest date
// @Tags rates
// @Success 101
// @Router /api/v1/ws [get]
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	cl := &client{send: make(chan Message, clientBuffer)}
	if !h.attach(c.Request.Context(), cl) {
		_ = conn.Close()
		return
	}

	// Пампы еще не запущены, пишем напрямую
	if snapshot, err := h.Snapshot(c.Request.Context()); err != nil {
		h.logger.Warnf("Failed to build initial snapshot: %v", err)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(Message{Type: MessageRatesUpdate, Data: snapshot}); err != nil {
			h.detach(cl)
			_ = conn.Close()
			return
		}
	}

	go h.writePump(conn, cl)
	go h.readPump(conn, cl)
}

// readPump читает входящие сообщения до разрыва; их содержимое не используется
func (h *Hub) readPump(conn *websocket.Conn, cl *client) {
	defer func() {
		h.detach(cl)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnf("WebSocket read error: %v", err)
			}
			return
		}
	}
}

// writePump пишет сообщения клиента и держит соединение пингами
func (h *Hub) writePump(conn *websocket.Conn, cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
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
