package relay

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Event is the message shape relayed to every client.
type Event struct {
	Type    string `json:"type" binding:"required"`
	Payload string `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The relay serves a room full of phones on conference wifi; origin
	// checks only get in the way.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Routes registers the relay endpoints on r. deckDir, when non-empty, is
// served at the root so browsers can load the slides from the same origin.
func (h *Hub) Routes(r *gin.Engine, deckDir string) {
	r.GET("/ws", h.handleWS)
	r.POST("/event", h.handleEvent)
	if deckDir != "" {
		r.StaticFS("/deck", http.Dir(deckDir))
	}
}

func (h *Hub) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	h.serve(conn)
}

func (h *Hub) handleEvent(c *gin.Context) {
	var event Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type is required"})
		return
	}
	msg, err := json.Marshal(event)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.Broadcast(msg)
	c.JSON(http.StatusOK, gin.H{"clients": h.ClientCount()})
}
