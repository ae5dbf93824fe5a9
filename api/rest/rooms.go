package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	RoomCode string `json:"roomCode" binding:"required"`
}

// CreateRoom creates the room eagerly. Joining over the socket would
// create it anyway; this lets a client validate a code before
// connecting.
func (h *Handlers) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room code required"})
		return
	}

	room := h.store.GetOrCreate(req.RoomCode)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"roomCode": room.Code(),
	})
}

func (h *Handlers) RoomSummary(c *gin.Context) {
	room, ok := h.store.Get(c.Param("code"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"exists": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"exists":    true,
		"users":     room.MemberCount(),
		"isPlaying": room.IsPlaying(),
	})
}
