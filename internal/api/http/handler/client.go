package handler

import (
	"log/slog"
	"net/http"

	"github.com/EternisAI/cnc-server/internal/api/http/dto"
	"github.com/EternisAI/cnc-server/internal/api/http/middleware"
	"github.com/EternisAI/cnc-server/internal/clients"
	"github.com/EternisAI/cnc-server/internal/commands"
	"github.com/gin-gonic/gin"
)

type ClientHandler struct {
	registry *clients.Service
	queue    *commands.Service
}

func NewClientHandler(registry *clients.Service, queue *commands.Service) *ClientHandler {
	return &ClientHandler{
		registry: registry,
		queue:    queue,
	}
}

// Register enrolls a client. Re-registering a known client_id returns the
// original token with a 200 rather than a conflict.
func (h *ClientHandler) Register(c *gin.Context) {
	var req dto.RegisterClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.registry.Register(c.Request.Context(), req.Name, req.Hostname, req.ClientID)
	if err != nil {
		slog.Error("Failed to register client", "error", err, "client_id", req.ClientID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register client"})
		return
	}

	c.JSON(http.StatusOK, dto.RegisterClientResponse{Token: token})
}

// FetchCommands delivers every command queued for the authenticated client
// that has not been delivered before.
func (h *ClientHandler) FetchCommands(c *gin.Context) {
	identity, ok := middleware.ClientIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	cmds, err := h.queue.FetchUnread(c.Request.Context(), identity.ID)
	if err != nil {
		slog.Error("Failed to fetch commands", "error", err, "client_id", identity.ClientID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch commands"})
		return
	}

	infos := make([]dto.CommandInfo, len(cmds))
	for i, cmd := range cmds {
		infos[i] = dto.CommandInfo{
			ID:        cmd.ID,
			Type:      string(cmd.Type),
			Payload:   cmd.Payload,
			CreatedAt: cmd.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, dto.CommandsResponse{Commands: infos, Count: len(infos)})
}

// UpdateKeys stores the key material the client reports.
func (h *ClientHandler) UpdateKeys(c *gin.Context) {
	identity, ok := middleware.ClientIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req dto.UpdateKeysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registry.UpdateKeys(c.Request.Context(), identity.ID, req.PublicKey, req.PrivateKey); err != nil {
		slog.Error("Failed to update client keys", "error", err, "client_id", identity.ClientID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update keys"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "keys updated"})
}
