package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/EternisAI/cnc-server/internal/api/http/dto"
	"github.com/EternisAI/cnc-server/internal/clients"
	"github.com/EternisAI/cnc-server/internal/commands"
	"github.com/gin-gonic/gin"
)

// AdminHandler is the operator surface: client visibility, approval, and
// command tasking.
type AdminHandler struct {
	registry *clients.Service
	queue    *commands.Service
}

func NewAdminHandler(registry *clients.Service, queue *commands.Service) *AdminHandler {
	return &AdminHandler{
		registry: registry,
		queue:    queue,
	}
}

func (h *AdminHandler) ListClients(c *gin.Context) {
	list, err := h.registry.List(c.Request.Context())
	if err != nil {
		slog.Error("Failed to list clients", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list clients"})
		return
	}

	infos := make([]dto.ClientInfo, len(list))
	for i, client := range list {
		infos[i] = dto.ClientInfo{
			ID:        client.ID,
			ClientID:  client.ClientID,
			Name:      client.Name,
			Hostname:  client.Hostname,
			Pending:   client.Pending,
			CreatedAt: client.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, dto.ListClientsResponse{Clients: infos, Count: len(infos)})
}

func (h *AdminHandler) ApproveClient(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	if err := h.registry.Approve(c.Request.Context(), id); err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		slog.Error("Failed to approve client", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to approve client"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "client approved"})
}

func (h *AdminHandler) CreateCommand(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	var req dto.CreateCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	typ, err := commands.ParseCommandType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Reject commands for unknown clients up front; the queue itself only
	// sees already-validated client references.
	if _, err := h.registry.Get(c.Request.Context(), id); err != nil {
		if errors.Is(err, clients.ErrClientNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
			return
		}
		slog.Error("Failed to look up client", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	cmd, err := h.queue.Create(c.Request.Context(), id, typ, req.Payload)
	if err != nil {
		slog.Error("Failed to create command", "error", err, "client_ref", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create command"})
		return
	}

	c.JSON(http.StatusCreated, dto.CommandInfo{
		ID:        cmd.ID,
		Type:      string(cmd.Type),
		Payload:   cmd.Payload,
		CreatedAt: cmd.CreatedAt,
	})
}
