package handler

import (
	appevent "github.com/channelsync/backend/internal/application/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxHandler exposes the outbox relay's operational surface: inspecting
// entries that exhausted their delivery retries and pushing them back into
// the relay.
type OutboxHandler struct {
	BaseHandler
	service *appevent.OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(service *appevent.OutboxService) *OutboxHandler {
	return &OutboxHandler{
		service: service,
	}
}

// ListDead godoc
// @Summary      List dead outbox entries
// @Description  Retrieve outbox entries that exhausted their delivery retries
// @Tags         outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} dto.Response{data=appevent.OutboxListResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /outbox/dead [get]
func (h *OutboxHandler) ListDead(c *gin.Context) {
	var filter appevent.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Get godoc
// @Summary      Get an outbox entry
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=appevent.OutboxEntryDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /outbox/{id} [get]
func (h *OutboxHandler) Get(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	entry, err := h.service.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryDead godoc
// @Summary      Retry a dead outbox entry
// @Description  Resets the entry so the relay picks it up again
// @Tags         outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=appevent.OutboxEntryDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /outbox/{id}/retry [post]
func (h *OutboxHandler) RetryDead(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid entry ID format")
		return
	}

	entry, err := h.service.RetryDeadEntry(c.Request.Context(), entryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// RetryAllDead godoc
// @Summary      Retry all dead outbox entries
// @Tags         outbox
// @Produce      json
// @Success      200 {object} dto.Response{data=map[string]int64}
// @Router       /outbox/retry-dead [post]
func (h *OutboxHandler) RetryAllDead(c *gin.Context) {
	count, err := h.service.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, map[string]int64{"retried": count})
}

// Stats godoc
// @Summary      Outbox delivery statistics
// @Tags         outbox
// @Produce      json
// @Success      200 {object} dto.Response{data=appevent.OutboxStatsDTO}
// @Router       /outbox/stats [get]
func (h *OutboxHandler) Stats(c *gin.Context) {
	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
