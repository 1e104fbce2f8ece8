package transport

import (
	"context"
	"net/http"

	"github.com/ds124wfegd/fractal-bot/internal/entity"
	"github.com/ds124wfegd/fractal-bot/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Webhook accepts an update pushed by Telegram. Once the update is accepted
// the answer is always 200, otherwise Telegram would deliver it again.
func (h *UpdateHandler) Webhook(c *gin.Context) {
	if h.secret != "" && c.GetHeader(secretHeader) != h.secret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid secret token"})
		return
	}

	var update entity.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	if err := h.workers.Acquire(c.Request.Context(), 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
		return
	}
	defer h.workers.Release(1)

	// the render must finish even if Telegram drops the connection
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.service.HandleUpdate(ctx, update); err != nil {
		logger.WithFields(logrus.Fields{"update_id": update.UpdateID}).WithError(err).Warn("update handled with error")
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
