package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/flightbooker/backend/internal/services"
)

// FeedHandler serves the public airline schedule feed
type FeedHandler struct {
	feedSvc *services.FeedService
	logger  *logrus.Logger
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feedSvc *services.FeedService, logger *logrus.Logger) *FeedHandler {
	return &FeedHandler{
		feedSvc: feedSvc,
		logger:  logger,
	}
}

// Schedule returns the airline's upcoming flight schedule
// GET /api/v1/airlines/:code/schedule
func (h *FeedHandler) Schedule(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))

	feed, err := h.feedSvc.Schedule(code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}
