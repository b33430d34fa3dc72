package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"lecture2obs/pkg/recorder"
	"lecture2obs/service"
)

type ServiceDependencies struct {
	Controller service.ControllerService
}

type toggleRequest struct {
	Course string `json:"course"`
	Title  string `json:"title"`
	Date   string `json:"date"`
}

// Toggle starts or stops a recording session over the control socket.
func Toggle(deps ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req toggleRequest
		// An empty body is a plain toggle with schedule-resolved metadata.
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		result, err := deps.Controller.Toggle(c.Request.Context(), req.Course, req.Title, req.Date)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("toggle failed")
			switch {
			case errors.Is(err, service.ErrPipelineBusy), errors.Is(err, service.ErrRecorderStarting):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			case errors.Is(err, recorder.ErrCaptureUnavailable):
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// Status reports the persisted session state without mutating it.
func Status(deps ServiceDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := deps.Controller.Status(c.Request.Context())
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("status failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
