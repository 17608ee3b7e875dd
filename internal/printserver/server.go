// Package printserver exposes the receipt printer over a small HTTP API so
// slide decks and shell one-liners can trigger prints during the talk.
package printserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dockens/stagehand/internal/escpos"
	"github.com/dockens/stagehand/internal/printer"
)

// PrintManager is the slice of the printer manager the API needs.
type PrintManager interface {
	PrintReceipt(ctx context.Context, data []byte) error
	Status(ctx context.Context) printer.Status
	ForceReset(ctx context.Context) error
}

// Server routes print requests to the manager.
type Server struct {
	manager PrintManager
	logger  *log.Logger
}

func New(manager PrintManager, logger *log.Logger) *Server {
	return &Server{manager: manager, logger: logger}
}

// Router builds the gin engine with all print API routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/print", s.handlePrint)
	api.GET("/status", s.handleStatus)
	api.POST("/reset", s.handleReset)
	api.GET("/templates", s.handleTemplates)
	return r
}

type printRequest struct {
	Template string `json:"template" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

func (s *Server) handlePrint(c *gin.Context) {
	var req printRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "template and text are required")
		return
	}

	payload, err := escpos.Render(req.Template, req.Text)
	if err != nil {
		if errors.Is(err, escpos.ErrUnknownTemplate) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	jobID := uuid.New().String()
	s.logger.Info("print requested", "job", jobID, "template", req.Template, "bytes", len(payload))

	if err := s.manager.PrintReceipt(c.Request.Context(), payload); err != nil {
		s.logger.Error("print failed", "job", jobID, "error", err)
		respondError(c, statusForPrintError(err), err.Error())
		return
	}

	respondOK(c, "printed", gin.H{"job_id": jobID, "bytes": len(payload)})
}

func (s *Server) handleStatus(c *gin.Context) {
	respondOK(c, "printer status", s.manager.Status(c.Request.Context()))
}

func (s *Server) handleReset(c *gin.Context) {
	jobID := uuid.New().String()
	s.logger.Info("reset requested", "job", jobID)
	if err := s.manager.ForceReset(c.Request.Context()); err != nil {
		s.logger.Error("reset failed", "job", jobID, "error", err)
		respondError(c, statusForPrintError(err), err.Error())
		return
	}
	respondOK(c, "printer reset", gin.H{"job_id": jobID})
}

func (s *Server) handleTemplates(c *gin.Context) {
	respondOK(c, "available templates", gin.H{"templates": escpos.Templates()})
}

func statusForPrintError(err error) int {
	switch {
	case errors.Is(err, printer.ErrDeviceUnavailable),
		errors.Is(err, printer.ErrManagerClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, printer.ErrPrintTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
