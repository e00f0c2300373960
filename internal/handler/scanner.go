package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/service/process"
	"github.com/gin-gonic/gin"
)

// ScannerController starts and stops the scanner process.
type ScannerController interface {
	Status() dto.ProcessStatus
	Start(token string) (dto.ProcessStatus, error)
	Stop() error
}

type startRequest struct {
	Token string `json:"token"`
}

// LivenessHandler answers GET / so callers can tell the controller is up.
func LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "scanner controller running"})
	}
}

// StartScannerHandler handles POST /scanner/start with body {"token": "..."}.
func StartScannerHandler(ctrl ScannerController, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startRequest
		// a missing or malformed body is reported as a missing token
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			logger.Warning("Malformed start request body: %v", err)
		}

		status, err := ctrl.Start(req.Token)
		switch {
		case errors.Is(err, process.ErrMissingToken):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
			return
		case errors.Is(err, process.ErrAlreadyRunning):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Scanner is already running"})
			return
		case err != nil:
			logger.Error("Failed to start scanner: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"started": true, "pid": status.PID})
	}
}

// StopScannerHandler handles POST /scanner/stop.
func StopScannerHandler(ctrl ScannerController) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ctrl.Stop(); err != nil {
			if errors.Is(err, process.ErrNotRunning) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "No scanner is running"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"stopped": true})
	}
}

// ScannerStatusHandler handles GET /scanner/status.
func ScannerStatusHandler(ctrl ScannerController) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, ctrl.Status())
	}
}
