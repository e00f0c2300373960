package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/gin-gonic/gin"
)

var logFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// ShowLogsHandler serves the log file of the :level parameter as text/plain.
func ShowLogsHandler(logDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename, ok := logFiles[c.Param("level")]
		if !ok {
			c.String(http.StatusNotFound, "Unknown log level: %s", c.Param("level"))
			return
		}

		filePath := filepath.Join(logDir, filename)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			c.String(http.StatusNotFound, "Log file not found: %s", filename)
			return
		}

		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Cache-Control", "no-cache")
		c.File(filePath)
	}
}

// ClearLogsHandler truncates the log file of the :level parameter.
func ClearLogsHandler(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename, ok := logFiles[c.Param("level")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown log level"})
			return
		}

		if err := logger.CleanLogs(filename); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				c.JSON(http.StatusNotFound, gin.H{"error": "log file not managed"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"cleared": filename})
	}
}
