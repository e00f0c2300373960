package handler

import (
	"net/http"
	"strconv"

	"github.com/Mikhail1201/FAYES/internal/dto"
	"github.com/Mikhail1201/FAYES/internal/logger"
	"github.com/Mikhail1201/FAYES/internal/model"
	"github.com/Mikhail1201/FAYES/internal/repository"
	"github.com/gin-gonic/gin"
)

// MaxHistoryLimit caps the limit query parameter.
const MaxHistoryLimit = 500

type historyResponse struct {
	Outcomes []model.Outcome      `json:"outcomes"`
	Counts   []model.ProductCount `json:"counts"`
}

// HistoryHandler handles GET /scanner/history?limit=&run=&status=&product=.
func HistoryHandler(repo repository.OutcomeRepository, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := &dto.OutcomeFilter{
			RunID:   c.Query("run"),
			Status:  dto.CycleStatus(c.Query("status")),
			Product: c.Query("product"),
			Limit:   atoiDefault(c.Query("limit"), 50),
		}
		if filter.Limit > MaxHistoryLimit {
			filter.Limit = MaxHistoryLimit
		}

		outcomes, err := repo.Recent(filter)
		if err != nil {
			logger.Error("Error querying history: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
			return
		}

		counts, err := repo.CountsByProduct()
		if err != nil {
			logger.Error("Error counting products: %v", err)
			counts = []model.ProductCount{}
		}

		c.JSON(http.StatusOK, historyResponse{Outcomes: outcomes, Counts: counts})
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
