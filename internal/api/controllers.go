package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Status(c.Request.Context()))
}

func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Metrics())
}

func (s *Server) getProviderStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": s.engine.ProviderStats()})
}

func (s *Server) getCostBudget(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.CostBudget())
}

func historyQuery(c *gin.Context) (symbol string, limit int) {
	symbol = c.Query("symbol")
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	return symbol, limit
}

func (s *Server) getDecisions(c *gin.Context) {
	symbol, limit := historyQuery(c)
	decisions, err := s.engine.Decisions(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}

func (s *Server) getExecutions(c *gin.Context) {
	symbol, limit := historyQuery(c)
	executions, err := s.engine.Executions(c.Request.Context(), symbol, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL_ERROR",
			"error": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"executions": executions})
}

func (s *Server) getPositions(c *gin.Context) {
	positions, err := s.engine.Positions(c.Request.Context())
	if err != nil {
		// The cached view is still useful when the venue is unreachable.
		c.JSON(http.StatusOK, gin.H{"positions": positions, "stale": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) pauseEngine(c *gin.Context) {
	s.engine.Pause()
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (s *Server) resumeEngine(c *gin.Context) {
	s.engine.Resume()
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

func (s *Server) triggerCycle(c *gin.Context) {
	symbol := c.Param("symbol")
	outcome, err := s.engine.TriggerCycle(c.Request.Context(), symbol)
	if err != nil {
		status := http.StatusBadRequest
		if outcome != nil {
			// The cycle ran but execution failed downstream.
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"code":    "CYCLE_FAILED",
			"error":   err.Error(),
			"outcome": outcome,
		})
		return
	}
	c.JSON(http.StatusOK, outcome)
}
