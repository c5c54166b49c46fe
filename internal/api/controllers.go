package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trade-clicker/internal/engine"
)

type signalRequest struct {
	SignalType string   `json:"signalType" binding:"required"`
	Price      *float64 `json:"price"`
}

type signalResponse struct {
	Status   string   `json:"status"`
	Signal   string   `json:"signal"`
	Position string   `json:"position"`
	Previous string   `json:"previous"`
	Changed  bool     `json:"changed"`
	Legs     []string `json:"legs"`
	ID       string   `json:"id"`
}

type listSignalsQuery struct {
	Limit int `form:"limit"`
}

func (q *listSignalsQuery) normalize() {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 500 {
		q.Limit = 500
	}
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

// postSignal clicks the trading UI for a buy, sell or clear signal and answers
// once the position has been updated.
func (s *Server) postSignal(c *gin.Context) {
	var req signalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	sig, err := engine.ParseSignal(req.SignalType)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_SIGNAL", err.Error())
		return
	}

	in := engine.Request{Signal: sig, Source: engine.SourceHTTP}
	if req.Price != nil {
		in.Price = *req.Price
	}

	start := time.Now()
	res, err := s.Signals.Submit(c.Request.Context(), in)
	if s.Metrics != nil {
		s.Metrics.SignalLatency.Since(start)
	}
	if err != nil {
		s.signalError(c, res, err)
		return
	}

	c.JSON(http.StatusOK, signalResponse{
		Status:   "clicked",
		Signal:   string(res.Signal),
		Position: string(res.Current),
		Previous: string(res.Previous),
		Changed:  res.Changed,
		Legs:     res.Legs,
		ID:       res.RequestID,
	})
}

func (s *Server) signalError(c *gin.Context, res engine.Result, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, engine.ErrQueueFull), errors.Is(err, engine.ErrDispatcherClosed):
		status, code = http.StatusServiceUnavailable, "BUSY"
		if s.Metrics != nil {
			s.Metrics.IncrementRejected()
		}
	case errors.Is(err, context.DeadlineExceeded):
		// The job may still be clicking; the caller has to check the position.
		status, code = http.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, engine.ErrExecution):
		status, code = http.StatusBadGateway, "EXECUTION_FAILED"
	case errors.Is(err, engine.ErrUnknownSignal):
		status, code = http.StatusBadRequest, "INVALID_SIGNAL"
	}
	body := gin.H{
		"code":  code,
		"error": err.Error(),
		"id":    res.RequestID,
	}
	if res.Current != "" {
		body["position"] = string(res.Current)
	}
	c.JSON(status, body)
}

func (s *Server) getPosition(c *gin.Context) {
	p, err := s.Signals.Position(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"position": string(p)})
}

func (s *Server) getSignals(c *gin.Context) {
	if s.Journal == nil {
		respondError(c, http.StatusServiceUnavailable, "JOURNAL_UNAVAILABLE", "signal journal not available")
		return
	}
	var q listSignalsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	q.normalize()

	entries, err := s.Journal.ListJournal(c.Request.Context(), q.Limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	c.JSON(http.StatusOK, entries)
}

// getMetrics returns signal counters and click latency.
func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "metrics not available")
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}
