package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/store"
	"forex-autotrader/internal/supervisor"
)

type stopRequest struct {
	Reason string `json:"reason"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

func (s *Server) start(c *gin.Context) {
	if err := s.sup.Start(c.Request.Context()); err != nil {
		if errors.Is(err, supervisor.ErrAlreadyRunning) {
			respondError(c, http.StatusConflict, "already_running", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "start_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) stop(c *gin.Context) {
	var req stopRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "manual stop"
	}

	if err := s.sup.Stop(c.Request.Context(), req.Reason); err != nil {
		if errors.Is(err, supervisor.ErrNotRunning) {
			respondError(c, http.StatusConflict, "not_running", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "stop_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped", "reason": req.Reason})
}

func (s *Server) emergencyStop(c *gin.Context) {
	var req stopRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "manual emergency stop"
	}

	if err := s.sup.EmergencyStop(c.Request.Context(), req.Reason); err != nil {
		if errors.Is(err, supervisor.ErrNotRunning) {
			respondError(c, http.StatusConflict, "not_running", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "emergency_stop_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "emergency"})
}

func (s *Server) clearEmergency(c *gin.Context) {
	if err := s.sup.ClearEmergency(c.Request.Context()); err != nil {
		if errors.Is(err, supervisor.ErrNotEmergency) {
			respondError(c, http.StatusConflict, "not_emergency", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "clear_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.sup.Status())
}

func (s *Server) positions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"positions": s.sup.Positions()})
}

func (s *Server) decisions(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "bad_limit", "limit must be a positive integer")
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	out, err := s.log.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Failed to read decision log", err)
		respondError(c, http.StatusInternalServerError, "query_failed", "could not read decision log")
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": out, "count": len(out)})
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.cfg.Snapshot())
}

// updateConfig applies a partial update. A rejected patch returns the
// validation error and leaves the active config untouched; an accepted one
// takes effect at the next tick boundary.
func (s *Server) updateConfig(c *gin.Context) {
	var patch store.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if err := s.cfg.Apply(patch); err != nil {
		respondError(c, http.StatusUnprocessableEntity, "validation_failed", err.Error())
		return
	}
	logger.Info(c.Request.Context(), "Configuration updated")
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "config": s.cfg.Snapshot()})
}
