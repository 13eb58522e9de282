package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wallacegibbon/subcon/internal/logging"
)

// handleReload re-reads pref.toml and rebuilds the schema registry and
// fetch cache, then swaps RuntimeState atomically.
func (s *Server) handleReload(c *gin.Context) {
	if err := s.Reload(); err != nil {
		log.Error().Err(err).Msg("reload failed")
		c.String(http.StatusInternalServerError, "%s", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// handleLogs returns the most recent lines from the in-memory ring
// buffer, clamped to logging.MaxLines, defaulting to logging.DefaultLimit.
func (s *Server) handleLogs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.String(http.StatusBadRequest, "invalid limit %q", raw)
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"lines": logging.Get(limit)})
}

type cacheEntryView struct {
	URL           string `json:"url"`
	RemainingTTLs int64  `json:"remaining_ttl_seconds"`
}

// handleCache lists every cached URL with its remaining TTL (network/mod.rs's
// list() diagnostic, surfaced per SPEC_FULL.md's supplemented features).
func (s *Server) handleCache(c *gin.Context) {
	state := s.current()
	entries := state.Store.List()
	out := make([]cacheEntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, cacheEntryView{URL: e.URL, RemainingTTLs: int64(e.RemainingTTL.Seconds())})
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}
