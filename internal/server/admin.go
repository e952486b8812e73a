package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/sidenav/cache"
)

type entriesResponse struct {
	Entries  []cache.EntryInfo `json:"entries"`
	Metrics  cache.Metrics     `json:"metrics"`
	HitRatio float64           `json:"hit_ratio"`
}

func (s *Server) cacheEntries(c *gin.Context) {
	ctx := c.Request.Context()
	m := s.store.Stats(ctx)
	entries := s.store.Entries(ctx)
	if entries == nil {
		entries = []cache.EntryInfo{}
	}
	c.JSON(http.StatusOK, entriesResponse{Entries: entries, Metrics: m, HitRatio: m.HitRatio()})
}

func (s *Server) cacheClear(c *gin.Context) {
	n, err := s.store.Clear(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "cleared": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

func (s *Server) cacheClearEntry(c *gin.Context) {
	if err := s.store.ClearEntry(c.Request.Context(), c.Param("locale"), c.Query("profile")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) cachePurge(c *gin.Context) {
	n, err := s.store.PurgeExpiredEntries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "purged": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": n})
}
