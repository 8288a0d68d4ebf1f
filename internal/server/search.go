package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"examprep/internal/auth"
	"examprep/internal/models"
)

// Search handles POST /api/search: raw vector search without synthesis.
func (s *Server) Search(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if !s.allowRequest(c, "search", user.ID, s.cfg.RateLimit.Search,
		"Too many requests. Please wait a moment.") {
		return
	}

	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
		return
	}
	if len(req.Query) > models.MaxQueryLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Query too long. Maximum %d characters.", models.MaxQueryLength),
		})
		return
	}

	results, err := s.rag.SearchSyllabus(c.Request.Context(), strings.TrimSpace(req.Query), req.CourseID)
	if err != nil {
		log.Error().Err(err).Msg("Syllabus search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search syllabus"})
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
