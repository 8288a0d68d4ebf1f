package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"examprep/internal/auth"
	"examprep/internal/db"
)

// ListConversations handles GET /api/conversations, most recently
// updated first.
func (s *Server) ListConversations(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	convs, err := s.store.ListConversations(c.Request.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Conversation list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if convs == nil {
		convs = []db.Conversation{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// ConversationMessages handles GET /api/conversations/:id/messages,
// chronological ascending. Ownership is enforced; foreign conversations
// look missing.
func (s *Server) ConversationMessages(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	convID := c.Param("id")
	conv, err := s.store.GetConversation(c.Request.Context(), convID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		log.Error().Err(err).Msg("Conversation lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if err != nil || conv.UserID != user.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	msgs, err := s.store.Messages(c.Request.Context(), convID)
	if err != nil {
		log.Error().Err(err).Msg("Message fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if msgs == nil {
		msgs = []db.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
