package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"examprep/internal/auth"
	"examprep/internal/config"
	"examprep/internal/db"
	"examprep/internal/helper"
	"examprep/internal/models"
	"examprep/internal/ratelimit"
)

// pipelineTimeout bounds one chat turn including the model calls.
const pipelineTimeout = 60 * time.Second

// Chat handles POST /api/chat: the full retrieval-augmented turn.
func (s *Server) Chat(c *gin.Context) {
	user, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	// Rate limiting per user, shared Redis counter across instances
	if !s.allowRequest(c, "chat", user.ID, s.cfg.RateLimit.Chat,
		"Too many requests. Please wait a moment before sending another message.") {
		return
	}

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}
	if len(req.Message) > models.MaxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Message too long. Maximum %d characters allowed.", models.MaxMessageLength),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), pipelineTimeout)
	defer cancel()

	// Get or create conversation, with ownership verification. Missing
	// and foreign conversations are indistinguishable to the caller.
	convID := req.ConversationID
	if convID != "" {
		conv, err := s.store.GetConversation(ctx, convID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			log.Error().Err(err).Msg("Conversation lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if err != nil || conv.UserID != user.ID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
	} else {
		title := helper.TruncateTitle(message, models.MaxTitleLength)
		conv, err := s.store.CreateConversation(ctx, user.ID, title, req.CourseID)
		if err != nil {
			log.Error().Err(err).Msg("Conversation create failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
			return
		}
		convID = conv.ID
	}

	// Prior turns, most recent first as fetched, reversed for replay.
	recent, err := s.store.RecentMessages(ctx, convID, models.HistoryFetchLimit)
	if err != nil {
		log.Warn().Err(err).Msg("History fetch failed, answering without history")
		recent = nil
	}
	history := make([]models.HistoryTurn, len(recent))
	for i, msg := range recent {
		history[len(recent)-1-i] = models.HistoryTurn{Role: msg.Role, Content: msg.Content}
	}

	if _, err := s.store.AppendMessage(ctx, convID, models.RoleUser, message, nil); err != nil {
		log.Error().Err(err).Msg("User message write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	answer, sources := s.rag.Answer(ctx, message, req.CourseID, history)
	if sources == nil {
		sources = []models.MessageSource{}
	}

	if _, err := s.store.AppendMessage(ctx, convID, models.RoleAssistant, answer, sources); err != nil {
		log.Error().Err(err).Msg("Assistant message write failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if err := s.store.TouchConversation(ctx, convID); err != nil {
		log.Error().Err(err).Msg("Conversation touch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, models.ChatResponse{
		Answer:         answer,
		Sources:        sources,
		ConversationID: convID,
	})
}

// allowRequest runs the limiter gate. Limiter store errors fail open:
// the request proceeds and the degraded mode is logged.
func (s *Server) allowRequest(c *gin.Context, scope, userID string, wc config.WindowConfig, rejection string) bool {
	result, err := s.limiter.Check(c.Request.Context(), ratelimit.Key(scope, userID), ratelimit.Config{
		MaxRequests:   wc.MaxRequests,
		WindowSeconds: wc.WindowSeconds,
	})
	if err != nil {
		log.Error().Err(err).Str("scope", scope).Msg("Rate limiter unavailable, allowing request")
		return true
	}
	if !result.Allowed {
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.UnixMilli(), 10))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": rejection})
		return false
	}
	return true
}
