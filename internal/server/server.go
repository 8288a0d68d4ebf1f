// Package server exposes the chat pipeline over HTTP.
package server

import (
	"context"

	"github.com/gin-gonic/gin"

	"examprep/internal/auth"
	"examprep/internal/config"
	"examprep/internal/db"
	"examprep/internal/models"
	"examprep/internal/ratelimit"
)

// ConversationStore is the persistence boundary the handlers talk to.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID, title, courseID string) (*db.Conversation, error)
	GetConversation(ctx context.Context, id string) (*db.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]db.Conversation, error)
	AppendMessage(ctx context.Context, conversationID, role, content string, sources []models.MessageSource) (*db.Message, error)
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]db.Message, error)
	Messages(ctx context.Context, conversationID string) ([]db.Message, error)
	TouchConversation(ctx context.Context, id string) error
}

// Answerer is the RAG pipeline boundary.
type Answerer interface {
	SearchSyllabus(ctx context.Context, query, courseID string) ([]models.SearchResult, error)
	Answer(ctx context.Context, query, courseID string, history []models.HistoryTurn) (string, []models.MessageSource)
}

type Server struct {
	store   ConversationStore
	rag     Answerer
	limiter ratelimit.Limiter
	auth    *auth.Authenticator
	cfg     *config.Config
}

func NewServer(store ConversationStore, ragService Answerer, limiter ratelimit.Limiter, authenticator *auth.Authenticator, cfg *config.Config) *Server {
	return &Server{
		store:   store,
		rag:     ragService,
		limiter: limiter,
		auth:    authenticator,
		cfg:     cfg,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := engine.Group("/api", s.auth.Middleware())
	api.POST("/chat", s.Chat)
	api.POST("/search", s.Search)
	api.GET("/conversations", s.ListConversations)
	api.GET("/conversations/:id/messages", s.ConversationMessages)

	return engine
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	return s.Router().Run(s.cfg.Server.Addr)
}
