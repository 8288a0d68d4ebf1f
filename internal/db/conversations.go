package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"examprep/internal/helper"
	"examprep/internal/models"
)

// ConversationStore is the append-only message log plus conversation
// metadata used by the chat pipeline.
type ConversationStore struct {
	db *bun.DB
}

func NewConversationStore(db *bun.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) CreateConversation(ctx context.Context, userID, title, courseID string) (*Conversation, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	conv := &Conversation{
		ID:        id,
		UserID:    userID,
		Title:     title,
		CourseID:  courseID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(conv).Exec(ctx); err != nil {
		return nil, err
	}
	return conv, nil
}

// GetConversation looks up a conversation by id. Callers must verify
// UserID before using the result.
func (s *ConversationStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	conv := new(Conversation)
	err := s.db.NewSelect().Model(conv).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ConversationStore) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	var convs []Conversation
	err := s.db.NewSelect().
		Model(&convs).
		Where("c.user_id = ?", userID).
		Order("updated_at DESC").
		Scan(ctx)
	return convs, err
}

// AppendMessage stores one turn. Messages are never updated or reordered.
func (s *ConversationStore) AppendMessage(ctx context.Context, conversationID, role, content string, sources []models.MessageSource) (*Message, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	msg := &Message{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Sources:        sources,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(msg).Exec(ctx); err != nil {
		return nil, err
	}
	return msg, nil
}

// RecentMessages returns the newest messages first; callers reverse the
// slice for chronological replay.
func (s *ConversationStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	var msgs []Message
	err := s.db.NewSelect().
		Model(&msgs).
		Where("m.conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)
	return msgs, err
}

// Messages returns the full log in creation order.
func (s *ConversationStore) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	var msgs []Message
	err := s.db.NewSelect().
		Model(&msgs).
		Where("m.conversation_id = ?", conversationID).
		Order("created_at ASC").
		Scan(ctx)
	return msgs, err
}

// TouchConversation bumps updated_at after a completed turn.
// Last-write-wins; concurrent turns on one conversation are not serialized.
func (s *ConversationStore) TouchConversation(ctx context.Context, id string) error {
	_, err := s.db.NewUpdate().
		Model((*Conversation)(nil)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
