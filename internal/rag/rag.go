// Package rag implements the retrieval-augmented answer pipeline:
// embed the question, search the syllabus, assemble a grounded prompt
// with recent history, and synthesize an answer with source citations.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"examprep/internal/config"
	"examprep/internal/models"
)

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns the stored chunks most similar to a query embedding.
// Both the pgvector store and the chromem store implement it.
type Searcher interface {
	Search(ctx context.Context, queryEmbedding []float32, courseID string, matchCount int, matchThreshold float64) ([]models.SearchResult, error)
}

// Completer generates a chat completion from an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, messages []llms.MessageContent) (string, error)
}

type RAG struct {
	embedder  Embedder
	searcher  Searcher
	completer Completer
	cfg       *config.RAGConfig
}

func NewRAG(embedder Embedder, searcher Searcher, completer Completer, cfg *config.RAGConfig) *RAG {
	return &RAG{embedder: embedder, searcher: searcher, completer: completer, cfg: cfg}
}

// SearchSyllabus embeds the query and runs vector search. Results below
// the threshold are never returned.
func (r *RAG) SearchSyllabus(ctx context.Context, query, courseID string) ([]models.SearchResult, error) {
	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	results, err := r.searcher.Search(ctx, queryEmbedding, courseID, r.cfg.MatchCount, r.cfg.MatchThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search syllabus: %w", err)
	}
	return results, nil
}

// Answer runs the full pipeline for one question. Retrieval failures
// degrade to an ungrounded answer and synthesis failures degrade to a
// fixed apology; the caller always receives a usable turn.
func (r *RAG) Answer(ctx context.Context, query, courseID string, history []models.HistoryTurn) (string, []models.MessageSource) {
	results, err := r.SearchSyllabus(ctx, query, courseID)
	if err != nil {
		log.Warn().Err(err).Msg("Retrieval failed, answering without syllabus context")
		results = nil
	}

	messages := AssemblePrompt(query, results, history)
	sources := BuildSources(results)

	answer, err := r.completer.Complete(ctx, messages)
	if err != nil || answer == "" {
		if err != nil {
			log.Error().Err(err).Msg("Completion failed, returning fallback answer")
		}
		return models.FallbackAnswer, sources
	}
	return answer, sources
}

// AssemblePrompt builds the message sequence: system instruction, the
// last few prior turns in chronological order, then the user turn with
// retrieved chunks labeled by index and similarity percentage. When no
// chunk cleared the threshold the user turn says so explicitly, so the
// model never silently hallucinates against absent context.
func AssemblePrompt(query string, results []models.SearchResult, history []models.HistoryTurn) []llms.MessageContent {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, models.SystemPrompt),
	}

	if len(history) > models.HistoryReplayLimit {
		history = history[len(history)-models.HistoryReplayLimit:]
	}
	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}

	userMessage := fmt.Sprintf(models.NoContextPromptTemplate, query)
	if len(results) > 0 {
		userMessage = fmt.Sprintf(models.ContextPromptTemplate, buildContext(results), query)
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userMessage))

	return messages
}

func buildContext(results []models.SearchResult) string {
	blocks := make([]string, len(results))
	for i, result := range results {
		blocks[i] = fmt.Sprintf("[Source %d] (Similarity: %.1f%%)\n%s", i+1, result.Similarity*100, result.Content)
	}
	return strings.Join(blocks, models.ContextSeparator)
}

// BuildSources projects search results into citations for display.
func BuildSources(results []models.SearchResult) []models.MessageSource {
	sources := make([]models.MessageSource, len(results))
	for i, result := range results {
		courseCode := result.Metadata.Source
		if courseCode == "" {
			courseCode = "KTU"
		}
		module := "General"
		if result.Metadata.ModuleNumber > 0 {
			module = fmt.Sprintf("Module %d", result.Metadata.ModuleNumber)
		}
		topic := result.Metadata.Topic
		if topic == "" {
			topic = "Syllabus Content"
		}
		sources[i] = models.MessageSource{
			CourseCode: courseCode,
			Module:     module,
			Topic:      topic,
			Similarity: result.Similarity,
		}
	}
	return sources
}
