package models

// ChunkMetadata describes where a syllabus chunk came from.
type ChunkMetadata struct {
	ModuleNumber int    `json:"module_number,omitempty"`
	Topic        string `json:"topic,omitempty"`
	Source       string `json:"source,omitempty"`
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content      string
	ModuleNumber int
	Topic        string
	ChunkID      int
}

// SearchResult is a retrieved syllabus chunk with its similarity score.
// Produced per query, never persisted.
type SearchResult struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Similarity float64       `json:"similarity"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// MessageSource is the citation attached to a generated answer.
type MessageSource struct {
	CourseCode string  `json:"course_code"`
	Module     string  `json:"module"`
	Topic      string  `json:"topic"`
	Similarity float64 `json:"similarity"`
}

// HistoryTurn is one prior conversation turn replayed into the prompt.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	CourseID       string `json:"courseId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// ChatResponse is the success body of POST /api/chat.
type ChatResponse struct {
	Answer         string          `json:"answer"`
	Sources        []MessageSource `json:"sources"`
	ConversationID string          `json:"conversationId"`
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query    string `json:"query"`
	CourseID string `json:"courseId,omitempty"`
}
