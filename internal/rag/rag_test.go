package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"examprep/internal/config"
	"examprep/internal/models"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

type fakeSearcher struct {
	results   []models.SearchResult
	err       error
	gotCourse string
}

func (f *fakeSearcher) Search(ctx context.Context, queryEmbedding []float32, courseID string, matchCount int, matchThreshold float64) ([]models.SearchResult, error) {
	f.gotCourse = courseID
	return f.results, f.err
}

type fakeCompleter struct {
	answer      string
	err         error
	gotMessages []llms.MessageContent
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llms.MessageContent) (string, error) {
	f.gotMessages = messages
	return f.answer, f.err
}

func testConfig() *config.RAGConfig {
	return &config.RAGConfig{MatchCount: 5, MatchThreshold: 0.7}
}

func messageText(m llms.MessageContent) string {
	var sb strings.Builder
	for _, part := range m.Parts {
		if text, ok := part.(llms.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String()
}

func TestAnswerGrounded(t *testing.T) {
	searcher := &fakeSearcher{results: []models.SearchResult{
		{ID: "c1", Content: "Dijkstra's algorithm finds shortest paths.", Similarity: 0.91,
			Metadata: models.ChunkMetadata{ModuleNumber: 3, Topic: "Graph Algorithms", Source: "CST201"}},
	}}
	completer := &fakeCompleter{answer: "Dijkstra's algorithm works by..."}
	r := NewRAG(&fakeEmbedder{vector: []float32{0.1}}, searcher, completer, testConfig())

	answer, sources := r.Answer(context.Background(), "What is Dijkstra's algorithm?", "course-1", nil)

	assert.Equal(t, "Dijkstra's algorithm works by...", answer)
	require.Len(t, sources, 1)
	assert.Equal(t, "CST201", sources[0].CourseCode)
	assert.Equal(t, "Module 3", sources[0].Module)
	assert.Equal(t, "Graph Algorithms", sources[0].Topic)
	assert.InDelta(t, 0.91, sources[0].Similarity, 1e-9)
	assert.Equal(t, "course-1", searcher.gotCourse)

	// prompt: system instruction then the grounding user turn
	require.Len(t, completer.gotMessages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, completer.gotMessages[0].Role)
	userTurn := messageText(completer.gotMessages[1])
	assert.Contains(t, userTurn, "[Source 1] (Similarity: 91.0%)")
	assert.Contains(t, userTurn, "Dijkstra's algorithm finds shortest paths.")
	assert.Contains(t, userTurn, "Student's question: What is Dijkstra's algorithm?")
}

func TestAnswerNoContextFlagged(t *testing.T) {
	completer := &fakeCompleter{answer: "From general knowledge..."}
	r := NewRAG(&fakeEmbedder{vector: []float32{0.1}}, &fakeSearcher{}, completer, testConfig())

	answer, sources := r.Answer(context.Background(), "What is a red-black tree?", "", nil)

	assert.Equal(t, "From general knowledge...", answer)
	assert.Empty(t, sources)
	userTurn := messageText(completer.gotMessages[len(completer.gotMessages)-1])
	assert.Contains(t, userTurn, "No specific syllabus context found")
	assert.NotContains(t, userTurn, "[Source")
}

func TestAnswerRetrievalFailureDegrades(t *testing.T) {
	completer := &fakeCompleter{answer: "Answering anyway."}
	r := NewRAG(&fakeEmbedder{vector: []float32{0.1}}, &fakeSearcher{err: errors.New("store unreachable")}, completer, testConfig())

	answer, sources := r.Answer(context.Background(), "question", "", nil)

	assert.Equal(t, "Answering anyway.", answer)
	assert.Empty(t, sources)
	userTurn := messageText(completer.gotMessages[len(completer.gotMessages)-1])
	assert.Contains(t, userTurn, "No specific syllabus context found")
}

func TestAnswerEmbeddingFailureDegrades(t *testing.T) {
	completer := &fakeCompleter{answer: "Still answering."}
	r := NewRAG(&fakeEmbedder{err: errors.New("model unavailable")}, &fakeSearcher{}, completer, testConfig())

	answer, _ := r.Answer(context.Background(), "question", "", nil)
	assert.Equal(t, "Still answering.", answer)
}

func TestAnswerCompletionFailureFallsBack(t *testing.T) {
	for name, completer := range map[string]*fakeCompleter{
		"error": {err: errors.New("model down")},
		"empty": {answer: ""},
	} {
		t.Run(name, func(t *testing.T) {
			r := NewRAG(&fakeEmbedder{vector: []float32{0.1}}, &fakeSearcher{}, completer, testConfig())
			answer, _ := r.Answer(context.Background(), "question", "", nil)
			assert.Equal(t, models.FallbackAnswer, answer)
		})
	}
}

func TestAssemblePromptHistoryWindow(t *testing.T) {
	var history []models.HistoryTurn
	for i := 0; i < 10; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		history = append(history, models.HistoryTurn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	messages := AssemblePrompt("current question", nil, history)

	// system + 6 replayed turns + final user turn
	require.Len(t, messages, 8)
	assert.Equal(t, llms.ChatMessageTypeSystem, messages[0].Role)
	for i := 0; i < 6; i++ {
		// only the last 6 turns survive, original order preserved
		assert.Equal(t, fmt.Sprintf("turn %d", i+4), messageText(messages[i+1]))
	}
	assert.Equal(t, llms.ChatMessageTypeHuman, messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, messages[2].Role)
	assert.Contains(t, messageText(messages[7]), "current question")
}

func TestAssemblePromptContextSeparators(t *testing.T) {
	results := []models.SearchResult{
		{Content: "first chunk", Similarity: 0.95},
		{Content: "second chunk", Similarity: 0.81},
	}
	messages := AssemblePrompt("q", results, nil)
	userTurn := messageText(messages[len(messages)-1])

	assert.Contains(t, userTurn, "[Source 1] (Similarity: 95.0%)\nfirst chunk")
	assert.Contains(t, userTurn, "[Source 2] (Similarity: 81.0%)\nsecond chunk")
	assert.Contains(t, userTurn, models.ContextSeparator)
	assert.Contains(t, userTurn, "Context from KTU syllabus:")
}

func TestBuildSourcesDefaults(t *testing.T) {
	sources := BuildSources([]models.SearchResult{{Similarity: 0.77}})
	require.Len(t, sources, 1)
	assert.Equal(t, "KTU", sources[0].CourseCode)
	assert.Equal(t, "General", sources[0].Module)
	assert.Equal(t, "Syllabus Content", sources[0].Topic)
	assert.InDelta(t, 0.77, sources[0].Similarity, 1e-9)
}

func TestSearchSyllabusPropagatesErrors(t *testing.T) {
	r := NewRAG(&fakeEmbedder{err: errors.New("down")}, &fakeSearcher{}, &fakeCompleter{}, testConfig())
	_, err := r.SearchSyllabus(context.Background(), "q", "")
	assert.Error(t, err)

	r = NewRAG(&fakeEmbedder{vector: []float32{0.1}}, &fakeSearcher{err: errors.New("down")}, &fakeCompleter{}, testConfig())
	_, err = r.SearchSyllabus(context.Background(), "q", "")
	assert.Error(t, err)
}
