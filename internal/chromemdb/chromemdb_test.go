package chromemdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examprep/internal/models"
)

func newTestManager(t *testing.T) *VectorDBManager {
	t.Helper()
	m, err := NewVectorDBManager(t.TempDir(), "syllabus_test", true, "")
	require.NoError(t, err)
	return m
}

// unit vectors so cosine similarity equals the dot product
var (
	vecA = []float32{1, 0, 0}
	vecB = []float32{0.8, 0.6, 0}
	vecC = []float32{0, 1, 0}
)

func seed(t *testing.T, m *VectorDBManager) {
	t.Helper()
	err := m.StoreChunks(context.Background(), "course-1", []models.Chunk{
		{Content: "Dijkstra's shortest path algorithm", ModuleNumber: 3, Topic: "Graphs", ChunkID: 1},
		{Content: "Bellman-Ford handles negative edges", ModuleNumber: 3, Topic: "Graphs", ChunkID: 2},
	}, [][]float32{vecA, vecB}, "CST201")
	require.NoError(t, err)

	err = m.StoreChunks(context.Background(), "course-2", []models.Chunk{
		{Content: "Normalization reduces redundancy", ModuleNumber: 1, Topic: "Database Design", ChunkID: 1},
	}, [][]float32{vecC}, "CST204")
	require.NoError(t, err)
}

func TestSearchThresholdAndOrder(t *testing.T) {
	m := newTestManager(t)
	seed(t, m)

	results, err := m.Search(context.Background(), vecA, "", 5, 0.7)
	require.NoError(t, err)
	require.Len(t, results, 2, "the orthogonal chunk must not clear the threshold")

	assert.Equal(t, "Dijkstra's shortest path algorithm", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
	assert.Equal(t, "Bellman-Ford handles negative edges", results[1].Content)
	assert.InDelta(t, 0.8, results[1].Similarity, 1e-4)

	for _, r := range results {
		assert.GreaterOrEqual(t, r.Similarity, 0.7)
		assert.LessOrEqual(t, r.Similarity, 1.0)
	}
}

func TestSearchMatchCount(t *testing.T) {
	m := newTestManager(t)
	seed(t, m)

	results, err := m.Search(context.Background(), vecA, "", 1, 0.0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
}

func TestSearchCourseFilter(t *testing.T) {
	m := newTestManager(t)
	seed(t, m)

	results, err := m.Search(context.Background(), vecC, "course-2", 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Normalization reduces redundancy", results[0].Content)
	assert.Equal(t, 1, results[0].Metadata.ModuleNumber)
	assert.Equal(t, "Database Design", results[0].Metadata.Topic)
	assert.Equal(t, "CST204", results[0].Metadata.Source)

	// course-1 has nothing near vecC above the default threshold
	results, err = m.Search(context.Background(), vecC, "course-1", 5, 0.7)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchEmptyCollection(t *testing.T) {
	m := newTestManager(t)

	results, err := m.Search(context.Background(), vecA, "", 5, 0.7)
	require.NoError(t, err)
	assert.Empty(t, results, "empty collection yields an empty result, not an error")
}

func TestSearchTiesBreakByIngestOrder(t *testing.T) {
	m := newTestManager(t)
	// identical embeddings, stored out of order
	err := m.StoreChunks(context.Background(), "course-1", []models.Chunk{
		{Content: "second chunk of the module", ModuleNumber: 1, ChunkID: 2},
		{Content: "first chunk of the module", ModuleNumber: 1, ChunkID: 1},
	}, [][]float32{vecA, vecA}, "CST201")
	require.NoError(t, err)

	results, err := m.Search(context.Background(), vecA, "", 5, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first chunk of the module", results[0].Content)
	assert.Equal(t, "second chunk of the module", results[1].Content)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	m, err := NewVectorDBManager(dir, "syllabus_test", true, "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	err = m.StoreChunks(context.Background(), "course-1", []models.Chunk{
		{Content: "exported chunk content here", ModuleNumber: 1, ChunkID: 1},
	}, [][]float32{vecA}, "CST201")
	require.NoError(t, err)

	require.NoError(t, m.Export(context.Background()))
	_, err = os.Stat(filepath.Join(dir, "syllabus_test.chromem"))
	require.NoError(t, err)
}

func TestExportRequiresEncryptionKey(t *testing.T) {
	m := newTestManager(t)
	assert.Error(t, m.Export(context.Background()))
}

func TestSearchNothingClearsThreshold(t *testing.T) {
	m := newTestManager(t)
	seed(t, m)

	results, err := m.Search(context.Background(), vecC, "course-1", 5, 0.9)
	require.NoError(t, err)
	assert.Empty(t, results)
}
