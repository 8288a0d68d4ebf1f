package db

import (
	"context"

	"github.com/uptrace/bun"

	"examprep/internal/helper"
	"examprep/internal/models"
)

// SyllabusStore reads and writes syllabus chunks in Postgres. Vector
// search runs as a single pgvector query, not an application-level scan.
type SyllabusStore struct {
	db *bun.DB
}

func NewSyllabusStore(db *bun.DB) *SyllabusStore {
	return &SyllabusStore{db: db}
}

// StoreChunks inserts ingested chunks with their embeddings.
func (s *SyllabusStore) StoreChunks(ctx context.Context, courseID string, chunks []models.Chunk, embeddings [][]float32, source string) error {
	rows := make([]SyllabusChunk, len(chunks))
	for i, chunk := range chunks {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		rows[i] = SyllabusChunk{
			ID:        id,
			CourseID:  courseID,
			Content:   chunk.Content,
			Embedding: embeddings[i],
			Position:  chunk.ChunkID,
			Metadata: models.ChunkMetadata{
				ModuleNumber: chunk.ModuleNumber,
				Topic:        chunk.Topic,
				Source:       source,
			},
		}
	}
	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

// Search returns the chunks most similar to the query embedding, cosine
// similarity descending with ties broken by ingestion order. Rows below
// matchThreshold are filtered in SQL; an empty result is not an error.
func (s *SyllabusStore) Search(ctx context.Context, queryEmbedding []float32, courseID string, matchCount int, matchThreshold float64) ([]models.SearchResult, error) {
	var rows []SyllabusChunk
	q := s.db.NewSelect().
		Model(&rows).
		Column("sc.id", "sc.content", "sc.metadata").
		ColumnExpr("1 - (sc.embedding <=> ?) AS similarity", queryEmbedding).
		Where("1 - (sc.embedding <=> ?) >= ?", queryEmbedding, matchThreshold).
		OrderExpr("similarity DESC").
		Order("created_at ASC", "position ASC").
		Limit(matchCount)
	if courseID != "" {
		q = q.Where("sc.course_id = ?", courseID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, len(rows))
	for i, row := range rows {
		results[i] = models.SearchResult{
			ID:         row.ID,
			Content:    row.Content,
			Similarity: row.Similarity,
			Metadata:   row.Metadata,
		}
	}
	return results, nil
}

// DropChunks drops the syllabus table, used by ingest -reset.
func (s *SyllabusStore) DropChunks(ctx context.Context) error {
	_, err := s.db.NewDropTable().Model((*SyllabusChunk)(nil)).IfExists().Exec(ctx)
	return err
}
