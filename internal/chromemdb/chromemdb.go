package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"

	"examprep/internal/models"
)

const compress = false

// VectorDBManager encapsulates the chromem-go database operations. It is
// the embedded alternative to the Postgres pgvector backend and serves
// the same search contract.
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	encryptionKey string
	filePath      string
}

// NewVectorDBManager initializes a new vector database manager
func NewVectorDBManager(dbPath, collectionName string, inMemory bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	m := &VectorDBManager{
		db:            db,
		dbPath:        dbPath,
		encryptionKey: encryptionKey,
		filePath:      dbPath + "/" + collectionName + ".chromem",
	}
	if _, err := m.GetOrCreateCollection(collectionName); err != nil {
		return nil, err
	}
	return m, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	m.collection = c
	return c, nil
}

// StoreChunks adds ingested chunks with their embeddings.
func (m *VectorDBManager) StoreChunks(ctx context.Context, courseID string, chunks []models.Chunk, embeddings [][]float32, source string) error {
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        fmt.Sprintf("%s-%d-%d", courseID, chunk.ModuleNumber, chunk.ChunkID),
			Content:   chunk.Content,
			Metadata:  chunkMetadata(courseID, chunk, source),
			Embedding: embeddings[i],
		}
	}
	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search performs a similarity query against the collection. Results
// below matchThreshold are dropped; an empty result is not an error.
func (m *VectorDBManager) Search(ctx context.Context, queryEmbedding []float32, courseID string, matchCount int, matchThreshold float64) ([]models.SearchResult, error) {
	count := m.collection.Count()
	if count == 0 {
		return nil, nil
	}
	nResults := matchCount
	if nResults > count {
		nResults = count
	}

	opts := chromem.QueryOptions{
		QueryEmbedding: queryEmbedding,
		NResults:       nResults,
	}
	if courseID != "" {
		opts.Where = map[string]string{"course_id": courseID}
	}

	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	// similarity descending, ties broken by ingestion order
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		a, _ := strconv.Atoi(results[i].Metadata["chunk_id"])
		b, _ := strconv.Atoi(results[j].Metadata["chunk_id"])
		return a < b
	})

	var out []models.SearchResult
	for _, r := range results {
		similarity := float64(r.Similarity)
		if similarity < matchThreshold {
			continue
		}
		moduleNumber, _ := strconv.Atoi(r.Metadata["module_number"])
		out = append(out, models.SearchResult{
			ID:         r.ID,
			Content:    r.Content,
			Similarity: similarity,
			Metadata: models.ChunkMetadata{
				ModuleNumber: moduleNumber,
				Topic:        r.Metadata["topic"],
				Source:       r.Metadata["source"],
			},
		})
	}
	return out, nil
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	if err := m.db.DeleteCollection(m.collection.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}

// export to file
func (m *VectorDBManager) Export(ctx context.Context) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if err := m.db.ExportToFile(m.filePath, compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

func chunkMetadata(courseID string, chunk models.Chunk, source string) map[string]string {
	md := map[string]string{
		"course_id": courseID,
		"source":    source,
		"chunk_id":  strconv.Itoa(chunk.ChunkID),
	}
	if chunk.ModuleNumber > 0 {
		md["module_number"] = strconv.Itoa(chunk.ModuleNumber)
	}
	if chunk.Topic != "" {
		md["topic"] = chunk.Topic
	}
	return md
}
