package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"examprep/internal/config"
	"examprep/internal/models"
)

// ErrNotFound is returned when a record does not exist or is not visible
// to the caller.
var ErrNotFound = errors.New("not found")

// SyllabusChunk is an ingested piece of syllabus content with its
// embedding. Immutable once stored; the chat pipeline only reads it.
type SyllabusChunk struct {
	bun.BaseModel `bun:"table:syllabus_chunks,alias:sc"`
	ID            string               `bun:"id,pk"`
	CourseID      string               `bun:"course_id"`
	Content       string               `bun:"content,notnull"`
	Embedding     []float32            `bun:"embedding,notnull,type:vector(768)"`
	Metadata      models.ChunkMetadata `bun:"metadata,type:jsonb"`
	// position of the chunk within its source document, breaks
	// similarity ties in search
	Position  int       `bun:"position,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`

	// populated by vector search queries only
	Similarity float64 `bun:"similarity,scanonly"`
}

// Conversation is a chat session owned by a single user.
type Conversation struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`
	ID            string    `bun:"id,pk"`
	UserID        string    `bun:"user_id,notnull"`
	Title         string    `bun:"title,notnull"`
	CourseID      string    `bun:"course_id,nullzero"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Message is one turn of a conversation. Append-only, never mutated.
type Message struct {
	bun.BaseModel  `bun:"table:messages,alias:m"`
	ID             string                 `bun:"id,pk"`
	ConversationID string                 `bun:"conversation_id,notnull"`
	Role           string                 `bun:"role,notnull"`
	Content        string                 `bun:"content,notnull"`
	Sources        []models.MessageSource `bun:"sources,type:jsonb"`
	CreatedAt      time.Time              `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.URL + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Key))), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	for _, model := range []interface{}{
		(*SyllabusChunk)(nil),
		(*Conversation)(nil),
		(*Message)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
