package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"examprep/internal/chromemdb"
	"examprep/internal/config"
	"examprep/internal/db"
	"examprep/internal/embedding"
	"examprep/internal/helper"
	"examprep/internal/models"
	"examprep/internal/parser"
)

const configFilePath = "./configs/config.yaml"

// chunkSink is where ingested chunks end up: Postgres or chromem.
type chunkSink interface {
	StoreChunks(ctx context.Context, courseID string, chunks []models.Chunk, embeddings [][]float32, source string) error
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the syllabus document")
	courseID := flag.String("course", "", "Course ID the document belongs to")
	source := flag.String("source", "", "Course code shown in citations, e.g. CST201")
	dryRun := flag.Bool("dry-run", false, "Parse only, do not embed or store")
	reset := flag.Bool("reset", false, "Drop previously ingested chunks first")
	export := flag.Bool("export", false, "Export the chromem collection to an encrypted file after ingest")
	flag.Parse()

	if *filePath == "" {
		log.Fatal().Msg("Please provide a syllabus document using the -file flag")
	}

	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	chunks, err := parser.New(cfg).ParseFile(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	log.Info().Int("chunks", len(chunks)).Msg("Parsed document")

	if *dryRun {
		helper.PrettyPrint(chunks)
		return
	}

	ctx := context.Background()

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	embeddings, err := embedding.GenerateEmbeddings(ctx, embedder, chunks)
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating embedding")
	}

	var sink chunkSink
	var vectorDB *chromemdb.VectorDBManager
	if cfg.RAG.VectorBackend == "chromem" {
		if err := helper.CreateFolder(cfg.RAG.ChromemPath); err != nil {
			log.Fatal().Err(err).Msg("Error creating folder")
		}
		manager, err := chromemdb.NewVectorDBManager(cfg.RAG.ChromemPath, cfg.RAG.Collection, false, cfg.RAG.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating vector database manager")
		}
		if *reset {
			if err := manager.DeleteCollection(); err != nil {
				log.Fatal().Err(err).Msg("Error resetting collection")
			}
			if _, err := manager.GetOrCreateCollection(cfg.RAG.Collection); err != nil {
				log.Fatal().Err(err).Msg("Error recreating collection")
			}
		}
		vectorDB = manager
		sink = manager
	} else {
		dbClient, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		bunDB := db.NewDB(dbClient, cfg.Database.Debug)
		defer bunDB.Close()
		store := db.NewSyllabusStore(bunDB)
		if *reset {
			if err := store.DropChunks(ctx); err != nil {
				log.Fatal().Err(err).Msg("Error resetting chunks")
			}
		}
		if err := db.InitDB(ctx, bunDB); err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		sink = store
	}

	if err := sink.StoreChunks(ctx, *courseID, chunks, embeddings, *source); err != nil {
		log.Fatal().Err(err).Msg("Error storing chunks")
	}
	log.Info().Int("chunks", len(chunks)).Str("course", *courseID).Msg("Ingested syllabus document")

	if *export {
		if vectorDB == nil {
			log.Fatal().Msg("-export requires the chromem vector backend")
		}
		if err := vectorDB.Export(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error exporting vector database")
		}
		log.Info().Msg("Exported vector database")
	}
}
