package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"examprep/internal/auth"
	"examprep/internal/chromemdb"
	"examprep/internal/config"
	"examprep/internal/db"
	"examprep/internal/embedding"
	"examprep/internal/llmservice"
	"examprep/internal/rag"
	"examprep/internal/ratelimit"
	"examprep/internal/server"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Parse()

	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(dbClient, cfg.Database.Debug)
	defer bunDB.Close()

	if err := db.InitDB(context.Background(), bunDB); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	completer, err := llmservice.NewClient(&cfg.ChatLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing completion client")
	}

	var searcher rag.Searcher
	if cfg.RAG.VectorBackend == "chromem" {
		manager, err := chromemdb.NewVectorDBManager(cfg.RAG.ChromemPath, cfg.RAG.Collection, false, cfg.RAG.EncryptionKey)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating vector database manager")
		}
		searcher = manager
	} else {
		searcher = db.NewSyllabusStore(bunDB)
	}

	ragService := rag.NewRAG(embedder, searcher, completer, &cfg.RAG)
	limiter := ratelimit.NewFromConfig(&cfg.Redis)
	authenticator := auth.New(cfg.Auth.JWTSecret)
	convStore := db.NewConversationStore(bunDB)

	srv := server.NewServer(convStore, ragService, limiter, authenticator, cfg)
	log.Info().Str("addr", cfg.Server.Addr).Msg("Starting exam prep server")
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
