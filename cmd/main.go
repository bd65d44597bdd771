package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-qa/internal/chromemdb"
	"document-qa/internal/config"
	"document-qa/internal/db"
	"document-qa/internal/document"
	"document-qa/internal/embedding"
	"document-qa/internal/helper"
	"document-qa/internal/keyword"
	"document-qa/internal/llmservice"
	"document-qa/internal/parser"
	"document-qa/internal/qdrantdb"
	"document-qa/internal/rag"
	"document-qa/internal/retriever"
	"document-qa/internal/session"
)

const configFilePath = "./configs/config.yaml"

// store is a vector or keyword index of the document chunks.
type store interface {
	document.Index
	retriever.Searcher
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the document file")
	query := flag.String("query", "", "Question about the document")
	dryRun := flag.Bool("dry-run", false, "Parse the document and print the chunks, do not index")
	flag.Parse()

	if *filePath == "" {
		log.Fatal().Msg("Please provide a document file using the -file flag")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx := context.Background()
	if *dryRun {
		parseOnly(*filePath, cfg)
		return
	}

	if err := run(ctx, cfg, *filePath, *query); err != nil {
		log.Fatal().Err(err).Msg("Error answering query")
	}
}

func parseOnly(filePath string, cfg *config.Config) {
	id, err := helper.DocumentID(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading document")
	}
	parsed, err := parser.ParseFile(filePath, id, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}
	log.Info().Msg("Parsed content")
	helper.PrettyPrint(parsed)
}

func run(ctx context.Context, cfg *config.Config, filePath, query string) error {
	vector, closeVector, err := newVectorStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeVector()

	kw, closeKeyword, err := newKeywordStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKeyword()

	docs := document.NewManager(cfg, vector, kw)
	doc, err := docs.Ingest(ctx, filePath)
	if err != nil {
		return err
	}
	exportVectors(cfg, vector, doc.ID)
	if query == "" {
		helper.PrettyPrint(doc)
		return nil
	}

	model, err := llmservice.NewModel(&cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize llm: %w", err)
	}
	sessions, err := session.NewStore(cfg.Session.Capacity)
	if err != nil {
		return err
	}

	engine := rag.NewEngine(
		retriever.NewDual(vector, kw, cfg.RAG.VectorTopK, cfg.RAG.KeywordTopK, cfg.RAG.RetrievalMode),
		rag.NewSynthesizer(llmservice.NewClient(model, cfg.LLM), cfg.RAG),
		sessions,
	)
	docs.OnRemove(engine)

	resp, err := engine.AnswerQuery(ctx, doc.ID, query)
	if err != nil {
		return err
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", resp.Question)
	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", resp.Answer)
	log.Info().Msg("Citations: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(resp)
	return nil
}

func newVectorStore(ctx context.Context, cfg *config.Config) (store, func(), error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	switch cfg.VectorStore.Backend {
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		vs, err := qdrantdb.New(q.Addr, q.Collection, embedder)
		if err != nil {
			return nil, nil, err
		}
		if err := vs.EnsureCollection(ctx, q.Dimensions); err != nil {
			vs.Close()
			return nil, nil, err
		}
		return vs, func() { vs.Close() }, nil
	default:
		if err := helper.CreateFolder(cfg.VectorStore.Path); err != nil {
			return nil, nil, err
		}
		vs, err := chromemdb.NewVectorDBManager(
			cfg.VectorStore.Path,
			cfg.VectorStore.InMemory,
			cfg.VectorStore.Compress,
			cfg.RAG.EncryptionKey,
			chromemdb.EmbeddingFunc(embedder),
		)
		if err != nil {
			return nil, nil, err
		}
		return vs, func() {}, nil
	}
}

func newKeywordStore(ctx context.Context, cfg *config.Config) (store, func(), error) {
	if cfg.KeywordStore.Backend != "postgres" {
		return keyword.NewTableIndex(), func() {}, nil
	}

	sqldb, err := db.ConnectDB(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	bunDB := db.NewDB(sqldb, cfg.Database.Debug)
	if err := db.InitDB(ctx, bunDB); err != nil {
		bunDB.Close()
		return nil, nil, err
	}
	return db.NewKeywordStore(bunDB), func() { bunDB.Close() }, nil
}

// exportVectors snapshots an in-memory chromem collection to an encrypted file.
func exportVectors(cfg *config.Config, vector store, documentID string) {
	m, ok := vector.(*chromemdb.VectorDBManager)
	if !ok || !cfg.VectorStore.InMemory || cfg.RAG.EncryptionKey == "" {
		return
	}
	path, err := m.Export(documentID)
	if err != nil {
		log.Error().Err(err).Msg("Error exporting collection")
		return
	}
	log.Info().Str("file", path).Msg("Exported collection")
}
