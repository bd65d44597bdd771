package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"document-qa/internal/config"
	"document-qa/internal/keyword"
	"document-qa/internal/models"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

const textSearchConfig = "simple"

// ChunkRecord is a chunk row used for full-text keyword retrieval.
type ChunkRecord struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string    `bun:"id,pk"`
	DocumentID    string    `bun:"document_id,notnull"`
	Page          int       `bun:"page,notnull"`
	ChunkIndex    int       `bun:"chunk_index,notnull"`
	Content       string    `bun:"content,notnull"`
	StartOffset   int       `bun:"start_offset"`
	EndOffset     int       `bun:"end_offset"`
	BBox          []float64 `bun:"bbox,array"`
	Images        []string  `bun:"images,array"`
	Rank          float64   `bun:"rank,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the database with the configured driver.
func ConnectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	switch cfg.Driver {
	case "pq":
		return sql.Open("postgres", cfg.DSN)
	case "pgdriver", "":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*ChunkRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create chunks table: %w", err)
	}
	_, err := db.NewCreateIndex().
		Model((*ChunkRecord)(nil)).
		Index("chunks_document_id_idx").
		IfNotExists().
		Column("document_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create chunks index: %w", err)
	}
	return nil
}

// KeywordStore serves keyword retrieval from Postgres full-text search.
type KeywordStore struct {
	db *bun.DB
}

func NewKeywordStore(db *bun.DB) *KeywordStore {
	return &KeywordStore{db: db}
}

// IndexChunks replaces the stored chunks of a document.
func (s *KeywordStore) IndexChunks(ctx context.Context, documentID string, chunks []models.Chunk) error {
	records := make([]ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		records = append(records, toRecord(c))
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ChunkRecord)(nil)).Where("document_id = ?", documentID).Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear chunks: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&records).Exec(ctx); err != nil {
			return fmt.Errorf("failed to store chunks: %w", err)
		}
		log.Info().Str("document_id", documentID).Msgf("Stored %d chunks in postgres", len(records))
		return nil
	})
}

// Search ranks the chunks of a document with ts_rank against the query keywords.
func (s *KeywordStore) Search(ctx context.Context, documentID, query string, topK int) ([]models.ScoredChunk, error) {
	exists, err := s.db.NewSelect().Model((*ChunkRecord)(nil)).Where("document_id = ?", documentID).Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to look up document: %w", err)
	}
	if !exists {
		return nil, models.ErrIndexNotBuilt
	}

	tsq := toTSQuery(query)
	if tsq == "" || topK <= 0 {
		return nil, nil
	}

	var records []ChunkRecord
	err = s.db.NewSelect().
		Model(&records).
		Column("c.*").
		ColumnExpr("ts_rank(to_tsvector(?, c.content), to_tsquery(?, ?)) AS rank", textSearchConfig, textSearchConfig, tsq).
		Where("c.document_id = ?", documentID).
		Where("to_tsvector(?, c.content) @@ to_tsquery(?, ?)", textSearchConfig, textSearchConfig, tsq).
		OrderExpr("rank DESC, c.page ASC, c.chunk_index ASC").
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	out := make([]models.ScoredChunk, 0, len(records))
	for _, r := range records {
		out = append(out, models.ScoredChunk{
			Chunk:     r.toChunk(),
			Score:     r.Rank,
			Retrieval: models.RetrievalKeyword,
		})
	}
	return out, nil
}

// DeleteDocument removes the stored chunks of a document.
func (s *KeywordStore) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.db.NewDelete().Model((*ChunkRecord)(nil)).Where("document_id = ?", documentID).Exec(ctx)
	return err
}

func DropChunks(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*ChunkRecord)(nil)).IfExists().Exec(ctx)
	return err
}

// toTSQuery ORs the query keywords; terms are alphanumeric so no quoting is needed.
func toTSQuery(query string) string {
	return strings.Join(keyword.Keywords(query), " | ")
}

func toRecord(c models.Chunk) ChunkRecord {
	r := ChunkRecord{
		ID:          c.ID,
		DocumentID:  c.DocumentID,
		Page:        c.PageNumber,
		ChunkIndex:  c.ChunkID,
		Content:     c.Content,
		StartOffset: c.StartOffset,
		EndOffset:   c.EndOffset,
		Images:      c.Images,
	}
	if c.BBox != nil {
		r.BBox = []float64{c.BBox.X0, c.BBox.Y0, c.BBox.X1, c.BBox.Y1}
	}
	return r
}

func (r ChunkRecord) toChunk() models.Chunk {
	c := models.Chunk{
		ID:          r.ID,
		DocumentID:  r.DocumentID,
		Content:     r.Content,
		PageNumber:  r.Page,
		ChunkID:     r.ChunkIndex,
		StartOffset: r.StartOffset,
		EndOffset:   r.EndOffset,
	}
	if len(r.BBox) == 4 {
		c.BBox = &models.BBox{X0: r.BBox[0], Y0: r.BBox[1], X1: r.BBox[2], Y1: r.BBox[3]}
	}
	if len(r.Images) > 0 {
		c.Images = r.Images
	}
	return c
}
