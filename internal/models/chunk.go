package models

import (
	"fmt"
	"strconv"
	"strings"
)

// BBox is a rectangle in page space, origin at the top-left corner.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

func (b BBox) Width() float64  { return b.X1 - b.X0 }
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		X0: min(b.X0, o.X0),
		Y0: min(b.Y0, o.Y0),
		X1: max(b.X1, o.X1),
		Y1: max(b.Y1, o.Y1),
	}
}

// Chunk is a contiguous segment of document text with its page metadata.
// Chunks are built once at ingestion time and never mutated afterwards.
type Chunk struct {
	ID          string   `json:"id"`
	DocumentID  string   `json:"document_id"`
	Content     string   `json:"content"`
	PageNumber  int      `json:"page_number"`
	ChunkID     int      `json:"chunk_id"`
	StartOffset int      `json:"start_offset"`
	EndOffset   int      `json:"end_offset"`
	BBox        *BBox    `json:"bbox,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// ScoredChunk is a chunk returned by one of the retrieval strategies.
type ScoredChunk struct {
	Chunk
	Score     float64 `json:"score"`
	Retrieval string  `json:"retrieval"`
}

const (
	RetrievalVector  = "vector"
	RetrievalKeyword = "keyword"
	RetrievalBoth    = "vector+keyword"
)

// ChunkKey builds the stable identifier of a chunk within a document.
func ChunkKey(documentID string, page, chunkID int) string {
	return fmt.Sprintf("%s-p%d-c%d", documentID, page, chunkID)
}

// metadata keys shared by the vector stores
const (
	MetaDocumentID  = "document_id"
	MetaPage        = "page"
	MetaChunkID     = "chunk_id"
	MetaStartOffset = "start_offset"
	MetaEndOffset   = "end_offset"
	MetaBBox        = "bbox"
	MetaImages      = "images"
)

// Metadata flattens the chunk attributes into string metadata.
func (c Chunk) Metadata() map[string]string {
	meta := map[string]string{
		MetaDocumentID:  c.DocumentID,
		MetaPage:        strconv.Itoa(c.PageNumber),
		MetaChunkID:     strconv.Itoa(c.ChunkID),
		MetaStartOffset: strconv.Itoa(c.StartOffset),
		MetaEndOffset:   strconv.Itoa(c.EndOffset),
	}
	if c.BBox != nil {
		meta[MetaBBox] = fmt.Sprintf("%g,%g,%g,%g", c.BBox.X0, c.BBox.Y0, c.BBox.X1, c.BBox.Y1)
	}
	if len(c.Images) > 0 {
		meta[MetaImages] = strings.Join(c.Images, "\n")
	}
	return meta
}

// ChunkFromMetadata rebuilds a chunk from the flattened form produced by Metadata.
// Missing or malformed fields are left at their zero value.
func ChunkFromMetadata(id, content string, meta map[string]string) Chunk {
	c := Chunk{
		ID:         id,
		DocumentID: meta[MetaDocumentID],
		Content:    content,
	}
	c.PageNumber, _ = strconv.Atoi(meta[MetaPage])
	c.ChunkID, _ = strconv.Atoi(meta[MetaChunkID])
	c.StartOffset, _ = strconv.Atoi(meta[MetaStartOffset])
	c.EndOffset, _ = strconv.Atoi(meta[MetaEndOffset])
	if raw := meta[MetaBBox]; raw != "" {
		c.BBox = parseBBox(raw)
	}
	if raw := meta[MetaImages]; raw != "" {
		c.Images = strings.Split(raw, "\n")
	}
	return c
}

func parseBBox(raw string) *BBox {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil
		}
		v[i] = f
	}
	return &BBox{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}
}

// Richness counts the populated metadata fields; used to pick between two
// copies of the same chunk.
func (c Chunk) Richness() int {
	n := 0
	if c.DocumentID != "" {
		n++
	}
	if c.PageNumber > 0 {
		n++
	}
	if c.ChunkID > 0 {
		n++
	}
	if c.EndOffset > c.StartOffset {
		n++
	}
	if c.BBox != nil {
		n++
	}
	if len(c.Images) > 0 {
		n++
	}
	if c.Content != "" {
		n++
	}
	return n
}
