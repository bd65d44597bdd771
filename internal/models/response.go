package models

// Citation is a marker of the answer resolved against the source list.
type Citation struct {
	Marker      int    `json:"marker"`       // k in [k], 1-based
	SourceIndex int    `json:"source_index"` // k-1
	ChunkID     string `json:"chunk_id"`
	PageNumber  int    `json:"page_number"`
	Text        string `json:"text"`
}

// Annotation is a highlight rectangle for a document viewer.
type Annotation struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color"`
	Title  string  `json:"title"`
	Label  string  `json:"label"`
}

// CitationWarning records a marker that could not be resolved.
type CitationWarning struct {
	Marker  int    `json:"marker"`
	Sources int    `json:"sources"`
	Message string `json:"message"`
}

// Image is an image referenced by a cited chunk.
type Image struct {
	FilePath string `json:"file_path"`
	Page     int    `json:"page"`
	Caption  string `json:"caption"`
}

// QueryResponse is the result of one question against one document.
// Citation marker k in Answer refers to Sources[k-1].
type QueryResponse struct {
	DocumentID  string            `json:"document_id"`
	Question    string            `json:"question"`
	Answer      string            `json:"answer"`
	Sources     []Chunk           `json:"sources"`
	Citations   []Citation        `json:"citations"`
	Annotations []Annotation      `json:"annotations"`
	Images      []Image           `json:"images,omitempty"`
	Warnings    []CitationWarning `json:"warnings,omitempty"`
}
